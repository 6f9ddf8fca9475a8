package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	. "github.com/littleoaks/schoolops/apps/api/echo"
	"github.com/littleoaks/schoolops/core"
	"github.com/littleoaks/schoolops/core/billing"
	"github.com/littleoaks/schoolops/core/registration"
	"github.com/littleoaks/schoolops/core/student"
	emailsvc "github.com/littleoaks/schoolops/services/email"
	funcsvc "github.com/littleoaks/schoolops/services/functions"
	inmemdb "github.com/littleoaks/schoolops/storage/database/inmem"
	testutil "github.com/littleoaks/schoolops/tests"
)

type testEnv struct {
	app   Server
	db    *inmemdb.DB
	funcs *funcsvc.Mock
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.Open()
	funcs := funcsvc.NewMock()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	regSvc := registration.NewService(
		inmemdb.NewRegistrationRepository(db),
		inmemdb.NewOrgRepository(db),
		student.NewService(inmemdb.NewStudentRepository(db)),
		billing.NewService(inmemdb.NewBillingRepository(db)),
		registration.NewDispatcher(funcs, mailSvc, logger),
		logger,
	)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		RegSvc:     regSvc,
		Validate:   validate,
		Translator: translator,
	})
	return &testEnv{app: app, db: db, funcs: funcs}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody() failed: %v (body: %s)", err, rec.Body.String())
	}
}

// checkCodeAndData compares the response against the expected code and JSON
// body, printing a readable diff on mismatch.
func checkCodeAndData(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantData []byte) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, wantCode)
	}

	var got, want interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshaling body failed: %v (body: %s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(wantData, &want); err != nil {
		t.Fatalf("unmarshaling wantData failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		gotPretty, _ := json.MarshalIndent(got, "", "  ")
		wantPretty, _ := json.MarshalIndent(want, "", "  ")
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(wantPretty)),
			B:        difflib.SplitLines(string(gotPretty)),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		t.Errorf("unexpected body:\n%s", diff)
	}
}
