package registration_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littleoaks/schoolops/core"
	"github.com/littleoaks/schoolops/core/billing"
	"github.com/littleoaks/schoolops/core/registration"
	"github.com/littleoaks/schoolops/core/student"
	emailsvc "github.com/littleoaks/schoolops/services/email"
	funcsvc "github.com/littleoaks/schoolops/services/functions"
	inmemdb "github.com/littleoaks/schoolops/storage/database/inmem"
	testutil "github.com/littleoaks/schoolops/tests"
)

type env struct {
	svc   *registration.Service
	db    *inmemdb.DB
	funcs *funcsvc.Mock
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.Open()
	funcs := funcsvc.NewMock()

	svc := registration.NewService(
		inmemdb.NewRegistrationRepository(db),
		inmemdb.NewOrgRepository(db),
		student.NewService(inmemdb.NewStudentRepository(db)),
		billing.NewService(inmemdb.NewBillingRepository(db)),
		registration.NewDispatcher(funcs, emailsvc.NewConsoleServiceMock(conf, logger), logger),
		logger,
	)
	return &env{svc: svc, db: db, funcs: funcs}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)

	t.Run("merges all channels newest first", func(t *testing.T) {
		e := setup(t)
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1", base))
		e.db.AddApp(testutil.AppRow("a1", "org1", "", base.Add(2*time.Hour)))
		e.db.AddAftercare(testutil.AftercareRow("c1", "org1", base.Add(time.Hour)))

		regs, err := e.svc.List(ctx, "org1", registration.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, regs, 3)
		assert.Equal(t, "a1", regs[0].ID)
		assert.Equal(t, "c1", regs[1].ID)
		assert.Equal(t, "w1", regs[2].ID)
	})

	t.Run("unprovisioned channel contributes nothing", func(t *testing.T) {
		e := setup(t)
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1", base))
		e.db.SetProvisioned(registration.SourceInApp, false)
		e.db.SetProvisioned(registration.SourceAftercare, false)

		regs, err := e.svc.List(ctx, "org1", registration.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, "w1", regs[0].ID)
	})

	t.Run("status filter applies to normalized statuses", func(t *testing.T) {
		e := setup(t)
		row := testutil.AftercareRow("c1", "org1", base)
		row.Status = "enrolled" // normalizes to approved
		e.db.AddAftercare(row)
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1", base))

		regs, err := e.svc.List(ctx, "org1", registration.QueryFilter{Status: registration.StatusApproved})
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, "c1", regs[0].ID)
	})
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()
	enrollment := time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC)

	seed := func(e *env) registration.WebsiteRow {
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		testutil.CreateFeeStructure(t, e.db, "fs1", "org1", "Tuition", "tuition", 200, true)
		row := testutil.WebsiteRow("w1", "org1")
		row.PaymentVerified = true
		e.db.AddWebsite(row)
		return row
	}

	t.Run("new student: code, fees, status, sync, email", func(t *testing.T) {
		e := setup(t)
		seed(e)

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)

		assert.True(t, res.StudentCreated)
		assert.True(t, strings.HasPrefix(res.StudentCode, "LIT-"), res.StudentCode)

		students := e.db.Students()
		require.Len(t, students, 1)
		assert.Equal(t, "Jane", students[0].FirstName)

		fees := e.db.StudentFees()
		require.Len(t, fees, 2)
		assert.Equal(t, time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC), fees[0].DueDate)
		assert.Equal(t, time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC), fees[1].DueDate)
		assert.Equal(t, 200.0, fees[0].Amount)

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetWebsite(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, string(registration.StatusApproved), refreshed.Status)
		assert.Equal(t, "admin1", refreshed.ReviewedBy)
		assert.Equal(t, students[0].ID, refreshed.StudentID)

		assert.Equal(t, 1, e.funcs.CallCount(core.FuncSyncRegistration))
		require.Len(t, emailsvc.SentMessages, 1)
		assert.Contains(t, emailsvc.SentMessages[0].Subject, "approved")
	})

	t.Run("existing student matched by name is not billed again", func(t *testing.T) {
		e := setup(t)
		seed(e)
		testutil.CreateStudent(t, e.db, "st1", "LIT-21-0001", "org1", "Jane", "Doe")

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)

		assert.False(t, res.StudentCreated)
		assert.Equal(t, "LIT-21-0001", res.StudentCode)
		assert.Len(t, e.db.Students(), 1)
		assert.Empty(t, e.db.StudentFees())
	})

	t.Run("explicit student back-reference wins over name match", func(t *testing.T) {
		e := setup(t)
		row := seed(e)
		testutil.CreateStudent(t, e.db, "st1", "LIT-21-0001", "org1", "Jane", "Doe")
		testutil.CreateStudent(t, e.db, "st2", "LIT-21-0002", "org1", "Someone", "Else")
		row.StudentID = "st2"
		e.db.AddWebsite(row)

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)
		assert.Equal(t, "LIT-21-0002", res.StudentCode)
	})

	t.Run("existing parent profile gets linked", func(t *testing.T) {
		e := setup(t)
		seed(e)
		testutil.CreateParent(t, e.db, "parent1", "John", "Doe", "JOHN@test.cd") // matched case-insensitively

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)

		assert.True(t, res.ParentLinked)
		assert.Equal(t, 1, e.funcs.CallCount(core.FuncLinkParentSchool))

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetWebsite(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, "parent1", refreshed.ParentID)
		assert.Equal(t, 1, e.funcs.CallCount(core.FuncNotifyParent))
	})

	t.Run("sync response overrides the parent-linked flag", func(t *testing.T) {
		e := setup(t)
		seed(e)
		e.funcs.SetResponse(core.FuncSyncRegistration, map[string]interface{}{"parent_linked": true})

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)
		assert.True(t, res.ParentLinked)
	})

	t.Run("dispatcher failures never fail the approval", func(t *testing.T) {
		e := setup(t)
		seed(e)
		testutil.CreateParent(t, e.db, "parent1", "John", "Doe", "john@test.cd")
		boom := errors.New("function unavailable")
		e.funcs.SetError(core.FuncSyncRegistration, boom)
		e.funcs.SetError(core.FuncLinkParentSchool, boom)
		e.funcs.SetError(core.FuncNotifyParent, boom)

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)
		assert.True(t, res.StudentCreated)
		assert.False(t, res.ParentLinked)

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetWebsite(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, string(registration.StatusApproved), refreshed.Status)
	})

	t.Run("missing fee structure is non-fatal", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		row := testutil.WebsiteRow("w1", "org1")
		row.PaymentVerified = true
		e.db.AddWebsite(row)

		res, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)
		assert.True(t, res.StudentCreated)
		assert.Empty(t, e.db.StudentFees())
	})

	t.Run("aftercare row with a raw origin status", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		row := testutil.AftercareRow("c1", "org1")
		row.Status = "active" // aftercare vocabulary, normalizes to pending
		e.db.AddAftercare(row)

		res, err := e.svc.Approve(ctx, registration.SourceAftercare, "c1", enrollment, "admin1")
		require.NoError(t, err)
		assert.True(t, res.StudentCreated)

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetAftercare(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, string(registration.StatusApproved), refreshed.Status)
		assert.Equal(t, "admin1", refreshed.ReviewedBy)
	})

	t.Run("aftercare terminal raw status counts as reviewed", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		row := testutil.AftercareRow("c1", "org1")
		row.Status = "paid" // remaps to approved
		e.db.AddAftercare(row)

		_, err := e.svc.Approve(ctx, registration.SourceAftercare, "c1", enrollment, "admin1")
		assert.Equal(t, registration.ErrAlreadyReviewed, errors.Cause(err))
	})

	t.Run("already reviewed", func(t *testing.T) {
		e := setup(t)
		seed(e)
		_, err := e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin1")
		require.NoError(t, err)

		_, err = e.svc.Approve(ctx, registration.SourceWebsite, "w1", enrollment, "admin2")
		assert.Equal(t, registration.ErrAlreadyReviewed, errors.Cause(err))
	})

	t.Run("not found", func(t *testing.T) {
		e := setup(t)
		_, err := e.svc.Approve(ctx, registration.SourceWebsite, "lol", enrollment, "admin1")
		assert.Equal(t, registration.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("reason is required", func(t *testing.T) {
		e := setup(t)
		err := e.svc.Reject(ctx, registration.SourceWebsite, "w1", "   ", "admin1")
		require.Error(t, err)
		_, ok := errors.Cause(err).(*core.ValidationError)
		assert.True(t, ok, "want *core.ValidationError, got %T", err)
	})

	t.Run("website rejection emails the guardian", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1"))

		err := e.svc.Reject(ctx, registration.SourceWebsite, "w1", "incomplete documents", "admin1")
		require.NoError(t, err)

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetWebsite(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, string(registration.StatusRejected), refreshed.Status)
		assert.Equal(t, "incomplete documents", refreshed.RejectionReason)

		// website rejections do not push in-app notifications
		assert.Zero(t, e.funcs.CallCount(core.FuncNotifyParent))
		require.Len(t, emailsvc.SentMessages, 1)
		assert.Contains(t, emailsvc.SentMessages[0].TextContent, "incomplete documents")
	})

	t.Run("in-app rejection notifies the parent", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		testutil.CreateParent(t, e.db, "parent1", "John", "Doe", "john@test.cd")
		e.db.AddApp(testutil.AppRow("a1", "org1", "parent1"))

		err := e.svc.Reject(ctx, registration.SourceInApp, "a1", "no space left", "admin1")
		require.NoError(t, err)
		assert.Equal(t, 1, e.funcs.CallCount(core.FuncNotifyParent))
	})

	t.Run("aftercare rejection writes through the raw status guard", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		e.db.AddAftercare(testutil.AftercareRow("c1", "org1")) // raw status "active"

		err := e.svc.Reject(ctx, registration.SourceAftercare, "c1", "inactive account", "admin1")
		require.NoError(t, err)

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetAftercare(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, string(registration.StatusRejected), refreshed.Status)
		assert.Equal(t, "inactive account", refreshed.RejectionReason)
	})

	t.Run("cancelled aftercare row counts as reviewed", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		row := testutil.AftercareRow("c1", "org1")
		row.Status = "cancelled"
		e.db.AddAftercare(row)

		err := e.svc.Reject(ctx, registration.SourceAftercare, "c1", "too late", "admin1")
		assert.Equal(t, registration.ErrAlreadyReviewed, errors.Cause(err))
	})

	t.Run("already reviewed", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1"))
		require.NoError(t, e.svc.Reject(ctx, registration.SourceWebsite, "w1", "first", "admin1"))

		err := e.svc.Reject(ctx, registration.SourceWebsite, "w1", "second", "admin1")
		assert.Equal(t, registration.ErrAlreadyReviewed, errors.Cause(err))
	})
}

func TestService_VerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("partial success without a matching student", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1"))

		res, err := e.svc.VerifyPayment(ctx, registration.SourceWebsite, "w1", true, "admin1")
		require.NoError(t, err)
		assert.False(t, res.StudentUpdated)

		refreshed, err := inmemdb.NewRegistrationRepository(e.db).GetWebsite(ctx, "w1")
		require.NoError(t, err)
		assert.True(t, refreshed.PaymentVerified)
	})

	t.Run("mirrors onto the student case-insensitively", func(t *testing.T) {
		e := setup(t)
		testutil.CreateOrganization(t, e.db, "org1", "Little Oaks")
		e.db.AddWebsite(testutil.WebsiteRow("w1", "org1"))
		testutil.CreateStudent(t, e.db, "st1", "LIT-21-0001", "org1", "JANE", "DOE")

		res, err := e.svc.VerifyPayment(ctx, registration.SourceWebsite, "w1", true, "admin1")
		require.NoError(t, err)
		assert.True(t, res.StudentUpdated)

		for _, st := range e.db.Students() {
			assert.True(t, st.PaymentVerified)
			assert.True(t, st.FeesPaid)
		}
	})

	t.Run("not found", func(t *testing.T) {
		e := setup(t)
		_, err := e.svc.VerifyPayment(ctx, registration.SourceWebsite, "lol", true, "admin1")
		assert.Equal(t, registration.ErrNotFound, errors.Cause(err))
	})
}
