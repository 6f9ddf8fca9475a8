package funcsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"

	"github.com/littleoaks/schoolops/core"
)

// httpCaller invokes serverless functions over HTTP. Each function is
// exposed as POST <baseURL>/<name> taking and returning JSON.
type httpCaller struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

var _ core.FunctionCaller = (*httpCaller)(nil)

func NewHTTPCaller(conf *core.Config) *httpCaller {
	return &httpCaller{
		baseURL:    conf.Functions.BaseURL,
		serviceKey: conf.Functions.ServiceKey,
		client:     &http.Client{Timeout: conf.Functions.Timeout},
	}
}

func (c *httpCaller) Invoke(ctx context.Context, name string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "marshaling %s payload", name)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, body)
	if err != nil {
		return errors.Wrapf(err, "building %s request", name)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "invoking %s", name)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		b, _ := ioutil.ReadAll(res.Body)
		return errors.Errorf("invoking %s: %s: %s", name, res.Status, string(b))
	}

	if result != nil {
		if err := json.NewDecoder(res.Body).Decode(result); err != nil {
			return errors.Wrapf(err, "decoding %s response", name)
		}
	}
	return nil
}
