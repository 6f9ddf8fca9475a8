package funcsvc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/littleoaks/schoolops/core"
)

// Call records a single function invocation made through the Mock.
type Call struct {
	Name    string
	Payload interface{}
}

// Mock is a FunctionCaller for tests. Responses and failures can be
// injected per function name; every invocation is recorded.
type Mock struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]interface{}
	errs      map[string]error
}

var _ core.FunctionCaller = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{
		responses: make(map[string]interface{}),
		errs:      make(map[string]error),
	}
}

// SetResponse makes subsequent invocations of name unmarshal resp into
// the caller's result.
func (m *Mock) SetResponse(name string, resp interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = resp
}

// SetError makes subsequent invocations of name fail with err.
func (m *Mock) SetError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[name] = err
}

func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]Call, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns how many times name was invoked.
func (m *Mock) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, c := range m.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = make(map[string]interface{})
	m.errs = make(map[string]error)
}

func (m *Mock) Invoke(_ context.Context, name string, payload, result interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Name: name, Payload: payload})
	if err := m.errs[name]; err != nil {
		return err
	}
	if resp, ok := m.responses[name]; ok && result != nil {
		b, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, result)
	}
	return nil
}
