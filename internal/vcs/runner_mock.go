package vcs

import (
	"context"
	"strings"
	"sync"
)

// MockRunner is a scripted Runner for tests. Responses are keyed by the
// joined argument string; unscripted commands succeed with empty output so
// tests only script what they assert on. Every invocation is recorded.
type MockRunner struct {
	mu        sync.Mutex
	responses map[string]Result
	errs      map[string]error
	calls     []MockCall
}

// MockCall is one recorded git invocation.
type MockCall struct {
	Dir  string
	Env  []string
	Args []string
}

// NewMockRunner creates an empty mock.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		responses: make(map[string]Result),
		errs:      make(map[string]error),
	}
}

// Script sets the result for the command whose arguments join to key.
func (m *MockRunner) Script(key string, res Result) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = res
	return m
}

// ScriptError makes the command fail at launch, as if git were missing.
func (m *MockRunner) ScriptError(key string, err error) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key] = err
	return m
}

// Run implements Runner.
func (m *MockRunner) Run(_ context.Context, dir string, env []string, args ...string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Dir: dir, Env: env, Args: args})

	key := strings.Join(args, " ")
	if err, ok := m.errs[key]; ok {
		return Result{}, err
	}
	if res, ok := m.responses[key]; ok {
		return res, nil
	}
	return Result{}, nil
}

// Calls returns the recorded invocations in order.
func (m *MockRunner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallKeys returns each recorded invocation as its joined argument string.
func (m *MockRunner) CallKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.calls))
	for i, c := range m.calls {
		keys[i] = strings.Join(c.Args, " ")
	}
	return keys
}

// Called reports whether any recorded invocation matches key exactly.
func (m *MockRunner) Called(key string) bool {
	for _, k := range m.CallKeys() {
		if k == key {
			return true
		}
	}
	return false
}
