package agent

import (
	"context"
	"sync"
)

// MockBackend is a Backend for testing.
type MockBackend struct {
	mu        sync.Mutex
	response  string
	err       error
	callCount int
	requests  []Request

	// SummarizeFunc can be overridden for custom behavior.
	SummarizeFunc func(ctx context.Context, req Request) (string, error)
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// SetResponse sets the summary returned by Summarize.
func (m *MockBackend) SetResponse(summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = summary
}

// SetError sets an error to return.
func (m *MockBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CallCount returns the number of Summarize calls made.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, if any.
func (m *MockBackend) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// Summarize implements Backend.
func (m *MockBackend) Summarize(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	fn := m.SummarizeFunc
	response, err := m.response, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return response, nil
}
