package llm

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a configurable CoreLLM for testing middleware and client
// behavior. Script queues responses for successive calls; when the script is
// exhausted the mock keeps returning the last entry.
type MockCoreLLM struct {
	mu sync.Mutex

	// Script holds the responses returned call by call.
	Script []Response
	// Err, when set, is returned instead of a scripted response.
	Err error
	// FailUntilAttempt makes the first N calls fail with Err before the
	// script takes over; useful for retry tests.
	FailUntilAttempt int
	// ResponseDelay simulates provider latency.
	ResponseDelay time.Duration

	ModelName string

	// Tracking.
	CallCount int
	Requests  []Request
}

// NewMockCoreLLM returns a mock that succeeds with a single canned response.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Script:    []Response{{Text: "test response", Model: "test-model", TokensIn: 10, TokensOut: 20}},
		ModelName: "test-model",
	}
}

// DoRequest implements CoreLLM with the configured behavior.
func (m *MockCoreLLM) DoRequest(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.Requests = append(m.Requests, req)

	if m.ResponseDelay > 0 {
		m.mu.Unlock()
		select {
		case <-time.After(m.ResponseDelay):
			m.mu.Lock()
		case <-ctx.Done():
			m.mu.Lock()
			return Response{}, ctx.Err()
		}
	}

	if m.FailUntilAttempt > 0 && m.CallCount <= m.FailUntilAttempt {
		return Response{}, m.failErr()
	}
	if m.Err != nil && m.FailUntilAttempt == 0 {
		return Response{}, m.Err
	}

	idx := m.CallCount - 1 - m.FailUntilAttempt
	if idx >= len(m.Script) {
		idx = len(m.Script) - 1
	}
	if idx < 0 {
		return Response{}, ErrEmptyResponse
	}
	return m.Script[idx], nil
}

func (m *MockCoreLLM) failErr() error {
	if m.Err != nil {
		return m.Err
	}
	return NewProviderError("mock", ErrorTypeServerError, 500, "simulated failure", nil)
}

// GetModel returns the configured mock model name.
func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModelName
}

// SetModel updates the mock model name.
func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModelName = model
}
