package llm

import (
	"context"
	"sync"

	"sheetlens/models"
	"sheetlens/ports"
)

// MockClient replays canned replies for tests. Replies are consumed in order;
// the last one repeats once the list is exhausted.
type MockClient struct {
	Replies []string
	Errors  []error // Errors[i] fails the i-th call when non-nil
	Usage   models.TokenUsage

	mu       sync.Mutex
	Requests []ports.ChatRequest
}

// Provider returns "mock"
func (m *MockClient) Provider() string {
	return "mock"
}

// Complete records the request and returns the next canned reply
func (m *MockClient) Complete(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.Requests)
	m.Requests = append(m.Requests, req)

	if call < len(m.Errors) && m.Errors[call] != nil {
		return nil, m.Errors[call]
	}

	reply := ""
	if len(m.Replies) > 0 {
		i := call
		if i >= len(m.Replies) {
			i = len(m.Replies) - 1
		}
		reply = m.Replies[i]
	}

	return &ports.ChatResponse{
		Content:  reply,
		Model:    req.Model,
		Provider: m.Provider(),
		Usage:    m.Usage,
	}, nil
}

// Calls returns how many requests were made
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
