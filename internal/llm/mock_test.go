package llm

import (
	"context"
	"fmt"
	"sync"
)

// scriptedProvider replays queued errors, then queued responses.
type scriptedProvider struct {
	name string

	mu             sync.Mutex
	responses      []*Response
	errors         []error
	embedResponses [][][]float32
	embedErrors    []error
	calls          int
	embedCalls     int
}

func (m *scriptedProvider) Name() string { return m.name }

func (m *scriptedProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.errors) > 0 {
		err := m.errors[0]
		m.errors = m.errors[1:]
		return nil, err
	}
	if len(m.responses) > 0 {
		resp := m.responses[0]
		m.responses = m.responses[1:]
		return resp, nil
	}
	return &Response{Content: "ok"}, nil
}

func (m *scriptedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++

	if len(m.embedErrors) > 0 {
		err := m.embedErrors[0]
		m.embedErrors = m.embedErrors[1:]
		return nil, err
	}
	if len(m.embedResponses) > 0 {
		resp := m.embedResponses[0]
		m.embedResponses = m.embedResponses[1:]
		return resp, nil
	}
	return nil, fmt.Errorf("mock: no embeddings configured for %d texts", len(texts))
}
