package summary

import (
	"context"
	"strings"
	"sync"
)

// MockLLMClient answers with Response, or with the first Responses entry
// whose key appears in the prompt.
type MockLLMClient struct {
	Response  string
	Responses map[string]string
	Err       error

	mu      sync.Mutex
	Prompts []string
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	for key, resp := range m.Responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return m.Response, nil
}
