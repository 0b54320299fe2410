package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/normqa/ai"
)

// MockLLM is a test double for ai.LLM.
// It allows custom behavior injection via function fields.
type MockLLM struct {
	// GenerateFunc is called by Generate if set.
	// If nil, uses default echo behavior.
	GenerateFunc func(ctx context.Context, prompt, system string) (string, error)

	// GenerateJSONFunc is called by GenerateJSON if set.
	// If nil, out is left untouched and nil is returned.
	GenerateJSONFunc func(ctx context.Context, prompt, system string, out any) error

	// GenerateChatFunc is called by GenerateChat if set.
	// If nil, uses default echo behavior on the last message.
	GenerateChatFunc func(ctx context.Context, messages []ai.ChatMessage, system string) (string, error)

	callCount int
}

// NewMockLLM creates a mock completion service with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockLLM().
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Generate returns a canned completion echoing the prompt.
func (m *MockLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, system)
	}

	return fmt.Sprintf("mock completion for: %s", firstLine(prompt)), nil
}

// GenerateJSON delegates to GenerateJSONFunc when set; the default leaves
// out at its zero value, which most callers treat as an empty result.
func (m *MockLLM) GenerateJSON(ctx context.Context, prompt, system string, out any) error {
	m.callCount++

	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, system, out)
	}

	return nil
}

// GenerateChat returns a canned completion echoing the last message.
func (m *MockLLM) GenerateChat(ctx context.Context, messages []ai.ChatMessage, system string) (string, error) {
	m.callCount++

	if m.GenerateChatFunc != nil {
		return m.GenerateChatFunc(ctx, messages, system)
	}

	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return fmt.Sprintf("mock reply to: %s", firstLine(last)), nil
}

// CallCount returns the number of times any method was called.
func (m *MockLLM) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockLLM) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
	m.GenerateJSONFunc = nil
	m.GenerateChatFunc = nil
}

// JSONResponder builds a GenerateJSONFunc that always unmarshals the given
// payload into out. Convenient for staging one fixed structured response.
func JSONResponder(payload string) func(ctx context.Context, prompt, system string, out any) error {
	return func(ctx context.Context, prompt, system string, out any) error {
		return json.Unmarshal([]byte(payload), out)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
