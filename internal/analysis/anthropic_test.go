package analysis

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	params   []anthropic.MessageNewParams
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = append(m.params, params)
	return m.response, m.err
}

func withMockClient(mock *mockMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(_ string) AnthropicMessager { return mock }
	return func() { newAnthropicClient = old }
}

func TestNewAnthropicAnalystRequiresKey(t *testing.T) {
	if _, err := NewAnthropicAnalyst("  ", ""); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestAnthropicAnalystComplete(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Seller's market. "},
			{Type: "text", Text: "Watch inventory."},
		},
		StopReason: anthropic.StopReasonMaxTokens,
	}}
	defer withMockClient(mock)()

	a, err := NewAnthropicAnalyst("test-key", "")
	if err != nil {
		t.Fatalf("NewAnthropicAnalyst: %v", err)
	}
	resp, err := a.Complete(context.Background(), Request{System: "sys", Prompt: "data", Temperature: 0.5, MaxTokens: 321})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "Seller's market. Watch inventory." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if !resp.Truncated {
		t.Fatal("expected max_tokens stop to be reported as truncated")
	}
	if len(mock.params) != 1 {
		t.Fatalf("expected one request, got %d", len(mock.params))
	}
	p := mock.params[0]
	if p.MaxTokens != 321 || string(p.Model) != DefaultAnthropicModel {
		t.Fatalf("unexpected params model=%s max_tokens=%d", p.Model, p.MaxTokens)
	}
	if len(p.System) != 1 || p.System[0].Text != "sys" {
		t.Fatalf("system prompt not forwarded: %+v", p.System)
	}
}

func TestAnthropicAnalystError(t *testing.T) {
	defer withMockClient(&mockMessager{err: errors.New("529 overloaded")})()
	a, err := NewAnthropicAnalyst("test-key", "claude-test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 10}); err == nil {
		t.Fatal("expected error")
	}
}
