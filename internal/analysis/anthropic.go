package analysis

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicAnalyst struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicAnalyst(apiKey, model string) (*AnthropicAnalyst, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicAnalyst{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicAnalyst) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(req.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: req.System}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return Response{}, err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return Response{Text: sb.String(), Truncated: resp.StopReason == anthropic.StopReasonMaxTokens}, nil
}
