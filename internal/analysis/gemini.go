package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator is the subset of *genai.Models the analyst uses.
type GeminiGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiAnalyst struct {
	models GeminiGenerator
	model  string
}

func NewGeminiAnalyst(ctx context.Context, apiKey, model string) (*GeminiAnalyst, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiAnalyst(client.Models, model), nil
}

func newGeminiAnalyst(models GeminiGenerator, model string) *GeminiAnalyst {
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	return &GeminiAnalyst{models: models, model: model}
}

func (g *GeminiAnalyst) Complete(ctx context.Context, req Request) (Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	result, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generation failed: %w", err)
	}
	truncated := false
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		truncated = true
	}
	return Response{Text: result.Text(), Truncated: truncated}, nil
}
