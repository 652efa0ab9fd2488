// Package analysis asks a language model for narrative commentary on a
// county's market statistics.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/dataset"
)

const (
	Placeholder = "No analysis available."

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 700
)

const systemPrompt = "You are a real estate market analyst advising residential investors. " +
	"Be concise, concrete and neutral. Do not invent statistics that were not provided."

// Request is one text-in/text-out call to a language model.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Text string
	// Truncated is set when generation stopped at the token limit.
	Truncated bool
}

// Analyst is a language-model provider.
type Analyst interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Outcome is what the pipeline receives. Text is always renderable; when
// Available is false it holds Placeholder.
type Outcome struct {
	Text      string
	Available bool
	Truncated bool
}

type DelegateConfig struct {
	Temperature float64
	MaxTokens   int
}

// Delegate turns a MarketRecord into a prompt and the model's reply into an
// Outcome. It never fails.
type Delegate struct {
	analyst Analyst
	cfg     DelegateConfig
	log     *zap.Logger
}

func NewDelegate(analyst Analyst, cfg DelegateConfig, log *zap.Logger) *Delegate {
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Delegate{analyst: analyst, cfg: cfg, log: log}
}

func (d *Delegate) Analyze(ctx context.Context, rec dataset.MarketRecord) Outcome {
	resp, err := d.analyst.Complete(ctx, Request{
		System:      systemPrompt,
		Prompt:      BuildPrompt(rec),
		Temperature: d.cfg.Temperature,
		MaxTokens:   d.cfg.MaxTokens,
	})
	if err != nil {
		d.log.Warn("analysis call failed", zap.String("county", rec.County), zap.Error(err))
		return Outcome{Text: Placeholder}
	}
	text := strings.TrimSpace(resp.Text)
	if Unusable(text) {
		d.log.Warn("analysis returned unusable text", zap.String("county", rec.County), zap.Int("chars", len(text)))
		return Outcome{Text: Placeholder}
	}
	if resp.Truncated {
		d.log.Info("analysis truncated at token limit", zap.String("county", rec.County), zap.Int("max_tokens", d.cfg.MaxTokens))
	}
	return Outcome{Text: text, Available: true, Truncated: resp.Truncated}
}

// Unusable reports whether model output is empty or an error marker rather
// than commentary.
func Unusable(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	for _, marker := range []string{"error:", "error -", "an error occurred"} {
		if strings.HasPrefix(t, marker) {
			return true
		}
	}
	return false
}

// BuildPrompt embeds the record's non-missing fields, sorted by column name.
func BuildPrompt(rec dataset.MarketRecord) string {
	fields := rec.StringFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Here is the latest housing market data for %s:\n\n", rec.County)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, fields[k])
	}
	b.WriteString("\nPercentages are already in percent units. Write a short analysis (under 200 words) for a real estate investor covering:\n")
	b.WriteString("1. Overall market direction (buyer's or seller's market)\n")
	b.WriteString("2. Key risks visible in the data\n")
	b.WriteString("3. Opportunities for investors\n")
	return b.String()
}
