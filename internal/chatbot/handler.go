// Package chatbot exposes the market report pipeline as a chat command.
package chatbot

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/marketreport"
	"github.com/joelkehle/county-market-bot/internal/report"
)

// MaxMessageLen is Discord's per-message character limit.
const MaxMessageLen = 2000

const DefaultPrefix = "!market"

// Runner runs the market report pipeline for one address.
type Runner interface {
	Run(ctx context.Context, address string, opts marketreport.Options) (marketreport.Result, error)
}

// ReplyFn posts one message back to the channel the command came from.
type ReplyFn func(text string) error

type HandlerConfig struct {
	Prefix       string
	WithAnalysis bool
}

type Handler struct {
	cfg    HandlerConfig
	runner Runner
	log    *zap.Logger
}

func NewHandler(cfg HandlerConfig, runner Runner, log *zap.Logger) *Handler {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = DefaultPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{cfg: cfg, runner: runner, log: log}
}

// ParseCommand reports whether content invokes the command and returns the
// address argument.
func (h *Handler) ParseCommand(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, h.cfg.Prefix) {
		return "", false
	}
	rest := content[len(h.cfg.Prefix):]
	if rest != "" {
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsSpace(r) {
			return "", false
		}
	}
	return strings.TrimSpace(rest), true
}

func (h *Handler) Usage() string {
	return fmt.Sprintf("Please provide an address (e.g., `%s 155 Edinburg Dr, Kannapolis NC 28083`).", h.cfg.Prefix)
}

// Handle answers one chat message. It returns false when the message is not
// a command. Reply errors stop further replies and are returned.
func (h *Handler) Handle(ctx context.Context, content string, reply ReplyFn) (bool, error) {
	address, ok := h.ParseCommand(content)
	if !ok {
		return false, nil
	}
	if address == "" {
		return true, reply(h.Usage())
	}

	log := h.log.With(zap.String("request_id", uuid.NewString()), zap.String("address", address))
	log.Info("market command received")
	if err := reply(fmt.Sprintf("Searching for market data for **%s**...", address)); err != nil {
		return true, err
	}

	res, err := h.runner.Run(ctx, address, marketreport.Options{WithAnalysis: h.cfg.WithAnalysis})
	if err != nil {
		log.Info("market command failed", zap.String("kind", string(marketreport.KindOf(err))))
		return true, reply(marketreport.UserMessage(err))
	}
	for _, chunk := range SplitMessage(report.RenderMarkdown(res.Report), MaxMessageLen) {
		if err := reply(chunk); err != nil {
			return true, err
		}
	}
	log.Info("market command answered", zap.String("county_key", res.County.String()))
	return true, nil
}

// SplitMessage breaks text into chunks of at most limit runes, preferring
// line boundaries.
func SplitMessage(text string, limit int) []string {
	text = strings.TrimRight(text, "\n")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n <= limit {
			cur.WriteString(line)
			curLen += n
			continue
		}
		flush()
		for n > limit {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen = n
	}
	flush()
	return chunks
}
