// Package app wires configuration into a ready-to-run market report pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/analysis"
	"github.com/joelkehle/county-market-bot/internal/config"
	"github.com/joelkehle/county-market-bot/internal/dataset"
	"github.com/joelkehle/county-market-bot/internal/geocode"
	"github.com/joelkehle/county-market-bot/internal/marketreport"
	"github.com/joelkehle/county-market-bot/internal/resolver"
)

// nominatimInterval honours the public Nominatim limit of one request per
// second.
const nominatimInterval = time.Second

type App struct {
	Pipeline *marketreport.Pipeline
	closers  []func() error
}

// Build constructs every pipeline stage from cfg. The caller must Close the
// returned App.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{}

	geo := geocode.NewNominatim(geocode.NominatimConfig{
		BaseURL:     cfg.GeocoderURL,
		UserAgent:   cfg.GeocoderUserAgent,
		Timeout:     cfg.GeocoderTimeout,
		MinInterval: nominatimInterval,
	})

	misses, err := a.missLog(cfg)
	if err != nil {
		return nil, err
	}
	lookup := dataset.NewLookup(dataset.NewSource(cfg.DatasetPath), misses, log.Named("dataset"))

	var analyzer marketreport.Analyzer
	analyst, err := NewAnalyst(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if analyst != nil {
		analyzer = analysis.NewDelegate(analyst, analysis.DelegateConfig{
			Temperature: cfg.AnalysisTemperature,
			MaxTokens:   cfg.AnalysisMaxTokens,
		}, log.Named("analysis"))
	} else {
		log.Info("analysis disabled", zap.String("provider", cfg.AnalysisProvider))
	}

	a.Pipeline = marketreport.NewPipeline(resolver.New(geo, log.Named("resolver")), lookup, analyzer, log.Named("pipeline"))
	log.Info("pipeline ready",
		zap.String("dataset", cfg.DatasetPath),
		zap.String("miss_log", cfg.MissLogPath),
		zap.String("miss_log_backend", cfg.MissLogBackend),
		zap.Bool("analysis", analyzer != nil))
	return a, nil
}

func (a *App) missLog(cfg config.Config) (dataset.MissLog, error) {
	if cfg.MissLogBackend == config.MissLogSQLite {
		ml, err := dataset.NewSQLiteMissLog(cfg.MissLogPath)
		if err != nil {
			return nil, fmt.Errorf("open miss log: %w", err)
		}
		a.closers = append(a.closers, ml.Close)
		return ml, nil
	}
	return dataset.NewFileMissLog(cfg.MissLogPath), nil
}

// NewAnalyst returns the configured model client, or nil when analysis is
// disabled or the provider has no key.
func NewAnalyst(ctx context.Context, cfg config.Config) (analysis.Analyst, error) {
	if cfg.AnalysisKey() == "" {
		return nil, nil
	}
	switch cfg.AnalysisProvider {
	case config.ProviderAnthropic:
		a, err := analysis.NewAnthropicAnalyst(cfg.AnthropicAPIKey, cfg.AnalysisModel)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ProviderGemini:
		g, err := analysis.NewGeminiAnalyst(ctx, cfg.GeminiAPIKey, cfg.AnalysisModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, nil
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
