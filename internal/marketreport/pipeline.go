// Package marketreport runs the address → county → statistics → report
// pipeline.
package marketreport

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/analysis"
	"github.com/joelkehle/county-market-bot/internal/dataset"
	"github.com/joelkehle/county-market-bot/internal/report"
	"github.com/joelkehle/county-market-bot/internal/resolver"
)

const tracerName = "github.com/joelkehle/county-market-bot/internal/marketreport"

// CountyResolver maps an address to a canonical county key.
type CountyResolver interface {
	Resolve(ctx context.Context, address string) (resolver.CountyKey, error)
}

// RecordFinder finds the dataset row for a county key.
type RecordFinder interface {
	Find(ctx context.Context, key string) (dataset.MarketRecord, error)
}

// Analyzer produces narrative commentary and never fails.
type Analyzer interface {
	Analyze(ctx context.Context, rec dataset.MarketRecord) analysis.Outcome
}

type Options struct {
	// WithAnalysis requests the analysis block. It is ignored when the
	// pipeline has no Analyzer.
	WithAnalysis bool
}

type StageProgressFn func(stage, message string)

type Result struct {
	Address           string
	County            resolver.CountyKey
	Record            dataset.MarketRecord
	Report            report.Report
	AnalysisRequested bool
	AnalysisAvailable bool
	StartedAt         time.Time
	CompletedAt       time.Time
}

type Pipeline struct {
	resolver CountyResolver
	finder   RecordFinder
	analyzer Analyzer
	log      *zap.Logger
	tracer   trace.Tracer
}

// NewPipeline wires the stages. analyzer may be nil, in which case reports
// never carry an analysis block.
func NewPipeline(r CountyResolver, f RecordFinder, a Analyzer, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{resolver: r, finder: f, analyzer: a, log: log, tracer: otel.Tracer(tracerName)}
}

func (p *Pipeline) HasAnalyzer() bool { return p.analyzer != nil }

func (p *Pipeline) Run(ctx context.Context, address string, opts Options) (Result, error) {
	return p.RunWithProgress(ctx, address, opts, nil)
}

func (p *Pipeline) RunWithProgress(ctx context.Context, address string, opts Options, progress StageProgressFn) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "marketreport.Run", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	res := Result{Address: address, StartedAt: time.Now()}
	fail := func(err *Error) (Result, error) {
		span.SetStatus(codes.Error, string(err.Kind))
		span.SetAttributes(attribute.String("error.kind", string(err.Kind)))
		p.log.Info("market report failed",
			zap.String("address", address),
			zap.String("county_key", err.County),
			zap.String("kind", string(err.Kind)),
			zap.Error(err.Err))
		res.CompletedAt = time.Now()
		return res, err
	}

	emit(progress, "resolve", "Resolving county...")
	key, err := p.resolve(ctx, address)
	if err != nil {
		return fail(&Error{Kind: KindAddressUnresolvable, Address: address, Err: err})
	}
	res.County = key
	span.SetAttributes(attribute.String("county_key", key.String()))

	emit(progress, "lookup", "Looking up "+key.String()+"...")
	rec, err := p.lookup(ctx, key)
	if err != nil {
		kind := KindDatasetUnavailable
		if errors.Is(err, dataset.ErrNotFound) {
			kind = KindCountyNotInDataset
		}
		return fail(&Error{Kind: kind, Address: address, County: key.String(), Err: err})
	}
	res.Record = rec

	var narrative *string
	if opts.WithAnalysis && p.analyzer != nil {
		emit(progress, "analyze", "Generating analysis...")
		out := p.analyze(ctx, rec)
		res.AnalysisRequested = true
		res.AnalysisAvailable = out.Available
		narrative = &out.Text
	}

	res.Report = p.assemble(ctx, rec, narrative)
	res.CompletedAt = time.Now()
	p.log.Info("market report built",
		zap.String("address", address),
		zap.String("county_key", key.String()),
		zap.Bool("analysis_requested", res.AnalysisRequested),
		zap.Bool("analysis_available", res.AnalysisAvailable),
		zap.Duration("elapsed", res.CompletedAt.Sub(res.StartedAt)))
	return res, nil
}

func (p *Pipeline) resolve(ctx context.Context, address string) (resolver.CountyKey, error) {
	ctx, span := p.tracer.Start(ctx, "resolve")
	defer span.End()
	key, err := p.resolver.Resolve(ctx, address)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return key, err
}

func (p *Pipeline) lookup(ctx context.Context, key resolver.CountyKey) (dataset.MarketRecord, error) {
	ctx, span := p.tracer.Start(ctx, "lookup", trace.WithAttributes(attribute.String("county_key", key.String())))
	defer span.End()
	rec, err := p.finder.Find(ctx, key.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rec, err
}

func (p *Pipeline) analyze(ctx context.Context, rec dataset.MarketRecord) analysis.Outcome {
	ctx, span := p.tracer.Start(ctx, "analyze")
	defer span.End()
	out := p.analyzer.Analyze(ctx, rec)
	span.SetAttributes(attribute.Bool("analysis.available", out.Available), attribute.Bool("analysis.truncated", out.Truncated))
	return out
}

func (p *Pipeline) assemble(ctx context.Context, rec dataset.MarketRecord, narrative *string) report.Report {
	_, span := p.tracer.Start(ctx, "assemble")
	defer span.End()
	return report.Assemble(rec, narrative)
}

func emit(progress StageProgressFn, stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}
