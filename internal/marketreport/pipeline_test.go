package marketreport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelkehle/county-market-bot/internal/analysis"
	"github.com/joelkehle/county-market-bot/internal/dataset"
	"github.com/joelkehle/county-market-bot/internal/geocode"
	"github.com/joelkehle/county-market-bot/internal/report"
	"github.com/joelkehle/county-market-bot/internal/resolver"
)

const scenarioAddress = "155 Edinburg Dr, Kannapolis NC 28083"

const withCabarrus = `County,Population,Avg_Home_Value,Cap_Rate,Home_Price_Forecast
"Cabarrus, NC",225804,350000.5,5.8,-0.4
`

const withoutCabarrus = `County,Population,Avg_Home_Value,Cap_Rate,Home_Price_Forecast
"Rowan, NC",146875,260000,6.2,1.1
`

type fakeGeocoder struct {
	res geocode.Result
	err error
}

func (f fakeGeocoder) Geocode(context.Context, string) (geocode.Result, error) { return f.res, f.err }

type fakeAnalyst struct {
	resp  analysis.Response
	err   error
	calls int
}

func (f *fakeAnalyst) Complete(context.Context, analysis.Request) (analysis.Response, error) {
	f.calls++
	return f.resp, f.err
}

type fixture struct {
	pipeline *Pipeline
	missLog  string
	analyst  *fakeAnalyst
}

func newFixture(t *testing.T, csvBody string, geo fakeGeocoder, analyst *fakeAnalyst) fixture {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "merged_reventure_data.csv")
	if csvBody != "" {
		if err := os.WriteFile(csvPath, []byte(csvBody), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	missLog := filepath.Join(dir, "missing_counties.log")
	lookup := dataset.NewLookup(dataset.FileSource(csvPath), dataset.NewFileMissLog(missLog), nil)
	var analyzer Analyzer
	if analyst != nil {
		analyzer = analysis.NewDelegate(analyst, analysis.DelegateConfig{Temperature: 0.7, MaxTokens: 400}, nil)
	}
	return fixture{
		pipeline: NewPipeline(resolver.New(geo, nil), lookup, analyzer, nil),
		missLog:  missLog,
		analyst:  analyst,
	}
}

var cabarrusGeo = fakeGeocoder{res: geocode.Result{County: "Cabarrus County", State: "North Carolina"}}

func TestPipelineScenarioCountyPresent(t *testing.T) {
	fx := newFixture(t, withCabarrus, cabarrusGeo, &fakeAnalyst{resp: analysis.Response{Text: "Steady growth."}})

	var stages []string
	res, err := fx.pipeline.RunWithProgress(context.Background(), scenarioAddress, Options{WithAnalysis: true}, func(stage, _ string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.County != "Cabarrus, NC" {
		t.Fatalf("unexpected county %q", res.County)
	}
	if len(res.Report.Blocks) != 5 || res.Report.Blocks[4].Text != "Steady growth." {
		t.Fatalf("unexpected report blocks %+v", res.Report.Blocks)
	}
	if !res.AnalysisAvailable {
		t.Fatal("expected analysis available")
	}
	if strings.Join(stages, ",") != "resolve,lookup,analyze" {
		t.Fatalf("unexpected stage sequence %v", stages)
	}
	if _, err := os.Stat(fx.missLog); !os.IsNotExist(err) {
		t.Fatal("hit must not create the miss log")
	}
}

func TestPipelineScenarioCountyAbsent(t *testing.T) {
	analyst := &fakeAnalyst{resp: analysis.Response{Text: "unused"}}
	fx := newFixture(t, withoutCabarrus, cabarrusGeo, analyst)

	_, err := fx.pipeline.Run(context.Background(), scenarioAddress, Options{WithAnalysis: true})
	if KindOf(err) != KindCountyNotInDataset {
		t.Fatalf("expected county_not_in_dataset, got %v", err)
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.County != "Cabarrus, NC" {
		t.Fatalf("expected county on error, got %+v", pe)
	}
	blob, readErr := os.ReadFile(fx.missLog)
	if readErr != nil {
		t.Fatalf("read miss log: %v", readErr)
	}
	if string(blob) != "Cabarrus, NC\n" {
		t.Fatalf("unexpected miss log %q", string(blob))
	}
	if analyst.calls != 0 {
		t.Fatal("analysis must not run after a failed lookup")
	}
}

func TestPipelineScenarioGeocoderTransportError(t *testing.T) {
	fx := newFixture(t, withCabarrus, fakeGeocoder{err: errors.New("dial tcp: i/o timeout")}, nil)
	_, err := fx.pipeline.Run(context.Background(), scenarioAddress, Options{})
	if KindOf(err) != KindAddressUnresolvable {
		t.Fatalf("expected address_unresolvable, got %v", err)
	}
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("expected resolver.ErrNotFound in chain, got %v", err)
	}
}

func TestPipelineScenarioEmptyAnalysis(t *testing.T) {
	fx := newFixture(t, withCabarrus, cabarrusGeo, &fakeAnalyst{resp: analysis.Response{Text: ""}})
	res, err := fx.pipeline.Run(context.Background(), scenarioAddress, Options{WithAnalysis: true})
	if err != nil {
		t.Fatalf("empty analysis must not fail the request: %v", err)
	}
	if res.AnalysisAvailable {
		t.Fatal("expected analysis unavailable")
	}
	if len(res.Report.Blocks) != 5 {
		t.Fatalf("expected 4 stat blocks + analysis, got %d", len(res.Report.Blocks))
	}
	last := res.Report.Blocks[4]
	if last.Header != report.HeaderAnalysis || last.Text != analysis.Placeholder {
		t.Fatalf("expected placeholder analysis block, got %+v", last)
	}
}

func TestPipelineAnalysisErrorIsNonFatal(t *testing.T) {
	fx := newFixture(t, withCabarrus, cabarrusGeo, &fakeAnalyst{err: errors.New("500 server error")})
	res, err := fx.pipeline.Run(context.Background(), scenarioAddress, Options{WithAnalysis: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.Blocks[4].Text != analysis.Placeholder {
		t.Fatal("expected placeholder")
	}
}

func TestPipelineDatasetUnavailable(t *testing.T) {
	fx := newFixture(t, "", cabarrusGeo, nil)
	_, err := fx.pipeline.Run(context.Background(), scenarioAddress, Options{})
	if KindOf(err) != KindDatasetUnavailable {
		t.Fatalf("expected dataset_unavailable, got %v", err)
	}
	if !errors.Is(err, dataset.ErrUnavailable) {
		t.Fatal("expected dataset.ErrUnavailable in chain")
	}
	if _, statErr := os.Stat(fx.missLog); !os.IsNotExist(statErr) {
		t.Fatal("unavailable dataset must not log a miss")
	}
}

func TestPipelineWithoutAnalysis(t *testing.T) {
	analyst := &fakeAnalyst{resp: analysis.Response{Text: "x"}}
	fx := newFixture(t, withCabarrus, cabarrusGeo, analyst)
	res, err := fx.pipeline.Run(context.Background(), scenarioAddress, Options{WithAnalysis: false})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Report.Blocks) != 4 || analyst.calls != 0 || res.AnalysisRequested {
		t.Fatalf("analysis should be skipped: blocks=%d calls=%d", len(res.Report.Blocks), analyst.calls)
	}
}

func TestUserMessageDistinguishesKinds(t *testing.T) {
	msgs := map[Kind]string{
		KindAddressUnresolvable: UserMessage(&Error{Kind: KindAddressUnresolvable, Address: "1 Main St"}),
		KindCountyNotInDataset:  UserMessage(&Error{Kind: KindCountyNotInDataset, Address: "1 Main St", County: "Rowan, NC"}),
		KindDatasetUnavailable:  UserMessage(&Error{Kind: KindDatasetUnavailable, Address: "1 Main St", Err: errors.New("open")}),
	}
	if !strings.Contains(msgs[KindAddressUnresolvable], "1 Main St") {
		t.Fatal("unresolvable message must name the address")
	}
	if !strings.Contains(msgs[KindCountyNotInDataset], "Rowan, NC") {
		t.Fatal("not-in-dataset message must name the county")
	}
	if !strings.Contains(msgs[KindDatasetUnavailable], "configuration") {
		t.Fatal("dataset unavailable must read as a system problem")
	}
	if UserMessage(errors.New("boom")) == msgs[KindDatasetUnavailable] {
		t.Fatal("generic errors must not masquerade as a pipeline kind")
	}
}
