// Package report turns a county's market statistics into a fixed-shape,
// human-readable report.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/county-market-bot/internal/dataset"
)

const (
	NotAvailable = "N/A"
	Source       = "Data sourced from Reventure App."
	Footer       = "Market Research Bot"

	HeaderMarket      = "Market Stats"
	HeaderDemographic = "Demographic Stats"
	HeaderInvestor    = "Investor Stats"
	HeaderScoring     = "Scoring Stats"
	HeaderAnalysis    = "Analysis"
)

type Format int

const (
	FormatPlain Format = iota
	FormatPercent
	FormatCurrency
	FormatCount
)

type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Block is one report section. Statistic blocks carry Lines; the analysis
// block carries free Text.
type Block struct {
	Header string `json:"header"`
	Lines  []Line `json:"lines,omitempty"`
	Text   string `json:"text,omitempty"`
}

type Report struct {
	Title  string  `json:"title"`
	County string  `json:"county"`
	Blocks []Block `json:"blocks"`
}

type fieldSpec struct {
	label  string
	format Format
	value  func(dataset.MarketRecord) dataset.Value
}

type categorySpec struct {
	header string
	fields []fieldSpec
}

var layout = []categorySpec{
	{HeaderMarket, []fieldSpec{
		{"Days on Market", FormatPlain, func(r dataset.MarketRecord) dataset.Value { return r.DaysOnMarket }},
		{"Days On Market Growth (YoY)", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.DaysOnMarketGrowthYoY }},
		{"Price Cut %", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.PriceCutPercentage }},
		{"Home Sales Growth (YoY)", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.HomeSalesGrowthYoY }},
		{"Sale Inventory Growth (YoY)", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.SaleInventoryGrowthYoY }},
		{"Sale Inventory Growth (MoM)", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.SaleInventoryGrowthMoM }},
	}},
	{HeaderDemographic, []fieldSpec{
		{"County Population", FormatCount, func(r dataset.MarketRecord) dataset.Value { return r.Population }},
		{"Population Growth", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.PopulationGrowth }},
	}},
	{HeaderInvestor, []fieldSpec{
		{"Avg Home Value", FormatCurrency, func(r dataset.MarketRecord) dataset.Value { return r.AvgHomeValue }},
		{"Cap Rate %", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.CapRate }},
		{"Vacancy Rate %", FormatPercent, func(r dataset.MarketRecord) dataset.Value { return r.VacancyRate }},
	}},
	{HeaderScoring, []fieldSpec{
		{"Home Price Forecast", FormatPlain, func(r dataset.MarketRecord) dataset.Value { return r.HomePriceForecast }},
	}},
}

// Assemble builds the report for rec. The four statistic blocks are always
// present in the same order; a non-nil analysis adds a final Analysis block
// with the text passed through untouched.
func Assemble(rec dataset.MarketRecord, analysis *string) Report {
	r := Report{
		Title:  "Market Research for " + rec.County,
		County: rec.County,
		Blocks: make([]Block, 0, len(layout)+1),
	}
	for _, cat := range layout {
		b := Block{Header: cat.header, Lines: make([]Line, 0, len(cat.fields))}
		for _, f := range cat.fields {
			b.Lines = append(b.Lines, Line{Label: f.label, Value: FormatValue(f.value(rec), f.format)})
		}
		r.Blocks = append(r.Blocks, b)
	}
	if analysis != nil {
		r.Blocks = append(r.Blocks, Block{Header: HeaderAnalysis, Text: *analysis})
	}
	return r
}

// FormatValue renders a single statistic. Missing values always render as N/A.
func FormatValue(v dataset.Value, f Format) string {
	switch v.Kind {
	case dataset.KindMissing:
		return NotAvailable
	case dataset.KindText:
		if f == FormatPercent && !strings.HasSuffix(v.Text, "%") {
			return v.Text + "%"
		}
		return v.Text
	}
	n := v.Number
	switch f {
	case FormatCurrency:
		return formatCurrency(n)
	case FormatPercent:
		return strconv.FormatFloat(n, 'f', -1, 64) + "%"
	case FormatCount:
		return humanize.Commaf(n)
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}

func formatCurrency(n float64) string {
	if n < 0 {
		return "-" + formatCurrency(math.Abs(n))
	}
	s := strconv.FormatFloat(n, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	whole, err := strconv.ParseInt(s[:dot], 10, 64)
	if err != nil {
		return "$" + s
	}
	return "$" + humanize.Comma(whole) + s[dot:]
}
