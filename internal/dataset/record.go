package dataset

import (
	"math"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
)

// Value is one dataset cell. Number is meaningful only for KindNumber and
// Text only for KindText.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
}

func Missing() Value { return Value{Kind: KindMissing} }

func Number(v float64) Value { return Value{Kind: KindNumber, Number: v} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the value without any field-specific formatting. Missing
// values render as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

var missingMarkers = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"none": {},
	"n/a":  {},
	"na":   {},
}

// ParseValue interprets a raw CSV cell. Blank cells and the usual null
// spellings become Missing; numeric cells (optionally with grouping commas)
// become Number; anything else is kept as Text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := missingMarkers[strings.ToLower(s)]; ok {
		return Missing()
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Missing()
		}
		return Number(f)
	}
	return Text(s)
}

// Column names in the dataset.
const (
	ColCounty                 = "County"
	ColPopulation             = "Population"
	ColAvgHomeValue           = "Avg_Home_Value"
	ColVacancyRate            = "Vacancy_Rate"
	ColDaysOnMarket           = "Days_on_Market"
	ColDaysOnMarketGrowthYoY  = "Days_On_Market_Growth_YoY"
	ColPriceCutPercentage     = "Price_Cut_Percentage"
	ColSaleInventoryGrowthYoY = "Sale_Inventory_Growth_YoY"
	ColSaleInventoryGrowthMoM = "Sale_Inventory_Growth_MoM"
	ColHomeSalesGrowthYoY     = "Home_Sales_Growth_YoY"
	ColPopulationGrowth       = "Population_Growth"
	ColCapRate                = "Cap_Rate"
	ColHomePriceForecast      = "Home_Price_Forecast"
)

// MarketRecord is one county's precomputed market statistics.
type MarketRecord struct {
	County                 string
	Population             Value
	AvgHomeValue           Value
	VacancyRate            Value
	DaysOnMarket           Value
	DaysOnMarketGrowthYoY  Value
	PriceCutPercentage     Value
	SaleInventoryGrowthYoY Value
	SaleInventoryGrowthMoM Value
	HomeSalesGrowthYoY     Value
	PopulationGrowth       Value
	CapRate                Value
	HomePriceForecast      Value
}

// Field pairs a dataset column with its value in a record.
type Field struct {
	Column string
	Value  Value
}

var statColumns = []struct {
	name string
	ref  func(*MarketRecord) *Value
}{
	{ColPopulation, func(r *MarketRecord) *Value { return &r.Population }},
	{ColAvgHomeValue, func(r *MarketRecord) *Value { return &r.AvgHomeValue }},
	{ColVacancyRate, func(r *MarketRecord) *Value { return &r.VacancyRate }},
	{ColDaysOnMarket, func(r *MarketRecord) *Value { return &r.DaysOnMarket }},
	{ColDaysOnMarketGrowthYoY, func(r *MarketRecord) *Value { return &r.DaysOnMarketGrowthYoY }},
	{ColPriceCutPercentage, func(r *MarketRecord) *Value { return &r.PriceCutPercentage }},
	{ColSaleInventoryGrowthYoY, func(r *MarketRecord) *Value { return &r.SaleInventoryGrowthYoY }},
	{ColSaleInventoryGrowthMoM, func(r *MarketRecord) *Value { return &r.SaleInventoryGrowthMoM }},
	{ColHomeSalesGrowthYoY, func(r *MarketRecord) *Value { return &r.HomeSalesGrowthYoY }},
	{ColPopulationGrowth, func(r *MarketRecord) *Value { return &r.PopulationGrowth }},
	{ColCapRate, func(r *MarketRecord) *Value { return &r.CapRate }},
	{ColHomePriceForecast, func(r *MarketRecord) *Value { return &r.HomePriceForecast }},
}

// Fields returns every statistic in dataset column order.
func (r MarketRecord) Fields() []Field {
	out := make([]Field, 0, len(statColumns))
	for _, c := range statColumns {
		out = append(out, Field{Column: c.name, Value: *c.ref(&r)})
	}
	return out
}

// StringFields returns the non-missing statistics keyed by column name,
// plus the county itself.
func (r MarketRecord) StringFields() map[string]string {
	out := map[string]string{ColCounty: r.County}
	for _, f := range r.Fields() {
		if f.Value.IsMissing() {
			continue
		}
		out[f.Column] = f.Value.String()
	}
	return out
}

// recordFromRow builds a record from a CSV row using a header index.
// Columns absent from the header stay Missing.
func recordFromRow(row []string, index map[string]int) MarketRecord {
	cell := func(col string) string {
		i, ok := index[strings.ToLower(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	rec := MarketRecord{County: strings.TrimSpace(cell(ColCounty))}
	for _, c := range statColumns {
		*c.ref(&rec) = ParseValue(cell(c.name))
	}
	return rec
}
