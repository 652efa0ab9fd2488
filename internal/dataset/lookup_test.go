package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCSV = `County,Population,Avg_Home_Value,Vacancy_Rate,Days_on_Market,Days_On_Market_Growth_YoY,Price_Cut_Percentage,Sale_Inventory_Growth_YoY,Sale_Inventory_Growth_MoM,Home_Sales_Growth_YoY,Population_Growth,Cap_Rate,Home_Price_Forecast
"Cabarrus, NC",225804,350000.5,6.1,45,12.5,18.2,20.1,-1.5,3.2,2.4,5.8,-0.4
"Orange, CA",3186989,1100000,,30,,,,,,,,
"cabarrus, nc",1,1,1,1,1,1,1,1,1,1,1,1
`

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

type memMissLog struct{ keys []string }

func (m *memMissLog) Record(_ context.Context, key string) error {
	m.keys = append(m.keys, key)
	return nil
}

func TestFindCaseInsensitiveFirstMatch(t *testing.T) {
	misses := &memMissLog{}
	l := NewLookup(FileSource(writeCSV(t, sampleCSV)), misses, nil)

	rec, err := l.Find(context.Background(), "CABARRUS, NC")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := MarketRecord{
		County:                 "Cabarrus, NC",
		Population:             Number(225804),
		AvgHomeValue:           Number(350000.5),
		VacancyRate:            Number(6.1),
		DaysOnMarket:           Number(45),
		DaysOnMarketGrowthYoY:  Number(12.5),
		PriceCutPercentage:     Number(18.2),
		SaleInventoryGrowthYoY: Number(20.1),
		SaleInventoryGrowthMoM: Number(-1.5),
		HomeSalesGrowthYoY:     Number(3.2),
		PopulationGrowth:       Number(2.4),
		CapRate:                Number(5.8),
		HomePriceForecast:      Number(-0.4),
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if len(misses.keys) != 0 {
		t.Fatalf("hit must not touch the miss log, got %v", misses.keys)
	}
}

func TestFindMissingCellsAreMissing(t *testing.T) {
	l := NewLookup(FileSource(writeCSV(t, sampleCSV)), nil, nil)
	rec, err := l.Find(context.Background(), "Orange, CA")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !rec.CapRate.IsMissing() || !rec.VacancyRate.IsMissing() {
		t.Fatalf("expected missing values, got %+v", rec)
	}
	if rec.AvgHomeValue.Number != 1100000 {
		t.Fatalf("unexpected avg home value %+v", rec.AvgHomeValue)
	}
}

func TestFindMissAppendsOneLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "missing_counties.log")
	l := NewLookup(FileSource(writeCSV(t, sampleCSV)), NewFileMissLog(logPath), nil)

	_, err := l.Find(context.Background(), "Rowan, NC")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	blob, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read miss log: %v", err)
	}
	if string(blob) != "Rowan, NC\n" {
		t.Fatalf("unexpected miss log contents %q", string(blob))
	}
}

func TestFindDatasetUnavailable(t *testing.T) {
	cases := map[string]Source{
		"missing file":  FileSource(filepath.Join(t.TempDir(), "nope.csv")),
		"no county col": FileSource(writeCSV(t, "Name,Population\nfoo,1\n")),
		"empty file":    FileSource(writeCSV(t, "")),
		"malformed csv": FileSource(writeCSV(t, "County,Population\n\"Cabarrus, NC,1\n")),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			misses := &memMissLog{}
			_, err := NewLookup(src, misses, nil).Find(context.Background(), "Cabarrus, NC")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			if errors.Is(err, ErrNotFound) {
				t.Fatal("unavailable must be distinguishable from not found")
			}
			if len(misses.keys) != 0 {
				t.Fatal("unavailable dataset must not log a miss")
			}
		})
	}
}

func TestFindReloadsEveryCall(t *testing.T) {
	path := writeCSV(t, "County,Population\n\"Rowan, NC\",10\n")
	l := NewLookup(FileSource(path), nil, nil)
	if _, err := l.Find(context.Background(), "Rowan, NC"); err != nil {
		t.Fatalf("first Find: %v", err)
	}
	if err := os.WriteFile(path, []byte("County,Population\n\"Rowan, NC\",20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := l.Find(context.Background(), "Rowan, NC")
	if err != nil {
		t.Fatalf("second Find: %v", err)
	}
	if rec.Population.Number != 20 {
		t.Fatalf("expected reloaded population 20, got %v", rec.Population)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	src := NewSource(srv.URL + "/data.csv")
	if _, ok := src.(*HTTPSource); !ok {
		t.Fatalf("expected HTTPSource, got %T", src)
	}
	rec, err := NewLookup(src, nil, nil).Find(context.Background(), "orange, ca")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !strings.EqualFold(rec.County, "Orange, CA") {
		t.Fatalf("unexpected county %q", rec.County)
	}

	_, err = NewLookup(NewSource(srv.URL+"/missing.csv"), nil, nil).Find(context.Background(), "orange, ca")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for 404, got %v", err)
	}
}
