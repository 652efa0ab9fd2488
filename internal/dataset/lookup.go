// Package dataset looks up precomputed county market statistics and records
// counties the dataset does not cover.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNotFound means the dataset has no row for the requested county.
	ErrNotFound = errors.New("county not in dataset")
	// ErrUnavailable means the dataset itself could not be loaded.
	ErrUnavailable = errors.New("dataset unavailable")
)

// Lookup searches the dataset for a county. The dataset is re-read on every
// call; nothing is cached between requests.
type Lookup struct {
	source Source
	misses MissLog
	log    *zap.Logger
}

func NewLookup(source Source, misses MissLog, log *zap.Logger) *Lookup {
	if log == nil {
		log = zap.NewNop()
	}
	if misses == nil {
		misses = discardMissLog{}
	}
	return &Lookup{source: source, misses: misses, log: log}
}

// Find returns the first row whose County column equals key, ignoring case.
// A miss is appended to the miss log before ErrNotFound is returned.
func (l *Lookup) Find(ctx context.Context, key string) (MarketRecord, error) {
	rc, err := l.source.Open(ctx)
	if err != nil {
		return MarketRecord{}, fmt.Errorf("%w: open %s: %w", ErrUnavailable, l.source, err)
	}
	defer rc.Close()

	rec, matches, err := scan(rc, key)
	if err != nil {
		return MarketRecord{}, fmt.Errorf("%w: read %s: %w", ErrUnavailable, l.source, err)
	}
	if matches == 0 {
		if err := l.misses.Record(ctx, key); err != nil {
			l.log.Error("miss log append failed", zap.String("county_key", key), zap.Error(err))
		}
		return MarketRecord{}, ErrNotFound
	}
	if matches > 1 {
		l.log.Warn("duplicate county rows in dataset, using first",
			zap.String("county_key", key),
			zap.Int("rows", matches),
			zap.String("source", l.source.String()))
	}
	return rec, nil
}

func scan(r io.Reader, key string) (MarketRecord, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return MarketRecord{}, 0, errors.New("empty dataset")
		}
		return MarketRecord{}, 0, err
	}
	index := headerIndex(header)
	countyIdx, ok := index[strings.ToLower(ColCounty)]
	if !ok {
		return MarketRecord{}, 0, fmt.Errorf("missing %q column", ColCounty)
	}

	want := strings.TrimSpace(key)
	var first MarketRecord
	matches := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return MarketRecord{}, 0, err
		}
		if countyIdx >= len(row) || !strings.EqualFold(strings.TrimSpace(row[countyIdx]), want) {
			continue
		}
		if matches == 0 {
			first = recordFromRow(row, index)
		}
		matches++
	}
	return first, matches, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}
