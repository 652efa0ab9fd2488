// Package resolver turns a free-text address into the canonical
// "County, ST" key used to join against the market dataset.
package resolver

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/geocode"
	"github.com/joelkehle/county-market-bot/internal/states"
)

// ErrNotFound means no usable county and state could be derived from the address.
var ErrNotFound = errors.New("county not resolvable")

const countySuffix = " County"

// CountyKey is a canonical "<CountyName>, <ST>" string.
type CountyKey string

func (k CountyKey) String() string { return string(k) }

type Resolver struct {
	geocoder geocode.Geocoder
	log      *zap.Logger
}

func New(geocoder geocode.Geocoder, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{geocoder: geocoder, log: log}
}

// Resolve geocodes address and builds its canonical county key. Every
// geocoder failure is reported as ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, address string) (CountyKey, error) {
	res, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		if !errors.Is(err, geocode.ErrNoResult) {
			r.log.Warn("geocoder call failed", zap.String("address", address), zap.Error(err))
		}
		return "", ErrNotFound
	}
	key, ok := KeyFromResult(res)
	if !ok {
		r.log.Info("geocode result lacks county or state",
			zap.String("address", address),
			zap.String("county", res.County),
			zap.String("state", res.State))
		return "", ErrNotFound
	}
	r.log.Debug("address resolved", zap.String("address", address), zap.String("county_key", key.String()))
	return key, nil
}

// KeyFromResult normalizes a geocoder result into a CountyKey.
func KeyFromResult(res geocode.Result) (CountyKey, bool) {
	county := NormalizeCounty(res.County)
	if county == "" {
		return "", false
	}
	abbr, ok := states.Abbreviation(res.State)
	if !ok {
		return "", false
	}
	return CountyKey(county + ", " + abbr), true
}

// NormalizeCounty trims whitespace and drops a trailing " County" suffix.
// The suffix match is case-sensitive.
func NormalizeCounty(county string) string {
	county = strings.TrimSpace(county)
	county = strings.TrimSuffix(county, countySuffix)
	return strings.TrimSpace(county)
}
