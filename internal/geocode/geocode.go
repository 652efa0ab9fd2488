// Package geocode turns free-text addresses into structured location data.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoResult is returned when the geocoder finds nothing for an address.
var ErrNoResult = errors.New("geocode: no result")

// Result holds the parts of a geocoder response the resolver cares about.
// County and State are empty when the provider did not return them.
type Result struct {
	DisplayName string
	Lat         string
	Lon         string
	County      string
	State       string
}

// Geocoder resolves an address to structured location data.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "county-market-bot/1.0"
	DefaultLanguage     = "en"
)

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Language  string
	Timeout   time.Duration
	// MinInterval spaces consecutive requests. Nominatim's usage policy
	// allows one request per second.
	MinInterval time.Duration
}

// Nominatim is a Geocoder backed by the OpenStreetMap Nominatim search API.
type Nominatim struct {
	cfg     NominatimConfig
	http    *http.Client
	limiter *rate.Limiter
}

func NewNominatim(cfg NominatimConfig) *Nominatim {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultNominatimURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Nominatim{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type nominatimAddress struct {
	County string `json:"county"`
	State  string `json:"state"`
}

type nominatimPlace struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Result{}, ErrNoResult
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	q.Set("accept-language", n.cfg.Language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("nominatim search failed status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(blob)))
	}

	var places []nominatimPlace
	if err := json.Unmarshal(blob, &places); err != nil {
		return Result{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return Result{}, ErrNoResult
	}
	p := places[0]
	return Result{
		DisplayName: p.DisplayName,
		Lat:         p.Lat,
		Lon:         p.Lon,
		County:      strings.TrimSpace(p.Address.County),
		State:       strings.TrimSpace(p.Address.State),
	}, nil
}
