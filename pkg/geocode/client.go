// Package geocode resolves postal addresses to coordinates via OpenStreetMap
// Nominatim (primary) and the US Census geocoder (optional fallback).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client resolves postal addresses to coordinates.
type Client interface {
	// Geocode resolves a single free-form address. A miss is not an error.
	Geocode(ctx context.Context, address string) (*Result, error)

	// Close releases the response cache, if one is attached.
	Close() error
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "nominatim" or "census"
	Quality   string // "rooftop", "range", "centroid", "approximate"
	Matched   bool
}

// Option configures the geocoding client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client for all provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit across providers.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCensusFallback enables the US Census one-line geocoder for addresses
// Nominatim cannot resolve. US-only, no API key needed.
func WithCensusFallback() Option {
	return func(c *client) {
		c.censusFallback = true
	}
}

// WithCache attaches a SQLite response cache at the given path. Matches and
// non-matches are both cached.
func WithCache(path string) Option {
	return func(c *client) {
		c.cachePath = path
	}
}

// WithNominatimURL points the client at a different Nominatim instance,
// such as a self-hosted one.
func WithNominatimURL(u string) Option {
	return func(c *client) {
		c.nominatimURL = strings.TrimRight(u, "/")
	}
}

type client struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	userAgent      string
	nominatimURL   string
	censusFallback bool
	cachePath      string
	cache          *Cache
}

// NewClient creates a geocoding Client. Nominatim's usage policy requires an
// identifying User-Agent, so one is mandatory.
func NewClient(userAgent string, opts ...Option) (Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, eris.New("geocode: user agent required")
	}

	c := &client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
		userAgent:    userAgent,
		nominatimURL: defaultNominatimURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cachePath != "" {
		cache, err := OpenCache(c.cachePath)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}

	return c, nil
}

// Geocode resolves a single address, trying the cache, then Nominatim, then
// Census if configured. It returns an error only when every attempted
// provider failed to answer; a definitive miss from any provider is an
// unmatched result.
func (c *client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return &Result{Matched: false}, nil
	}

	key := cacheKey(address)
	if c.cache != nil {
		cached, err := c.cache.Lookup(ctx, key)
		if err != nil {
			zap.L().Debug("geocode: cache lookup failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	var lastErr error
	var lastMiss *Result

	res, err := c.geocodeNominatim(ctx, address)
	if err != nil {
		zap.L().Debug("geocode: nominatim error, trying next", zap.Error(err))
		lastErr = err
	} else if res.Matched {
		c.cachePut(ctx, key, res)
		return res, nil
	} else {
		lastMiss = res
	}

	if c.censusFallback {
		res, err = c.geocodeCensus(ctx, address)
		if err != nil {
			zap.L().Debug("geocode: census error", zap.Error(err))
			if lastErr == nil {
				lastErr = err
			}
		} else if res.Matched {
			c.cachePut(ctx, key, res)
			return res, nil
		} else {
			lastMiss = res
		}
	}

	if lastMiss == nil {
		return nil, lastErr
	}

	// No match from any provider. Not an error, just unmatched.
	miss := &Result{Matched: false, Source: lastMiss.Source}
	c.cachePut(ctx, key, miss)
	return miss, nil
}

// Close releases the response cache.
func (c *client) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

func (c *client) cachePut(ctx context.Context, key string, res *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Store(ctx, key, res); err != nil {
		zap.L().Debug("geocode: cache store failed", zap.Error(err))
	}
}
