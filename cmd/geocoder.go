package main

import (
	"context"

	"github.com/sells-group/regioncheck/internal/region"
	"github.com/sells-group/regioncheck/pkg/geocode"
)

// newGeocodeClient builds the geocoding client from config.
func newGeocodeClient() (geocode.Client, error) {
	opts := []geocode.Option{
		geocode.WithRateLimit(cfg.Geocode.RatePerSec),
	}
	if cfg.Geocode.NominatimURL != "" {
		opts = append(opts, geocode.WithNominatimURL(cfg.Geocode.NominatimURL))
	}
	if cfg.Geocode.CensusFallback {
		opts = append(opts, geocode.WithCensusFallback())
	}
	if cfg.Geocode.CachePath != "" {
		opts = append(opts, geocode.WithCache(cfg.Geocode.CachePath))
	}
	return geocode.NewClient(cfg.Geocode.UserAgent, opts...)
}

// pointGeocoder adapts geocode.Client to the enrichment pipeline's Geocoder
// interface. A geocoder miss maps to a nil point, not an error.
type pointGeocoder struct {
	client geocode.Client
}

func (g pointGeocoder) Geocode(ctx context.Context, address string) (*region.Point, error) {
	res, err := g.client.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if !res.Matched {
		return nil, nil
	}
	return &region.Point{Lon: res.Longitude, Lat: res.Latitude}, nil
}
