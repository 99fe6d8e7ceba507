package main

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regioncheck/internal/config"
	"github.com/sells-group/regioncheck/pkg/geocode"
)

type fakeGeocodeClient struct {
	res *geocode.Result
	err error
}

func (f fakeGeocodeClient) Geocode(_ context.Context, _ string) (*geocode.Result, error) {
	return f.res, f.err
}

func (f fakeGeocodeClient) Close() error { return nil }

func TestPointGeocoder_Hit(t *testing.T) {
	g := pointGeocoder{client: fakeGeocodeClient{
		res: &geocode.Result{Latitude: 41.8, Longitude: -71.4, Matched: true},
	}}

	pt, err := g.Geocode(context.Background(), "1 Main St Providence RI")
	require.NoError(t, err)
	require.NotNil(t, pt)
	assert.Equal(t, -71.4, pt.Lon)
	assert.Equal(t, 41.8, pt.Lat)
}

func TestPointGeocoder_MissIsNotAnError(t *testing.T) {
	g := pointGeocoder{client: fakeGeocodeClient{res: &geocode.Result{Matched: false}}}

	pt, err := g.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, pt)
}

func TestPointGeocoder_PropagatesError(t *testing.T) {
	g := pointGeocoder{client: fakeGeocodeClient{err: eris.New("provider down")}}

	pt, err := g.Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.Nil(t, pt)
}

func TestNewGeocodeClient_FromConfig(t *testing.T) {
	oldCfg := cfg
	cfg = &config.Config{Geocode: config.GeocodeConfig{
		UserAgent:  "regioncheck-test/1.0",
		RatePerSec: 2,
	}}
	defer func() { cfg = oldCfg }()

	client, err := newGeocodeClient()
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NoError(t, client.Close())
}

func TestNewGeocodeClient_RequiresUserAgent(t *testing.T) {
	oldCfg := cfg
	cfg = &config.Config{Geocode: config.GeocodeConfig{RatePerSec: 1}}
	defer func() { cfg = oldCfg }()

	_, err := newGeocodeClient()
	require.Error(t, err)
}
