package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNominatimTestClient(srvURL string) *client {
	return &client{
		httpClient:   newRewriteClient(map[string]string{defaultNominatimURL: srvURL}),
		limiter:      newTestLimiter(),
		userAgent:    "regioncheck-test/1.0",
		nominatimURL: defaultNominatimURL,
	}
}

func TestGeocodeNominatim_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10 Main St, Providence, RI", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat":"41.8239891","lon":"-71.4128343","class":"place","type":"house","display_name":"10, Main Street, Providence"}]`)
	}))
	defer srv.Close()

	c := newNominatimTestClient(srv.URL)
	result, err := c.geocodeNominatim(context.Background(), "10 Main St, Providence, RI")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
	assert.Equal(t, "rooftop", result.Quality)
	assert.InDelta(t, 41.8239891, result.Latitude, 1e-9)
	assert.InDelta(t, -71.4128343, result.Longitude, 1e-9)
}

func TestGeocodeNominatim_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newNominatimTestClient(srv.URL)
	result, err := c.geocodeNominatim(context.Background(), "nowhere at all")
	require.NoError(t, err)

	assert.False(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
}

func TestGeocodeNominatim_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newNominatimTestClient(srv.URL)
	_, err := c.geocodeNominatim(context.Background(), "10 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGeocodeNominatim_BadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"not-a-number","lon":"-71.4"}]`)
	}))
	defer srv.Close()

	c := newNominatimTestClient(srv.URL)
	_, err := c.geocodeNominatim(context.Background(), "10 Main St")
	require.Error(t, err)
}

func TestNominatimQuality(t *testing.T) {
	tests := []struct {
		class, typ string
		want       string
	}{
		{"place", "house", "rooftop"},
		{"building", "yes", "rooftop"},
		{"highway", "residential", "range"},
		{"place", "postcode", "centroid"},
		{"place", "neighbourhood", "centroid"},
		{"boundary", "administrative", "approximate"},
		{"", "", "approximate"},
	}

	for _, tt := range tests {
		if got := nominatimQuality(tt.class, tt.typ); got != tt.want {
			t.Errorf("nominatimQuality(%q, %q) = %q, want %q", tt.class, tt.typ, got, tt.want)
		}
	}
}
