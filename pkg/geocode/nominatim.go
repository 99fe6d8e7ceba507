package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// nominatimPlace is one entry of the Nominatim search response. Coordinates
// come back as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

// geocodeNominatim geocodes a single address using the Nominatim search API.
func (c *client) geocodeNominatim(ctx context.Context, address string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}

	reqURL := c.nominatimURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lon")
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   nominatimQuality(place.Class, place.Type),
		Matched:   true,
	}, nil
}

// nominatimQuality maps a place class/type to our quality taxonomy.
func nominatimQuality(class, typ string) string {
	switch {
	case class == "building", class == "place" && typ == "house":
		return "rooftop"
	case class == "highway", typ == "residential":
		return "range"
	case typ == "postcode", typ == "suburb", typ == "neighbourhood":
		return "centroid"
	default:
		return "approximate"
	}
}
