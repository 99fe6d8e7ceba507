package main

import (
	"archive/zip"
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/regioncheck/internal/config"
	"github.com/sells-group/regioncheck/internal/region"
)

// squarePoly returns a closed axis-aligned square polygon.
func squarePoly(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}},
	})
}

// townsDataset returns an in-memory dataset with Springfield on the unit
// square and Shelbyville beside it.
func townsDataset(t *testing.T) *region.Dataset {
	t.Helper()
	ds, err := region.NewDataset("towns", []region.Feature{
		{Geom: squarePoly(0, 0, 1, 1), Props: []region.Property{{Key: "NAME", Value: "Springfield"}}},
		{Geom: squarePoly(2, 0, 3, 1), Props: []region.Property{{Key: "NAME", Value: "Shelbyville"}}},
	})
	require.NoError(t, err)
	return ds
}

// stubGeocoder resolves addresses from a fixed table; everything else is a
// miss.
type stubGeocoder map[string]region.Point

func (g stubGeocoder) Geocode(_ context.Context, address string) (*region.Point, error) {
	if pt, ok := g[address]; ok {
		return &pt, nil
	}
	return nil, nil
}

// newTestServer builds a server over reg with a stub geocoder. delayMS paces
// the pipeline; 0 disables pacing so jobs finish immediately.
func newTestServer(t *testing.T, reg *region.Registry, delayMS int) *server {
	t.Helper()
	c := &config.Config{
		Pipeline: config.PipelineConfig{DelayMS: delayMS},
		Server:   config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}},
	}
	g := stubGeocoder{
		"742 Evergreen Terrace": {Lon: 0.5, Lat: 0.5},
		"1 Main St Shelbyville": {Lon: 2.5, Lat: 0.5},
	}
	return newServer(context.Background(), reg, g, c)
}

// multipartFile builds a one-file multipart body for an upload request.
func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// writeProvidenceShapefile writes a one-town shapefile named ri_towns into
// dir. The shell winds clockwise, the shapefile convention.
func writeProvidenceShapefile(t *testing.T, dir string) {
	t.Helper()

	w, err := shp.Create(filepath.Join(dir, "ri_towns.shp"), shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("NAME", 32)})

	ring := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	w.Write(&shp.Polygon{
		Box:       shp.BBoxFromPoints(ring),
		NumParts:  1,
		NumPoints: int32(len(ring)),
		Parts:     []int32{0},
		Points:    ring,
	})
	require.NoError(t, w.WriteAttribute(0, 0, "Providence"))
	w.Close()
}

// shapeZipBytes returns a zip archive holding the ri_towns shapefile.
func shapeZipBytes(t *testing.T) []byte {
	t.Helper()

	dir := t.TempDir()
	writeProvidenceShapefile(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		dst, err := zw.Create(e.Name())
		require.NoError(t, err)
		_, err = dst.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}
