package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/regioncheck/internal/region"
)

// geocoderFunc adapts a plain function to the Geocoder interface.
type geocoderFunc func(ctx context.Context, address string) (*region.Point, error)

func (f geocoderFunc) Geocode(ctx context.Context, address string) (*region.Point, error) {
	return f(ctx, address)
}

// pointTable geocodes by exact address lookup. Unknown addresses resolve to
// no point, like a geocoder miss.
func pointTable(points map[string]region.Point) Geocoder {
	return geocoderFunc(func(_ context.Context, address string) (*region.Point, error) {
		if pt, ok := points[address]; ok {
			p := pt
			return &p, nil
		}
		return nil, nil
	})
}

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}},
	})
}

// springfieldRegistry returns a registry holding a single "towns" dataset
// whose only feature is the unit square.
func springfieldRegistry(t *testing.T) *region.Registry {
	t.Helper()
	ds, err := region.NewDataset("towns", []region.Feature{{
		Geom: square(0, 0, 1, 1),
		Props: []region.Property{
			{Key: "town", Value: "Springfield"},
			{Key: "pop", Value: 30700},
		},
	}})
	require.NoError(t, err)

	r := region.NewRegistry()
	r.Register(ds)
	return r
}

func addrRecord(address string) AddressRecord {
	return AddressRecord{
		Address:     address,
		Columns:     map[string]string{"address": address},
		ColumnOrder: []string{"address"},
	}
}
