package region

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// square returns a closed axis-aligned square polygon.
func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}},
	})
}

// holedSquare returns a square shell from (min,min) to (max,max) with a
// square hole cut out between (holeMin,holeMin) and (holeMax,holeMax).
func holedSquare(min, max, holeMin, holeMax float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{min, min}, {max, min}, {max, max}, {min, max}, {min, min}},
		{{holeMin, holeMin}, {holeMax, holeMin}, {holeMax, holeMax}, {holeMin, holeMax}, {holeMin, holeMin}},
	})
}

func townFeature(name string, pop int, g geom.T) Feature {
	return Feature{
		Geom: g,
		Props: []Property{
			{Key: "town", Value: name},
			{Key: "pop", Value: pop},
		},
	}
}

func townsDataset(t *testing.T, features ...Feature) *Dataset {
	t.Helper()
	ds, err := NewDataset("towns", features)
	require.NoError(t, err)
	return ds
}
