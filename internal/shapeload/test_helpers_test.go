package shapeload

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// closeRing turns corner coordinates into a closed shapefile ring.
func closeRing(pts [][2]float64) []shp.Point {
	out := make([]shp.Point, 0, len(pts)+1)
	for _, p := range pts {
		out = append(out, shp.Point{X: p[0], Y: p[1]})
	}
	return append(out, out[0])
}

// shellRing returns a clockwise square, the shapefile winding for outer
// boundaries.
func shellRing(minX, minY, maxX, maxY float64) []shp.Point {
	return closeRing([][2]float64{{minX, minY}, {minX, maxY}, {maxX, maxY}, {maxX, minY}})
}

// holeRing returns a counter-clockwise square, the shapefile winding for
// holes.
func holeRing(minX, minY, maxX, maxY float64) []shp.Point {
	return closeRing([][2]float64{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}})
}

func polyShape(rings ...[]shp.Point) *shp.Polygon {
	var parts []int32
	var points []shp.Point
	for _, r := range rings {
		parts = append(parts, int32(len(points)))
		points = append(points, r...)
	}
	return &shp.Polygon{
		Box:       shp.BBoxFromPoints(points),
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
}

// writeShapefile writes shapes and their attribute rows to path. A nil
// attribute leaves the DBF cell empty.
func writeShapefile(t *testing.T, path string, fields []shp.Field, shapes []*shp.Polygon, rows [][]any) {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields(fields)
	for i, shape := range shapes {
		w.Write(shape)
		for j, val := range rows[i] {
			if val == nil {
				continue
			}
			require.NoError(t, w.WriteAttribute(i, j, val))
		}
	}
	w.Close()
}

// writeTownsShapefile writes a two-town fixture and returns its path.
func writeTownsShapefile(t *testing.T, dir, base string) string {
	t.Helper()

	path := filepath.Join(dir, base)
	writeShapefile(t, path,
		[]shp.Field{shp.StringField("NAME", 32), shp.NumberField("POP", 9)},
		[]*shp.Polygon{
			polyShape(shellRing(0, 0, 1, 1)),
			polyShape(shellRing(2, 0, 3, 1)),
		},
		[][]any{
			{"Springfield", 30700},
			{"Shelbyville", 41250},
		},
	)
	return path
}

// writeZipOf archives every file under root into zipPath, preserving
// relative paths.
func writeZipOf(t *testing.T, zipPath, root string) {
	t.Helper()

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		dst, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = io.Copy(dst, src)
		return err
	})
	require.NoError(t, walkErr)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
