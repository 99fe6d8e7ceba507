package shapeload

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/regioncheck/internal/region"
)

// ParseShapefile reads one shapefile into a dataset. Records without
// polygon geometry are skipped and counted; DBF attributes become typed
// properties in field order.
func ParseShapefile(shpPath, name string) (*region.Dataset, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	decode, err := sidecarDecoder(shpPath)
	if err != nil {
		return nil, err
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var features []region.Feature
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		g := polygonGeometry(poly)
		if g == nil {
			skipped++
			continue
		}

		props := make([]region.Property, 0, len(fields))
		for i, f := range fields {
			raw := strings.TrimRight(reader.Attribute(i), "\x00")
			props = append(props, region.Property{
				Key:   names[i],
				Value: fieldValue(f, raw, decode),
			})
		}

		features = append(features, region.Feature{Geom: g, Props: props})
	}

	if skipped > 0 {
		zap.L().Debug("shapeload: skipped records without polygon geometry",
			zap.String("shapefile", filepath.Base(shpPath)),
			zap.Int("skipped", skipped),
		)
	}

	return region.NewDataset(name, features)
}

// polygonGeometry converts a shapefile polygon to a MultiPolygon. Ring
// orientation decides grouping: clockwise rings open a new polygon as its
// shell, counter-clockwise rings are holes in the polygon before them. A
// hole with no preceding shell starts its own polygon.
func polygonGeometry(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("shapeload: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		isShell := signedArea2(flat) <= 0 // shapefile shells wind clockwise

		if isShell || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("shapeload: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea2 returns twice the signed area of a ring given as flat XY
// pairs: positive for counter-clockwise winding, negative for clockwise.
func signedArea2(flat []float64) float64 {
	n := len(flat) / 2
	if n < 3 {
		return 0
	}
	var sum float64
	for i := range n {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum
}

// fieldValue converts one DBF attribute to a typed property value. Empty
// cells become nil so exports show them as missing rather than "".
func fieldValue(f shp.Field, raw string, decode func(string) string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			if n, err := strconv.Atoi(raw); err == nil {
				return n
			}
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case 'F':
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case 'L':
		switch raw {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil
	}

	return decode(raw)
}
