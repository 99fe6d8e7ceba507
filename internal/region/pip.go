package region

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ringLocation classifies a point against a single linear ring.
type ringLocation int

const (
	ringOutside ringLocation = iota
	ringInside
	ringBoundary
)

// contains reports whether pt lies strictly inside g. Boundary semantics are
// exclusive: a point exactly on any ring segment is NOT contained. Only
// Polygon and MultiPolygon geometries are supported.
func contains(g geom.T, pt Point) (bool, error) {
	switch gg := g.(type) {
	case *geom.Polygon:
		return polygonContains(gg, pt), nil
	case *geom.MultiPolygon:
		for i := 0; i < gg.NumPolygons(); i++ {
			if polygonContains(gg.Polygon(i), pt) {
				return true, nil
			}
		}
		return false, nil
	case nil:
		return false, eris.New("region: feature has no geometry")
	default:
		return false, eris.Errorf("region: unsupported geometry type %T", g)
	}
}

// polygonContains applies the ring rule: inside the shell (ring 0), outside
// every hole, and on no ring boundary.
func polygonContains(p *geom.Polygon, pt Point) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}
	if locateInRing(p.LinearRing(0), pt) != ringInside {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if locateInRing(p.LinearRing(i), pt) != ringOutside {
			return false
		}
	}
	return true
}

// locateInRing classifies pt against one ring using an even-odd crossing
// count, with an on-segment test first so boundary points never depend on
// crossing parity. Works for both open and closed coordinate sequences; the
// closing segment is always walked.
func locateInRing(ring *geom.LinearRing, pt Point) ringLocation {
	fc := ring.FlatCoords()
	stride := ring.Stride()
	n := len(fc) / stride
	if n < 3 {
		return ringOutside
	}

	inside := false
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x1, y1 := fc[i*stride], fc[i*stride+1]
		x2, y2 := fc[j*stride], fc[j*stride+1]

		if onSegment(pt.Lon, pt.Lat, x1, y1, x2, y2) {
			return ringBoundary
		}

		if (y1 > pt.Lat) != (y2 > pt.Lat) {
			xCross := x1 + (pt.Lat-y1)*(x2-x1)/(y2-y1)
			if pt.Lon < xCross {
				inside = !inside
			}
		}
	}

	if inside {
		return ringInside
	}
	return ringOutside
}

// onSegment reports whether (px,py) lies exactly on the segment
// (x1,y1)-(x2,y2). Exact comparison is deliberate: the exclusive-boundary
// rule covers points exactly representable on the segment.
func onSegment(px, py, x1, y1, x2, y2 float64) bool {
	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if cross != 0 {
		return false
	}
	return math.Min(x1, x2) <= px && px <= math.Max(x1, x2) &&
		math.Min(y1, y2) <= py && py <= math.Max(y1, y2)
}
