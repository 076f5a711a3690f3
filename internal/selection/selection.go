// Package selection narrows a collection to the features inside a
// hand-drawn polygon.
package selection

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/avessar/geoshrink/internal/feature"
	"github.com/avessar/geoshrink/internal/geo"
)

// InvalidPolygonError reports a selection ring that does not form a
// usable polygon.
type InvalidPolygonError struct {
	Reason string
}

func (e *InvalidPolygonError) Error() string {
	return "invalid polygon: " + e.Reason
}

// Select returns the sub-collection whose representative point lies
// strictly inside the ring. Containment is boundary-exclusive: a point on
// an edge or exactly at a vertex of the ring is not selected. The ring is
// closed automatically when its last vertex does not repeat the first.
func Select(c *feature.Collection, ring []orb.Point) (out *feature.Collection, err error) {
	// go-geos reports GEOS errors by panicking
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &InvalidPolygonError{Reason: fmt.Sprintf("geometry operation failed: %v", r)}
		}
	}()

	closed, err := closeRing(ring)
	if err != nil {
		return nil, err
	}

	poly, convErr := geo.GeosFromOrb(orb.Polygon{closed})
	if convErr != nil {
		return nil, &InvalidPolygonError{Reason: convErr.Error()}
	}

	out = &feature.Collection{Keys: c.Keys}
	for _, f := range c.Features {
		pt, convErr := geo.GeosFromOrb(f.RepresentativePoint())
		if convErr != nil {
			return nil, &InvalidPolygonError{
				Reason: fmt.Sprintf("containment test failed: %v", convErr),
			}
		}
		if poly.Contains(pt) {
			out.Features = append(out.Features, f)
		}
	}
	return out, nil
}

// closeRing validates the drawn ring and appends the closing vertex when
// it is missing.
func closeRing(ring []orb.Point) (orb.Ring, error) {
	distinct := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, &InvalidPolygonError{
			Reason: fmt.Sprintf("need at least 3 distinct vertices, got %d", len(distinct)),
		}
	}

	out := make(orb.Ring, 0, len(ring)+1)
	out = append(out, ring...)
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out, nil
}
