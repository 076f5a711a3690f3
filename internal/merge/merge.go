// Package merge implements buffered overlap clustering: every feature is
// dilated by a fixed ground distance and features whose dilated footprints
// overlap strongly enough are unioned into a single cluster.
package merge

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geos"

	"github.com/avessar/geoshrink/internal/feature"
	"github.com/avessar/geoshrink/internal/geo"
)

// DefaultQuadSegments controls the circle approximation of point buffers.
const DefaultQuadSegments = 8

// Options control one merge pass.
type Options struct {
	// BufferMeters is the dilation radius in ground meters.
	BufferMeters float64
	// ThresholdPercent is the minimum overlap percentage; two footprints
	// merge only when their overlap is strictly greater than it.
	ThresholdPercent float64
	// QuadSegments overrides DefaultQuadSegments when positive.
	QuadSegments int
}

// MergeError reports a failed geometry operation during merging.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge: %v", e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// recoverGeomPanic converts a GEOS panic into a MergeError, discarding
// any partial result.
func recoverGeomPanic(out **feature.Collection, err *error) {
	if r := recover(); r != nil {
		*out = nil
		*err = &MergeError{Err: fmt.Errorf("geometry operation failed: %v", r)}
	}
}

// Merge buffers every feature and greedily unions overlapping footprints
// into clusters. Each output feature carries the union as its geometry and
// two derived properties: original_count, the number of absorbed source
// features, and center, the [lon, lat] centroid of the union.
//
// The pass is a single in-order sweep. Each not yet processed feature
// seeds a cluster and scans every later unprocessed feature against the
// growing union; an absorbed feature is marked processed and never seeds a
// cluster of its own. Overlap is intersection area over the smaller of the
// two compared areas, times 100. The result depends on input order, and
// the sum of original_count over the output always equals the input count.
//
// An empty input yields an empty output. Zero-area footprints never merge.
func Merge(c *feature.Collection, opts Options) (out *feature.Collection, err error) {
	// go-geos reports GEOS errors by panicking
	defer recoverGeomPanic(&out, &err)

	out = &feature.Collection{Keys: []string{feature.KeyOriginalCount, feature.KeyCenter}}
	if c.Len() == 0 {
		return out, nil
	}

	quadSegs := opts.QuadSegments
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegments
	}

	// Buffer in the Web Mercator plane; the radius is rescaled per feature
	// so it corresponds to ground meters at the feature's latitude.
	buffered := make([]*geos.Geom, c.Len())
	areas := make([]float64, c.Len())
	for i, f := range c.Features {
		g, convErr := geo.GeosFromOrb(geo.ToMercator(f.Geometry))
		if convErr != nil {
			return nil, &MergeError{Err: convErr}
		}

		radius := opts.BufferMeters * geo.MercatorScale(f.RepresentativePoint()[1])
		buffered[i] = g.Buffer(radius, quadSegs)
		areas[i] = buffered[i].Area()
	}

	processed := make([]bool, c.Len())
	for i := range c.Features {
		if processed[i] {
			continue
		}

		count := 1
		current := buffered[i]
		currentArea := areas[i]

		for j := i + 1; j < c.Len(); j++ {
			if processed[j] || !current.Intersects(buffered[j]) {
				continue
			}

			minArea := math.Min(currentArea, areas[j])
			if minArea == 0 {
				continue
			}

			overlap := current.Intersection(buffered[j]).Area() / minArea * 100
			if overlap > opts.ThresholdPercent {
				count++
				current = current.Union(buffered[j])
				currentArea = current.Area()
				processed[j] = true
			}
		}
		processed[i] = true

		merged, convErr := geo.OrbFromGeos(current)
		if convErr != nil {
			return nil, &MergeError{Err: convErr}
		}

		// a zero-area buffer produces an empty union; fall back to the
		// seed feature's own point instead of an undefined centroid
		var center orb.Point
		if current.IsEmpty() {
			center = c.Features[i].RepresentativePoint()
		} else {
			centroid, _ := planar.CentroidArea(merged)
			center = geo.PointToWGS84(centroid)
		}

		out.Features = append(out.Features, feature.Feature{
			Geometry: geo.ToWGS84(merged),
			Properties: geojson.Properties{
				feature.KeyOriginalCount: float64(count),
				feature.KeyCenter:        []float64{center[0], center[1]},
			},
		})
	}

	log.Debug().
		Int("input", c.Len()).
		Int("clusters", out.Len()).
		Float64("buffer_m", opts.BufferMeters).
		Float64("threshold_pct", opts.ThresholdPercent).
		Msg("Merged overlapping features")

	return out, nil
}
