// Package feature holds the geospatial data model shared by all pipeline
// stages: features, ordered collections, loaders, the property filter and
// the export serializers. All geometries are WGS84 lon/lat degrees.
package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Property keys written by the overlap merger.
const (
	KeyOriginalCount = "original_count"
	KeyCenter        = "center"
)

// Feature is one geometric record with its properties.
// Property values are scalars: string, float64, bool or nil. The merger
// additionally stores a [lon, lat] pair under KeyCenter.
type Feature struct {
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// RepresentativePoint returns the point used for containment tests and CSV
// coordinates: the geometry itself for points, the stored merge center for
// merged clusters, otherwise the planar centroid of the geometry.
func (f Feature) RepresentativePoint() orb.Point {
	if p, ok := f.Geometry.(orb.Point); ok {
		return p
	}
	if c, ok := centerFromProperties(f.Properties); ok {
		return c
	}
	centroid, _ := planar.CentroidArea(f.Geometry)
	return centroid
}

// centerFromProperties reads the merge center, accepting both the slice
// written by the merger and the generic form produced by a JSON round trip.
func centerFromProperties(props geojson.Properties) (orb.Point, bool) {
	switch v := props[KeyCenter].(type) {
	case []float64:
		if len(v) == 2 {
			return orb.Point{v[0], v[1]}, true
		}
	case []interface{}:
		if len(v) != 2 {
			return orb.Point{}, false
		}
		lon, okLon := v[0].(float64)
		lat, okLat := v[1].(float64)
		if okLon && okLat {
			return orb.Point{lon, lat}, true
		}
	}
	return orb.Point{}, false
}

// Collection is an ordered sequence of features. Order is insertion order
// from the source and must be preserved: merge results depend on it.
// Keys is the ordered union of property keys across the features and
// defines the CSV column order.
type Collection struct {
	Features []Feature
	Keys     []string
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.Features)
}
