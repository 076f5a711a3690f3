// Package geo provides coordinate projection helpers and the bridge
// between orb geometries and GEOS geometries.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MaxLat is the Web Mercator latitude cutoff.
const MaxLat = 85.05112878

// ToMercator projects a WGS84 lon/lat geometry to Web Mercator meters.
// The input geometry is left untouched.
func ToMercator(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// ToWGS84 projects a Web Mercator geometry back to lon/lat degrees.
// The input geometry is left untouched.
func ToWGS84(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84)
}

// PointToWGS84 projects a single Web Mercator point to lon/lat degrees.
func PointToWGS84(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

// MercatorScale returns the factor that converts ground meters at the
// given latitude into Web Mercator plane meters. It is 1 at the equator
// and grows towards the poles.
func MercatorScale(lat float64) float64 {
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	return 1 / math.Cos(lat*math.Pi/180)
}
