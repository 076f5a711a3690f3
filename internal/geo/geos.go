package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
)

// GeosFromOrb converts an orb geometry into a GEOS geometry.
func GeosFromOrb(g orb.Geometry) (*geos.Geom, error) {
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}

	geom, err := geos.NewGeomFromGeoJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}
	return geom, nil
}

// OrbFromGeos converts a GEOS geometry back into an orb geometry.
func OrbFromGeos(geom *geos.Geom) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(geom.ToGeoJSON(-1)))
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return g.Geometry(), nil
}
