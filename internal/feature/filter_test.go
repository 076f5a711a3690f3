package feature

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollection() *Collection {
	return &Collection{
		Keys: []string{"kind", "level"},
		Features: []Feature{
			{Geometry: orb.Point{0, 0}, Properties: geojson.Properties{"kind": "tower", "level": float64(5)}},
			{Geometry: orb.Point{1, 1}, Properties: geojson.Properties{"kind": "mast", "level": float64(3)}},
			{Geometry: orb.Point{2, 2}, Properties: geojson.Properties{"kind": "tower", "level": "5"}},
		},
	}
}

func TestFilterEmptyAllowedReturnsInput(t *testing.T) {
	c := testCollection()
	assert.Same(t, c, Filter(c, "kind", nil))
	assert.Same(t, c, Filter(c, "kind", []interface{}{}))
}

func TestFilterKeepsOrder(t *testing.T) {
	c := testCollection()

	out := Filter(c, "kind", []interface{}{"tower"})
	require.Equal(t, 2, out.Len())
	assert.Equal(t, orb.Point{0, 0}, out.Features[0].Geometry)
	assert.Equal(t, orb.Point{2, 2}, out.Features[1].Geometry)
	assert.Equal(t, c.Keys, out.Keys)
}

func TestFilterTypeSensitive(t *testing.T) {
	c := testCollection()

	// the number 5 does not match the string "5"
	out := Filter(c, "level", []interface{}{float64(5)})
	require.Equal(t, 1, out.Len())
	assert.Equal(t, orb.Point{0, 0}, out.Features[0].Geometry)

	out = Filter(c, "level", []interface{}{"5"})
	require.Equal(t, 1, out.Len())
	assert.Equal(t, orb.Point{2, 2}, out.Features[0].Geometry)
}

func TestFilterUnknownKeyYieldsEmpty(t *testing.T) {
	out := Filter(testCollection(), "missing", []interface{}{"tower"})
	assert.Equal(t, 0, out.Len())
}
