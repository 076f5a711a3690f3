package merge

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avessar/geoshrink/internal/feature"
)

func pointCollection(points ...orb.Point) *feature.Collection {
	c := &feature.Collection{Keys: []string{"id"}}
	for i, p := range points {
		c.Features = append(c.Features, feature.Feature{
			Geometry:   p,
			Properties: geojson.Properties{"id": float64(i)},
		})
	}
	return c
}

func countSum(c *feature.Collection) float64 {
	var sum float64
	for _, f := range c.Features {
		sum += f.Properties[feature.KeyOriginalCount].(float64)
	}
	return sum
}

func TestMergeNearbyPoints(t *testing.T) {
	// two points ~11m apart and one far away; 50m buffers at 50% overlap
	// collapse the close pair and leave the third alone
	c := pointCollection(
		orb.Point{0, 0},
		orb.Point{0, 0.0001},
		orb.Point{10, 10},
	)

	out, err := Merge(c, Options{BufferMeters: 50, ThresholdPercent: 50})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	assert.Equal(t, float64(2), out.Features[0].Properties[feature.KeyOriginalCount])
	assert.Equal(t, float64(1), out.Features[1].Properties[feature.KeyOriginalCount])

	center := out.Features[0].RepresentativePoint()
	assert.InDelta(t, 0, center[0], 1e-4)
	assert.InDelta(t, 0.00005, center[1], 1e-4)

	far := out.Features[1].RepresentativePoint()
	assert.InDelta(t, 10, far[0], 1e-3)
	assert.InDelta(t, 10, far[1], 1e-3)
}

func TestMergeCountInvariant(t *testing.T) {
	c := pointCollection(
		orb.Point{0, 0},
		orb.Point{0, 0.0001},
		orb.Point{0.0001, 0.0001},
		orb.Point{5, 5},
		orb.Point{5.00005, 5},
		orb.Point{10, -10},
	)

	out, err := Merge(c, Options{BufferMeters: 30, ThresholdPercent: 20})
	require.NoError(t, err)
	assert.Equal(t, float64(c.Len()), countSum(out))
}

func TestMergeEmptyInput(t *testing.T) {
	out, err := Merge(&feature.Collection{}, Options{BufferMeters: 25, ThresholdPercent: 50})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestMergeThreshold100NeverMerges(t *testing.T) {
	// partial overlap can never exceed the strict threshold of 100, and
	// identical footprints overlap at exactly 100, which does not pass
	c := pointCollection(
		orb.Point{0, 0},
		orb.Point{0, 0.0001},
		orb.Point{0, 0},
	)

	out, err := Merge(c, Options{BufferMeters: 50, ThresholdPercent: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, float64(3), countSum(out))
}

func TestMergeOutputStable(t *testing.T) {
	// re-running the merger over its own output with no further buffering
	// must not collapse the clusters any further
	c := pointCollection(
		orb.Point{0, 0},
		orb.Point{0, 0.0001},
		orb.Point{10, 10},
	)

	first, err := Merge(c, Options{BufferMeters: 50, ThresholdPercent: 50})
	require.NoError(t, err)
	require.Equal(t, 2, first.Len())

	second, err := Merge(first, Options{BufferMeters: 0, ThresholdPercent: 50})
	require.NoError(t, err)
	assert.Equal(t, first.Len(), second.Len())
}

func TestMergeZeroAreaBuffersPassThrough(t *testing.T) {
	c := pointCollection(
		orb.Point{0, 0},
		orb.Point{0, 0.0001},
	)

	out, err := Merge(c, Options{BufferMeters: 0, ThresholdPercent: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, float64(2), countSum(out))
}

func TestMergeChainsThroughGrowingUnion(t *testing.T) {
	// a line of points where each neighbor overlaps the growing union:
	// the greedy sweep chains them into a single cluster
	c := pointCollection(
		orb.Point{0, 0},
		orb.Point{0, 0.0004},
		orb.Point{0, 0.0008},
	)

	out, err := Merge(c, Options{BufferMeters: 40, ThresholdPercent: 10})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, float64(3), out.Features[0].Properties[feature.KeyOriginalCount])
}

func TestMergeUnusableGeometryIsMergeError(t *testing.T) {
	// a one-point line cannot be turned into a GEOS geometry; the
	// failure must surface as the stage's typed error
	c := &feature.Collection{
		Keys: []string{"id"},
		Features: []feature.Feature{
			{Geometry: orb.LineString{{0, 0}}, Properties: geojson.Properties{"id": float64(0)}},
		},
	}

	out, err := Merge(c, Options{BufferMeters: 25, ThresholdPercent: 50})
	require.Error(t, err)
	assert.Nil(t, out)

	var mergeErr *MergeError
	require.ErrorAs(t, err, &mergeErr)
}

func TestMergeRecoversGeometryPanic(t *testing.T) {
	// geometry operations report failures by panicking; the deferred
	// handler must turn that into a MergeError and drop the partial result
	run := func() (out *feature.Collection, err error) {
		defer recoverGeomPanic(&out, &err)
		out = &feature.Collection{}
		panic("TopologyException: side location conflict")
	}

	out, err := run()
	assert.Nil(t, out)

	var mergeErr *MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Contains(t, mergeErr.Error(), "side location conflict")
}
