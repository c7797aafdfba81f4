package keepout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atcguard/standalone"
)

var zone = NewRect(10, 10, 50, 50)

func TestNewRectNormalizes(t *testing.T) {
	r := NewRect(50, 60, 10, -5)
	assert.Equal(t, Rect{XMin: 10, YMin: -5, XMax: 50, YMax: 60}, r)
	assert.Equal(t, r, r.Normalize())
}

func TestRectValidate(t *testing.T) {
	assert.NoError(t, zone.Validate())
	assert.ErrorIs(t, Rect{XMin: math.NaN()}.Validate(), ErrInvalidRect)
	assert.ErrorIs(t, Rect{YMax: math.Inf(1)}.Validate(), ErrInvalidRect)
}

func TestClip(t *testing.T) {
	tests := []struct {
		name   string
		seg    Segment
		ok     bool
		t0, t1 float64
	}{
		{"through", Segment{Point{0, 30}, Point{60, 30}}, true, 10.0 / 60, 50.0 / 60},
		{"enters and stops", Segment{Point{0, 30}, Point{30, 30}}, true, 10.0 / 30, 1},
		{"starts inside", Segment{Point{30, 30}, Point{60, 30}}, true, 0, 20.0 / 30},
		{"fully inside", Segment{Point{20, 20}, Point{40, 40}}, true, 0, 1},
		{"misses", Segment{Point{0, 0}, Point{60, 5}}, false, 0, 0},
		{"parallel outside", Segment{Point{0, 60}, Point{60, 60}}, false, 0, 0},
		{"stops short", Segment{Point{0, 30}, Point{5, 30}}, false, 0, 0},
		{"corner touch", Segment{Point{0, 20}, Point{20, 0}}, true, 0.5, 0.5},
		{"zero length outside", Segment{Point{0, 0}, Point{0, 0}}, false, 0, 0},
		{"zero length inside", Segment{Point{20, 20}, Point{20, 20}}, true, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t0, t1, ok := Clip(tt.seg, zone)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.t0, t0, 1e-9)
				assert.InDelta(t, tt.t1, t1, 1e-9)
			}
		})
	}
}

func TestIntersects(t *testing.T) {
	assert.True(t, Intersects(Segment{Point{0, 30}, Point{60, 30}}, zone))
	assert.True(t, Intersects(Segment{Point{30, 30}, Point{60, 60}}, zone))
	assert.False(t, Intersects(Segment{Point{0, 0}, Point{5, 60}}, zone))

	// running along an edge only touches it
	assert.False(t, Intersects(Segment{Point{10, 10}, Point{10, 50}}, zone))
	assert.False(t, Intersects(Segment{Point{20, 50}, Point{40, 50}}, zone))
	// touching a corner from outside
	assert.False(t, Intersects(Segment{Point{0, 20}, Point{20, 0}}, zone))
	// ending exactly on the edge
	assert.False(t, Intersects(Segment{Point{0, 30}, Point{10, 30}}, zone))
}

func TestClippedEndpoint(t *testing.T) {
	start := standalone.Position{X: 0, Y: 30, Z: -2, A: 90}
	target := standalone.Position{X: 100, Y: 30, Z: 5, A: 180}

	got, ok := ClippedEndpoint(start, target, zone)
	require.True(t, ok)
	assert.InDelta(t, 10, got.X, 1e-9)
	assert.InDelta(t, 30, got.Y, 1e-9)
	assert.Equal(t, 5.0, got.Z, "non-XY axes come from the target")
	assert.Equal(t, 180.0, got.A)
}

func TestClippedEndpointNoForwardPoint(t *testing.T) {
	// starts on the boundary
	_, ok := ClippedEndpoint(standalone.Position{X: 10, Y: 30}, standalone.Position{X: 30, Y: 30}, zone)
	assert.False(t, ok)

	// starts inside
	_, ok = ClippedEndpoint(standalone.Position{X: 20, Y: 30}, standalone.Position{X: 80, Y: 30}, zone)
	assert.False(t, ok)

	// never reaches the zone
	_, ok = ClippedEndpoint(standalone.Position{X: 0, Y: 0}, standalone.Position{X: 5, Y: 5}, zone)
	assert.False(t, ok)
}

func TestClippedEndpointIsStableAtBoundary(t *testing.T) {
	starts := []standalone.Position{
		{X: 0, Y: 0},
		{X: -7.3, Y: 33.1},
		{X: 70, Y: 12},
		{X: 25, Y: 90},
	}
	target := standalone.Position{X: 30, Y: 30, Z: 1}

	for _, start := range starts {
		first, ok := ClippedEndpoint(start, target, zone)
		require.True(t, ok)

		p := PointOf(first)
		onEdge := math.Abs(p.X-zone.XMin) < 1e-9 || math.Abs(p.X-zone.XMax) < 1e-9 ||
			math.Abs(p.Y-zone.YMin) < 1e-9 || math.Abs(p.Y-zone.YMax) < 1e-9
		assert.True(t, onEdge, "clip point %v should lie on the zone edge", p)

		second, ok := ClippedEndpoint(start, first, zone)
		require.True(t, ok)
		assert.InDelta(t, first.X, second.X, 1e-9)
		assert.InDelta(t, first.Y, second.Y, 1e-9)
		assert.Equal(t, first.Z, second.Z)
	}
}
