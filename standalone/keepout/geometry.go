package keepout

import (
	"errors"
	"fmt"
	"math"

	"atcguard/standalone"
)

// ErrInvalidRect is returned for bounds that are not finite numbers
var ErrInvalidRect = errors.New("keepout: invalid rectangle")

// Point is the X/Y projection of a machine position
type Point struct {
	X float64
	Y float64
}

// PointOf projects a machine position onto the XY plane
func PointOf(pos standalone.Position) Point {
	return Point{X: pos.X, Y: pos.Y}
}

// Rect is an axis-aligned rectangle with XMin <= XMax and YMin <= YMax
type Rect struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// NewRect builds a rectangle from two opposite corners given in any order
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{XMin: x0, YMin: y0, XMax: x1, YMax: y1}.Normalize()
}

// Normalize swaps bounds so min <= max on both axes
func (r Rect) Normalize() Rect {
	return Rect{
		XMin: math.Min(r.XMin, r.XMax),
		XMax: math.Max(r.XMin, r.XMax),
		YMin: math.Min(r.YMin, r.YMax),
		YMax: math.Max(r.YMin, r.YMax),
	}
}

// Validate rejects NaN and infinite bounds
func (r Rect) Validate() error {
	for _, v := range [...]float64{r.XMin, r.YMin, r.XMax, r.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidRect, r)
		}
	}
	return nil
}

// Contains is the inclusive membership test; edges count as inside
func (r Rect) Contains(p Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax &&
		p.Y >= r.YMin && p.Y <= r.YMax
}

func (r Rect) String() string {
	return fmt.Sprintf("X[%.3f,%.3f] Y[%.3f,%.3f]", r.XMin, r.XMax, r.YMin, r.YMax)
}

// Segment is a straight XY move from A to B
type Segment struct {
	A Point
	B Point
}

// At returns A + t*(B-A)
func (s Segment) At(t float64) Point {
	return Point{
		X: s.A.X + t*(s.B.X-s.A.X),
		Y: s.A.Y + t*(s.B.Y-s.A.Y),
	}
}

// Clip runs Liang-Barsky clipping of s against r.
// It returns the parameter range [t0,t1] of s inside r; ok is false when the
// segment never reaches the rectangle. t0 == t1 means s only touches an edge
// or corner.
func Clip(s Segment, r Rect) (t0, t1 float64, ok bool) {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	t0, t1 = 0, 1

	// left, right, bottom, top
	p := [4]float64{-dx, dx, -dy, dy}
	q := [4]float64{
		s.A.X - r.XMin, r.XMax - s.A.X,
		s.A.Y - r.YMin, r.YMax - s.A.Y,
	}

	for i := 0; i < 4; i++ {
		if p[i] == 0 {
			// parallel to this edge
			if q[i] < 0 {
				return 0, 0, false
			}
			continue
		}

		t := q[i] / p[i]
		if p[i] < 0 {
			// entering across this edge
			if t > t1 {
				return 0, 0, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			// leaving across this edge
			if t < t0 {
				return 0, 0, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}

	return t0, t1, true
}

// Intersects reports whether s passes through the interior of r.
// Touching an edge or a corner is not an intersection, so a move that starts
// or ends exactly on the zone boundary is not flagged. A segment running
// along an edge clips to a non-empty range but never leaves the boundary;
// the midpoint of the clipped range separates the two cases.
func Intersects(s Segment, r Rect) bool {
	t0, t1, ok := Clip(s, r)
	if !ok || t0 >= t1 {
		return false
	}
	return r.interior(s.At((t0 + t1) / 2))
}

func (r Rect) interior(p Point) bool {
	return p.X > r.XMin && p.X < r.XMax &&
		p.Y > r.YMin && p.Y < r.YMax
}

// ClippedEndpoint returns the point where the move from start to target first
// enters r, with every non-XY axis taken from target. ok is false when the
// move never reaches r or already starts on or inside it (t0 <= 0), in which
// case there is no safe forward point and the caller must stop the move.
func ClippedEndpoint(start, target standalone.Position, r Rect) (standalone.Position, bool) {
	seg := Segment{A: PointOf(start), B: PointOf(target)}

	t0, _, ok := Clip(seg, r)
	if !ok || t0 <= 0 {
		return start, false
	}

	clipped := target
	p := seg.At(t0)
	clipped.X = p.X
	clipped.Y = p.Y
	return clipped, true
}
