package keepout

// Tolerance is how far inside the zone the tool must be, on every side,
// before it counts as trapped rather than sitting on the boundary.
const Tolerance = 0.5

// Zone is a point's relationship to the keepout rectangle
type Zone uint8

const (
	Outside Zone = iota
	// BoundaryOrInside satisfies the inclusive test, edges included
	BoundaryOrInside
	// DeepInside is more than the margin inside on all four sides
	DeepInside
)

func (z Zone) String() string {
	switch z {
	case Outside:
		return "outside"
	case BoundaryOrInside:
		return "inside"
	case DeepInside:
		return "deep_inside"
	default:
		return "unknown"
	}
}

// Inside reports whether z is BoundaryOrInside or DeepInside
func (z Zone) Inside() bool {
	return z >= BoundaryOrInside
}

// Classify places p relative to r using margin as the trap depth
func Classify(p Point, r Rect, margin float64) Zone {
	if !r.Contains(p) {
		return Outside
	}
	if p.X > r.XMin+margin && p.X < r.XMax-margin &&
		p.Y > r.YMin+margin && p.Y < r.YMax-margin {
		return DeepInside
	}
	return BoundaryOrInside
}
