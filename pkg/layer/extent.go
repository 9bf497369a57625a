package layer

import (
	"fmt"
	"math"
)

// Extent is a bounding rectangle as [minX, minY, maxX, maxY].
type Extent [4]float64

// NewExtent returns the extent spanning the two corners, in any order.
func NewExtent(x1, y1, x2, y2 float64) Extent {
	return Extent{math.Min(x1, x2), math.Min(y1, y2), math.Max(x1, x2), math.Max(y1, y2)}
}

// EmptyExtent returns an extent that contains nothing and grows with Extend.
func EmptyExtent() Extent {
	return Extent{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

// MinX returns the left edge.
func (e Extent) MinX() float64 { return e[0] }

// MinY returns the bottom edge.
func (e Extent) MinY() float64 { return e[1] }

// MaxX returns the right edge.
func (e Extent) MaxX() float64 { return e[2] }

// MaxY returns the top edge.
func (e Extent) MaxY() float64 { return e[3] }

// Width returns MaxX - MinX.
func (e Extent) Width() float64 { return e[2] - e[0] }

// Height returns MaxY - MinY.
func (e Extent) Height() float64 { return e[3] - e[1] }

// IsEmpty reports whether the extent covers no area.
func (e Extent) IsEmpty() bool { return e[2] < e[0] || e[3] < e[1] }

// Extend grows the extent to include the point (x, y).
func (e Extent) Extend(x, y float64) Extent {
	return Extent{math.Min(e[0], x), math.Min(e[1], y), math.Max(e[2], x), math.Max(e[3], y)}
}

// Intersects reports whether e and o overlap.
func (e Extent) Intersects(o Extent) bool {
	return e[0] <= o[2] && e[2] >= o[0] && e[1] <= o[3] && e[3] >= o[1]
}

// SwapAxes returns the extent with x and y exchanged.
func (e Extent) SwapAxes() Extent {
	return Extent{e[1], e[0], e[3], e[2]}
}

// Ptr returns a pointer to a copy of e, for use in [Attrs.Extent].
func (e Extent) Ptr() *Extent { return &e }

func (e Extent) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", e[0], e[1], e[2], e[3])
}
