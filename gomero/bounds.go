/*
	This file implements clamping of requested axis ranges against image
	extents and the inclusive 5d Bounds type derived from them.
*/

package gomero

import "fmt"

// ClampAxis intersects a requested [min, max] range with the valid range of an
// axis of the given extent.  A nil request or one with fewer than two elements
// selects the full axis, [0, extent-1].  Out-of-range values are clamped, not
// rejected; an inverted request like [5, 2] passes through unchanged, so the
// caller sees a non-positive size and must handle the degenerate region.
func ClampAxis(requested []int32, extent int32) [2]int32 {
	if len(requested) < 2 {
		return [2]int32{0, extent - 1}
	}
	lo, hi := requested[0], requested[1]
	if lo < 0 {
		lo = 0
	}
	if hi > extent-1 {
		hi = extent - 1
	}
	return [2]int32{lo, hi}
}

// Bounds is an inclusive 5d region: both Start and End lie inside the region
// on every axis.  A well-formed Bounds satisfies Start <= End per axis; the
// clamping functions can produce inverted axes, detected via Size.
type Bounds struct {
	Start Coord
	End   Coord
}

// ComputeBounds clamps each requested axis range against the image extents and
// packages the results.  Each request may be nil to select the full axis.
func ComputeBounds(xReq, yReq, cReq, zReq, tReq []int32, extents Coord) Bounds {
	x := ClampAxis(xReq, extents[XAxis])
	y := ClampAxis(yReq, extents[YAxis])
	c := ClampAxis(cReq, extents[CAxis])
	z := ClampAxis(zReq, extents[ZAxis])
	t := ClampAxis(tReq, extents[TAxis])
	return Bounds{
		Start: Coord{x[0], y[0], c[0], z[0], t[0]},
		End:   Coord{x[1], y[1], c[1], z[1], t[1]},
	}
}

// FullBounds returns the Bounds covering an entire image of the given extents.
func FullBounds(extents Coord) Bounds {
	return ComputeBounds(nil, nil, nil, nil, nil, extents)
}

// Size returns the per-axis extent of the region, End - Start + 1.  Axes of an
// ill-formed region come back zero or negative.
func (b Bounds) Size() Coord {
	var size Coord
	for i := 0; i < NumAxes; i++ {
		size[i] = b.End[i] - b.Start[i] + 1
	}
	return size
}

// NumVoxels returns the number of lattice points within the region, or zero
// if any axis is degenerate.
func (b Bounds) NumVoxels() int64 {
	size := b.Size()
	for i := 0; i < NumAxes; i++ {
		if size[i] <= 0 {
			return 0
		}
	}
	return size.Prod()
}

// CheckSize verifies every axis of the region has positive size, returning an
// error naming the first degenerate axis.  Assembly entry points call this
// before allocating destination buffers.
func (b Bounds) CheckSize() error {
	size := b.Size()
	for i := 0; i < NumAxes; i++ {
		if size[i] <= 0 {
			return fmt.Errorf("region %s has non-positive size %d on axis %s", b, size[i], Axis(i))
		}
	}
	return nil
}

func (b Bounds) String() string {
	return fmt.Sprintf("%s -> %s", b.Start, b.End)
}
