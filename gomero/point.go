/*
	This file holds the coordinate types for 5-dimensional image data.  An image
	is a lattice over (X, Y, Channel, Z, Time); positions and per-axis counts are
	both expressed as Coord values.
*/

package gomero

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Axis designates one of the five dimensions of an image.
type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	CAxis
	ZAxis
	TAxis
)

const NumAxes = 5

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "X"
	case YAxis:
		return "Y"
	case CAxis:
		return "C"
	case ZAxis:
		return "Z"
	case TAxis:
		return "T"
	default:
		return fmt.Sprintf("Unknown axis %d", a)
	}
}

// Coord is an ordered (x, y, c, z, t) tuple of 32-bit signed integers.  It is
// used both as an absolute lattice position and, contextually, as a per-axis
// count (size).  Negative values only arise as the size of an inverted range
// and mark a degenerate region.
type Coord [NumAxes]int32

// MakeCoord packs the five axis values into a Coord.
func MakeCoord(x, y, c, z, t int32) Coord {
	return Coord{x, y, c, z, t}
}

// Value returns the coordinate along the given axis.
func (p Coord) Value(a Axis) int32 {
	return p[a]
}

// X returns the coordinate along the X axis.
func (p Coord) X() int32 { return p[XAxis] }

// Y returns the coordinate along the Y axis.
func (p Coord) Y() int32 { return p[YAxis] }

// C returns the channel index.
func (p Coord) C() int32 { return p[CAxis] }

// Z returns the z-section index.
func (p Coord) Z() int32 { return p[ZAxis] }

// T returns the timepoint index.
func (p Coord) T() int32 { return p[TAxis] }

// Add returns a Coord that is the sum of two coordinates.
func (p Coord) Add(x Coord) (result Coord) {
	for i := 0; i < NumAxes; i++ {
		result[i] = p[i] + x[i]
	}
	return
}

// Sub returns a Coord that is the difference between two coordinates.
func (p Coord) Sub(x Coord) (result Coord) {
	for i := 0; i < NumAxes; i++ {
		result[i] = p[i] - x[i]
	}
	return
}

// Max returns a Coord where each of its elements are the maximum of two
// coordinates' elements, and true if any element changed from p.
func (p Coord) Max(x Coord) (Coord, bool) {
	var changed bool
	result := p
	for i := 0; i < NumAxes; i++ {
		if p[i] < x[i] {
			result[i] = x[i]
			changed = true
		}
	}
	return result, changed
}

// Min returns a Coord where each of its elements are the minimum of two
// coordinates' elements, and true if any element changed from p.
func (p Coord) Min(x Coord) (Coord, bool) {
	var changed bool
	result := p
	for i := 0; i < NumAxes; i++ {
		if p[i] > x[i] {
			result[i] = x[i]
			changed = true
		}
	}
	return result, changed
}

// Prod returns the product of the coordinate elements.
func (p Coord) Prod() int64 {
	result := int64(1)
	for i := 0; i < NumAxes; i++ {
		result *= int64(p[i])
	}
	return result
}

// Bytes returns a byte representation of the Coord in little endian format.
func (p Coord) Bytes() []byte {
	buf := new(bytes.Buffer)
	for i := 0; i < NumAxes; i++ {
		binary.Write(buf, binary.LittleEndian, p[i])
	}
	return buf.Bytes()
}

func (p Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d,%d)", p[0], p[1], p[2], p[3], p[4])
}

// PlaneCoord identifies one 2d (X by Y) plane of an image by its channel,
// z-section, and timepoint.
type PlaneCoord struct {
	C, Z, T int32
}

func (p PlaneCoord) String() string {
	return fmt.Sprintf("(c=%d, z=%d, t=%d)", p.C, p.Z, p.T)
}
