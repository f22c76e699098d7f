/*
	Package hyperstack builds calibrated, color-mapped display stacks from
	the pixel access engine.  A Stack is a dense 5d block of typed samples
	ordered channel-fastest, carrying one global display range and one
	lookup table per channel; it is decoupled from any GUI toolkit.
*/
package hyperstack

import (
	"fmt"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// Calibration maps stack indices to physical units.  A zero Unit means the
// spatial axes are uncalibrated and the scales are 1.
type Calibration struct {
	PixelWidth  float64 `json:"pixel_width"`
	PixelHeight float64 `json:"pixel_height"`
	PixelDepth  float64 `json:"pixel_depth"`
	Unit        string  `json:"unit,omitempty"`

	// FrameInterval is the time between consecutive timepoints in seconds,
	// 0 when unknown.
	FrameInterval float64 `json:"frame_interval,omitempty"`
}

// NewCalibration copies per-axis physical pixel sizes into a Calibration.
// Heights and depths are expressed in the X unit; missing axes keep scale 1.
func NewCalibration(meta store.PixelsMeta) Calibration {
	cal := Calibration{PixelWidth: 1, PixelHeight: 1, PixelDepth: 1}
	if meta.PhysicalX != nil && !meta.PhysicalX.IsNone() {
		cal.Unit = meta.PhysicalX.Unit.String()
		cal.PixelWidth = meta.PhysicalX.Value
		if meta.PhysicalY != nil && !meta.PhysicalY.IsNone() {
			cal.PixelHeight = meta.PhysicalY.ConvertTo(meta.PhysicalX.Unit).Value
		}
		if meta.PhysicalZ != nil && !meta.PhysicalZ.IsNone() {
			cal.PixelDepth = meta.PhysicalZ.ConvertTo(meta.PhysicalX.Unit).Value
		}
	}
	if meta.TimeIncrement != nil && !meta.TimeIncrement.IsNone() {
		cal.FrameInterval = meta.TimeIncrement.ConvertTo(gomero.Second).Value
	}
	return cal
}

// Stack is a built hyperstack: one []float64 per (c, z, t) plane, indexed
// channel-fastest, with stack-global display scaling.
type Stack struct {
	image  int64
	name   string
	pt     gomero.PixelType
	bounds gomero.Bounds
	size   gomero.Coord

	planes   [][]float64
	min, max float64
	luts     []LUT
	cal      Calibration
}

// Image returns the repository id of the source image.
func (s *Stack) Image() int64 { return s.image }

// Name returns the source image's name.
func (s *Stack) Name() string { return s.name }

// Type returns the source pixel type.
func (s *Stack) Type() gomero.PixelType { return s.pt }

// Bounds returns the absolute image region this stack was built from.
func (s *Stack) Bounds() gomero.Bounds { return s.bounds }

// Size returns the per-axis sample counts.
func (s *Stack) Size() gomero.Coord { return s.size }

// Calibration returns the physical calibration of the stack axes.
func (s *Stack) Calibration() Calibration { return s.cal }

// NumPlanes returns the number of (c, z, t) planes.
func (s *Stack) NumPlanes() int { return len(s.planes) }

// PlaneIndex returns the linear index of a plane given stack-relative
// channel, z-section and timepoint.  Channels vary fastest, timepoints
// slowest.
func (s *Stack) PlaneIndex(c, z, t int32) int {
	return int(c) + int(s.size.C())*(int(z)+int(s.size.Z())*int(t))
}

// Plane returns the samples of one plane in row-major order.
func (s *Stack) Plane(c, z, t int32) []float64 {
	return s.planes[s.PlaneIndex(c, z, t)]
}

// SampleAt returns one sample by stack-relative indices.
func (s *Stack) SampleAt(c, z, t, x, y int32) float64 {
	return s.planes[s.PlaneIndex(c, z, t)][int(y)*int(s.size.X())+int(x)]
}

// DisplayRange returns the global (min, max) over every sample of every
// plane.  All planes share it, so rendering is comparable across the stack.
func (s *Stack) DisplayRange() (min, max float64) {
	return s.min, s.max
}

// PlaneDisplayRange returns the display range of one plane.  Every plane
// reports the stack-global pair.
func (s *Stack) PlaneDisplayRange(c, z, t int32) (min, max float64) {
	idx := s.PlaneIndex(c, z, t)
	if idx < 0 || idx >= len(s.planes) {
		return 0, 0
	}
	return s.min, s.max
}

// LUT returns the lookup table of a stack-relative channel.
func (s *Stack) LUT(c int32) LUT {
	return s.luts[c]
}

func (s *Stack) String() string {
	return fmt.Sprintf("%q %s stack %s", s.name, s.pt, s.bounds)
}
