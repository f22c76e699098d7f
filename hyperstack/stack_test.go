package hyperstack

import (
	"math"
	"testing"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

func within(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestNewCalibration(t *testing.T) {
	um := func(v float64) *gomero.Length {
		l := gomero.Length{Value: v, Unit: gomero.Micrometer}
		return &l
	}
	nm := func(v float64) *gomero.Length {
		l := gomero.Length{Value: v, Unit: gomero.Nanometer}
		return &l
	}
	mm := func(v float64) *gomero.Length {
		l := gomero.Length{Value: v, Unit: gomero.Millimeter}
		return &l
	}
	inc := gomero.Time{Value: 2500, Unit: gomero.Millisecond}

	meta := store.PixelsMeta{
		SizeX: 4, SizeY: 4, SizeC: 1, SizeZ: 1, SizeT: 1,
		Type:          gomero.T_uint8,
		PhysicalX:     um(0.5),
		PhysicalY:     nm(600),
		PhysicalZ:     mm(0.002),
		TimeIncrement: &inc,
	}
	cal := NewCalibration(meta)
	if cal.Unit != gomero.Micrometer.String() {
		t.Errorf("Expected unit %q, got %q", gomero.Micrometer.String(), cal.Unit)
	}
	if !within(cal.PixelWidth, 0.5, 1e-12) {
		t.Errorf("Expected pixel width 0.5, got %g", cal.PixelWidth)
	}
	// Heights and depths land in the X unit.
	if !within(cal.PixelHeight, 0.6, 1e-9) {
		t.Errorf("Expected pixel height 0.6, got %g", cal.PixelHeight)
	}
	if !within(cal.PixelDepth, 2, 1e-9) {
		t.Errorf("Expected pixel depth 2, got %g", cal.PixelDepth)
	}
	if !within(cal.FrameInterval, 2.5, 1e-12) {
		t.Errorf("Expected frame interval 2.5 s, got %g", cal.FrameInterval)
	}
}

func TestNewCalibrationUncalibrated(t *testing.T) {
	cal := NewCalibration(store.PixelsMeta{
		SizeX: 4, SizeY: 4, SizeC: 1, SizeZ: 1, SizeT: 1,
		Type: gomero.T_uint8,
	})
	if cal.Unit != "" {
		t.Errorf("Expected no unit without physical sizes, got %q", cal.Unit)
	}
	if cal.PixelWidth != 1 || cal.PixelHeight != 1 || cal.PixelDepth != 1 {
		t.Errorf("Expected unit scales, got %g/%g/%g", cal.PixelWidth, cal.PixelHeight, cal.PixelDepth)
	}
	if cal.FrameInterval != 0 {
		t.Errorf("Expected no frame interval, got %g", cal.FrameInterval)
	}
}

// Without a recorded time increment the builder derives the frame interval
// from loaded plane records.
func TestBuildFrameIntervalFallback(t *testing.T) {
	_, im, px := newStackSource(t, stackMeta(7, gomero.T_uint8, 4, 4, 1, 1, 3))
	for tp := int32(0); tp < 3; tp++ {
		im.Records = append(im.Records, store.PlaneRecord{
			T: tp,
			DeltaT: gomero.Time{
				Value: 1.5 * float64(tp),
				Unit:  gomero.Second,
			},
			Exposure: gomero.NoTime(gomero.Second),
			PosX:     gomero.NoLength(gomero.Micrometer),
			PosY:     gomero.NoLength(gomero.Micrometer),
			PosZ:     gomero.NoLength(gomero.Micrometer),
		})
	}
	if err := px.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}

	stack, err := Build(px, px.Bounds(nil, nil, nil, nil, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := stack.Calibration().FrameInterval; !within(got, 1.5, 1e-12) {
		t.Errorf("Expected frame interval 1.5 s from plane records, got %g", got)
	}
}

func TestRampTo(t *testing.T) {
	red := RampTo(store.Color{R: 255, A: 255})
	if red.R[0] != 0 || red.R[255] != 255 || red.R[128] != 128 {
		t.Errorf("Expected a linear red ramp, got R[0]=%d R[128]=%d R[255]=%d",
			red.R[0], red.R[128], red.R[255])
	}
	for i := 0; i < 256; i++ {
		if red.G[i] != 0 || red.B[i] != 0 {
			t.Fatalf("Expected zero green/blue in a red ramp at %d", i)
		}
	}

	grays := Grays()
	for i := 0; i < 256; i++ {
		if int(grays.R[i]) != i || int(grays.G[i]) != i || int(grays.B[i]) != i {
			t.Fatalf("Expected identity ramp at %d, got (%d,%d,%d)",
				i, grays.R[i], grays.G[i], grays.B[i])
		}
	}
}
