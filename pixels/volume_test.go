package pixels

import (
	"testing"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

func TestAssembleTyped(t *testing.T) {
	src, px := newTestSource(t, imageMeta(10, gomero.T_uint16, 16, 12, 2, 3, 2), true)

	b := px.Bounds([]int32{3, 9}, []int32{2, 6}, []int32{1, 1}, []int32{1, 2}, nil)
	vol, err := px.AssembleTyped(b)
	if err != nil {
		t.Fatalf("AssembleTyped: %v", err)
	}

	size := b.Size()
	if int32(len(vol)) != size.T() {
		t.Fatalf("Expected %d timepoints, got %d", size.T(), len(vol))
	}
	for tIdx := int32(0); tIdx < size.T(); tIdx++ {
		if int32(len(vol[tIdx])) != size.Z() {
			t.Fatalf("Expected %d z-sections, got %d", size.Z(), len(vol[tIdx]))
		}
		for z := int32(0); z < size.Z(); z++ {
			if int32(len(vol[tIdx][z])) != size.C() {
				t.Fatalf("Expected %d channels, got %d", size.C(), len(vol[tIdx][z]))
			}
			for c := int32(0); c < size.C(); c++ {
				plane := vol[tIdx][z][c]
				if int32(len(plane)) != size.Y() || int32(len(plane[0])) != size.X() {
					t.Fatalf("Expected %dx%d plane, got %dx%d", size.Y(), size.X(), len(plane), len(plane[0]))
				}
				for y := int32(0); y < size.Y(); y++ {
					for x := int32(0); x < size.X(); x++ {
						expected := store.PatternSample(gomero.T_uint16,
							b.Start.X()+x, b.Start.Y()+y, b.Start.C()+c, b.Start.Z()+z, b.Start.T()+tIdx)
						if plane[y][x] != expected {
							t.Fatalf("Sample at t=%d z=%d c=%d y=%d x=%d: expected %g, got %g",
								tIdx, z, c, y, x, expected, plane[y][x])
						}
					}
				}
			}
		}
	}

	// One channel for the whole assembly regardless of plane count.
	if src.OpenCount != 1 || src.CloseCount != 1 {
		t.Errorf("Expected a single channel open/close for the assembly, got %d/%d",
			src.OpenCount, src.CloseCount)
	}
	expectedFetches := int64(size.C() * size.Z() * size.T())
	if src.FetchCount != expectedFetches {
		t.Errorf("Expected %d plane fetches, got %d", expectedFetches, src.FetchCount)
	}
}

func TestAssembleRawMatchesTyped(t *testing.T) {
	_, px := newTestSource(t, imageMeta(11, gomero.T_float32, 20, 14, 2, 2, 2), true)

	b := px.Bounds([]int32{2, 17}, []int32{1, 12}, nil, nil, []int32{1, 1})
	typed, err := px.AssembleTyped(b)
	if err != nil {
		t.Fatalf("AssembleTyped: %v", err)
	}
	raw, err := px.AssembleRaw(b)
	if err != nil {
		t.Fatalf("AssembleRaw: %v", err)
	}

	size := b.Size()
	planeBytes := int(size.X()) * int(size.Y()) * int(px.BytesPerPixel())
	for tIdx := range raw {
		for z := range raw[tIdx] {
			for c := range raw[tIdx][z] {
				buf := raw[tIdx][z][c]
				if len(buf) != planeBytes {
					t.Fatalf("Expected %d bytes per raw plane, got %d", planeBytes, len(buf))
				}
				for y := int32(0); y < size.Y(); y++ {
					for x := int32(0); x < size.X(); x++ {
						decoded := px.Type().SampleAt(buf, int(y)*int(size.X())+int(x))
						if decoded != typed[tIdx][z][c][y][x] {
							t.Fatalf("Raw/typed mismatch at t=%d z=%d c=%d y=%d x=%d: %g vs %g",
								tIdx, z, c, y, x, decoded, typed[tIdx][z][c][y][x])
						}
					}
				}
			}
		}
	}
}

// Inverted bounds survive clamping but must abort assembly before any remote
// traffic or allocation.
func TestAssembleFailsFastOnInvertedBounds(t *testing.T) {
	src, px := newTestSource(t, imageMeta(12, gomero.T_uint8, 10, 10, 1, 1, 1), false)

	b := px.Bounds([]int32{5, 2}, nil, nil, nil, nil)
	if got := b.Size().X(); got != -2 {
		t.Fatalf("Expected X size -2 after clamping [5,2], got %d", got)
	}
	if _, err := px.AssembleTyped(b); err == nil {
		t.Errorf("Expected typed assembly to fail on inverted bounds")
	}
	if _, err := px.AssembleRaw(b); err == nil {
		t.Errorf("Expected raw assembly to fail on inverted bounds")
	}
	if src.OpenCount != 0 || src.FetchCount != 0 {
		t.Errorf("Degenerate bounds must abort before remote traffic: %d opens, %d fetches",
			src.OpenCount, src.FetchCount)
	}
}

// A fetch failure mid-assembly aborts immediately and still releases the
// assembly's channel.
func TestAssembleFailsFastOnFetchError(t *testing.T) {
	src, px := newTestSource(t, imageMeta(13, gomero.T_uint8, 8, 8, 2, 2, 2), true)
	src.FailAfter = 5

	_, err := px.AssembleTyped(px.Bounds(nil, nil, nil, nil, nil))
	if err == nil {
		t.Fatalf("Expected assembly to fail on injected fetch error")
	}
	if !store.IsAccessError(err) {
		t.Errorf("Expected an access error, got %T: %v", err, err)
	}
	if src.FetchCount != 5 {
		t.Errorf("Assembly must stop at the failed fetch, got %d fetches", src.FetchCount)
	}
	if src.OpenCount != 1 || src.CloseCount != 1 {
		t.Errorf("Channel must be released on abort: %d opens, %d closes", src.OpenCount, src.CloseCount)
	}
}
