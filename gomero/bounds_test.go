package gomero

import "testing"

func TestClampAxisFullRange(t *testing.T) {
	for _, extent := range []int32{1, 10, 5000, 100000} {
		got := ClampAxis(nil, extent)
		if got[0] != 0 || got[1] != extent-1 {
			t.Errorf("ClampAxis(nil, %d): expected [0, %d], got %v", extent, extent-1, got)
		}
		got = ClampAxis([]int32{7}, extent)
		if got[0] != 0 || got[1] != extent-1 {
			t.Errorf("ClampAxis with 1 element: expected full range, got %v", got)
		}
	}
}

func TestClampAxisIntersection(t *testing.T) {
	tests := []struct {
		req      []int32
		extent   int32
		expected [2]int32
	}{
		{[]int32{-5, 20}, 10, [2]int32{0, 9}},
		{[]int32{0, 9}, 10, [2]int32{0, 9}},
		{[]int32{3, 6}, 10, [2]int32{3, 6}},
		{[]int32{-100, -1}, 10, [2]int32{0, -1}},
		{[]int32{15, 300}, 10, [2]int32{15, 9}},
		{[]int32{5, 2}, 10, [2]int32{5, 2}}, // inverted request passes through
	}
	for _, tc := range tests {
		got := ClampAxis(tc.req, tc.extent)
		if got != tc.expected {
			t.Errorf("ClampAxis(%v, %d): expected %v, got %v", tc.req, tc.extent, tc.expected, got)
		}
	}
}

func TestClampAxisSubsetProperty(t *testing.T) {
	// Any well-ordered clamp result must lie within [0, extent-1].
	extents := []int32{1, 3, 17, 4096}
	reqs := [][]int32{{-50, 50}, {0, 0}, {2, 2}, {-1, 1000000}, {16, 16}}
	for _, extent := range extents {
		for _, req := range reqs {
			got := ClampAxis(req, extent)
			if got[0] > got[1] {
				continue // degenerate result, checked by size handling
			}
			if got[0] < 0 || got[1] > extent-1 {
				t.Errorf("ClampAxis(%v, %d) = %v escapes [0, %d]", req, extent, got, extent-1)
			}
		}
	}
}

func TestComputeBoundsSize(t *testing.T) {
	extents := MakeCoord(512, 256, 3, 20, 10)
	b := ComputeBounds([]int32{10, 100}, []int32{20, 30}, nil, []int32{5, 5}, nil, extents)

	expectedStart := MakeCoord(10, 20, 0, 5, 0)
	expectedEnd := MakeCoord(100, 30, 2, 5, 9)
	if b.Start != expectedStart {
		t.Errorf("Expected start %s, got %s", expectedStart, b.Start)
	}
	if b.End != expectedEnd {
		t.Errorf("Expected end %s, got %s", expectedEnd, b.End)
	}

	size := b.Size()
	for i := 0; i < NumAxes; i++ {
		expected := b.End[i] - b.Start[i] + 1
		if size[i] != expected {
			t.Errorf("Size on axis %s: expected %d, got %d", Axis(i), expected, size[i])
		}
	}
	if err := b.CheckSize(); err != nil {
		t.Errorf("Well-formed bounds failed size check: %v", err)
	}
	if b.NumVoxels() != 91*11*3*1*10 {
		t.Errorf("Expected %d voxels, got %d", 91*11*3*1*10, b.NumVoxels())
	}
}

func TestInvertedBoundsDetected(t *testing.T) {
	extents := MakeCoord(10, 10, 1, 1, 1)
	b := ComputeBounds([]int32{5, 2}, nil, nil, nil, nil, extents)
	if b.Start.X() != 5 || b.End.X() != 2 {
		t.Fatalf("Inverted request should pass through clamping, got %s", b)
	}
	if size := b.Size(); size.X() != -2 {
		t.Errorf("Expected X size -2 for inverted bounds, got %d", size.X())
	}
	if err := b.CheckSize(); err == nil {
		t.Errorf("Expected size check to fail for inverted bounds %s", b)
	}
	if b.NumVoxels() != 0 {
		t.Errorf("Expected 0 voxels for degenerate bounds, got %d", b.NumVoxels())
	}
}

func TestFullBounds(t *testing.T) {
	extents := MakeCoord(10000, 8000, 2, 1, 1)
	b := FullBounds(extents)
	if b.Start != MakeCoord(0, 0, 0, 0, 0) {
		t.Errorf("Expected zero start, got %s", b.Start)
	}
	if b.Size() != extents {
		t.Errorf("Expected full size %s, got %s", extents, b.Size())
	}
}
