package gomero

import "testing"

func TestCoordArithmetic(t *testing.T) {
	a := MakeCoord(10, 21, 3, 7, 2)
	b := MakeCoord(5, -1, 1, 0, 2)

	sum := a.Add(b)
	if sum != MakeCoord(15, 20, 4, 7, 4) {
		t.Errorf("Add: got %s", sum)
	}
	diff := a.Sub(b)
	if diff != MakeCoord(5, 22, 2, 7, 0) {
		t.Errorf("Sub: got %s", diff)
	}

	max, changed := b.Max(a)
	if !changed || max != MakeCoord(10, 21, 3, 7, 2) {
		t.Errorf("Max: got %s (changed %t)", max, changed)
	}
	min, changed := a.Min(b)
	if !changed || min != MakeCoord(5, -1, 1, 0, 2) {
		t.Errorf("Min: got %s (changed %t)", min, changed)
	}
	if _, changed := a.Max(a); changed {
		t.Errorf("Max against self should not report change")
	}

	if a.Prod() != 10*21*3*7*2 {
		t.Errorf("Prod: got %d", a.Prod())
	}
	if a.String() != "(10,21,3,7,2)" {
		t.Errorf("String: got %s", a.String())
	}
}

func TestCoordAccessors(t *testing.T) {
	p := MakeCoord(1, 2, 3, 4, 5)
	if p.X() != 1 || p.Y() != 2 || p.C() != 3 || p.Z() != 4 || p.T() != 5 {
		t.Errorf("Accessor mismatch for %s", p)
	}
	for i := 0; i < NumAxes; i++ {
		if p.Value(Axis(i)) != int32(i+1) {
			t.Errorf("Value(%s): expected %d, got %d", Axis(i), i+1, p.Value(Axis(i)))
		}
	}
}

func TestCoordBytes(t *testing.T) {
	p := MakeCoord(1, 256, 0, 0, 0)
	b := p.Bytes()
	if len(b) != NumAxes*4 {
		t.Fatalf("Expected %d bytes, got %d", NumAxes*4, len(b))
	}
	if b[0] != 1 || b[4] != 0 || b[5] != 1 {
		t.Errorf("Little endian encoding wrong: % x", b)
	}
}
