package gomero

import (
	"math"
	"testing"
)

func TestLengthConversion(t *testing.T) {
	l := Length{Value: 1.5, Unit: Micrometer}
	nm := l.ConvertTo(Nanometer)
	if math.Abs(nm.Value-1500) > 1e-9 || nm.Unit != Nanometer {
		t.Errorf("Expected 1500 nm, got %s", nm)
	}
	mm := l.ConvertTo(Millimeter)
	if math.Abs(mm.Value-0.0015) > 1e-12 {
		t.Errorf("Expected 0.0015 mm, got %s", mm)
	}
	same := l.ConvertTo(Micrometer)
	if same != l {
		t.Errorf("Identity conversion changed value: %s", same)
	}
}

func TestLengthSentinel(t *testing.T) {
	none := NoLength(Micrometer)
	if !none.IsNone() {
		t.Errorf("NoLength should report IsNone")
	}
	converted := none.ConvertTo(Meter)
	if !converted.IsNone() || converted.Unit != Meter {
		t.Errorf("Sentinel should survive conversion, got %s", converted)
	}
	if none.String() != "no value" {
		t.Errorf("Expected \"no value\", got %q", none.String())
	}
}

func TestLengthUnitByName(t *testing.T) {
	for _, tc := range []struct {
		name string
		unit LengthUnit
	}{
		{"nm", Nanometer}, {"MICROMETER", Micrometer}, {"um", Micrometer},
		{"mm", Millimeter}, {"METER", Meter},
	} {
		u, err := LengthUnitByName(tc.name)
		if err != nil {
			t.Errorf("LengthUnitByName(%q): %v", tc.name, err)
		} else if u != tc.unit {
			t.Errorf("LengthUnitByName(%q): expected %v, got %v", tc.name, tc.unit, u)
		}
	}
	if _, err := LengthUnitByName("parsec"); err == nil {
		t.Errorf("Expected error for unknown unit")
	}
}

func TestTimeConversion(t *testing.T) {
	ms := Time{Value: 1500, Unit: Millisecond}
	s := ms.ConvertTo(Second)
	if math.Abs(s.Value-1.5) > 1e-12 {
		t.Errorf("Expected 1.5 s, got %s", s)
	}
	min := s.ConvertTo(Minute)
	if math.Abs(min.Value-0.025) > 1e-12 {
		t.Errorf("Expected 0.025 min, got %s", min)
	}
	if !NoTime(Second).IsNone() {
		t.Errorf("NoTime should report IsNone")
	}
}
