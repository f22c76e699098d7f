/*
	This file supports physical units for calibration and acquisition
	metadata.  Lengths carry an explicit unit; a NaN magnitude is the
	"no value" sentinel used when metadata is absent.
*/

package gomero

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// LengthUnit is a unit of physical distance.
type LengthUnit uint8

const (
	Nanometer LengthUnit = iota
	Micrometer
	Millimeter
	Meter
)

var lengthMeters = map[LengthUnit]float64{
	Nanometer:  1e-9,
	Micrometer: 1e-6,
	Millimeter: 1e-3,
	Meter:      1,
}

var lengthSymbols = map[LengthUnit]string{
	Nanometer:  "nm",
	Micrometer: "µm",
	Millimeter: "mm",
	Meter:      "m",
}

// LengthUnitByName returns the unit matching a symbol or a remote unit name
// like "MICROMETER".
func LengthUnitByName(name string) (LengthUnit, error) {
	switch name {
	case "nm", "NANOMETER":
		return Nanometer, nil
	case "µm", "um", "MICROMETER":
		return Micrometer, nil
	case "mm", "MILLIMETER":
		return Millimeter, nil
	case "m", "METER":
		return Meter, nil
	}
	return 0, fmt.Errorf("unknown length unit %q", name)
}

func (u LengthUnit) String() string {
	return lengthSymbols[u]
}

// Length is a physical distance in a given unit.
type Length struct {
	Value float64
	Unit  LengthUnit
}

// NoLength returns the "no value" Length sentinel in the given unit.
func NoLength(unit LengthUnit) Length {
	return Length{Value: math.NaN(), Unit: unit}
}

// IsNone returns true if the Length carries no value.
func (l Length) IsNone() bool {
	return math.IsNaN(l.Value)
}

// ConvertTo expresses the Length in another unit.  A "no value" Length stays
// that way.
func (l Length) ConvertTo(unit LengthUnit) Length {
	if l.Unit == unit || l.IsNone() {
		return Length{Value: l.Value, Unit: unit}
	}
	meters := l.Value * lengthMeters[l.Unit]
	return Length{Value: meters / lengthMeters[unit], Unit: unit}
}

func (l Length) String() string {
	if l.IsNone() {
		return "no value"
	}
	return fmt.Sprintf("%g %s", l.Value, l.Unit)
}

// MarshalJSON implements the json.Marshaler interface.  A "no value" Length
// encodes as null since JSON has no NaN.
func (l Length) MarshalJSON() ([]byte, error) {
	if l.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}{l.Value, l.Unit.String()})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (l *Length) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*l = NoLength(Micrometer)
		return nil
	}
	var aux struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	unit, err := LengthUnitByName(aux.Unit)
	if err != nil {
		return err
	}
	*l = Length{Value: aux.Value, Unit: unit}
	return nil
}

// TimeUnit is a unit of elapsed time.
type TimeUnit uint8

const (
	Millisecond TimeUnit = iota
	Second
	Minute
)

var timeSeconds = map[TimeUnit]float64{
	Millisecond: 1e-3,
	Second:      1,
	Minute:      60,
}

var timeSymbols = map[TimeUnit]string{
	Millisecond: "ms",
	Second:      "s",
	Minute:      "min",
}

func (u TimeUnit) String() string {
	return timeSymbols[u]
}

// Time is an elapsed time in a given unit.  Acquisition timestamps and
// exposures use this rather than time.Duration so the "no value" sentinel
// survives arithmetic.
type Time struct {
	Value float64
	Unit  TimeUnit
}

// NoTime returns the "no value" Time sentinel in the given unit.
func NoTime(unit TimeUnit) Time {
	return Time{Value: math.NaN(), Unit: unit}
}

// IsNone returns true if the Time carries no value.
func (t Time) IsNone() bool {
	return math.IsNaN(t.Value)
}

// ConvertTo expresses the Time in another unit.
func (t Time) ConvertTo(unit TimeUnit) Time {
	if t.Unit == unit || t.IsNone() {
		return Time{Value: t.Value, Unit: unit}
	}
	seconds := t.Value * timeSeconds[t.Unit]
	return Time{Value: seconds / timeSeconds[unit], Unit: unit}
}

func (t Time) String() string {
	if t.IsNone() {
		return "no value"
	}
	return fmt.Sprintf("%g %s", t.Value, t.Unit)
}

// TimeUnitByName returns the unit matching a symbol or a remote unit name.
func TimeUnitByName(name string) (TimeUnit, error) {
	switch name {
	case "ms", "MILLISECOND":
		return Millisecond, nil
	case "s", "SECOND":
		return Second, nil
	case "min", "MINUTE":
		return Minute, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", name)
}

// MarshalJSON implements the json.Marshaler interface.  A "no value" Time
// encodes as null since JSON has no NaN.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}{t.Value, t.Unit.String()})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = NoTime(Second)
		return nil
	}
	var aux struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	unit, err := TimeUnitByName(aux.Unit)
	if err != nil {
		return err
	}
	*t = Time{Value: aux.Value, Unit: unit}
	return nil
}
