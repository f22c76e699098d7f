/*
	This file supports the pixel type descriptors attached to image data.
	A pixel type fixes the numeric kind and bit depth of every sample in an
	image, from which bytes per pixel and floating-pointness derive.  Raw
	sample buffers are little endian.
*/

package gomero

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PixelType describes the numeric kind and bit depth of image samples.
type PixelType uint8

const (
	T_uint8 PixelType = iota
	T_int8
	T_uint16
	T_int16
	T_uint32
	T_int32
	T_float32
	T_float64
)

var typeBytes = map[PixelType]int32{
	T_uint8:   1,
	T_int8:    1,
	T_uint16:  2,
	T_int16:   2,
	T_uint32:  4,
	T_int32:   4,
	T_float32: 4,
	T_float64: 8,
}

// Names follow the remote repository's pixel type vocabulary, where 32-bit
// and 64-bit floating point are called "float" and "double".
var typeNames = map[PixelType]string{
	T_uint8:   "uint8",
	T_int8:    "int8",
	T_uint16:  "uint16",
	T_int16:   "int16",
	T_uint32:  "uint32",
	T_int32:   "int32",
	T_float32: "float",
	T_float64: "double",
}

// PixelTypeByName returns the pixel type for a remote type name.
func PixelTypeByName(name string) (PixelType, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown pixel type %q", name)
}

func (t PixelType) String() string {
	name, found := typeNames[t]
	if !found {
		return fmt.Sprintf("unknown pixel type %d", uint8(t))
	}
	return name
}

// BytesPerPixel returns the number of bytes used to encode one sample.
func (t PixelType) BytesPerPixel() int32 {
	return typeBytes[t]
}

// IsFloat returns true for floating-point sample types.
func (t PixelType) IsFloat() bool {
	return t == T_float32 || t == T_float64
}

// MarshalJSON implements the json.Marshaler interface.
func (t PixelType) MarshalJSON() ([]byte, error) {
	name, found := typeNames[t]
	if !found {
		return nil, fmt.Errorf("unknown pixel type %d", uint8(t))
	}
	return []byte(`"` + name + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *PixelType) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("pixel type should be a string: %s", string(b))
	}
	pt, err := PixelTypeByName(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// SampleAt decodes sample i of a raw little-endian buffer as a float64.
// The caller guarantees data holds at least (i+1) * BytesPerPixel() bytes.
func (t PixelType) SampleAt(data []byte, i int) float64 {
	switch t {
	case T_uint8:
		return float64(data[i])
	case T_int8:
		return float64(int8(data[i]))
	case T_uint16:
		return float64(binary.LittleEndian.Uint16(data[i*2:]))
	case T_int16:
		return float64(int16(binary.LittleEndian.Uint16(data[i*2:])))
	case T_uint32:
		return float64(binary.LittleEndian.Uint32(data[i*4:]))
	case T_int32:
		return float64(int32(binary.LittleEndian.Uint32(data[i*4:])))
	case T_float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	case T_float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	default:
		return 0
	}
}

// PutSample encodes v as sample i of a raw little-endian buffer.  Integer
// types truncate toward zero.  The caller guarantees the buffer has room.
func (t PixelType) PutSample(data []byte, i int, v float64) {
	switch t {
	case T_uint8:
		data[i] = uint8(v)
	case T_int8:
		data[i] = byte(int8(v))
	case T_uint16:
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	case T_int16:
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	case T_uint32:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	case T_int32:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(int32(v)))
	case T_float32:
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	case T_float64:
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
}
