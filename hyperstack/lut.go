package hyperstack

import "github.com/gred-clermont/gomero/store"

// LUT is a 256-entry lookup table mapping display-scaled intensities to
// screen colors.
type LUT struct {
	R, G, B [256]uint8
}

// RampTo returns a linear ramp from black to the given color.
func RampTo(color store.Color) LUT {
	var lut LUT
	for i := 0; i < 256; i++ {
		lut.R[i] = uint8(int(color.R) * i / 255)
		lut.G[i] = uint8(int(color.G) * i / 255)
		lut.B[i] = uint8(int(color.B) * i / 255)
	}
	return lut
}

// Grays is the identity ramp used when no channel color can be resolved.
func Grays() LUT {
	return RampTo(store.Color{R: 255, G: 255, B: 255, A: 255})
}
