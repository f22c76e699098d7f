package hyperstack

import (
	"fmt"
	"math"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/pixels"
	"github.com/gred-clermont/gomero/store"
)

// Build assembles the bounded region of an image into a calibrated Stack.
// Planes are fetched over one raw-data channel held for the whole build, in
// timepoint-outermost order, decoded per the image's pixel type, and
// installed channel-fastest.  A single running (min, max) accumulated over
// every sample of every plane becomes each plane's display range.
//
// Channel lookup tables come from the live rendering color of each channel;
// if live resolution fails the imported color is used instead and the
// failure is logged, never returned.  When the metadata carries no time
// increment and plane records are loaded, the calibration frame interval
// falls back to the mean time interval.
func Build(px *pixels.Pixels, b gomero.Bounds) (*Stack, error) {
	if err := b.CheckSize(); err != nil {
		return nil, fmt.Errorf("unable to build stack for image %d: %v", px.Image(), err)
	}
	timedLog := gomero.NewTimeLog()

	size := b.Size()
	stack := &Stack{
		image:  px.Image(),
		name:   px.Name(),
		pt:     px.Type(),
		bounds: b,
		size:   size,
		planes: make([][]float64, int(size.C())*int(size.Z())*int(size.T())),
		cal:    NewCalibration(px.Meta()),
	}
	if stack.cal.FrameInterval == 0 {
		if interval := px.MeanTimeInterval(); !interval.IsNone() {
			stack.cal.FrameInterval = interval.ConvertTo(gomero.Second).Value
		}
	}

	ch, err := px.Source().OpenChannel(px.Image())
	if err != nil {
		return nil, fmt.Errorf("unable to open raw-data channel for image %d: %v", px.Image(), err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			gomero.Errorf("error closing raw-data channel for image %d: %v\n", px.Image(), err)
		}
	}()

	pt := px.Type()
	planeLen := int(size.X()) * int(size.Y())
	min, max := math.Inf(1), math.Inf(-1)
	for t := int32(0); t < size.T(); t++ {
		for z := int32(0); z < size.Z(); z++ {
			for c := int32(0); c < size.C(); c++ {
				pc := gomero.PlaneCoord{
					C: b.Start.C() + c,
					Z: b.Start.Z() + z,
					T: b.Start.T() + t,
				}
				raw, err := px.FetchRawTile(ch, pc, b.Start.X(), b.Start.Y(), size.X(), size.Y())
				if err != nil {
					return nil, err
				}
				samples := make([]float64, planeLen)
				for i := 0; i < planeLen; i++ {
					v := pt.SampleAt(raw, i)
					samples[i] = v
					if v < min {
						min = v
					}
					if v > max {
						max = v
					}
				}
				stack.planes[stack.PlaneIndex(c, z, t)] = samples
			}
		}
	}
	stack.min, stack.max = min, max

	stack.luts = make([]LUT, size.C())
	for c := int32(0); c < size.C(); c++ {
		stack.luts[c] = RampTo(channelColor(px.Source(), px.Image(), b.Start.C()+c))
	}

	timedLog.Infof("built %q stack %s, %d planes, display range [%g, %g]",
		stack.name, b, stack.NumPlanes(), stack.min, stack.max)
	return stack, nil
}

// channelColor resolves the display color of one channel.  Live rendering
// colors are preferred; a live failure degrades to the imported color with a
// warning.  If neither resolves, the channel renders in grays.
func channelColor(src store.ColorSource, image int64, channel int32) store.Color {
	color, err := src.LiveColor(image, channel)
	if err == nil {
		return color
	}
	gomero.Warningf("unable to resolve live color for image %d channel %d, falling back to imported color: %v\n",
		image, channel, err)

	color, err = src.ImportedColor(image, channel)
	if err != nil {
		gomero.Warningf("no imported color for image %d channel %d, using grays: %v\n", image, channel, err)
		return store.Color{R: 255, G: 255, B: 255, A: 255}
	}
	return color
}
