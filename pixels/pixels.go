/*
	Package pixels implements the tiled multi-dimensional pixel access
	engine: it turns a logical request for a rectangular sub-volume of a
	5d image (X, Y, Channel, Z, Time) into a sequence of bounded remote
	tile fetches and reassembles the fragments into dense in-memory
	arrays.  The engine consumes store interfaces and never talks to the
	wire itself.
*/
package pixels

import (
	"fmt"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// Pixels couples one image's pixel metadata with the data source it was
// loaded from.  Dimensions and pixel type are fixed at construction; the
// per-plane acquisition records load lazily via LoadPlanesInfo.
type Pixels struct {
	source store.DataSource
	image  int64
	name   string
	meta   store.PixelsMeta

	// planes is nil until LoadPlanesInfo succeeds.
	planes []store.PlaneRecord
}

// New fetches an image's metadata and returns its Pixels.
func New(source store.DataSource, image int64) (*Pixels, error) {
	meta, err := source.ImageMetadata(image)
	if err != nil {
		return nil, fmt.Errorf("unable to get metadata for image %d: %v", image, err)
	}
	return &Pixels{
		source: source,
		image:  image,
		name:   meta.Name,
		meta:   meta.Pixels,
	}, nil
}

// Image returns the repository id of the owning image.
func (p *Pixels) Image() int64 { return p.image }

// Source returns the data source this image was loaded from.
func (p *Pixels) Source() store.DataSource { return p.source }

// Name returns the owning image's name.
func (p *Pixels) Name() string { return p.name }

// Meta returns the static pixel metadata.
func (p *Pixels) Meta() store.PixelsMeta { return p.meta }

// SizeX returns the image width in pixels.
func (p *Pixels) SizeX() int32 { return p.meta.SizeX }

// SizeY returns the image height in pixels.
func (p *Pixels) SizeY() int32 { return p.meta.SizeY }

// SizeC returns the number of channels.
func (p *Pixels) SizeC() int32 { return p.meta.SizeC }

// SizeZ returns the number of z-sections.
func (p *Pixels) SizeZ() int32 { return p.meta.SizeZ }

// SizeT returns the number of timepoints.
func (p *Pixels) SizeT() int32 { return p.meta.SizeT }

// Type returns the pixel type descriptor.
func (p *Pixels) Type() gomero.PixelType { return p.meta.Type }

// BytesPerPixel returns the encoded size of one sample.
func (p *Pixels) BytesPerPixel() int32 { return p.meta.Type.BytesPerPixel() }

// Extents returns the image dimensions as per-axis counts.
func (p *Pixels) Extents() gomero.Coord { return p.meta.Extents() }

// Bounds clamps the requested per-axis ranges against this image's extents.
// Each request may be nil to select the full axis.
func (p *Pixels) Bounds(xReq, yReq, cReq, zReq, tReq []int32) gomero.Bounds {
	return gomero.ComputeBounds(xReq, yReq, cReq, zReq, tReq, p.Extents())
}

// scopedChannel returns an open raw-data channel and a release func.  A nil
// ch opens a channel for the scope of one call; the release closes it.  A
// caller-supplied channel is passed through and the release is a no-op, so
// ownership stays with the caller.
func (p *Pixels) scopedChannel(ch store.RawChannel) (store.RawChannel, func(), error) {
	if ch != nil {
		return ch, func() {}, nil
	}
	opened, err := p.source.OpenChannel(p.image)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open raw-data channel for image %d: %v", p.image, err)
	}
	release := func() {
		if err := opened.Close(); err != nil {
			gomero.Errorf("error closing raw-data channel for image %d: %v\n", p.image, err)
		}
	}
	return opened, release, nil
}
