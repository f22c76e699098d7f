/*
	This file implements an in-memory DataSource.  It backs package tests
	across the repo and doubles as the reference for source semantics:
	region extraction, channel ownership, and error surfaces behave exactly
	as remote implementations must.
*/

package store

import (
	"fmt"
	"sync/atomic"

	"github.com/gred-clermont/gomero/gomero"
)

// PatternSample returns the deterministic synthetic sample value used by
// MemImage.FillPattern for lattice position (x, y, c, z, t).  Tests derive
// expected values from the same function.
func PatternSample(pt gomero.PixelType, x, y, c, z, t int32) float64 {
	v := float64((int64(x) + int64(y)*3 + int64(c)*7 + int64(z)*11 + int64(t)*13) % 251)
	if pt.IsFloat() {
		return v + 0.25
	}
	return v
}

// MemImage is one synthetic image held by a MemSource.
type MemImage struct {
	Meta    ImageMeta
	Records []PlaneRecord

	// planes maps (c,z,t) to a full-plane raw buffer of
	// SizeX*SizeY*BytesPerPixel little endian bytes.
	planes map[gomero.PlaneCoord][]byte

	Imported map[int32]Color
	Live     map[int32]Color

	// LiveErr, when set, makes every LiveColor call fail with it.
	LiveErr error
}

// NewMemImage allocates zeroed planes for every (c,z,t) of the metadata.
func NewMemImage(meta ImageMeta) *MemImage {
	im := &MemImage{
		Meta:     meta,
		planes:   make(map[gomero.PlaneCoord][]byte),
		Imported: make(map[int32]Color),
		Live:     make(map[int32]Color),
	}
	px := meta.Pixels
	planeBytes := int64(px.SizeX) * int64(px.SizeY) * int64(px.Type.BytesPerPixel())
	for t := int32(0); t < px.SizeT; t++ {
		for z := int32(0); z < px.SizeZ; z++ {
			for c := int32(0); c < px.SizeC; c++ {
				im.planes[gomero.PlaneCoord{C: c, Z: z, T: t}] = make([]byte, planeBytes)
			}
		}
	}
	return im
}

// FillPattern writes the deterministic pattern into every plane.
func (im *MemImage) FillPattern() {
	px := im.Meta.Pixels
	for coord, plane := range im.planes {
		for y := int32(0); y < px.SizeY; y++ {
			for x := int32(0); x < px.SizeX; x++ {
				i := int(y)*int(px.SizeX) + int(x)
				px.Type.PutSample(plane, i, PatternSample(px.Type, x, y, coord.C, coord.Z, coord.T))
			}
		}
	}
}

// SetSample writes one sample of one plane.
func (im *MemImage) SetSample(c, z, t, x, y int32, v float64) {
	px := im.Meta.Pixels
	plane := im.planes[gomero.PlaneCoord{C: c, Z: z, T: t}]
	px.Type.PutSample(plane, int(y)*int(px.SizeX)+int(x), v)
}

// MemSource is an in-memory DataSource over a set of synthetic images.
// Counters record traffic so tests can assert on fetch and channel behavior.
type MemSource struct {
	images map[int64]*MemImage

	// FetchCount counts FetchPlaneRegion calls across all channels.
	FetchCount int64

	// OpenCount and CloseCount track channel lifecycle.
	OpenCount  int64
	CloseCount int64

	// FailAfter, when positive, makes the Nth fetch (1-based) and all later
	// ones fail.  Used to exercise fail-fast assembly.
	FailAfter int64
}

func NewMemSource() *MemSource {
	return &MemSource{images: make(map[int64]*MemImage)}
}

// AddImage registers a synthetic image under its metadata id.
func (s *MemSource) AddImage(im *MemImage) {
	s.images[im.Meta.ID] = im
}

// --- MetadataSource implementation ---

func (s *MemSource) ImageMetadata(image int64) (*ImageMeta, error) {
	im, found := s.images[image]
	if !found {
		return nil, fmt.Errorf("image %d: %w", image, ErrImageNotFound)
	}
	meta := im.Meta
	return &meta, nil
}

func (s *MemSource) PlaneRecords(image int64) ([]PlaneRecord, error) {
	im, found := s.images[image]
	if !found {
		return nil, fmt.Errorf("image %d: %w", image, ErrImageNotFound)
	}
	records := make([]PlaneRecord, len(im.Records))
	copy(records, im.Records)
	return records, nil
}

// --- ColorSource implementation ---

func (s *MemSource) ImportedColor(image int64, channel int32) (Color, error) {
	im, found := s.images[image]
	if !found {
		return Color{}, fmt.Errorf("image %d: %w", image, ErrImageNotFound)
	}
	color, found := im.Imported[channel]
	if !found {
		return Color{R: 255, G: 255, B: 255, A: 255}, nil
	}
	return color, nil
}

func (s *MemSource) LiveColor(image int64, channel int32) (Color, error) {
	im, found := s.images[image]
	if !found {
		return Color{}, fmt.Errorf("image %d: %w", image, ErrImageNotFound)
	}
	if im.LiveErr != nil {
		return Color{}, im.LiveErr
	}
	color, found := im.Live[channel]
	if !found {
		return s.ImportedColor(image, channel)
	}
	return color, nil
}

// --- ChannelSource implementation ---

func (s *MemSource) OpenChannel(image int64) (RawChannel, error) {
	im, found := s.images[image]
	if !found {
		return nil, fmt.Errorf("image %d: %w", image, ErrImageNotFound)
	}
	atomic.AddInt64(&s.OpenCount, 1)
	return &memChannel{src: s, im: im}, nil
}

type memChannel struct {
	src    *MemSource
	im     *MemImage
	closed bool
}

func (ch *memChannel) FetchPlaneRegion(c, z, t, x, y, w, h int32) (PlaneFragment, error) {
	if ch.closed {
		return nil, ErrChannelClosed
	}
	n := atomic.AddInt64(&ch.src.FetchCount, 1)
	plane := gomero.PlaneCoord{C: c, Z: z, T: t}
	if ch.src.FailAfter > 0 && n >= ch.src.FailAfter {
		return nil, &AccessError{
			Op: "fetch plane region", Image: ch.im.Meta.ID, Plane: plane,
			X: x, Y: y, W: w, H: h,
			Err: fmt.Errorf("injected transport failure"),
		}
	}

	px := ch.im.Meta.Pixels
	data, found := ch.im.planes[plane]
	if !found || x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > px.SizeX || y+h > px.SizeY {
		return nil, &AccessError{
			Op: "fetch plane region", Image: ch.im.Meta.ID, Plane: plane,
			X: x, Y: y, W: w, H: h,
			Err: fmt.Errorf("region outside image extents %dx%d", px.SizeX, px.SizeY),
		}
	}

	// Row-by-row copy out of the full-plane buffer.
	bpp := px.Type.BytesPerPixel()
	out := make([]byte, int64(w)*int64(h)*int64(bpp))
	srcStride := int64(px.SizeX) * int64(bpp)
	dstStride := int64(w) * int64(bpp)
	for row := int64(0); row < int64(h); row++ {
		srcI := (int64(y)+row)*srcStride + int64(x)*int64(bpp)
		dstI := row * dstStride
		copy(out[dstI:dstI+dstStride], data[srcI:srcI+dstStride])
	}
	return &memFragment{w: w, h: h, pt: px.Type, data: out}, nil
}

func (ch *memChannel) Close() error {
	if ch.closed {
		return ErrChannelClosed
	}
	ch.closed = true
	atomic.AddInt64(&ch.src.CloseCount, 1)
	return nil
}

type memFragment struct {
	w, h int32
	pt   gomero.PixelType
	data []byte
}

func (f *memFragment) Width() int32         { return f.w }
func (f *memFragment) Height() int32        { return f.h }
func (f *memFragment) BytesPerPixel() int32 { return f.pt.BytesPerPixel() }
func (f *memFragment) RawBytes() []byte     { return f.data }

func (f *memFragment) Sample(row, col int32) float64 {
	return f.pt.SampleAt(f.data, int(row)*int(f.w)+int(col))
}
