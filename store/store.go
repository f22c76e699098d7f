/*
	Package store defines the client-side view of a remote bioimage
	repository: raw pixel channels, image metadata, per-plane acquisition
	records, and channel display colors.  Implementations live in the
	gateway, cache, and blobvol packages; the pixels engine consumes only
	these interfaces.
*/
package store

import (
	"time"

	"github.com/gred-clermont/gomero/gomero"
)

// PlaneFragment is the result of one rectangular region fetch from a single
// plane.  It exposes its samples both as typed values and as raw little
// endian bytes so callers can pick either representation without a second
// fetch.
type PlaneFragment interface {
	// Width returns the fragment width in pixels.
	Width() int32

	// Height returns the fragment height in pixels.
	Height() int32

	// BytesPerPixel returns the encoded size of one sample.
	BytesPerPixel() int32

	// Sample returns the typed sample at (row, col) of the fragment.
	Sample(row, col int32) float64

	// RawBytes returns the fragment samples as Width*Height*BytesPerPixel
	// little endian bytes in row-major order.  Callers must not modify the
	// returned slice.
	RawBytes() []byte
}

// RawChannel is an open conduit for the raw pixel data of one image.  A
// channel is exclusively owned by the caller that opened it until closed;
// it must not be shared across goroutines.
type RawChannel interface {
	// FetchPlaneRegion retrieves the w x h rectangle with origin (x, y), in
	// image coordinates, of the plane at (c, z, t).  Failures surface as
	// *AccessError.
	FetchPlaneRegion(c, z, t, x, y, w, h int32) (PlaneFragment, error)

	// Close releases the channel.  Safe to call once per open.
	Close() error
}

// ChannelSource opens raw-data channels for images.
type ChannelSource interface {
	OpenChannel(image int64) (RawChannel, error)
}

// MetadataSource supplies the static attributes of an image and its ordered
// per-plane acquisition records.
type MetadataSource interface {
	ImageMetadata(image int64) (*ImageMeta, error)
	PlaneRecords(image int64) ([]PlaneRecord, error)
}

// ColorSource supplies channel display colors.  LiveColor consults the remote
// rendering engine and may fail independently of pixel access; ImportedColor
// returns the color recorded at import time.
type ColorSource interface {
	ImportedColor(image int64, channel int32) (Color, error)
	LiveColor(image int64, channel int32) (Color, error)
}

// DataSource is the full client-side view of a remote repository.
type DataSource interface {
	ChannelSource
	MetadataSource
	ColorSource
}

// ImageMeta carries the repository-side attributes of one image.
type ImageMeta struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Acquired    time.Time  `json:"acquired,omitempty"`
	Pixels      PixelsMeta `json:"pixels"`
}

// PixelsMeta fixes the dimensions, sample encoding, and calibration of an
// image's pixel data.  All sizes are at least 1.  Physical sizes are nil for
// uncalibrated axes.
type PixelsMeta struct {
	SizeX int32 `json:"size_x"`
	SizeY int32 `json:"size_y"`
	SizeC int32 `json:"size_c"`
	SizeZ int32 `json:"size_z"`
	SizeT int32 `json:"size_t"`

	Type gomero.PixelType `json:"type"`

	PhysicalX *gomero.Length `json:"physical_x,omitempty"`
	PhysicalY *gomero.Length `json:"physical_y,omitempty"`
	PhysicalZ *gomero.Length `json:"physical_z,omitempty"`

	TimeIncrement *gomero.Time `json:"time_increment,omitempty"`
}

// Extents returns the image dimensions as a Coord of per-axis counts.
func (m PixelsMeta) Extents() gomero.Coord {
	return gomero.MakeCoord(m.SizeX, m.SizeY, m.SizeC, m.SizeZ, m.SizeT)
}

// PlaneRecord is the acquisition metadata of one (c, z, t) plane.
type PlaneRecord struct {
	C int32 `json:"c"`
	Z int32 `json:"z"`
	T int32 `json:"t"`

	// DeltaT is elapsed time since the start of the experiment.
	DeltaT gomero.Time `json:"delta_t"`

	// Exposure is the acquisition exposure time.
	Exposure gomero.Time `json:"exposure"`

	// Stage position at acquisition.
	PosX gomero.Length `json:"pos_x"`
	PosY gomero.Length `json:"pos_y"`
	PosZ gomero.Length `json:"pos_z"`
}

// Color is an RGBA display color with 8-bit components.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}
