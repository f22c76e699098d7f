/*
	This file implements the chunk grid arithmetic and the raw-data
	channel over chunked planes.  Region reads pull every overlapping
	chunk, decode it, and copy the intersection into the destination at
	absolute row offsets.
*/

package blobvol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gred-clermont/gomero/gateway"
	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// gridShape returns the number of chunks per axis: ceil(extent / chunk).
func gridShape(extent, chunk int32) int32 {
	return (extent + chunk - 1) / chunk
}

// chunkKey names the object holding chunk (gx, gy) of the plane at pc.
func chunkKey(pc gomero.PlaneCoord, gx, gy int32) string {
	var sb strings.Builder
	sb.WriteString("chunks/")
	sb.WriteString(strconv.Itoa(int(pc.C)))
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(int(pc.Z)))
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(int(pc.T)))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(int(gx)))
	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(int(gy)))
	return sb.String()
}

// chunkDims returns the actual dimensions of chunk (gx, gy): interior chunks
// are full-size, edge chunks are clipped to the image extents.
func (v *Volume) chunkDims(gx, gy int32) (w, h int32) {
	px := v.info.Pixels
	w = v.info.ChunkW
	if (gx+1)*v.info.ChunkW > px.SizeX {
		w = px.SizeX - gx*v.info.ChunkW
	}
	h = v.info.ChunkH
	if (gy+1)*v.info.ChunkH > px.SizeY {
		h = px.SizeY - gy*v.info.ChunkH
	}
	return
}

func (v *Volume) chunkCodec() string {
	if v.info.Codec == "" {
		return "raw"
	}
	return v.info.Codec
}

// PutChunk encodes and writes chunk (gx, gy) of the plane at pc.  data must
// hold exactly w*h*bpp bytes for the chunk's clipped dimensions.
func (v *Volume) PutChunk(ctx context.Context, pc gomero.PlaneCoord, gx, gy int32, data []byte) error {
	w, h := v.chunkDims(gx, gy)
	if expected := int(w) * int(h) * int(v.info.Pixels.Type.BytesPerPixel()); len(data) != expected {
		return fmt.Errorf("chunk (%d,%d) of plane %s needs %d bytes, got %d",
			gx, gy, pc, expected, len(data))
	}
	encoded, err := gateway.EncodePayload(v.chunkCodec(), data)
	if err != nil {
		return err
	}
	return v.objects.write(ctx, chunkKey(pc, gx, gy), encoded)
}

// --- store.ChannelSource implementation ---

// OpenChannel returns a raw-data channel over the chunked planes.  Bucket
// connections carry no per-image server state, so the channel is a thin
// owner marker over the volume.
func (v *Volume) OpenChannel(image int64) (store.RawChannel, error) {
	if image != v.info.Image {
		return nil, fmt.Errorf("volume @ %q holds image %d: %w", v.ref, v.info.Image, store.ErrImageNotFound)
	}
	return &blobChannel{vol: v}, nil
}

type blobChannel struct {
	vol    *Volume
	closed bool
}

func (ch *blobChannel) Close() error {
	if ch.closed {
		return store.ErrChannelClosed
	}
	ch.closed = true
	return nil
}

func (ch *blobChannel) accessError(pc gomero.PlaneCoord, x, y, w, h int32, err error) *store.AccessError {
	return &store.AccessError{
		Op:    "chunk read",
		Image: ch.vol.info.Image,
		Plane: pc,
		X:     x, Y: y, W: w, H: h,
		Err: err,
	}
}

// FetchPlaneRegion assembles the w x h rectangle at (x, y) of the plane at
// (c, z, t) from every overlapping chunk.  Chunks absent from the bucket
// contribute zeroes.
func (ch *blobChannel) FetchPlaneRegion(c, z, t, x, y, w, h int32) (store.PlaneFragment, error) {
	pc := gomero.PlaneCoord{C: c, Z: z, T: t}
	if ch.closed {
		return nil, ch.accessError(pc, x, y, w, h, store.ErrChannelClosed)
	}
	v := ch.vol
	px := v.info.Pixels
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > px.SizeX || y+h > px.SizeY ||
		c < 0 || c >= px.SizeC || z < 0 || z >= px.SizeZ || t < 0 || t >= px.SizeT {
		return nil, ch.accessError(pc, x, y, w, h,
			fmt.Errorf("region outside image extents %dx%d", px.SizeX, px.SizeY))
	}
	timedLog := gomero.NewTimeLog()

	bpp := px.Type.BytesPerPixel()
	out := make([]byte, int64(w)*int64(h)*int64(bpp))
	dstStride := int64(w) * int64(bpp)

	ctx := context.Background()
	gx0 := x / v.info.ChunkW
	gx1 := (x + w - 1) / v.info.ChunkW
	gy0 := y / v.info.ChunkH
	gy1 := (y + h - 1) / v.info.ChunkH
	for gy := gy0; gy <= gy1; gy++ {
		for gx := gx0; gx <= gx1; gx++ {
			encoded, err := v.objects.read(ctx, chunkKey(pc, gx, gy))
			if err != nil {
				return nil, ch.accessError(pc, x, y, w, h, err)
			}
			if encoded == nil {
				continue // sparse chunk, destination stays zero
			}
			data, err := gateway.DecodePayload(v.chunkCodec(), encoded)
			if err != nil {
				return nil, ch.accessError(pc, x, y, w, h,
					fmt.Errorf("unable to decode %s chunk (%d,%d): %v", v.chunkCodec(), gx, gy, err))
			}
			cw, chh := v.chunkDims(gx, gy)
			if expected := int(cw) * int(chh) * int(bpp); len(data) != expected {
				return nil, ch.accessError(pc, x, y, w, h,
					fmt.Errorf("chunk (%d,%d) holds %d bytes, expected %d", gx, gy, len(data), expected))
			}

			// Intersection of this chunk with the requested region, in
			// image coordinates.
			cx0 := gx * v.info.ChunkW
			cy0 := gy * v.info.ChunkH
			ix0, ix1 := max32(x, cx0), min32(x+w, cx0+cw)
			iy0, iy1 := max32(y, cy0), min32(y+h, cy0+chh)

			rowBytes := int64(ix1-ix0) * int64(bpp)
			srcStride := int64(cw) * int64(bpp)
			for row := iy0; row < iy1; row++ {
				srcI := int64(row-cy0)*srcStride + int64(ix0-cx0)*int64(bpp)
				dstI := int64(row-y)*dstStride + int64(ix0-x)*int64(bpp)
				copy(out[dstI:dstI+rowBytes], data[srcI:srcI+rowBytes])
			}
		}
	}
	store.CacheBytes <- len(out)
	timedLog.Debugf("read %dx%d region at (%d,%d) of plane %s from %d chunk columns x %d rows @ %q",
		w, h, x, y, pc, gx1-gx0+1, gy1-gy0+1, v.ref)
	return &blobFragment{pt: px.Type, w: w, h: h, data: out}, nil
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

type blobFragment struct {
	pt   gomero.PixelType
	w, h int32
	data []byte
}

func (f *blobFragment) Width() int32         { return f.w }
func (f *blobFragment) Height() int32        { return f.h }
func (f *blobFragment) BytesPerPixel() int32 { return f.pt.BytesPerPixel() }
func (f *blobFragment) RawBytes() []byte     { return f.data }

func (f *blobFragment) Sample(row, col int32) float64 {
	return f.pt.SampleAt(f.data, int(row)*int(f.w)+int(col))
}
