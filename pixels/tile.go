/*
	This file implements the tile fetcher.  Any rectangular region of one
	plane is split into a grid of sub-tiles no larger than MaxTileEdge per
	side, fetched sub-tile by sub-tile, and copied into the caller's
	destination at absolute offsets, so the assembled result is identical
	to what a single unbounded fetch would return.
*/

package pixels

import (
	"fmt"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// MaxTileEdge is the maximum side length of a single remote transfer.  The
// remote transport has a practical limit on single-request payload size, so
// larger regions are split into a grid of sub-tiles no bigger than this.
const MaxTileEdge = 5000

// FetchTypedTile retrieves the w x h rectangle with origin (x, y) of the
// plane at pc and returns its samples as h rows of w float64 values.  A nil
// ch opens a raw-data channel for the duration of the call; a caller-supplied
// channel is reused and left open.
func (p *Pixels) FetchTypedTile(ch store.RawChannel, pc gomero.PlaneCoord, x, y, w, h int32) ([][]float64, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("tile at (%d,%d) of plane %s has non-positive size %dx%d", x, y, pc, w, h)
	}
	ch, release, err := p.scopedChannel(ch)
	if err != nil {
		return nil, err
	}
	defer release()

	tile := make([][]float64, h)
	for row := int32(0); row < h; row++ {
		tile[row] = make([]float64, w)
	}
	err = p.forEachSubTile(ch, pc, x, y, w, h, func(frag store.PlaneFragment, tx, ty int32) {
		for row := int32(0); row < frag.Height(); row++ {
			dst := tile[ty+row]
			for col := int32(0); col < frag.Width(); col++ {
				dst[tx+col] = frag.Sample(row, col)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return tile, nil
}

// FetchRawTile retrieves the w x h rectangle with origin (x, y) of the plane
// at pc as w*h*bpp little endian bytes.  The destination offset of pixel
// (px, py) byte i is ((py*w + px) * bpp) + i: the row stride uses the full
// requested width, so every sub-tile lands at its absolute offset.  Channel
// scoping is as in FetchTypedTile.
func (p *Pixels) FetchRawTile(ch store.RawChannel, pc gomero.PlaneCoord, x, y, w, h int32) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("tile at (%d,%d) of plane %s has non-positive size %dx%d", x, y, pc, w, h)
	}
	ch, release, err := p.scopedChannel(ch)
	if err != nil {
		return nil, err
	}
	defer release()

	bpp := int64(p.BytesPerPixel())
	data := make([]byte, int64(w)*int64(h)*bpp)
	err = p.forEachSubTile(ch, pc, x, y, w, h, func(frag store.PlaneFragment, tx, ty int32) {
		raw := frag.RawBytes()
		subStride := int64(frag.Width()) * bpp
		for row := int64(0); row < int64(frag.Height()); row++ {
			dstI := ((int64(ty)+row)*int64(w) + int64(tx)) * bpp
			srcI := row * subStride
			copy(data[dstI:dstI+subStride], raw[srcI:srcI+subStride])
		}
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// forEachSubTile splits the w x h rectangle into the sub-tile grid and issues
// one fetch per sub-tile, handing each fragment to copyFn with the sub-tile's
// offset (tx, ty) relative to the rectangle origin.  The first failed fetch
// aborts the iteration.
func (p *Pixels) forEachSubTile(ch store.RawChannel, pc gomero.PlaneCoord, x, y, w, h int32,
	copyFn func(frag store.PlaneFragment, tx, ty int32)) error {

	for ty := int32(0); ty < h; ty += MaxTileEdge {
		th := h - ty
		if th > MaxTileEdge {
			th = MaxTileEdge
		}
		for tx := int32(0); tx < w; tx += MaxTileEdge {
			tw := w - tx
			if tw > MaxTileEdge {
				tw = MaxTileEdge
			}
			frag, err := ch.FetchPlaneRegion(pc.C, pc.Z, pc.T, x+tx, y+ty, tw, th)
			if err != nil {
				if store.IsAccessError(err) {
					return err
				}
				return &store.AccessError{
					Op: "fetch plane region", Image: p.image, Plane: pc,
					X: x + tx, Y: y + ty, W: tw, H: th,
					Err: err,
				}
			}
			if frag.Width() != tw || frag.Height() != th {
				return &store.AccessError{
					Op: "fetch plane region", Image: p.image, Plane: pc,
					X: x + tx, Y: y + ty, W: tw, H: th,
					Err: fmt.Errorf("remote returned %dx%d fragment", frag.Width(), frag.Height()),
				}
			}
			copyFn(frag, tx, ty)
		}
	}
	return nil
}
