/*
	This file implements the volume assembler: sequential per-plane fetches
	across the full requested C, Z, and T range, reassembled into dense
	arrays.  Fetches issue in a fixed nesting order (T outermost, then Z,
	then C) over a single raw-data channel held for the whole call.  The
	first fetch failure aborts the assembly and the partial result is
	discarded.
*/

package pixels

import (
	"github.com/gred-clermont/gomero/gomero"
)

// AssembleTyped materializes the bounded region as a dense
// [t][z][c][y][x] array of float64 samples.  The full volume is resident in
// memory when the call returns; there is no partial or streamed result.
func (p *Pixels) AssembleTyped(b gomero.Bounds) ([][][][][]float64, error) {
	if err := b.CheckSize(); err != nil {
		return nil, err
	}
	timedLog := gomero.NewTimeLog()

	ch, release, err := p.scopedChannel(nil)
	if err != nil {
		return nil, err
	}
	defer release()

	size := b.Size()
	vol := make([][][][][]float64, size.T())
	for t := int32(0); t < size.T(); t++ {
		vol[t] = make([][][][]float64, size.Z())
		for z := int32(0); z < size.Z(); z++ {
			vol[t][z] = make([][][]float64, size.C())
			for c := int32(0); c < size.C(); c++ {
				pc := gomero.PlaneCoord{C: b.Start.C() + c, Z: b.Start.Z() + z, T: b.Start.T() + t}
				plane, err := p.FetchTypedTile(ch, pc, b.Start.X(), b.Start.Y(), size.X(), size.Y())
				if err != nil {
					return nil, err
				}
				vol[t][z][c] = plane
			}
		}
	}
	timedLog.Infof("assembled typed volume %s of image %d (%d planes of %dx%d)",
		b, p.image, size.C()*size.Z()*size.T(), size.X(), size.Y())
	return vol, nil
}

// AssembleRaw materializes the bounded region as dense raw planes indexed
// [t][z][c], each a w*h*bpp little endian buffer.  Memory residency and
// failure semantics match AssembleTyped.
func (p *Pixels) AssembleRaw(b gomero.Bounds) ([][][][]byte, error) {
	if err := b.CheckSize(); err != nil {
		return nil, err
	}
	timedLog := gomero.NewTimeLog()

	ch, release, err := p.scopedChannel(nil)
	if err != nil {
		return nil, err
	}
	defer release()

	size := b.Size()
	vol := make([][][][]byte, size.T())
	for t := int32(0); t < size.T(); t++ {
		vol[t] = make([][][]byte, size.Z())
		for z := int32(0); z < size.Z(); z++ {
			vol[t][z] = make([][]byte, size.C())
			for c := int32(0); c < size.C(); c++ {
				pc := gomero.PlaneCoord{C: b.Start.C() + c, Z: b.Start.Z() + z, T: b.Start.T() + t}
				plane, err := p.FetchRawTile(ch, pc, b.Start.X(), b.Start.Y(), size.X(), size.Y())
				if err != nil {
					return nil, err
				}
				vol[t][z][c] = plane
			}
		}
	}
	timedLog.Infof("assembled raw volume %s of image %d (%d planes, %d bytes per plane)",
		b, p.image, size.C()*size.Z()*size.T(), int64(size.X())*int64(size.Y())*int64(p.BytesPerPixel()))
	return vol, nil
}
