/*
	This file implements the plane metadata aggregator.  Acquisition
	records load once per explicit LoadPlanesInfo call; the derived
	statistics are pure computations over the loaded list and never fail —
	they return "no value" sentinels when the needed records are absent.
*/

package pixels

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// LoadPlanesInfo fetches and stores the ordered per-plane acquisition
// records for this image.  Calling it again refreshes the cached list; the
// observable state for unchanged remote data is identical.
func (p *Pixels) LoadPlanesInfo() error {
	records, err := p.source.PlaneRecords(p.image)
	if err != nil {
		return fmt.Errorf("unable to load plane records for image %d: %v", p.image, err)
	}
	p.planes = records
	return nil
}

// PlanesInfo returns the loaded acquisition records, nil before the first
// successful LoadPlanesInfo.
func (p *Pixels) PlanesInfo() []store.PlaneRecord {
	return p.planes
}

// planeAt finds the loaded record for plane (c, z, t).
func (p *Pixels) planeAt(c, z, t int32) (store.PlaneRecord, bool) {
	for _, rec := range p.planes {
		if rec.C == c && rec.Z == z && rec.T == t {
			return rec, true
		}
	}
	return store.PlaneRecord{}, false
}

// MeanTimeInterval returns the arithmetic mean, over consecutive timepoints,
// of the elapsed time between them, sampling the plane at c=0, z=0 for each
// timepoint.  The result has no value if the image has fewer than two
// timepoints, records are not loaded, or any needed record is missing.
func (p *Pixels) MeanTimeInterval() gomero.Time {
	if len(p.planes) == 0 || p.meta.SizeT < 2 {
		return gomero.NoTime(gomero.Second)
	}
	diffs := make([]float64, 0, p.meta.SizeT-1)
	for t := int32(0); t+1 < p.meta.SizeT; t++ {
		before, foundB := p.planeAt(0, 0, t)
		after, foundA := p.planeAt(0, 0, t+1)
		if !foundB || !foundA || before.DeltaT.IsNone() || after.DeltaT.IsNone() {
			return gomero.NoTime(gomero.Second)
		}
		diffs = append(diffs,
			after.DeltaT.ConvertTo(gomero.Second).Value-before.DeltaT.ConvertTo(gomero.Second).Value)
	}
	return gomero.Time{Value: stat.Mean(diffs, nil), Unit: gomero.Second}
}

// MeanExposureTime returns the arithmetic mean exposure over all loaded
// records of the given channel, skipping records without an exposure.  The
// result has no value when no record qualifies.
func (p *Pixels) MeanExposureTime(channel int32) gomero.Time {
	var exposures []float64
	for _, rec := range p.planes {
		if rec.C != channel || rec.Exposure.IsNone() {
			continue
		}
		exposures = append(exposures, rec.Exposure.ConvertTo(gomero.Second).Value)
	}
	if len(exposures) == 0 {
		return gomero.NoTime(gomero.Second)
	}
	return gomero.Time{Value: stat.Mean(exposures, nil), Unit: gomero.Second}
}

// PositionX returns the minimum stage position on X over all loaded records,
// expressed in the unit of the physical pixel size on X, falling back to
// micrometers when no physical size is recorded.
func (p *Pixels) PositionX() gomero.Length {
	return p.minPosition(func(r store.PlaneRecord) gomero.Length { return r.PosX }, p.meta.PhysicalX)
}

// PositionY is the Y-axis analog of PositionX.
func (p *Pixels) PositionY() gomero.Length {
	return p.minPosition(func(r store.PlaneRecord) gomero.Length { return r.PosY }, p.meta.PhysicalY)
}

// PositionZ is the Z-axis analog of PositionX.
func (p *Pixels) PositionZ() gomero.Length {
	return p.minPosition(func(r store.PlaneRecord) gomero.Length { return r.PosZ }, p.meta.PhysicalZ)
}

func (p *Pixels) minPosition(pos func(store.PlaneRecord) gomero.Length, physical *gomero.Length) gomero.Length {
	unit := gomero.Micrometer
	if physical != nil {
		unit = physical.Unit
	}
	min := gomero.NoLength(unit)
	for _, rec := range p.planes {
		l := pos(rec)
		if l.IsNone() {
			continue
		}
		v := l.ConvertTo(unit)
		if min.IsNone() || v.Value < min.Value {
			min = v
		}
	}
	return min
}
