package pixels

import (
	"math"
	"testing"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

func within(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func testRecord(c, z, t int32) store.PlaneRecord {
	return store.PlaneRecord{
		C: c, Z: z, T: t,
		DeltaT:   gomero.NoTime(gomero.Second),
		Exposure: gomero.NoTime(gomero.Second),
		PosX:     gomero.NoLength(gomero.Micrometer),
		PosY:     gomero.NoLength(gomero.Micrometer),
		PosZ:     gomero.NoLength(gomero.Micrometer),
	}
}

func newPlaneInfoSource(t *testing.T, meta store.ImageMeta, records []store.PlaneRecord) *Pixels {
	t.Helper()
	src := store.NewMemSource()
	im := store.NewMemImage(meta)
	im.Records = records
	src.AddImage(im)
	px, err := New(src, meta.ID)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return px
}

func TestMeanTimeInterval(t *testing.T) {
	// Elapsed times recorded in milliseconds; consecutive diffs are both
	// 1500 ms, so the mean interval is 1.5 s.
	records := []store.PlaneRecord{}
	for tp, ms := range []float64{0, 1500, 3000} {
		rec := testRecord(0, 0, int32(tp))
		rec.DeltaT = gomero.Time{Value: ms, Unit: gomero.Millisecond}
		records = append(records, rec)
		// A second channel with wild elapsed times must not affect the result.
		other := testRecord(1, 0, int32(tp))
		other.DeltaT = gomero.Time{Value: ms * 7, Unit: gomero.Millisecond}
		records = append(records, other)
	}

	px := newPlaneInfoSource(t, imageMeta(20, gomero.T_uint16, 4, 4, 2, 1, 3), records)
	if err := px.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}

	got := px.MeanTimeInterval()
	if got.IsNone() || got.Unit != gomero.Second || !within(got.Value, 1.5, 1e-12) {
		t.Errorf("Expected mean interval 1.5 s, got %s", got)
	}
}

func TestMeanTimeIntervalUnavailable(t *testing.T) {
	// Single timepoint: no interval exists.
	single := newPlaneInfoSource(t, imageMeta(21, gomero.T_uint8, 4, 4, 1, 1, 1),
		[]store.PlaneRecord{testRecord(0, 0, 0)})
	if err := single.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}
	if got := single.MeanTimeInterval(); !got.IsNone() {
		t.Errorf("Expected no interval for a single timepoint, got %s", got)
	}

	// Records never loaded.
	unloaded := newPlaneInfoSource(t, imageMeta(22, gomero.T_uint8, 4, 4, 1, 1, 3), nil)
	if got := unloaded.MeanTimeInterval(); !got.IsNone() {
		t.Errorf("Expected no interval before loading records, got %s", got)
	}

	// A timepoint without a (c=0, z=0) record breaks the chain.
	gap := []store.PlaneRecord{}
	for _, tp := range []int32{0, 2} {
		rec := testRecord(0, 0, tp)
		rec.DeltaT = gomero.Time{Value: float64(tp), Unit: gomero.Second}
		gap = append(gap, rec)
	}
	gappy := newPlaneInfoSource(t, imageMeta(23, gomero.T_uint8, 4, 4, 1, 1, 3), gap)
	if err := gappy.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}
	if got := gappy.MeanTimeInterval(); !got.IsNone() {
		t.Errorf("Expected no interval with a missing plane record, got %s", got)
	}

	// A record present but without an elapsed time also breaks the chain.
	missing := []store.PlaneRecord{}
	for tp := int32(0); tp < 3; tp++ {
		rec := testRecord(0, 0, tp)
		if tp != 1 {
			rec.DeltaT = gomero.Time{Value: float64(tp), Unit: gomero.Second}
		}
		missing = append(missing, rec)
	}
	sparse := newPlaneInfoSource(t, imageMeta(24, gomero.T_uint8, 4, 4, 1, 1, 3), missing)
	if err := sparse.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}
	if got := sparse.MeanTimeInterval(); !got.IsNone() {
		t.Errorf("Expected no interval with an unvalued elapsed time, got %s", got)
	}
}

func TestMeanExposureTime(t *testing.T) {
	records := []store.PlaneRecord{}
	for z := int32(0); z < 2; z++ {
		rec := testRecord(0, z, 0)
		rec.Exposure = gomero.Time{Value: 100 * float64(z+1), Unit: gomero.Millisecond}
		records = append(records, rec)
	}
	// Channel 1 has one valued exposure and one without; the unvalued one is
	// skipped rather than poisoning the mean.
	withExposure := testRecord(1, 0, 0)
	withExposure.Exposure = gomero.Time{Value: 500, Unit: gomero.Millisecond}
	records = append(records, withExposure, testRecord(1, 1, 0))

	px := newPlaneInfoSource(t, imageMeta(25, gomero.T_uint16, 4, 4, 2, 2, 1), records)
	if err := px.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}

	if got := px.MeanExposureTime(0); !within(got.ConvertTo(gomero.Second).Value, 0.15, 1e-12) {
		t.Errorf("Expected mean exposure 0.15 s on channel 0, got %s", got)
	}
	if got := px.MeanExposureTime(1); !within(got.ConvertTo(gomero.Second).Value, 0.5, 1e-12) {
		t.Errorf("Expected mean exposure 0.5 s on channel 1, got %s", got)
	}
	if got := px.MeanExposureTime(7); !got.IsNone() {
		t.Errorf("Expected no exposure for an absent channel, got %s", got)
	}
}

func TestStagePositions(t *testing.T) {
	nm := func(v float64) gomero.Length { return gomero.Length{Value: v, Unit: gomero.Nanometer} }
	um := func(v float64) gomero.Length { return gomero.Length{Value: v, Unit: gomero.Micrometer} }

	a := testRecord(0, 0, 0)
	a.PosX, a.PosY = um(1.2), um(3)
	b := testRecord(0, 1, 0)
	b.PosX, b.PosY = nm(800), nm(2000)

	meta := imageMeta(26, gomero.T_uint16, 4, 4, 1, 2, 1)
	physX := nm(100)
	meta.Pixels.PhysicalX = &physX

	px := newPlaneInfoSource(t, meta, []store.PlaneRecord{a, b})
	if err := px.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}

	// X positions come back in the physical pixel size unit (nanometers
	// here): min(1.2 um, 800 nm) = 800 nm.
	gotX := px.PositionX()
	if gotX.Unit != gomero.Nanometer || !within(gotX.Value, 800, 1e-6) {
		t.Errorf("Expected min X position 800 nm, got %s", gotX)
	}

	// No physical size on Y, so micrometers: min(3 um, 2000 nm) = 2 um.
	gotY := px.PositionY()
	if gotY.Unit != gomero.Micrometer || !within(gotY.Value, 2, 1e-9) {
		t.Errorf("Expected min Y position 2 um, got %s", gotY)
	}

	// No record carries a Z position.
	if gotZ := px.PositionZ(); !gotZ.IsNone() {
		t.Errorf("Expected no Z position, got %s", gotZ)
	}
}

func TestLoadPlanesInfoReplaces(t *testing.T) {
	src := store.NewMemSource()
	im := store.NewMemImage(imageMeta(27, gomero.T_uint8, 4, 4, 1, 1, 2))
	im.Records = []store.PlaneRecord{testRecord(0, 0, 0)}
	src.AddImage(im)
	px, err := New(src, 27)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := px.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}
	if got := len(px.PlanesInfo()); got != 1 {
		t.Fatalf("Expected 1 record after first load, got %d", got)
	}

	im.Records = append(im.Records, testRecord(0, 0, 1))
	if err := px.LoadPlanesInfo(); err != nil {
		t.Fatalf("LoadPlanesInfo: %v", err)
	}
	if got := len(px.PlanesInfo()); got != 2 {
		t.Errorf("Expected reload to replace records with the current 2, got %d", got)
	}
}
