package cache

import (
	"bytes"
	"testing"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

func testMeta(id int64, pt gomero.PixelType, sx, sy, sc, sz, st int32) store.ImageMeta {
	return store.ImageMeta{
		ID:   id,
		Name: "cached image",
		Pixels: store.PixelsMeta{
			SizeX: sx, SizeY: sy, SizeC: sc, SizeZ: sz, SizeT: st,
			Type: pt,
		},
	}
}

func newTestSource(t *testing.T, config Config, meta store.ImageMeta) (*store.MemSource, *Source) {
	t.Helper()
	backing := store.NewMemSource()
	im := store.NewMemImage(meta)
	im.FillPattern()
	backing.AddImage(im)
	src, err := NewSource(backing, config)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return backing, src
}

func fetchRegion(t *testing.T, src *Source, image int64, c, z, tp, x, y, w, h int32) store.PlaneFragment {
	t.Helper()
	ch, err := src.OpenChannel(image)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	defer ch.Close()
	frag, err := ch.FetchPlaneRegion(c, z, tp, x, y, w, h)
	if err != nil {
		t.Fatalf("FetchPlaneRegion: %v", err)
	}
	return frag
}

// A repeated region fetch must come out of the memory cache byte-identical
// and without a second remote call.
func TestMemoryCacheReadThrough(t *testing.T) {
	backing, src := newTestSource(t, Config{MemoryMB: 8}, testMeta(1, gomero.T_uint16, 64, 48, 2, 1, 1))

	first := fetchRegion(t, src, 1, 1, 0, 0, 4, 8, 16, 12)
	if backing.FetchCount != 1 {
		t.Fatalf("Expected 1 backing fetch after a cold read, got %d", backing.FetchCount)
	}
	second := fetchRegion(t, src, 1, 1, 0, 0, 4, 8, 16, 12)
	if backing.FetchCount != 1 {
		t.Errorf("Expected the second read to hit the cache, got %d backing fetches", backing.FetchCount)
	}
	if !bytes.Equal(first.RawBytes(), second.RawBytes()) {
		t.Errorf("Cached region differs from the backing fetch")
	}

	attempts, memHits, diskHits := src.Stats()
	if attempts != 2 || memHits != 1 || diskHits != 0 {
		t.Errorf("Expected stats (2 attempts, 1 memory hit, 0 disk hits), got (%d, %d, %d)",
			attempts, memHits, diskHits)
	}
}

// Distinct regions must not collide in the cache: the key covers plane
// coordinate and rectangle.
func TestRegionKeyIsolation(t *testing.T) {
	_, src := newTestSource(t, Config{MemoryMB: 8}, testMeta(2, gomero.T_uint8, 32, 32, 2, 2, 2))

	a := fetchRegion(t, src, 2, 0, 1, 1, 0, 0, 8, 8)
	b := fetchRegion(t, src, 2, 1, 1, 1, 0, 0, 8, 8)
	if bytes.Equal(a.RawBytes(), b.RawBytes()) {
		t.Errorf("Regions of different channels returned identical bytes; cache keys collide")
	}
}

// The disk cache must survive a Source restart: a region cached before
// Close must be served without a backing fetch by a fresh Source over the
// same badger directory.
func TestDiskCachePersistence(t *testing.T) {
	dir := t.TempDir()
	meta := testMeta(3, gomero.T_uint16, 40, 30, 1, 1, 1)

	backing := store.NewMemSource()
	im := store.NewMemImage(meta)
	im.FillPattern()
	backing.AddImage(im)

	src, err := NewSource(backing, Config{Path: dir})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	first := fetchRegion(t, src, 3, 0, 0, 0, 0, 0, 40, 30)
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if backing.FetchCount != 1 {
		t.Fatalf("Expected 1 backing fetch before restart, got %d", backing.FetchCount)
	}

	src, err = NewSource(backing, Config{Path: dir})
	if err != nil {
		t.Fatalf("NewSource after restart: %v", err)
	}
	defer src.Close()
	second := fetchRegion(t, src, 3, 0, 0, 0, 0, 0, 40, 30)
	if backing.FetchCount != 1 {
		t.Errorf("Expected the disk cache to serve the region after restart, got %d backing fetches",
			backing.FetchCount)
	}
	if !bytes.Equal(first.RawBytes(), second.RawBytes()) {
		t.Errorf("Disk-cached region differs from the original fetch")
	}
}

// Round trip of the persisted record encoding.
func TestRegionRecordEncoding(t *testing.T) {
	rec := regionRecord{Type: uint8(gomero.T_float32), W: 7, H: 3, Data: []byte{1, 2, 3, 0, 255}}
	encoded, err := rec.MarshalMsg(nil)
	if err != nil {
		t.Fatalf("MarshalMsg: %v", err)
	}
	if len(encoded) > rec.Msgsize() {
		t.Errorf("Encoded size %d exceeds Msgsize bound %d", len(encoded), rec.Msgsize())
	}
	var decoded regionRecord
	left, err := decoded.UnmarshalMsg(encoded)
	if err != nil {
		t.Fatalf("UnmarshalMsg: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("Expected no bytes left after decode, got %d", len(left))
	}
	if decoded.Type != rec.Type || decoded.W != rec.W || decoded.H != rec.H ||
		!bytes.Equal(decoded.Data, rec.Data) {
		t.Errorf("Decoded record %+v differs from original %+v", decoded, rec)
	}
}

// Metadata reads must be LRU-cached.
func TestMetadataLRU(t *testing.T) {
	_, src := newTestSource(t, Config{MemoryMB: 1}, testMeta(4, gomero.T_uint8, 8, 8, 1, 1, 1))

	meta1, err := src.ImageMetadata(4)
	if err != nil {
		t.Fatalf("ImageMetadata: %v", err)
	}
	meta2, err := src.ImageMetadata(4)
	if err != nil {
		t.Fatalf("ImageMetadata (cached): %v", err)
	}
	if meta1 != meta2 {
		t.Errorf("Expected the cached *ImageMeta to be returned on the second read")
	}
	if _, err := src.ImageMetadata(99); err == nil {
		t.Errorf("Expected an error for an unknown image")
	}
}

func TestEnginesAvailable(t *testing.T) {
	desc := EnginesAvailable()
	for _, want := range []string{"freecache", "badger", "lru"} {
		if !bytes.Contains([]byte(desc), []byte(want)) {
			t.Errorf("Engine description %q is missing %q", desc, want)
		}
	}
}
