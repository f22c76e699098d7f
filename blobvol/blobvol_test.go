package blobvol

import (
	"context"
	"testing"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/pixels"
	"github.com/gred-clermont/gomero/store"
)

func TestGridShape(t *testing.T) {
	tests := []struct {
		extent, chunk, want int32
	}{
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{10000, 5000, 2},
		{10001, 5000, 3},
	}
	for _, tc := range tests {
		if got := gridShape(tc.extent, tc.chunk); got != tc.want {
			t.Errorf("gridShape(%d, %d) = %d, want %d", tc.extent, tc.chunk, got, tc.want)
		}
	}
}

func TestChunkKey(t *testing.T) {
	key := chunkKey(gomero.PlaneCoord{C: 1, Z: 2, T: 3}, 4, 5)
	if key != "chunks/1_2_3/4_5" {
		t.Errorf("chunkKey = %q, want %q", key, "chunks/1_2_3/4_5")
	}
}

// writeTestVolume materializes a patterned volume chunk by chunk.
func writeTestVolume(t *testing.T, config Config, info VolumeInfo) *Volume {
	t.Helper()
	ctx := context.Background()
	v, err := Create(ctx, config, info)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	px := info.Pixels
	bpp := px.Type.BytesPerPixel()
	for tp := int32(0); tp < px.SizeT; tp++ {
		for z := int32(0); z < px.SizeZ; z++ {
			for c := int32(0); c < px.SizeC; c++ {
				pc := gomero.PlaneCoord{C: c, Z: z, T: tp}
				for gy := int32(0); gy < gridShape(px.SizeY, info.ChunkH); gy++ {
					for gx := int32(0); gx < gridShape(px.SizeX, info.ChunkW); gx++ {
						w, h := v.chunkDims(gx, gy)
						data := make([]byte, int(w)*int(h)*int(bpp))
						for y := int32(0); y < h; y++ {
							for x := int32(0); x < w; x++ {
								sample := store.PatternSample(px.Type,
									gx*info.ChunkW+x, gy*info.ChunkH+y, c, z, tp)
								px.Type.PutSample(data, int(y)*int(w)+int(x), sample)
							}
						}
						if err := v.PutChunk(ctx, pc, gx, gy, data); err != nil {
							t.Fatalf("PutChunk (%d,%d) of %s: %v", gx, gy, pc, err)
						}
					}
				}
			}
		}
	}
	return v
}

// A region read spanning chunk boundaries must reassemble the pattern
// exactly, through a volume reopened from the bucket.
func TestChunkedRegionRead(t *testing.T) {
	config := Config{Ref: "file://" + t.TempDir() + "?create_dir=true"}
	info := VolumeInfo{
		Image: 7,
		Name:  "chunked test volume",
		Pixels: store.PixelsMeta{
			SizeX: 37, SizeY: 29, SizeC: 2, SizeZ: 1, SizeT: 1,
			Type: gomero.T_uint16,
		},
		ChunkW: 16, ChunkH: 16,
		Codec: "gzip",
	}
	writeTestVolume(t, config, info).Close()

	ctx := context.Background()
	v, err := Open(ctx, config)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	px, err := pixels.New(v, 7)
	if err != nil {
		t.Fatalf("pixels.New: %v", err)
	}
	// The region straddles all four chunk boundaries of channel 1.
	tile, err := px.FetchTypedTile(nil, gomero.PlaneCoord{C: 1}, 10, 9, 24, 18)
	if err != nil {
		t.Fatalf("FetchTypedTile: %v", err)
	}
	for _, ck := range []struct{ x, y int32 }{
		{0, 0}, {5, 6}, {6, 7}, {21, 6}, {22, 7}, {23, 17},
	} {
		expected := store.PatternSample(gomero.T_uint16, 10+ck.x, 9+ck.y, 1, 0, 0)
		if got := tile[ck.y][ck.x]; got != expected {
			t.Errorf("Sample at tile (%d,%d) = %v, want %v", ck.x, ck.y, got, expected)
		}
	}
}

// Chunks absent from the bucket must read as zeroes, not errors.
func TestSparseChunksReadZero(t *testing.T) {
	config := Config{Ref: "file://" + t.TempDir() + "?create_dir=true"}
	info := VolumeInfo{
		Image: 8,
		Name:  "sparse volume",
		Pixels: store.PixelsMeta{
			SizeX: 32, SizeY: 32, SizeC: 1, SizeZ: 1, SizeT: 1,
			Type: gomero.T_uint8,
		},
		ChunkW: 16, ChunkH: 16,
	}
	ctx := context.Background()
	v, err := Create(ctx, config, info)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	// Only the top-left chunk exists.
	data := make([]byte, 16*16)
	for i := range data {
		data[i] = 9
	}
	if err := v.PutChunk(ctx, gomero.PlaneCoord{}, 0, 0, data); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}

	ch, err := v.OpenChannel(8)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	defer ch.Close()
	frag, err := ch.FetchPlaneRegion(0, 0, 0, 0, 0, 32, 32)
	if err != nil {
		t.Fatalf("FetchPlaneRegion: %v", err)
	}
	raw := frag.RawBytes()
	if raw[0] != 9 || raw[15] != 9 {
		t.Errorf("Stored chunk did not read back")
	}
	if raw[16] != 0 || raw[len(raw)-1] != 0 {
		t.Errorf("Missing chunks must read as zero")
	}
}

// Reads outside the image extents fail with an access error.
func TestRegionOutsideExtents(t *testing.T) {
	config := Config{Ref: "file://" + t.TempDir() + "?create_dir=true"}
	info := VolumeInfo{
		Image: 9,
		Name:  "bounds check volume",
		Pixels: store.PixelsMeta{
			SizeX: 16, SizeY: 16, SizeC: 1, SizeZ: 1, SizeT: 1,
			Type: gomero.T_uint8,
		},
		ChunkW: 16, ChunkH: 16,
	}
	v, err := Create(context.Background(), config, info)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	ch, err := v.OpenChannel(9)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	defer ch.Close()
	if _, err := ch.FetchPlaneRegion(0, 0, 0, 8, 8, 16, 16); !store.IsAccessError(err) {
		t.Errorf("Expected an access error for an out-of-extents region, got %v", err)
	}
}
