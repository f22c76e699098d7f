package rpc

import (
	"testing"
	"time"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

func newTestPair(t *testing.T, addr string) (*store.MemSource, *Source) {
	t.Helper()
	backing := store.NewMemSource()
	im := store.NewMemImage(store.ImageMeta{
		ID:   3,
		Name: "rpc image",
		Pixels: store.PixelsMeta{
			SizeX: 24, SizeY: 12, SizeC: 1, SizeZ: 1, SizeT: 1,
			Type: gomero.T_uint16,
		},
	})
	im.FillPattern()
	backing.AddImage(im)

	srv, err := Serve(addr, backing)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	t.Cleanup(srv.Stop)

	// Let the listener come up before dialing.
	time.Sleep(50 * time.Millisecond)
	src, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return backing, src
}

// Metadata and region fetches must round trip through the rpc transport
// unchanged, including channel lifecycle on the serving side.
func TestRoundTrip(t *testing.T) {
	backing, src := newTestPair(t, "localhost:40831")

	meta, err := src.ImageMetadata(3)
	if err != nil {
		t.Fatalf("ImageMetadata: %v", err)
	}
	if meta.ID != 3 || meta.Pixels.SizeX != 24 || meta.Pixels.Type != gomero.T_uint16 {
		t.Errorf("Unexpected metadata over rpc: %+v", meta)
	}

	ch, err := src.OpenChannel(3)
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	frag, err := ch.FetchPlaneRegion(0, 0, 0, 4, 2, 8, 6)
	if err != nil {
		t.Fatalf("FetchPlaneRegion: %v", err)
	}
	if frag.Width() != 8 || frag.Height() != 6 {
		t.Errorf("Fragment dims %dx%d, want 8x6", frag.Width(), frag.Height())
	}
	for _, ck := range []struct{ x, y int32 }{{0, 0}, {7, 5}, {3, 2}} {
		expected := store.PatternSample(gomero.T_uint16, 4+ck.x, 2+ck.y, 0, 0, 0)
		if got := frag.Sample(ck.y, ck.x); got != expected {
			t.Errorf("Sample at (%d,%d) = %v, want %v", ck.x, ck.y, got, expected)
		}
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if backing.CloseCount != 1 {
		t.Errorf("Expected the backing channel to close with the session, got %d closes",
			backing.CloseCount)
	}

	// Fetches on a closed session fail with an access error.
	if _, err := ch.FetchPlaneRegion(0, 0, 0, 0, 0, 4, 4); !store.IsAccessError(err) {
		t.Errorf("Expected an access error on a closed channel, got %v", err)
	}
}

func TestUnknownImageOverRPC(t *testing.T) {
	_, src := newTestPair(t, "localhost:40832")
	if _, err := src.ImageMetadata(404); err == nil {
		t.Errorf("Expected an error for an unknown image over rpc")
	}
	if _, err := src.OpenChannel(404); err == nil {
		t.Errorf("Expected an error opening a channel for an unknown image over rpc")
	}
}
