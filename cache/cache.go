/*
	Package cache implements a read-through caching data source.  It wraps
	any store.DataSource with an in-memory plane-region cache, an optional
	persistent on-disk cache, deduplication of concurrent identical
	fetches, and an LRU for image metadata.  Cached layers register as
	engines with a name, description, and semantic version so deployments
	can report what they run.
*/
package cache

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DmitriyVTitov/size"
	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/store"
)

// Config holds the [cache] section of the client TOML configuration.
type Config struct {
	// MemoryMB sizes the in-memory region cache; 0 disables it.
	MemoryMB int `toml:"memory_mb"`

	// Path roots the persistent on-disk cache; empty disables it.
	Path string `toml:"path"`

	// StatsSecs is the interval between cache statistics log lines;
	// 0 disables stats logging.
	StatsSecs int `toml:"stats_secs"`
}

// Source is a read-through caching store.DataSource.  Region fetches check
// the memory cache, then the disk cache, then fall through to the wrapped
// source; fills populate both caches.  Metadata and plane records go through
// an LRU.  Colors always delegate, since live colors must track the remote
// rendering engine.
type Source struct {
	backing store.DataSource

	regions *freecache.Cache
	disk    *diskCache
	meta    *metaLRU

	// flight collapses concurrent identical region fetches into one
	// remote call.
	flight singleflight.Group

	attempts uint64
	memHits  uint64
	diskHits uint64

	stop chan struct{}
}

// NewSource wraps backing with the configured cache layers.  At least one
// layer must be enabled.
func NewSource(backing store.DataSource, config Config) (*Source, error) {
	if config.MemoryMB <= 0 && config.Path == "" {
		return nil, fmt.Errorf("cache configuration enables no cache layer")
	}
	s := &Source{
		backing: backing,
		meta:    newMetaLRU(),
		stop:    make(chan struct{}),
	}
	if config.MemoryMB > 0 {
		s.regions = freecache.NewCache(config.MemoryMB << 20)
		gomero.Infof("Created freecache of ~ %d MB for plane regions.\n", config.MemoryMB)
	}
	if config.Path != "" {
		disk, err := openDiskCache(config.Path)
		if err != nil {
			return nil, err
		}
		s.disk = disk
	}
	if config.StatsSecs > 0 {
		go s.logStats(time.Duration(config.StatsSecs) * time.Second)
	}
	return s, nil
}

// Close releases the cache layers.  The wrapped source is not closed.
func (s *Source) Close() error {
	close(s.stop)
	if s.disk != nil {
		return s.disk.close()
	}
	return nil
}

// Stats returns fetch attempts and per-layer hits since creation.
func (s *Source) Stats() (attempts, memHits, diskHits uint64) {
	return atomic.LoadUint64(&s.attempts), atomic.LoadUint64(&s.memHits),
		atomic.LoadUint64(&s.diskHits)
}

func (s *Source) logStats(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			attempts, memHits, diskHits := s.Stats()
			var memUsed string
			if s.regions != nil {
				memUsed = humanize.Bytes(uint64(size.Of(s.regions)))
			} else {
				memUsed = "disabled"
			}
			gomero.Infof("cache: %d attempts, %d memory hits, %d disk hits, memory cache ~ %s, remote %s/s, cached %s/s\n",
				attempts, memHits, diskHits, memUsed,
				humanize.Bytes(uint64(store.FetchBytesPerSec)),
				humanize.Bytes(uint64(store.CacheBytesPerSec)))
		}
	}
}

// regionKey is the cache key of one plane rectangle of one image.
type regionKey struct {
	image      int64
	plane      gomero.PlaneCoord
	x, y, w, h int32
}

func (k regionKey) Bytes() []byte {
	b := make([]byte, 36)
	binary.LittleEndian.PutUint64(b[0:8], uint64(k.image))
	for i, v := range []int32{k.plane.C, k.plane.Z, k.plane.T, k.x, k.y, k.w, k.h} {
		binary.LittleEndian.PutUint32(b[8+i*4:], uint32(v))
	}
	return b
}

func (k regionKey) String() string {
	return fmt.Sprintf("%d/%s@(%d,%d)%dx%d", k.image, k.plane, k.x, k.y, k.w, k.h)
}

// --- MetadataSource implementation ---

func (s *Source) ImageMetadata(image int64) (*store.ImageMeta, error) {
	if meta, found := s.meta.getImage(image); found {
		return meta, nil
	}
	meta, err := s.backing.ImageMetadata(image)
	if err != nil {
		return nil, err
	}
	s.meta.putImage(image, meta)
	return meta, nil
}

func (s *Source) PlaneRecords(image int64) ([]store.PlaneRecord, error) {
	if records, found := s.meta.getPlanes(image); found {
		return records, nil
	}
	records, err := s.backing.PlaneRecords(image)
	if err != nil {
		return nil, err
	}
	s.meta.putPlanes(image, records)
	return records, nil
}

// --- ColorSource implementation: always delegated ---

func (s *Source) ImportedColor(image int64, channel int32) (store.Color, error) {
	return s.backing.ImportedColor(image, channel)
}

func (s *Source) LiveColor(image int64, channel int32) (store.Color, error) {
	return s.backing.LiveColor(image, channel)
}

// --- ChannelSource implementation ---

// OpenChannel returns a caching wrapper over a lazily-opened backing channel.
// The backing channel only opens on the first cache miss, so fully cached
// assemblies never touch the remote store.
func (s *Source) OpenChannel(image int64) (store.RawChannel, error) {
	meta, err := s.ImageMetadata(image)
	if err != nil {
		return nil, err
	}
	return &cachedChannel{src: s, image: image, pt: meta.Pixels.Type}, nil
}

type cachedChannel struct {
	src   *Source
	image int64
	pt    gomero.PixelType

	// backing opens on first miss and closes with the wrapper.
	backing store.RawChannel
	closed  bool
}

func (ch *cachedChannel) FetchPlaneRegion(c, z, t, x, y, w, h int32) (store.PlaneFragment, error) {
	if ch.closed {
		return nil, store.ErrChannelClosed
	}
	atomic.AddUint64(&ch.src.attempts, 1)
	key := regionKey{image: ch.image, plane: gomero.PlaneCoord{C: c, Z: z, T: t},
		x: x, y: y, w: w, h: h}
	keyBytes := key.Bytes()

	if ch.src.regions != nil {
		data, err := ch.src.regions.Get(keyBytes)
		if err == nil {
			atomic.AddUint64(&ch.src.memHits, 1)
			store.CacheBytes <- len(data)
			return &cachedFragment{pt: ch.pt, w: w, h: h, data: data}, nil
		}
		if err != freecache.ErrNotFound {
			gomero.Errorf("unable to check memory cache for region %s: %v\n", key, err)
		}
	}
	if ch.src.disk != nil {
		rec, found, err := ch.src.disk.get(keyBytes)
		if err != nil {
			gomero.Errorf("unable to check disk cache for region %s: %v\n", key, err)
		} else if found {
			atomic.AddUint64(&ch.src.diskHits, 1)
			ch.src.fillMemory(keyBytes, rec.Data)
			store.CacheBytes <- len(rec.Data)
			return &cachedFragment{pt: gomero.PixelType(rec.Type), w: rec.W, h: rec.H, data: rec.Data}, nil
		}
	}

	// Miss on all layers.  Concurrent fetches of the same region collapse
	// into the first caller's remote call; every caller gets the fill.
	v, err, _ := ch.src.flight.Do(key.String(), func() (interface{}, error) {
		frag, err := ch.fetchBacking(c, z, t, x, y, w, h)
		if err != nil {
			return nil, err
		}
		ch.src.fill(keyBytes, ch.pt, frag)
		return frag, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(store.PlaneFragment), nil
}

func (ch *cachedChannel) fetchBacking(c, z, t, x, y, w, h int32) (store.PlaneFragment, error) {
	if ch.backing == nil {
		backing, err := ch.src.backing.OpenChannel(ch.image)
		if err != nil {
			return nil, err
		}
		ch.backing = backing
	}
	return ch.backing.FetchPlaneRegion(c, z, t, x, y, w, h)
}

func (ch *cachedChannel) Close() error {
	if ch.closed {
		return store.ErrChannelClosed
	}
	ch.closed = true
	if ch.backing != nil {
		return ch.backing.Close()
	}
	return nil
}

func (s *Source) fillMemory(key, data []byte) {
	if s.regions == nil {
		return
	}
	if err := s.regions.Set(key, data, 0); err != nil {
		// Entries over 1/1024 of the cache size don't fit; skip them.
		gomero.Debugf("unable to store %d bytes in memory cache: %v\n", len(data), err)
	}
}

func (s *Source) fill(key []byte, pt gomero.PixelType, frag store.PlaneFragment) {
	data := frag.RawBytes()
	s.fillMemory(key, data)
	if s.disk != nil {
		rec := regionRecord{Type: uint8(pt), W: frag.Width(), H: frag.Height(), Data: data}
		if err := s.disk.put(key, rec); err != nil {
			gomero.Errorf("unable to store %s in disk cache: %v\n",
				humanize.Bytes(uint64(len(data))), err)
		}
	}
}

// cachedFragment is a region payload served from a cache layer.
type cachedFragment struct {
	pt   gomero.PixelType
	w, h int32
	data []byte
}

func (f *cachedFragment) Width() int32         { return f.w }
func (f *cachedFragment) Height() int32        { return f.h }
func (f *cachedFragment) BytesPerPixel() int32 { return f.pt.BytesPerPixel() }
func (f *cachedFragment) RawBytes() []byte     { return f.data }

func (f *cachedFragment) Sample(row, col int32) float64 {
	return f.pt.SampleAt(f.data, int(row)*int(f.w)+int(col))
}
