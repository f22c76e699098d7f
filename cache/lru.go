/*
	This file implements the metadata LRU.  Image metadata and plane
	record lists are small and reread often by assemblies, so a bounded
	LRU in front of the remote metadata service removes almost all of
	that traffic.
*/

package cache

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/gred-clermont/gomero/store"
)

// maxMetaEntries bounds the combined number of cached metadata and plane
// record entries.
const maxMetaEntries = 1000

// metaLRU caches image metadata and plane record lists keyed by image id.
// groupcache's lru.Cache is not goroutine-safe, so all access goes through
// one mutex.
type metaLRU struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newMetaLRU() *metaLRU {
	return &metaLRU{cache: lru.New(maxMetaEntries)}
}

func imageKey(image int64) lru.Key {
	return fmt.Sprintf("meta/%d", image)
}

func planesKey(image int64) lru.Key {
	return fmt.Sprintf("planes/%d", image)
}

func (m *metaLRU) getImage(image int64) (*store.ImageMeta, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.cache.Get(imageKey(image))
	if !found {
		return nil, false
	}
	return v.(*store.ImageMeta), true
}

func (m *metaLRU) putImage(image int64, meta *store.ImageMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(imageKey(image), meta)
}

func (m *metaLRU) getPlanes(image int64) ([]store.PlaneRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.cache.Get(planesKey(image))
	if !found {
		return nil, false
	}
	return v.([]store.PlaneRecord), true
}

func (m *metaLRU) putPlanes(image int64, records []store.PlaneRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(planesKey(image), records)
}
