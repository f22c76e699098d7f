/*
	This file implements the persistent cache layer on BadgerDB.  Values
	are msgpack-encoded region records so the pixel type and dimensions
	survive restarts along with the raw bytes.
*/

package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/tinylib/msgp/msgp"

	"github.com/gred-clermont/gomero/gomero"
)

const (
	// Number of versions to keep per key.  Cached regions are immutable,
	// so one is enough.
	diskVersionsToKeep = 1

	// diskSyncWrites is false: the disk cache is rebuildable, so resilience
	// is traded for write speed and a periodic sync bounds the loss window.
	diskSyncWrites = false

	diskSyncInterval = 30 * time.Second
)

// diskCache is a BadgerDB-backed region cache.
type diskCache struct {
	directory  string
	bdp        *badger.DB
	stopSyncCh chan struct{}
}

func openDiskCache(path string) (*diskCache, error) {
	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(diskVersionsToKeep).
		WithSyncWrites(diskSyncWrites).
		WithLogger(nil)
	bdp, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open disk cache @ %q: %v", path, err)
	}
	db := &diskCache{
		directory:  path,
		bdp:        bdp,
		stopSyncCh: make(chan struct{}),
	}
	go db.syncPeriodically()
	gomero.Infof("Opened badger disk cache @ %q\n", path)
	return db, nil
}

// Periodically sync to prevent too many writes from being buffered
// if the process crashes.
func (db *diskCache) syncPeriodically() {
	ticker := time.NewTicker(diskSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopSyncCh:
			gomero.Infof("Stopping sync goroutine for badger @ %s\n", db.directory)
			return
		case <-ticker.C:
			db.bdp.Sync()
		}
	}
}

func (db *diskCache) close() error {
	close(db.stopSyncCh)
	return db.bdp.Close()
}

func (db *diskCache) get(key []byte) (rec regionRecord, found bool, err error) {
	err = db.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if _, err := rec.UnmarshalMsg(val); err != nil {
				return fmt.Errorf("corrupt disk cache record: %v", err)
			}
			found = true
			return nil
		})
	})
	return
}

func (db *diskCache) put(key []byte, rec regionRecord) error {
	val, err := rec.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// regionRecord is the persisted form of one cached region.
type regionRecord struct {
	Type uint8
	W, H int32
	Data []byte
}

// MarshalMsg implements msgp.Marshaler.
func (z regionRecord) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendArrayHeader(o, 4)
	o = msgp.AppendUint8(o, z.Type)
	o = msgp.AppendInt32(o, z.W)
	o = msgp.AppendInt32(o, z.H)
	o = msgp.AppendBytes(o, z.Data)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *regionRecord) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var n uint32
	if n, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
		return
	}
	if n != 4 {
		err = msgp.ArrayError{Wanted: 4, Got: n}
		return
	}
	if z.Type, bts, err = msgp.ReadUint8Bytes(bts); err != nil {
		return
	}
	if z.W, bts, err = msgp.ReadInt32Bytes(bts); err != nil {
		return
	}
	if z.H, bts, err = msgp.ReadInt32Bytes(bts); err != nil {
		return
	}
	if z.Data, bts, err = msgp.ReadBytesBytes(bts, z.Data[:0]); err != nil {
		return
	}
	o = bts
	return
}

// Msgsize returns an upper bound on the encoded size.
func (z regionRecord) Msgsize() int {
	return 1 + msgp.Uint8Size + 2*msgp.Int32Size + msgp.BytesPrefixSize + len(z.Data)
}
