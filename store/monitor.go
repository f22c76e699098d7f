/*
	This file implements a monitor for remote fetch traffic.  It exposes
	channels that can be used to track transfer bandwidth.
*/

package store

import (
	"sync"
	"time"
)

const MonitorBuffer = 10000

var (
	// Number of bytes fetched from the remote repository in the last second.
	FetchBytesPerSec int

	// Number of plane-region fetches in the last second.
	FetchesPerSec int

	// Number of bytes served from local caches in the last second.
	CacheBytesPerSec int

	// Channel to notify bytes fetched from the remote repository.
	FetchBytes chan int

	// Channel to notify bytes served from a local cache.
	CacheBytes chan int

	// Current tallies up to a second.
	fetchBytesPerSec int
	fetchesPerSec    int
	cacheBytesPerSec int
)

func init() {
	FetchBytes = make(chan int, MonitorBuffer)
	CacheBytes = make(chan int, MonitorBuffer)

	go loadMonitor()
}

// Monitors the # of fetches and bytes moved per second.
func loadMonitor() {
	secondTick := time.Tick(1 * time.Second)
	var access sync.Mutex
	for {
		select {
		case b := <-FetchBytes:
			fetchBytesPerSec += b
			fetchesPerSec++
		case b := <-CacheBytes:
			cacheBytesPerSec += b
		case <-secondTick:
			access.Lock()

			FetchBytesPerSec = fetchBytesPerSec
			FetchesPerSec = fetchesPerSec
			fetchBytesPerSec = 0
			fetchesPerSec = 0

			CacheBytesPerSec = cacheBytesPerSec
			cacheBytesPerSec = 0

			access.Unlock()
		}
	}
}
