package cache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blang/semver"
)

// Engine identifies one cache layer implementation.
type Engine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e Engine) GetName() string {
	return e.name
}

func (e Engine) GetDescription() string {
	return e.desc
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

var (
	enginesMu sync.Mutex
	engines   map[string]Engine
)

// RegisterEngine registers a cache layer for reporting.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if engines == nil {
		engines = make(map[string]Engine)
	}
	engines[e.name] = e
}

// EnginesAvailable returns a description of the registered cache layers.
func EnginesAvailable() string {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	var names []string
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	var description string
	for i, name := range names {
		if i > 0 {
			description += "; "
		}
		description += engines[name].String()
	}
	return description
}

func registerEngine(name, desc, version string) {
	ver, err := semver.Make(version)
	if err != nil {
		panic(fmt.Sprintf("unable to make semver for cache engine %q: %v", name, err))
	}
	RegisterEngine(Engine{name, desc, ver})
}

func init() {
	registerEngine("freecache", "In-memory plane-region cache", "1.0.0")
	registerEngine("badger", "BadgerDB persistent plane-region cache", "0.2.0")
	registerEngine("lru", "LRU image metadata cache", "1.0.0")
}
