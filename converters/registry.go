package converters

import (
	"sort"
	"sync"

	"github.com/darianmavgo/mkcsv/converters/common"
)

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]common.Engine)
)

// Register makes a database engine available by the provided name.
// If Register is called twice with the same name or if engine is nil, it panics.
func Register(name string, engine common.Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if engine == nil {
		panic("converters: Register engine is nil")
	}
	if _, dup := engines[name]; dup {
		panic("converters: Register called twice for engine " + name)
	}
	engines[name] = engine
}

// Lookup returns the engine registered under name.
func Lookup(name string) (common.Engine, error) {
	enginesMu.RLock()
	engine, ok := engines[name]
	enginesMu.RUnlock()
	if !ok {
		return nil, common.New(common.ErrConfiguration, "", "unknown engine "+name+" (forgotten import?)")
	}
	return engine, nil
}

// Engines returns a sorted list of the names of the registered engines.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	list := make([]string, 0, len(engines))
	for name := range engines {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
