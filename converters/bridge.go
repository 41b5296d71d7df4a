package converters

import (
	"database/sql"
	"slices"
	"sync"

	"github.com/darianmavgo/mkcsv/converters/common"
)

// Bridge is the one-time initialisation of the database engine.
// Init is idempotent; the orchestrator only checks Ready before a run.
type Bridge struct {
	name string

	once   sync.Once
	mu     sync.RWMutex
	engine common.Engine
	err    error
	inited bool
}

// NewBridge returns an uninitialised bridge for the named engine.
func NewBridge(engineName string) *Bridge {
	return &Bridge{name: engineName}
}

// Init resolves the engine and verifies its database/sql driver is linked in.
// Only the first call does any work; later calls return the same result.
func (b *Bridge) Init() error {
	b.once.Do(func() {
		engine, err := Lookup(b.name)
		if err == nil && !slices.Contains(sql.Drivers(), engine.DriverName()) {
			err = common.New(common.ErrConfiguration, "", "sql driver "+engine.DriverName()+" is not registered")
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.inited = true
		b.err = err
		if err == nil {
			b.engine = engine
		}
	})
	return b.Ready()
}

// Ready returns nil once Init has succeeded.
func (b *Bridge) Ready() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.inited {
		return common.New(common.ErrConfiguration, "", "engine "+b.name+" not initialised")
	}
	return b.err
}

// Engine returns the resolved engine, or nil when the bridge is not ready.
func (b *Bridge) Engine() common.Engine {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.engine
}
