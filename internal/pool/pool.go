package pool

import (
	"sync"
	"time"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// Resolver maps API model names (ids or aliases) onto registry entries.
type Resolver interface {
	Resolve(name string) (types.Model, error)
	List() []types.Model
}

// Pool caches loaded runtime handles, single-flights concurrent loads,
// enforces the global concurrency ceiling and per-model exclusivity, and
// evicts idle or low-value entries under memory pressure.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	cache    map[string]*entry
	pending  map[string]*pendingLoad
	inflight map[string]struct{}
	doomed   map[string][]doomedEntry
	active   int

	resolver  Resolver
	backend   backend.Backend
	publisher EventPublisher

	maxConcurrent int
	maxLoaded     int
	idleTimeout   time.Duration
	sweepInterval time.Duration
	acquireWait   time.Duration

	lruPath string
	lruMeta map[string]lruRecord

	pressure func() bool

	sweepOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}

	now func() time.Time
}

// ListModels returns the registry contents.
func (p *Pool) ListModels() []types.Model {
	if p.resolver == nil {
		return nil
	}
	return p.resolver.List()
}

// Resolve maps a request model name onto a registry entry.
func (p *Pool) Resolve(name string) (types.Model, error) {
	if p.resolver == nil {
		return types.Model{}, ErrModelNotFound(name)
	}
	return p.resolver.Resolve(name)
}

// StartSweeper launches the periodic idle sweep. Safe to call once;
// subsequent calls are no-ops. Stop with Close.
func (p *Pool) StartSweeper() {
	p.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(p.sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p.EvictIdle()
					if p.pressure != nil && p.pressure() {
						p.evictOnePressured()
					}
				case <-p.stopCh:
					return
				}
			}
		}()
	})
}

// Close stops the sweeper, clears the cache and persists usage metadata.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.saveLRUMetadata()
	p.Clear()
}
