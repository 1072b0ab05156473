package pool

import (
	"sync"
	"time"

	"inferd/internal/backend"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxConcurrent = 3
	defaultMaxLoaded     = 4
	defaultIdleTimeout   = 5 * time.Minute
	defaultSweepInterval = 60 * time.Second
	defaultAcquireWait   = 30 * time.Second
)

// Config encapsulates all tunables for Pool construction.
type Config struct {
	Resolver Resolver
	Backend  backend.Backend
	// MaxConcurrent caps concurrent executions across all models.
	MaxConcurrent int
	// MaxLoaded caps cached handles before pressure eviction runs.
	MaxLoaded int
	// IdleTimeout is how long an unused handle survives the idle sweep.
	IdleTimeout time.Duration
	// SweepInterval is the cadence of the background idle sweep.
	SweepInterval time.Duration
	// AcquireWait bounds how long Acquire blocks before backpressure.
	AcquireWait time.Duration
	// LRUPath persists usage metadata across restarts when non-empty.
	LRUPath string
	// Publisher receives lifecycle events; nil drops them.
	Publisher EventPublisher
	// Pressure, when set, is consulted by the sweep; returning true
	// forces one score-based eviction even before the cache is full.
	Pressure func() bool
}

// New constructs a Pool from Config, applying package defaults.
func New(cfg Config) *Pool {
	p := &Pool{
		resolver:      cfg.Resolver,
		backend:       cfg.Backend,
		cache:         make(map[string]*entry),
		pending:       make(map[string]*pendingLoad),
		inflight:      make(map[string]struct{}),
		doomed:        make(map[string][]doomedEntry),
		maxConcurrent: cfg.MaxConcurrent,
		maxLoaded:     cfg.MaxLoaded,
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		acquireWait:   cfg.AcquireWait,
		lruPath:       cfg.LRUPath,
		publisher:     cfg.Publisher,
		pressure:      cfg.Pressure,
		stopCh:        make(chan struct{}),
		now:           time.Now,
	}
	if p.maxConcurrent <= 0 {
		p.maxConcurrent = defaultMaxConcurrent
	}
	if p.maxLoaded <= 0 {
		p.maxLoaded = defaultMaxLoaded
	}
	if p.idleTimeout <= 0 {
		p.idleTimeout = defaultIdleTimeout
	}
	if p.sweepInterval <= 0 {
		p.sweepInterval = defaultSweepInterval
	}
	if p.acquireWait <= 0 {
		p.acquireWait = defaultAcquireWait
	}
	if p.publisher == nil {
		p.publisher = noopPublisher{}
	}
	p.cond = sync.NewCond(&p.mu)
	p.loadLRUMetadata()
	return p
}
