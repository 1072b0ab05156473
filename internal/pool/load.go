package pool

import (
	"context"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// ensure returns the cached handle for mdl, or performs a single-flight
// load. Concurrent callers for the same key await the same pending result;
// the backend constructor runs exactly once per attempt. The caller already
// holds the key's execution right, so the entry cannot be evicted underneath.
func (p *Pool) ensure(ctx context.Context, mdl types.Model) (backend.Handle, error) {
	key := mdl.ID
	for {
		p.mu.Lock()
		if e, ok := p.cache[key]; ok {
			now := p.now()
			e.lastUsed = now
			e.useCount++
			p.mu.Unlock()
			return e.handle, nil
		}
		if pd, ok := p.pending[key]; ok {
			p.mu.Unlock()
			select {
			case <-pd.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if pd.err != nil {
				return nil, pd.err
			}
			// Loaded by the other caller; loop to take it from the cache.
			continue
		}

		// No cached handle and no load in progress: this caller loads.
		if len(p.cache) >= p.maxLoaded {
			p.evictForPressureLocked(key)
		}
		lctx, cancel := context.WithCancel(context.Background())
		pd := &pendingLoad{done: make(chan struct{}), cancel: cancel}
		p.pending[key] = pd
		p.mu.Unlock()

		p.publish(Event{Name: "load_start", ModelID: key})
		poolLoadsTotal.Inc()
		h, err := p.backend.Load(lctx, mdl)
		aborted := lctx.Err() != nil
		cancel()

		p.mu.Lock()
		delete(p.pending, key)
		canceled := aborted && err == nil
		if canceled {
			// Removed or cleared mid-load: never surface the handle.
			err = context.Canceled
		}
		if err != nil {
			pd.err = loadFailedError{id: key, err: err}
		} else {
			now := p.now()
			e := &entry{handle: h, model: mdl, loadedAt: now, lastUsed: now}
			if rec, ok := p.lruMeta[key]; ok {
				e.useCount = rec.UseCount
			}
			p.cache[key] = e
			pd.handle = h
			poolLoadedModels.Set(float64(len(p.cache)))
		}
		p.mu.Unlock()
		close(pd.done)

		if canceled {
			go func() { _ = h.Close() }()
		}
		if pd.err != nil {
			poolLoadFailuresTotal.Inc()
			p.publish(Event{Name: "load_error", ModelID: key, Fields: map[string]any{"error": pd.err.Error()}})
			return nil, pd.err
		}
		p.publish(Event{Name: "load_ready", ModelID: key})
		// Loop to bump the usage record through the cache-hit path.
	}
}
