package pool

import (
	"context"
	"time"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// Acquire blocks until the global ceiling has a free slot and no other
// request is executing against the same model, then returns a cached or
// freshly loaded handle. Every successful Acquire must be paired with a
// Release of the resolved model id; prefer Run, which does both.
func (p *Pool) Acquire(ctx context.Context, name string, kind types.ModelKind) (backend.Handle, error) {
	mdl, err := p.Resolve(name)
	if err != nil {
		return nil, err
	}
	if mdl.Kind != kind {
		return nil, ErrUnknownKind(mdl.ID, string(kind))
	}
	key := mdl.ID

	if err := p.admit(ctx, key); err != nil {
		return nil, err
	}
	h, err := p.ensure(ctx, mdl)
	if err != nil {
		p.Release(key)
		return nil, err
	}
	return h, nil
}

// Release frees the global slot and the per-model execution right. It must
// be called exactly once per successful Acquire, on success and on failure.
// Entries doomed by Remove or Clear while this key was executing are closed
// here, after the invocation has let go of the handle.
func (p *Pool) Release(modelID string) {
	p.mu.Lock()
	if p.active > 0 {
		p.active--
	}
	delete(p.inflight, modelID)
	doomed := p.doomed[modelID]
	delete(p.doomed, modelID)
	poolInflight.Set(float64(p.active))
	p.mu.Unlock()

	for _, d := range doomed {
		p.closeEvicted(d.e, d.reason)
	}
	p.cond.Broadcast()
}

// Run is the acquire -> op -> release combinator. Operation failures are
// propagated after the slot is released.
func (p *Pool) Run(ctx context.Context, name string, kind types.ModelKind, op func(backend.Handle) error) error {
	h, err := p.Acquire(ctx, name, kind)
	if err != nil {
		return err
	}
	defer p.Release(h.Model().ID)
	return op(h)
}

// admit waits for a free global slot and for the model key to leave the
// in-flight set, then claims both. Waiters park on the pool condition
// variable; context cancellation and the admission deadline wake them.
func (p *Pool) admit(ctx context.Context, key string) error {
	deadline := p.now().Add(p.acquireWait)
	stopWake := context.AfterFunc(ctx, p.cond.Broadcast)
	defer stopWake()
	timer := time.AfterFunc(p.acquireWait+10*time.Millisecond, p.cond.Broadcast)
	defer timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, busy := p.inflight[key]
		if !busy && p.active < p.maxConcurrent {
			break
		}
		if p.now().After(deadline) {
			return tooBusyError{modelID: key}
		}
		p.cond.Wait()
	}
	p.active++
	p.inflight[key] = struct{}{}
	poolInflight.Set(float64(p.active))
	return nil
}
