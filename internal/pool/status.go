package pool

import "inferd/pkg/types"

// Ready reports whether the pool can serve requests. The pool has no warmup
// phase of its own; it is ready as soon as a resolver and backend are wired.
func (p *Pool) Ready() bool {
	return p.resolver != nil && p.backend != nil
}

// Status builds a read-only snapshot for GET /status.
func (p *Pool) Status() types.StatusResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp := types.StatusResponse{
		Loaded:        len(p.cache),
		Inflight:      p.active,
		MaxLoaded:     p.maxLoaded,
		MaxConcurrent: p.maxConcurrent,
		Models:        make([]types.ModelStatus, 0, len(p.cache)),
	}
	for key, e := range p.cache {
		_, busy := p.inflight[key]
		resp.Models = append(resp.Models, types.ModelStatus{
			ModelID:      key,
			Kind:         string(e.model.Kind),
			Inflight:     busy,
			LastUsedUnix: e.lastUsed.Unix(),
			LoadedAtUnix: e.loadedAt.Unix(),
			UseCount:     e.useCount,
		})
	}
	return resp
}
