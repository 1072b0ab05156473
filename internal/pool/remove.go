package pool

// Remove synchronously drops a model from the pool: any pending load is
// canceled and a cached handle is closed. An in-flight generation on the
// handle is not interrupted; the entry leaves the cache immediately and
// the close is deferred until Release frees the key, so the runtime is
// never torn down under a running invocation.
func (p *Pool) Remove(modelID string) error {
	p.mu.Lock()
	pd := p.pending[modelID]
	e, cached := p.cache[modelID]
	deferred := false
	if cached {
		delete(p.cache, modelID)
		p.rememberUsage(modelID, e)
		poolLoadedModels.Set(float64(len(p.cache)))
		if _, busy := p.inflight[modelID]; busy {
			p.doomed[modelID] = append(p.doomed[modelID], doomedEntry{e: e, reason: "remove"})
			deferred = true
		}
	}
	p.mu.Unlock()

	if pd != nil {
		pd.cancel()
	}
	if !cached && pd == nil {
		return ErrModelNotFound(modelID)
	}
	if cached && !deferred {
		p.closeEvicted(e, "remove")
	}
	p.cond.Broadcast()
	p.saveLRUMetadata()
	p.publish(Event{Name: "remove", ModelID: modelID})
	return nil
}

// Clear removes all cached handles and cancels all pending loads, then
// invokes the backend's bulk memory-release hook. Handles with an active
// execution are closed later, when their key is released.
func (p *Pool) Clear() {
	p.mu.Lock()
	closable := make([]*entry, 0, len(p.cache))
	for key, e := range p.cache {
		delete(p.cache, key)
		p.rememberUsage(key, e)
		if _, busy := p.inflight[key]; busy {
			p.doomed[key] = append(p.doomed[key], doomedEntry{e: e, reason: "clear"})
			continue
		}
		closable = append(closable, e)
	}
	pendings := make([]*pendingLoad, 0, len(p.pending))
	for _, pd := range p.pending {
		pendings = append(pendings, pd)
	}
	poolLoadedModels.Set(0)
	p.mu.Unlock()

	for _, pd := range pendings {
		pd.cancel()
	}
	for _, e := range closable {
		if err := e.handle.Close(); err != nil {
			p.publish(Event{Name: "clear_close_error", ModelID: e.model.ID, Fields: map[string]any{"error": err.Error()}})
		}
		poolEvictionsTotal.WithLabelValues("clear").Inc()
	}
	p.backend.ReleaseMemory()
	p.cond.Broadcast()
	p.saveLRUMetadata()
	p.publish(Event{Name: "clear"})
}
