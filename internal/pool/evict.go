package pool

import "time"

// evictionScore ranks cache victims: higher is a better candidate. Idle and
// old entries score up; frequently used entries score down. Usage frequency
// is uses per hour of lifetime, floored at one hour so fresh entries are not
// wildly over-weighted.
func (p *Pool) evictionScore(e *entry, now time.Time) float64 {
	idleMinutes := now.Sub(e.lastUsed).Minutes()
	ageHours := now.Sub(e.loadedAt).Hours()
	lifetime := ageHours
	if lifetime < 1 {
		lifetime = 1
	}
	usagePerHour := float64(e.useCount) / lifetime
	return idleMinutes + ageHours - usagePerHour*100
}

// EvictIdle removes every cached handle that is not in flight and has been
// unused longer than the idle timeout. Called by the sweeper and exported
// for operational endpoints.
func (p *Pool) EvictIdle() {
	now := p.now()
	var victims []*entry
	p.mu.Lock()
	for key, e := range p.cache {
		if _, busy := p.inflight[key]; busy {
			continue
		}
		if now.Sub(e.lastUsed) < p.idleTimeout {
			continue
		}
		delete(p.cache, key)
		p.rememberUsage(key, e)
		victims = append(victims, e)
	}
	poolLoadedModels.Set(float64(len(p.cache)))
	p.mu.Unlock()

	for _, e := range victims {
		p.closeEvicted(e, "idle")
	}
	if len(victims) > 0 {
		p.saveLRUMetadata()
	}
}

// evictForPressureLocked evicts the single highest-score entry that is not
// in flight, making room before a new load. loadingKey is the key about to
// load; it is already in the in-flight set and thus never a candidate. If
// every entry is in flight the load proceeds anyway and the cache may
// transiently exceed its ceiling; strict bounds lose to liveness here.
func (p *Pool) evictForPressureLocked(loadingKey string) {
	now := p.now()
	var victimKey string
	var victim *entry
	best := 0.0
	for key, e := range p.cache {
		if _, busy := p.inflight[key]; busy {
			continue
		}
		if s := p.evictionScore(e, now); victim == nil || s > best {
			victimKey, victim, best = key, e, s
		}
	}
	if victim == nil {
		p.publish(Event{Name: "pressure_no_candidate", ModelID: loadingKey})
		return
	}
	delete(p.cache, victimKey)
	p.rememberUsage(victimKey, victim)
	poolLoadedModels.Set(float64(len(p.cache)))
	go p.closeEvicted(victim, "pressure")
}

// evictOnePressured performs one score-based eviction in response to the
// external pressure signal (system memory monitor).
func (p *Pool) evictOnePressured() {
	p.mu.Lock()
	p.evictForPressureLocked("")
	p.mu.Unlock()
}

// closeEvicted releases one evicted handle and pokes the backend to drop
// accelerator caches. Close failures are logged via events, not surfaced;
// the memory delta is best effort by nature.
func (p *Pool) closeEvicted(e *entry, reason string) {
	fields := map[string]any{"reason": reason}
	if err := e.handle.Close(); err != nil {
		fields["close_error"] = err.Error()
	}
	p.backend.ReleaseMemory()
	poolEvictionsTotal.WithLabelValues(reason).Inc()
	p.publish(Event{Name: "evict", ModelID: e.model.ID, Fields: fields})
}
