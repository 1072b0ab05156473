package pool

import (
	"encoding/json"
	"os"
)

// lruRecord survives restarts so a re-loaded model keeps its usage history
// for eviction scoring.
type lruRecord struct {
	LastUsedUnix int64 `json:"last_used_unix"`
	UseCount     int64 `json:"use_count"`
}

func (p *Pool) loadLRUMetadata() {
	p.lruMeta = make(map[string]lruRecord)
	if p.lruPath == "" {
		return
	}
	f, err := os.Open(p.lruPath)
	if err != nil {
		return
	}
	defer f.Close()
	var data map[string]lruRecord
	if err := json.NewDecoder(f).Decode(&data); err == nil && data != nil {
		p.lruMeta = data
	}
}

// rememberUsage records an evicted entry's usage under the pool lock.
func (p *Pool) rememberUsage(key string, e *entry) {
	p.lruMeta[key] = lruRecord{LastUsedUnix: e.lastUsed.Unix(), UseCount: e.useCount}
}

func (p *Pool) saveLRUMetadata() {
	if p.lruPath == "" {
		return
	}
	p.mu.Lock()
	snap := make(map[string]lruRecord, len(p.lruMeta)+len(p.cache))
	for k, v := range p.lruMeta {
		snap[k] = v
	}
	for key, e := range p.cache {
		snap[key] = lruRecord{LastUsedUnix: e.lastUsed.Unix(), UseCount: e.useCount}
	}
	p.mu.Unlock()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(p.lruPath, b, 0o644)
}
