// Package resource samples host CPU and memory so that /status can report
// them and the pool can react to memory pressure.
package resource

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"inferd/pkg/types"
)

// Monitor periodically samples system resource usage.
type Monitor struct {
	mu             sync.RWMutex
	stats          types.SystemStats
	updateInterval time.Duration
	stopOnce       sync.Once
	stopCh         chan struct{}
}

// NewMonitor creates a monitor sampling at the given interval.
func NewMonitor(updateInterval time.Duration) *Monitor {
	if updateInterval <= 0 {
		updateInterval = 5 * time.Second
	}
	return &Monitor{
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
	}
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	m.update()
	go m.loop()
}

// Stop halts sampling.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Stats returns the latest snapshot.
func (m *Monitor) Stats() types.SystemStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// PressureAbove returns a predicate reporting whether memory usage exceeds
// pct percent of system RAM. Suitable as the pool's pressure hook.
func (m *Monitor) PressureAbove(pct float64) func() bool {
	return func() bool {
		if pct <= 0 {
			return false
		}
		return m.Stats().MemoryUsagePercent > pct
	}
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.update()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) update() {
	var s types.SystemStats
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryUsedMB = vm.Used / (1024 * 1024)
		s.MemoryTotalMB = vm.Total / (1024 * 1024)
		s.MemoryUsagePercent = vm.UsedPercent
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPUUsagePercent = pcts[0]
	}
	s.NumGoroutines = runtime.NumGoroutine()

	m.mu.Lock()
	m.stats = s
	m.mu.Unlock()
}
