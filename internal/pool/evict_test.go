package pool

import (
	"context"
	"testing"
	"time"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

func TestEvictIdleRemovesStaleEntries(t *testing.T) {
	fb := &fakeBackend{}
	pub := NewMemoryPublisher()
	p := newTestPool(fb, func(c *Config) {
		c.IdleTimeout = 5 * time.Minute
		c.Publisher = pub
	})
	defer p.Close()

	if err := p.Run(context.Background(), "llama-a", types.KindLLM, func(backend.Handle) error { return nil }); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Before the timeout nothing happens.
	p.EvictIdle()
	if p.Status().Loaded != 1 {
		t.Fatal("entry evicted before idle timeout")
	}

	base := time.Now()
	p.now = func() time.Time { return base.Add(10 * time.Minute) }
	p.EvictIdle()
	if p.Status().Loaded != 0 {
		t.Fatal("stale entry not evicted")
	}
	fb.mu.Lock()
	h := fb.handles[0]
	fb.mu.Unlock()
	if h.isOpen() {
		t.Fatal("evicted handle not closed")
	}
	found := false
	for _, ev := range pub.Events() {
		if ev.Name == "evict" && ev.ModelID == "llama-a" && ev.Fields["reason"] == "idle" {
			found = true
		}
	}
	if !found {
		t.Fatal("no idle evict event published")
	}
}

func TestEvictIdleSkipsInflight(t *testing.T) {
	fb := &fakeBackend{}
	p := newTestPool(fb, func(c *Config) { c.IdleTimeout = time.Minute })
	defer p.Close()

	inOp := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = p.Run(context.Background(), "llama-a", types.KindLLM, func(backend.Handle) error {
			close(inOp)
			<-release
			return nil
		})
	}()
	<-inOp

	base := time.Now()
	p.now = func() time.Time { return base.Add(time.Hour) }
	p.EvictIdle()
	if p.Status().Loaded != 1 {
		t.Fatal("in-flight entry must never be evicted")
	}
	close(release)
}

func TestPressureEvictsLowestValueEntry(t *testing.T) {
	fb := &fakeBackend{}
	pub := NewMemoryPublisher()
	p := newTestPool(fb, func(c *Config) {
		c.MaxLoaded = 2
		c.Publisher = pub
	})
	defer p.Close()

	// llama-a is used often, llama-b once. Loading llama-c over a full
	// cache must pick llama-b.
	for i := 0; i < 5; i++ {
		if err := p.Run(context.Background(), "llama-a", types.KindLLM, func(backend.Handle) error { return nil }); err != nil {
			t.Fatalf("run a: %v", err)
		}
	}
	if err := p.Run(context.Background(), "llama-b", types.KindLLM, func(backend.Handle) error { return nil }); err != nil {
		t.Fatalf("run b: %v", err)
	}
	if err := p.Run(context.Background(), "llama-c", types.KindLLM, func(backend.Handle) error { return nil }); err != nil {
		t.Fatalf("run c: %v", err)
	}

	st := p.Status()
	if st.Loaded != 2 {
		t.Fatalf("cache over ceiling: %d", st.Loaded)
	}
	for _, m := range st.Models {
		if m.ModelID == "llama-b" {
			t.Fatal("llama-b should have been the pressure victim")
		}
	}
	if !eventually(func() bool {
		for _, ev := range pub.Events() {
			if ev.Name == "evict" && ev.ModelID == "llama-b" && ev.Fields["reason"] == "pressure" {
				return true
			}
		}
		return false
	}) {
		t.Fatal("no pressure evict event for llama-b")
	}
}

func TestPressureWithAllInflightProceeds(t *testing.T) {
	fb := &fakeBackend{}
	pub := NewMemoryPublisher()
	p := newTestPool(fb, func(c *Config) {
		c.MaxLoaded = 1
		c.MaxConcurrent = 3
		c.Publisher = pub
	})
	defer p.Close()

	inOp := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = p.Run(context.Background(), "llama-a", types.KindLLM, func(backend.Handle) error {
			close(inOp)
			<-release
			return nil
		})
	}()
	<-inOp
	defer close(release)

	// The only cached entry is busy; the new load must still proceed and
	// the cache transiently exceeds its ceiling.
	if err := p.Run(context.Background(), "llama-b", types.KindLLM, func(backend.Handle) error { return nil }); err != nil {
		t.Fatalf("run b under full busy cache: %v", err)
	}
	if p.Status().Loaded != 2 {
		t.Fatalf("expected transient overshoot, loaded=%d", p.Status().Loaded)
	}
	found := false
	for _, ev := range pub.Events() {
		if ev.Name == "pressure_no_candidate" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected pressure_no_candidate event")
	}
}

func TestEvictionScoreOrdering(t *testing.T) {
	p := newTestPool(&fakeBackend{})
	defer p.Close()
	now := time.Now()

	hot := &entry{loadedAt: now.Add(-2 * time.Hour), lastUsed: now.Add(-time.Minute), useCount: 200}
	cold := &entry{loadedAt: now.Add(-2 * time.Hour), lastUsed: now.Add(-90 * time.Minute), useCount: 1}
	if p.evictionScore(hot, now) >= p.evictionScore(cold, now) {
		t.Fatal("frequently used entry must score lower than cold one")
	}

	fresh := &entry{loadedAt: now.Add(-time.Minute), lastUsed: now.Add(-time.Minute), useCount: 1}
	if p.evictionScore(fresh, now) >= p.evictionScore(cold, now) {
		t.Fatal("fresh entry must score lower than long-idle one")
	}
}

func TestSweeperPressureHook(t *testing.T) {
	fb := &fakeBackend{}
	pressured := make(chan struct{})
	p := newTestPool(fb, func(c *Config) {
		c.SweepInterval = 10 * time.Millisecond
		c.IdleTimeout = time.Hour
		c.Pressure = func() bool {
			select {
			case <-pressured:
				return true
			default:
				return false
			}
		}
	})
	defer p.Close()

	if err := p.Run(context.Background(), "llama-a", types.KindLLM, func(backend.Handle) error { return nil }); err != nil {
		t.Fatalf("run: %v", err)
	}
	p.StartSweeper()

	// Without pressure the entry stays despite many sweep ticks.
	time.Sleep(50 * time.Millisecond)
	if p.Status().Loaded != 1 {
		t.Fatal("entry evicted without pressure")
	}

	close(pressured)
	if !eventually(func() bool { return p.Status().Loaded == 0 }) {
		t.Fatal("pressure signal did not trigger eviction")
	}
}
