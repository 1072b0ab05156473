package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// staticResolver maps ids straight onto models.
type staticResolver map[string]types.Model

func (r staticResolver) Resolve(name string) (types.Model, error) {
	if m, ok := r[name]; ok {
		return m, nil
	}
	return types.Model{}, ErrModelNotFound(name)
}

func (r staticResolver) List() []types.Model {
	out := make([]types.Model, 0, len(r))
	for _, m := range r {
		out = append(out, m)
	}
	return out
}

type fakeHandle struct {
	model types.Model
	mu    sync.Mutex
	open  bool
}

func (h *fakeHandle) Model() types.Model { return h.model }

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = false
	return nil
}

func (h *fakeHandle) isOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// fakeBackend counts loads and optionally blocks them on a gate.
type fakeBackend struct {
	mu       sync.Mutex
	loads    int
	released int
	failFor  map[string]error
	gate     chan struct{} // when non-nil, Load blocks until closed or ctx done
	handles  []*fakeHandle
}

func (b *fakeBackend) Load(ctx context.Context, model types.Model) (backend.Handle, error) {
	b.mu.Lock()
	b.loads++
	gate := b.gate
	err := b.failFor[model.ID]
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	h := &fakeHandle{model: model, open: true}
	b.mu.Lock()
	b.handles = append(b.handles, h)
	b.mu.Unlock()
	return h, nil
}

func (b *fakeBackend) ReleaseMemory() {
	b.mu.Lock()
	b.released++
	b.mu.Unlock()
}

func (b *fakeBackend) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

func testModels() staticResolver {
	return staticResolver{
		"llama-a": {ID: "llama-a", Name: "Llama A", Path: "/m/a.gguf", Kind: types.KindLLM},
		"llama-b": {ID: "llama-b", Name: "Llama B", Path: "/m/b.gguf", Kind: types.KindLLM},
		"llama-c": {ID: "llama-c", Name: "Llama C", Path: "/m/c.gguf", Kind: types.KindLLM},
		"embed-a": {ID: "embed-a", Name: "Embed A", Path: "/m/e.gguf", Kind: types.KindEmbedding},
	}
}

func newTestPool(b backend.Backend, opts ...func(*Config)) *Pool {
	cfg := Config{
		Resolver:    testModels(),
		Backend:     b,
		AcquireWait: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}

// eventually polls cond for up to two seconds.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var errBoom = errors.New("boom")
