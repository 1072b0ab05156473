package e2e

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"inferd/internal/backend"
	"inferd/internal/httpapi"
	"inferd/internal/pool"
	"inferd/internal/prompt"
	"inferd/internal/registry"
	"inferd/pkg/types"
)

// scriptedBackend loads textHandles that replay a fixed chunk script. An
// optional gate channel makes generations block until the test releases it.
type scriptedBackend struct {
	mu     sync.Mutex
	chunks []string
	gate   chan struct{}
	loads  int
}

func (b *scriptedBackend) Load(ctx context.Context, model types.Model) (backend.Handle, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	return &textHandle{model: model, chunks: b.chunks, gate: b.gate}, nil
}

func (b *scriptedBackend) ReleaseMemory() {}

type textHandle struct {
	model  types.Model
	chunks []string
	gate   chan struct{}
}

func (h *textHandle) Model() types.Model { return h.model }
func (h *textHandle) Close() error       { return nil }

func (h *textHandle) Prepare(ctx context.Context, msgs []prompt.Message, tools []backend.ToolSpec) (backend.TokenizedPrompt, error) {
	return backend.TokenizedPrompt{Tokens: make([]int, byteTok{}.Conversation(msgs))}, nil
}

func (h *textHandle) Generate(ctx context.Context, in backend.TokenizedPrompt, p backend.GenParams) (<-chan backend.Event, error) {
	out := make(chan backend.Event, len(h.chunks)+2)
	go func() {
		defer close(out)
		if h.gate != nil {
			select {
			case <-h.gate:
			case <-ctx.Done():
				out <- backend.Event{Type: backend.EventError, Err: ctx.Err()}
				return
			}
		}
		for _, c := range h.chunks {
			out <- backend.Event{Type: backend.EventChunk, Chunk: c}
		}
		out <- backend.Event{Type: backend.EventInfo, Info: &backend.CompletionInfo{
			PromptTokens:     len(in.Tokens),
			CompletionTokens: len(h.chunks),
			Duration:         time.Second,
		}}
	}()
	return out, nil
}

func (h *textHandle) Tokenizer() backend.Tokenizer { return byteTok{} }
func (h *textHandle) ContextWindow() int           { return 4096 }

// byteTok counts one token per byte, which keeps arithmetic obvious.
type byteTok struct{}

func (byteTok) Encode(text string) []int {
	ids := make([]int, len(text))
	for i := range text {
		ids[i] = int(text[i])
	}
	return ids
}

func (byteTok) Decode(ids []int) string {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b)
}

func (byteTok) Conversation(msgs []prompt.Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Text)
	}
	return n
}

func testModel(id string) types.Model {
	return types.Model{ID: id, Name: id, Path: "/models/" + id + ".gguf", Kind: types.KindLLM}
}

// newServer wires a real pool behind the HTTP mux, the same composition the
// daemon performs, minus the llama runtime.
func newServer(t *testing.T, cfg pool.Config, models ...types.Model) (*httptest.Server, *pool.Pool) {
	t.Helper()
	reg, err := registry.FromModels(models)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cfg.Resolver = reg
	p := pool.New(cfg)
	srv := httptest.NewServer(httpapi.NewMux(p))
	t.Cleanup(func() {
		srv.Close()
		p.Close()
	})
	return srv, p
}
