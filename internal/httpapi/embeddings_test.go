package httpapi

import (
	"context"
	"net/http"
	"testing"

	"inferd/internal/backend"
	"inferd/internal/pool"
	"inferd/pkg/types"
)

// fixedEmbedHandle returns one constant vector per input.
type fixedEmbedHandle struct {
	model  types.Model
	vector []float32
	tokens int
	inputs []string
}

func (h *fixedEmbedHandle) Model() types.Model { return h.model }
func (h *fixedEmbedHandle) Close() error       { return nil }

func (h *fixedEmbedHandle) Embed(ctx context.Context, inputs []string) ([][]float32, int, error) {
	h.inputs = inputs
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = h.vector
	}
	return out, h.tokens * len(inputs), nil
}

func newEmbedService() (*mockService, *fixedEmbedHandle) {
	svc := newMockService()
	h := &fixedEmbedHandle{vector: []float32{0.1, 0.2, 0.3}, tokens: 4}
	h.model = svc.models["tiny-embed"]
	svc.handle = h
	return svc, h
}

func TestEmbeddingsSingleString(t *testing.T) {
	svc, h := newEmbedService()
	body := map[string]any{"model": "tiny-embed", "input": "hello world"}
	rec := doJSON(t, NewMux(svc), http.MethodPost, "/v1/embeddings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[types.EmbeddingsResponse](t, rec)
	if resp.Object != "list" || resp.Model != "tiny-embed" {
		t.Fatalf("envelope: %+v", resp)
	}
	if len(resp.Data) != 1 || resp.Data[0].Index != 0 || len(resp.Data[0].Embedding) != 3 {
		t.Fatalf("data: %+v", resp.Data)
	}
	if resp.Usage.PromptTokens != 4 || resp.Usage.TotalTokens != 4 {
		t.Fatalf("usage: %+v", resp.Usage)
	}
	if len(h.inputs) != 1 || h.inputs[0] != "hello world" {
		t.Fatalf("inputs seen by backend: %v", h.inputs)
	}
}

func TestEmbeddingsStringArray(t *testing.T) {
	svc, _ := newEmbedService()
	body := map[string]any{"model": "tiny-embed", "input": []string{"a", "b", "c"}}
	rec := doJSON(t, NewMux(svc), http.MethodPost, "/v1/embeddings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[types.EmbeddingsResponse](t, rec)
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(resp.Data))
	}
	for i, item := range resp.Data {
		if item.Index != i {
			t.Fatalf("index ordering broken: %+v", resp.Data)
		}
	}
}

func TestEmbeddingsValidation(t *testing.T) {
	svc, _ := newEmbedService()
	mux := NewMux(svc)
	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"missing model", map[string]any{"input": "x"}, http.StatusBadRequest},
		{"missing input", map[string]any{"model": "tiny-embed"}, http.StatusBadRequest},
		{"numeric input", map[string]any{"model": "tiny-embed", "input": 7}, http.StatusBadRequest},
		{"mixed array", map[string]any{"model": "tiny-embed", "input": []any{"a", 1}}, http.StatusBadRequest},
		{"unknown model", map[string]any{"model": "ghost", "input": "x"}, http.StatusNotFound},
	}
	for _, c := range cases {
		if rec := doJSON(t, mux, http.MethodPost, "/v1/embeddings", c.body); rec.Code != c.code {
			t.Errorf("%s: status %d, want %d (body %s)", c.name, rec.Code, c.code, rec.Body.String())
		}
	}
}

func TestEmbeddingsKindMismatch(t *testing.T) {
	svc, _ := newEmbedService()
	// Route an LLM model at the embeddings endpoint; the pool enforces the
	// kind, so the mock reproduces its answer.
	svc.runErr = pool.ErrUnknownKind("tiny-llm", "embedding")
	body := map[string]any{"model": "tiny-llm", "input": "x"}
	rec := doJSON(t, NewMux(svc), http.MethodPost, "/v1/embeddings", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[types.ErrorResponse](t, rec)
	if resp.Error.Code != "unknown_model_kind" {
		t.Fatalf("error=%+v", resp.Error)
	}
}

func TestEmbeddingsHandleWithoutCapability(t *testing.T) {
	svc := newMockService()
	h := &scriptedHandle{ctxWindow: 128}
	h.model = svc.models["tiny-embed"]
	svc.handle = h

	body := map[string]any{"model": "tiny-embed", "input": "x"}
	rec := doJSON(t, NewMux(svc), http.MethodPost, "/v1/embeddings", body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[types.ErrorResponse](t, rec)
	if resp.Error.Code != "dependency_unavailable" {
		t.Fatalf("error=%+v", resp.Error)
	}
}

var _ backend.EmbedHandle = (*fixedEmbedHandle)(nil)
