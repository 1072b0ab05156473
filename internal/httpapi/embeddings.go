package httpapi

import (
	"net/http"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

func handleEmbeddings(svc Service, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.EmbeddingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "invalid JSON body")
		return
	}
	inputs, ok := embeddingInputs(req.Input)
	if !ok || len(inputs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "input must be a string or an array of strings")
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "model is required")
		return
	}
	mdl, err := svc.Resolve(req.Model)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	var vectors [][]float32
	var promptTokens int
	err = svc.Run(ctx, mdl.ID, types.KindEmbedding, func(h backend.Handle) error {
		eh, ok := h.(backend.EmbedHandle)
		if !ok {
			return backend.ErrDependencyUnavailable("model runtime does not serve embeddings")
		}
		var err error
		vectors, promptTokens, err = eh.Embed(ctx, inputs)
		if err != nil {
			return backend.ErrInvocation(err)
		}
		return nil
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}

	resp := types.EmbeddingsResponse{
		Object: "list",
		Data:   make([]types.EmbeddingItem, 0, len(vectors)),
		Model:  mdl.ID,
		Usage:  types.EmbeddingsUsage{PromptTokens: promptTokens, TotalTokens: promptTokens},
	}
	for i, v := range vectors {
		resp.Data = append(resp.Data, types.EmbeddingItem{Object: "embedding", Embedding: v, Index: i})
	}
	writeJSON(w, http.StatusOK, resp)
}

// embeddingInputs normalizes the polymorphic input field.
func embeddingInputs(v any) ([]string, bool) {
	switch in := v.(type) {
	case string:
		return []string{in}, true
	case []any:
		out := make([]string, 0, len(in))
		for _, item := range in {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
