package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer. The pool
// satisfies it directly.
type Service interface {
	ListModels() []types.Model
	Resolve(name string) (types.Model, error)
	Run(ctx context.Context, name string, kind types.ModelKind, op func(backend.Handle) error) error
	Remove(modelID string) error
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the chi router serving the OpenAI-compatible API plus the
// operational endpoints.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints; SSE responses opt out via flush.
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		handleListModels(svc, w, r)
	})
	r.Post("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		handleChatCompletions(svc, w, r)
	})
	r.Post("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		handleEmbeddings(svc, w, r)
	})
	r.Post("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		handleTranscriptions(svc, w, r)
	})
	r.Post("/v1/models/unload", func(w http.ResponseWriter, r *http.Request) {
		handleUnload(svc, w, r)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status()
		if f := systemStatsFunc; f != nil {
			s := f()
			st.System = &s
		}
		writeJSON(w, http.StatusOK, st)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func handleListModels(svc Service, w http.ResponseWriter, r *http.Request) {
	models := svc.ListModels()
	list := types.ModelList{Object: "list", Data: make([]types.ModelItem, 0, len(models))}
	for _, m := range models {
		list.Data = append(list.Data, types.ModelItem{
			ID:          m.ID,
			Object:      "model",
			Created:     nowFunc().Unix(),
			OwnedBy:     "local",
			SizeInBytes: m.SizeBytes,
		})
	}
	writeJSON(w, http.StatusOK, list)
}

func handleUnload(svc Service, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Model == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "model is required")
		return
	}
	mdl, err := svc.Resolve(req.Model)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if err := svc.Remove(mdl.ID); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unloaded": mdl.ID})
}
