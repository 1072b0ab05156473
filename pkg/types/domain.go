package types

import (
	"fmt"
	"strings"
)

// ModelKind classifies what a model can do and which backend loads it.
type ModelKind string

const (
	KindLLM       ModelKind = "llm"
	KindVLM       ModelKind = "vlm"
	KindEmbedding ModelKind = "embedding"
	KindSTT       ModelKind = "stt"
	KindTTS       ModelKind = "tts"
)

// ParseKind normalizes a kind string from a manifest or API request.
func ParseKind(s string) (ModelKind, error) {
	switch ModelKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLLM:
		return KindLLM, nil
	case KindVLM:
		return KindVLM, nil
	case KindEmbedding:
		return KindEmbedding, nil
	case KindSTT:
		return KindSTT, nil
	case KindTTS:
		return KindTTS, nil
	default:
		return "", fmt.Errorf("unknown model kind: %q", s)
	}
}

// Model represents a discoverable or loadable model on disk.
type Model struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" example:"tinyllama-q4"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name" example:"TinyLlama (Q4)"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/TinyLlama.Q4_K_M.gguf"`
	// What the model does; determines the backend that loads it.
	// example: llm
	Kind ModelKind `json:"kind" example:"llm"`
	// Alternate names accepted by the API (e.g., "gpt-3.5-turbo").
	Aliases []string `json:"aliases,omitempty"`
	// On-disk size in bytes; 0 if unknown.
	SizeBytes int64 `json:"size_in_bytes,omitempty"`
}

// StatusResponse summarizes daemon state for GET /status.
type StatusResponse struct {
	// Number of handles currently cached.
	Loaded int `json:"loaded"`
	// Number of requests currently executing against a handle.
	Inflight int `json:"inflight"`
	// Maximum cached handles before pressure eviction kicks in.
	MaxLoaded int `json:"max_loaded"`
	// Maximum concurrent executions across all models.
	MaxConcurrent int `json:"max_concurrent"`
	// Per-model cache entries.
	Models []ModelStatus `json:"models"`
	// Host memory snapshot, if the resource monitor is running.
	System *SystemStats `json:"system,omitempty"`
}

// ModelStatus describes one cached handle for GET /status.
type ModelStatus struct {
	ModelID      string `json:"model_id"`
	Kind         string `json:"kind"`
	Inflight     bool   `json:"inflight"`
	LastUsedUnix int64  `json:"last_used_unix"`
	LoadedAtUnix int64  `json:"loaded_at_unix"`
	UseCount     int64  `json:"use_count"`
}

// SystemStats is a host resource snapshot filled by internal/resource.
type SystemStats struct {
	CPUUsagePercent    float64 `json:"cpu_usage_percent"`
	MemoryUsedMB       uint64  `json:"memory_used_mb"`
	MemoryTotalMB      uint64  `json:"memory_total_mb"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	NumGoroutines      int     `json:"num_goroutines"`
}
