package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir     string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Manifest      string `json:"manifest" yaml:"manifest" toml:"manifest"`
	DefaultModel  string `json:"default_model" yaml:"default_model" toml:"default_model"`
	MaxConcurrent int    `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	MaxLoaded     int    `json:"max_loaded" yaml:"max_loaded" toml:"max_loaded"`
	// Durations accept Go syntax, e.g. "5m" or "60s".
	IdleTimeout   Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
	SweepInterval Duration `json:"sweep_interval" yaml:"sweep_interval" toml:"sweep_interval"`
	AcquireWait   Duration `json:"acquire_wait" yaml:"acquire_wait" toml:"acquire_wait"`
	LRUPath       string   `json:"lru_path" yaml:"lru_path" toml:"lru_path"`
	LogLevel      string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	// CORS origins; empty disables CORS entirely.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	// Memory pressure threshold in percent of system RAM; 0 disables.
	MemoryPressurePct float64 `json:"memory_pressure_pct" yaml:"memory_pressure_pct" toml:"memory_pressure_pct"`
	// llama runtime tuning (effective with the llama build tag).
	LlamaCtx       int  `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads   int  `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LlamaGPULayers int  `json:"llama_gpu_layers" yaml:"llama_gpu_layers" toml:"llama_gpu_layers"`
	LlamaMLock     bool `json:"llama_mlock" yaml:"llama_mlock" toml:"llama_mlock"`
	LlamaMMap      bool `json:"llama_mmap" yaml:"llama_mmap" toml:"llama_mmap"`
}

// Duration wraps time.Duration to accept string forms in every config format.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.parse(value.Value)
}

// UnmarshalText covers TOML string values.
func (d *Duration) UnmarshalText(b []byte) error {
	return d.parse(string(b))
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
