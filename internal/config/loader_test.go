package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `
addr: :9999
models_dir: /tmp/models
default_model: m1
max_concurrent: 5
max_loaded: 6
idle_timeout: 5m
sweep_interval: 60s
acquire_wait: 30s
log_level: debug
memory_pressure_pct: 85.5
cors_origins:
  - http://localhost:5173
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp/models" || cfg.DefaultModel != "m1" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxConcurrent != 5 || cfg.MaxLoaded != 6 {
		t.Fatalf("limits: %+v", cfg)
	}
	if cfg.IdleTimeout.Std() != 5*time.Minute || cfg.SweepInterval.Std() != time.Minute || cfg.AcquireWait.Std() != 30*time.Second {
		t.Fatalf("durations: %+v", cfg)
	}
	if cfg.MemoryPressurePct != 85.5 {
		t.Fatalf("pressure: %v", cfg.MemoryPressurePct)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("cors: %v", cfg.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json",
		`{"addr":":7070","manifest":"/m/models.yaml","idle_timeout":"90s","default_model":"m2"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Manifest != "/m/models.yaml" || cfg.DefaultModel != "m2" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.IdleTimeout.Std() != 90*time.Second {
		t.Fatalf("duration: %v", cfg.IdleTimeout.Std())
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml",
		"addr=\":8081\"\nmodels_dir=\"/x\"\nsweep_interval=\"45s\"\nllama_ctx=2048\nllama_threads=8\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.SweepInterval.Std() != 45*time.Second {
		t.Fatalf("duration: %v", cfg.SweepInterval.Std())
	}
	if cfg.LlamaCtx != 2048 || cfg.LlamaThreads != 8 {
		t.Fatalf("llama tuning: %+v", cfg)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.ini", "addr=:8080\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "idle_timeout: sometimes\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for bad duration string")
	}
}

func TestLoadEmptyDuration(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :8080\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IdleTimeout.Std() != 0 {
		t.Fatalf("unset duration must stay zero, got %v", cfg.IdleTimeout.Std())
	}
}
