package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"inferd/internal/common/fsutil"
	"inferd/internal/pool"
	"inferd/pkg/types"
)

// manifestEntry is one model declaration in models.yaml.
type manifestEntry struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Kind    string   `yaml:"kind"`
	Aliases []string `yaml:"aliases"`
}

type manifest struct {
	Models []manifestEntry `yaml:"models"`
}

// Registry resolves API model names (ids or aliases) to registry entries.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	models []types.Model
	byName map[string]int
}

var _ pool.Resolver = (*Registry)(nil)

// LoadManifest reads a models.yaml manifest. Relative model paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*Registry, error) {
	abs, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	base := filepath.Dir(abs)
	models := make([]types.Model, 0, len(m.Models))
	for _, e := range m.Models {
		if e.ID == "" {
			return nil, fmt.Errorf("manifest entry missing id")
		}
		kind, err := types.ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", e.ID, err)
		}
		p := e.Path
		if p != "" && !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		models = append(models, types.Model{
			ID:        e.ID,
			Name:      name,
			Path:      p,
			Kind:      kind,
			Aliases:   e.Aliases,
			SizeBytes: fileSize(p),
		})
	}
	return build(models)
}

// LoadDir scans a directory for *.gguf files and builds a registry from
// filenames, all kind llm. ID is the full filename including extension.
func LoadDir(dir string) (*Registry, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		models = append(models, types.Model{
			ID:        name,
			Name:      name,
			Path:      p,
			Kind:      types.KindLLM,
			SizeBytes: fileSize(p),
		})
	}
	return build(models)
}

// FromModels builds a registry from an explicit slice (tests, embedding callers).
func FromModels(models []types.Model) (*Registry, error) {
	return build(models)
}

func build(models []types.Model) (*Registry, error) {
	byName := make(map[string]int, len(models))
	for i, m := range models {
		names := append([]string{m.ID}, m.Aliases...)
		for _, name := range names {
			key := strings.ToLower(name)
			if prev, dup := byName[key]; dup && prev != i {
				return nil, fmt.Errorf("duplicate model name %q", name)
			}
			byName[key] = i
		}
	}
	return &Registry{models: models, byName: byName}, nil
}

// Resolve maps a request name onto a registry entry via id or alias.
func (r *Registry) Resolve(name string) (types.Model, error) {
	i, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return types.Model{}, pool.ErrModelNotFound(name)
	}
	return r.models[i], nil
}

// List returns a copy of the registry contents.
func (r *Registry) List() []types.Model {
	out := make([]types.Model, len(r.models))
	copy(out, r.models)
	return out
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
