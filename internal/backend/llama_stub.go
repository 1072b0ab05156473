//go:build !llama

package backend

// This file provides a no-CGO stub for the llama backend. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real backend lives in llama.go (tagged 'llama').

import (
	"context"

	"inferd/pkg/types"
)

var llamaBuilt = false

type llamaBackend struct {
	opts Options
}

// NewLlama returns a backend that refuses to load models without the
// 'llama' build tag. This avoids any mocked behavior in production binaries
// built without CGO support.
func NewLlama(opts Options) Backend {
	return &llamaBackend{opts: opts.withDefaults()}
}

func (b *llamaBackend) Load(ctx context.Context, model types.Model) (Handle, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (b *llamaBackend) ReleaseMemory() {}
