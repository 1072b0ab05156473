package backend

// Options configures the llama runtime. Zero values select sensible
// defaults at load time.
type Options struct {
	// CtxSize is the context window in tokens. Defaults to 4096.
	CtxSize int
	// Threads is the CPU thread count for inference. Defaults to the
	// number of logical CPUs.
	Threads int
	// GPULayers is how many layers to offload to the GPU. 0 keeps the
	// whole model on CPU.
	GPULayers int
	// MLock pins model weights in RAM.
	MLock bool
	// MMap memory-maps weights instead of reading them. Defaults on.
	MMap bool
}

// LlamaBuilt reports whether this binary was compiled with the llama runtime.
func LlamaBuilt() bool { return llamaBuilt }

func (o Options) withDefaults() Options {
	if o.CtxSize <= 0 {
		o.CtxSize = 4096
	}
	return o
}
