//go:build llama

package backend

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"

	"inferd/internal/detok"
	"inferd/internal/prompt"
	"inferd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

type llamaBackend struct {
	opts Options
}

// NewLlama returns the in-process llama.cpp backend.
func NewLlama(opts Options) Backend {
	return &llamaBackend{opts: opts.withDefaults()}
}

func (b *llamaBackend) Load(ctx context.Context, model types.Model) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch model.Kind {
	case types.KindLLM, types.KindVLM:
		m, err := b.open(model.Path, false)
		if err != nil {
			return nil, ErrInvocation(err)
		}
		return &llamaTextHandle{model: model, m: m, opts: b.opts, vocab: &pieceTable{}}, nil
	case types.KindEmbedding:
		m, err := b.open(model.Path, true)
		if err != nil {
			return nil, ErrInvocation(err)
		}
		return &llamaEmbedHandle{model: model, m: m, opts: b.opts}, nil
	default:
		return nil, ErrDependencyUnavailable("no llama runtime for kind " + string(model.Kind))
	}
}

func (b *llamaBackend) open(path string, embeddings bool) (*llama.LLama, error) {
	threads := b.opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	mo := []llama.ModelOption{
		llama.SetContext(b.opts.CtxSize),
		llama.SetGPULayers(b.opts.GPULayers),
		llama.SetThreads(threads),
	}
	if embeddings {
		mo = append(mo, llama.EnableEmbeddings)
	}
	if b.opts.MLock {
		mo = append(mo, llama.EnableMLock)
	}
	if b.opts.MMap {
		mo = append(mo, llama.EnableMemoryMapping)
	}
	return llama.New(path, mo...)
}

// ReleaseMemory returns freed Go heap to the OS after an eviction. The
// weights themselves are released by llama.Free in Handle.Close.
func (b *llamaBackend) ReleaseMemory() {
	debug.FreeOSMemory()
}

// llamaTextHandle owns one loaded text model. Predict is not reentrant, so
// mu serializes generations on the same handle.
type llamaTextHandle struct {
	model types.Model
	m     *llama.LLama
	opts  Options
	vocab *pieceTable
	mu    sync.Mutex
}

func (h *llamaTextHandle) Model() types.Model { return h.model }

func (h *llamaTextHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m != nil {
		h.m.Free()
		h.m = nil
	}
	return nil
}

func (h *llamaTextHandle) ContextWindow() int { return h.opts.CtxSize }

func (h *llamaTextHandle) Tokenizer() Tokenizer {
	return &llamaTokenizer{h: h}
}

func (h *llamaTextHandle) Prepare(ctx context.Context, msgs []prompt.Message, tools []ToolSpec) (TokenizedPrompt, error) {
	if err := ctx.Err(); err != nil {
		return TokenizedPrompt{}, err
	}
	text := renderChat(msgs, tools)
	return TokenizedPrompt{Tokens: h.countIDs(text), Text: text}, nil
}

// countIDs tokenizes for accounting only; ids are synthetic placeholders
// sized to the real token count.
func (h *llamaTextHandle) countIDs(text string) []int {
	n := h.count(text)
	return make([]int, n)
}

func (h *llamaTextHandle) count(text string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		return approxTokens(text)
	}
	n, _, err := h.m.TokenizeString(text, llama.SetTokens(h.opts.CtxSize))
	if err != nil || n <= 0 {
		return approxTokens(text)
	}
	return int(n)
}

func (h *llamaTextHandle) Generate(ctx context.Context, in TokenizedPrompt, p GenParams) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.m == nil {
			out <- Event{Type: EventError, Err: ErrInvocation(context.Canceled)}
			return
		}

		start := time.Now()
		det := detok.New(h.vocab.Decode)
		var scan toolScanner
		completion := 0
		emit := func(text string, calls []ToolCall) {
			if text != "" {
				out <- Event{Type: EventChunk, Chunk: text}
			}
			for i := range calls {
				tc := calls[i]
				out <- Event{Type: EventToolCall, ToolCall: &tc}
			}
		}

		h.m.SetTokenCallback(func(tok string) bool {
			select {
			case <-ctx.Done():
				return false
			default:
			}
			completion++
			delta, ok := det.Append(h.vocab.add(tok))
			if !ok {
				return true
			}
			emit(scan.feed(delta))
			return true
		})

		_, err := h.m.Predict(in.Text, predictOptions(p, h.opts)...)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			} else {
				err = ErrInvocation(err)
			}
			out <- Event{Type: EventError, Err: err}
			return
		}
		emit(scan.feed(det.Flush()))
		emit(scan.flush())
		out <- Event{Type: EventInfo, Info: &CompletionInfo{
			PromptTokens:     len(in.Tokens),
			CompletionTokens: completion,
			Duration:         time.Since(start),
		}}
	}()
	return out, nil
}

func predictOptions(p GenParams, opts Options) []llama.PredictOption {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = opts.CtxSize
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(threads),
		llama.SetTopP(nzf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(nzi(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(nzf(p.Temperature, llama.DefaultOptions.Temperature)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(int(p.Seed)))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}

func nzi(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func nzf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// llamaTokenizer counts with the real vocabulary but cuts on word pieces,
// since llama.cpp exposes no piece-level detokenize through these bindings.
// Trimming only needs consistent cut points; the budget checks go through
// Conversation, which uses real counts.
type llamaTokenizer struct {
	h *llamaTextHandle
}

func (t *llamaTokenizer) Encode(text string) []int {
	pieces := splitPieces(text)
	ids := make([]int, len(pieces))
	for i, p := range pieces {
		ids[i] = t.h.vocab.add(p)
	}
	return ids
}

func (t *llamaTokenizer) Decode(ids []int) string { return t.h.vocab.Decode(ids) }

func (t *llamaTokenizer) Conversation(msgs []prompt.Message) int {
	total := t.h.count(renderChat(msgs, nil))
	for _, m := range msgs {
		total += prompt.DefaultMediaTokens * len(m.Media)
	}
	return total
}

// llamaEmbedHandle owns one loaded embedding model.
type llamaEmbedHandle struct {
	model types.Model
	m     *llama.LLama
	opts  Options
	mu    sync.Mutex
}

func (h *llamaEmbedHandle) Model() types.Model { return h.model }

func (h *llamaEmbedHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m != nil {
		h.m.Free()
		h.m = nil
	}
	return nil
}

func (h *llamaEmbedHandle) Embed(ctx context.Context, inputs []string) ([][]float32, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		return nil, 0, ErrInvocation(context.Canceled)
	}
	vectors := make([][]float32, len(inputs))
	tokens := 0
	for i, text := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		emb, err := h.m.Embeddings(text)
		if err != nil {
			return nil, 0, ErrInvocation(err)
		}
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		vectors[i] = vec
		if n, _, err := h.m.TokenizeString(text, llama.SetTokens(h.opts.CtxSize)); err == nil && n > 0 {
			tokens += int(n)
		} else {
			tokens += approxTokens(text)
		}
	}
	return vectors, tokens, nil
}
