package backend

import (
	"context"
	"time"

	"inferd/internal/prompt"
	"inferd/pkg/types"
)

// Backend constructs runtime handles for registry models. One Backend serves
// every model kind; Load dispatches on model.Kind. Handles are expensive and
// are owned by the pool once returned.
type Backend interface {
	// Load constructs a handle for the given model. It must respect ctx
	// cancellation; a canceled load leaves no residual runtime state.
	Load(ctx context.Context, model types.Model) (Handle, error)
	// ReleaseMemory asks the runtime to drop accelerator caches. Best
	// effort; invoked after evictions and on Clear.
	ReleaseMemory()
}

// Handle is a loaded model runtime. Kind-specific capabilities are exposed
// through the TextHandle, EmbedHandle and AudioHandle extensions.
type Handle interface {
	Model() types.Model
	Close() error
}

// TokenizedPrompt is prepared generation input.
type TokenizedPrompt struct {
	Tokens []int
	// Rendered chat-template text, for runtimes that encode internally.
	Text string
}

// ToolSpec is the backend-side form of an OpenAI tool declaration.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  any
}

// GenParams captures sampling parameters for one generation.
type GenParams struct {
	Temperature float32
	TopP        float32
	TopK        int
	MaxTokens   int
	Stop        []string
	Seed        int64
	Tools       []ToolSpec
}

// EventType tags a generation stream event.
type EventType int

const (
	EventChunk EventType = iota
	EventToolCall
	EventInfo
	EventError
)

// ToolCall is a model-emitted function invocation.
type ToolCall struct {
	Name      string
	Arguments string // JSON-encoded arguments
}

// CompletionInfo is the terminal accounting event of a generation.
type CompletionInfo struct {
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
}

// Event is one element of the generation stream: exactly one of the payload
// fields is set according to Type. The stream is finite and not restartable.
// On success an Info event is last; on failure an Error event is last. The
// channel is closed after the terminal event either way.
type Event struct {
	Type     EventType
	Chunk    string
	ToolCall *ToolCall
	Info     *CompletionInfo
	Err      error
}

// Tokenizer exposes the encode/decode surface needed by prompt trimming and
// streaming detokenization. Implementations wrap the runtime's vocabulary.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
	// Conversation estimates the token cost of a whole chat, using the
	// model's chat template when available.
	Conversation(msgs []prompt.Message) int
}

// TextHandle serves chat completion models (kinds llm and vlm).
type TextHandle interface {
	Handle
	// Prepare renders and tokenizes the chat for generation.
	Prepare(ctx context.Context, msgs []prompt.Message, tools []ToolSpec) (TokenizedPrompt, error)
	// Generate runs one completion. Callers must drain the returned
	// channel; it is closed after the terminal Info or Error event.
	Generate(ctx context.Context, in TokenizedPrompt, p GenParams) (<-chan Event, error)
	Tokenizer() Tokenizer
	// ContextWindow is the model context size in tokens; 0 if unknown.
	ContextWindow() int
}

// EmbedHandle serves embedding models.
type EmbedHandle interface {
	Handle
	Embed(ctx context.Context, inputs []string) ([][]float32, int, error)
}

// Transcription is the result of a speech-to-text invocation.
type Transcription struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

// Segment is one timestamped span of a transcription.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// TranscribeOptions carries optional decode hints.
type TranscribeOptions struct {
	Language    string
	Temperature float32
}

// AudioHandle serves speech-to-text models.
type AudioHandle interface {
	Handle
	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (Transcription, error)
}

// SpeechHandle serves text-to-speech models.
type SpeechHandle interface {
	Handle
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
}
