package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"inferd/internal/backend"
	"inferd/internal/pool"
	"inferd/internal/prompt"
	"inferd/pkg/types"
)

// generationResult accumulates one backend generation.
type generationResult struct {
	content   strings.Builder
	toolCalls []types.ChatToolCall
	info      *backend.CompletionInfo
}

func (g *generationResult) finishReason() string {
	if len(g.toolCalls) > 0 {
		return "tool_calls"
	}
	return "stop"
}

func (g *generationResult) usage() *types.ChatUsage {
	if g.info == nil {
		return nil
	}
	u := &types.ChatUsage{
		PromptTokens:     g.info.PromptTokens,
		CompletionTokens: g.info.CompletionTokens,
		TotalTokens:      g.info.PromptTokens + g.info.CompletionTokens,
		TotalDurationMS:  g.info.Duration.Milliseconds(),
	}
	if secs := g.info.Duration.Seconds(); secs > 0 {
		u.TokensPerSecond = float64(g.info.CompletionTokens) / secs
	}
	return u
}

func handleChatCompletions(svc Service, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ChatCompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		if err == errUnsupportedMedia {
			writeError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "unsupported_media_type", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "invalid JSON body")
		return
	}
	modelName := req.Model
	if modelName == "" {
		modelName = defaultModel
	}
	if modelName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "model is required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "messages is required and must not be empty")
		return
	}
	msgs, err := toPromptMessages(req.Messages)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	mdl, err := svc.Resolve(modelName)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if mdl.Kind != types.KindLLM && mdl.Kind != types.KindVLM {
		writeMappedError(w, pool.ErrUnknownKind(mdl.ID, string(mdl.Kind)))
		return
	}
	tools := toToolSpecs(req.Tools)
	params := toGenParams(&req, tools)

	completionID := "chatcmpl-" + uuid.NewString()
	created := nowFunc().Unix()
	start := nowFunc()

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	if req.Stream {
		streamChatCompletion(ctx, svc, w, mdl, msgs, tools, params, completionID, created)
		logRequestEnd(r, mdl.ID, http.StatusOK, start, nil)
		return
	}

	var res generationResult
	err = svc.Run(ctx, mdl.ID, mdl.Kind, func(h backend.Handle) error {
		return generate(ctx, h, msgs, tools, params, func(ev backend.Event) error {
			collect(&res, ev)
			return nil
		})
	})
	if err != nil {
		status, _ := mapError(err)
		logRequestEnd(r, mdl.ID, status, start, err)
		writeMappedError(w, err)
		return
	}
	logRequestEnd(r, mdl.ID, http.StatusOK, start, nil)

	finish := res.finishReason()
	msg := &types.ChatMessage{Role: "assistant", Content: res.content.String()}
	if len(res.toolCalls) > 0 {
		msg.ToolCalls = res.toolCalls
	}
	resp := types.ChatCompletionResponse{
		ID:      completionID,
		Object:  "chat.completion",
		Created: created,
		Model:   mdl.ID,
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: &finish,
		}},
		Usage: res.usage(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// generate runs one pooled generation: trim to the context window, prepare,
// then forward every event to sink. Returns the first backend error.
func generate(ctx context.Context, h backend.Handle, msgs []prompt.Message, tools []backend.ToolSpec, params backend.GenParams, sink func(backend.Event) error) error {
	th, ok := h.(backend.TextHandle)
	if !ok {
		return backend.ErrDependencyUnavailable("model runtime does not serve chat completions")
	}
	tok := th.Tokenizer()
	overhead := 0
	if len(tools) > 0 {
		overhead = len(tok.Encode(backend.ToolPrompt(tools)))
	}
	trimmed, err := prompt.ShrinkToFit(msgs, overhead, th.ContextWindow(), tok)
	if err != nil {
		return err
	}
	in, err := th.Prepare(ctx, trimmed, tools)
	if err != nil {
		return backend.ErrInvocation(err)
	}
	events, err := th.Generate(ctx, in, params)
	if err != nil {
		return backend.ErrInvocation(err)
	}
	for ev := range events {
		if ev.Type == backend.EventError {
			return backend.ErrInvocation(ev.Err)
		}
		if err := sink(ev); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func collect(res *generationResult, ev backend.Event) {
	switch ev.Type {
	case backend.EventChunk:
		res.content.WriteString(ev.Chunk)
	case backend.EventToolCall:
		res.toolCalls = append(res.toolCalls, wireToolCall(ev.ToolCall))
	case backend.EventInfo:
		res.info = ev.Info
	}
}

func wireToolCall(tc *backend.ToolCall) types.ChatToolCall {
	return types.ChatToolCall{
		ID:   "call_" + uuid.NewString(),
		Type: "function",
		Function: types.ChatFunctionCall{
			Name:      tc.Name,
			Arguments: tc.Arguments,
		},
	}
}

func streamChatCompletion(ctx context.Context, svc Service, w http.ResponseWriter, mdl types.Model, msgs []prompt.Message, tools []backend.ToolSpec, params backend.GenParams, completionID string, created int64) {
	sse := newSSEWriter(w)
	chunk := func(choice types.ChatChoice, usage *types.ChatUsage, apiErr *types.APIError) types.ChatCompletionChunk {
		return types.ChatCompletionChunk{
			ID:      completionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   mdl.ID,
			Choices: []types.ChatChoice{choice},
			Usage:   usage,
			Error:   apiErr,
		}
	}

	// Opening delta announces the assistant role.
	_ = sse.Send(chunk(types.ChatChoice{Index: 0, Delta: &types.DeltaMessage{Role: "assistant"}}, nil, nil))

	var res generationResult
	err := svc.Run(ctx, mdl.ID, mdl.Kind, func(h backend.Handle) error {
		return generate(ctx, h, msgs, tools, params, func(ev backend.Event) error {
			switch ev.Type {
			case backend.EventChunk:
				res.content.WriteString(ev.Chunk)
				return sse.Send(chunk(types.ChatChoice{Index: 0, Delta: &types.DeltaMessage{Content: ev.Chunk}}, nil, nil))
			case backend.EventToolCall:
				tc := wireToolCall(ev.ToolCall)
				res.toolCalls = append(res.toolCalls, tc)
				return sse.Send(chunk(types.ChatChoice{Index: 0, Delta: &types.DeltaMessage{ToolCalls: []types.ChatToolCall{tc}}}, nil, nil))
			case backend.EventInfo:
				res.info = ev.Info
			}
			return nil
		})
	})
	if err != nil {
		// The 200 status line is already on the wire; surface the failure
		// in-band and terminate the stream.
		_, apiErr := mapError(err)
		reason := "error"
		_ = sse.Send(chunk(types.ChatChoice{Index: 0, Delta: &types.DeltaMessage{}, FinishReason: &reason}, nil, &apiErr))
		sse.Done()
		return
	}

	finish := res.finishReason()
	_ = sse.Send(chunk(types.ChatChoice{Index: 0, Delta: &types.DeltaMessage{}, FinishReason: &finish}, res.usage(), nil))
	sse.Done()
}

