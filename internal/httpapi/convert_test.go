package httpapi

import (
	"testing"

	"inferd/internal/prompt"
	"inferd/pkg/types"
)

func TestToPromptMessagesPlain(t *testing.T) {
	in := []types.ChatMessage{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: nil},
		{Role: "tool", Content: "result"},
	}
	out, err := toPromptMessages(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("len=%d", len(out))
	}
	if out[0].Role != prompt.RoleSystem || out[0].Text != "rules" {
		t.Fatalf("system: %+v", out[0])
	}
	if out[2].Text != "" {
		t.Fatalf("nil content must convert to empty text: %+v", out[2])
	}
	if out[3].Role != prompt.RoleTool || !out[3].Protected() {
		t.Fatalf("tool turn: %+v", out[3])
	}
}

func TestToPromptMessagesMultimodal(t *testing.T) {
	in := []types.ChatMessage{{
		Role: "user",
		Content: []any{
			map[string]any{"type": "text", "text": "what is this?"},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://x/pic.png"}},
			map[string]any{"type": "text", "text": "be specific"},
			map[string]any{"type": "video_url", "video_url": "https://x/clip.mp4"},
		},
	}}
	out, err := toPromptMessages(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	m := out[0]
	if m.Text != "what is this?\nbe specific" {
		t.Fatalf("text parts joined wrong: %q", m.Text)
	}
	if len(m.Media) != 2 {
		t.Fatalf("media: %+v", m.Media)
	}
	if m.Media[0].Kind != prompt.MediaImage || m.Media[0].URL != "https://x/pic.png" {
		t.Fatalf("image: %+v", m.Media[0])
	}
	if m.Media[1].Kind != prompt.MediaVideo || m.Media[1].URL != "https://x/clip.mp4" {
		t.Fatalf("video: %+v", m.Media[1])
	}
	if !m.Protected() {
		t.Fatal("media message must be protected from trimming")
	}
}

func TestToPromptMessagesRejectsBadRole(t *testing.T) {
	_, err := toPromptMessages([]types.ChatMessage{{Role: "wizard", Content: "x"}})
	if !prompt.IsInvalidRole(err) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestToGenParams(t *testing.T) {
	temp := 0.7
	topP := 0.9
	topK := 40
	maxTok := 128
	seed := int64(7)
	req := &types.ChatCompletionRequest{
		Temperature: &temp,
		TopP:        &topP,
		TopK:        &topK,
		MaxTokens:   &maxTok,
		Seed:        &seed,
		Stop:        []string{"\n\n"},
	}
	p := toGenParams(req, nil)
	if p.Temperature != 0.7 || p.TopP != 0.9 || p.TopK != 40 {
		t.Fatalf("sampling: %+v", p)
	}
	if p.MaxTokens != 128 || p.Seed != 7 || len(p.Stop) != 1 {
		t.Fatalf("limits: %+v", p)
	}

	// Unset fields stay zero for backend defaults.
	p = toGenParams(&types.ChatCompletionRequest{}, nil)
	if p.Temperature != 0 || p.MaxTokens != 0 {
		t.Fatalf("zero values: %+v", p)
	}
}
