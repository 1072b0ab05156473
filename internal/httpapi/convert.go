package httpapi

import (
	json "github.com/goccy/go-json"

	"inferd/internal/backend"
	"inferd/internal/prompt"
	"inferd/pkg/types"
)

// toPromptMessages converts wire messages into backend-neutral form.
// Content is a plain string or an array of typed parts; image and video
// parts become media attachments, which also marks the message protected.
func toPromptMessages(msgs []types.ChatMessage) ([]prompt.Message, error) {
	out := make([]prompt.Message, 0, len(msgs))
	for _, m := range msgs {
		role, err := prompt.ParseRole(m.Role)
		if err != nil {
			return nil, err
		}
		pm := prompt.Message{Role: role}

		switch content := m.Content.(type) {
		case string:
			pm.Text = content
		case nil:
			// Assistant tool-call turns carry no content.
		case []any:
			for _, raw := range content {
				part, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				switch part["type"] {
				case "text":
					if t, ok := part["text"].(string); ok {
						if pm.Text != "" {
							pm.Text += "\n"
						}
						pm.Text += t
					}
				case "image_url":
					if u := mediaURL(part["image_url"]); u != "" {
						pm.Media = append(pm.Media, prompt.Media{Kind: prompt.MediaImage, URL: u})
					}
				case "video_url":
					if u := mediaURL(part["video_url"]); u != "" {
						pm.Media = append(pm.Media, prompt.Media{Kind: prompt.MediaVideo, URL: u})
					}
				}
			}
		default:
			// Unknown structured content: serialize rather than reject,
			// matching permissive upstream behavior.
			if b, err := json.Marshal(content); err == nil {
				pm.Text = string(b)
			}
		}

		// Tool result turns keep their text only; the tool role already
		// protects them from trimming.
		out = append(out, pm)
	}
	return out, nil
}

func mediaURL(v any) string {
	switch u := v.(type) {
	case string:
		return u
	case map[string]any:
		if s, ok := u["url"].(string); ok {
			return s
		}
	}
	return ""
}

// toToolSpecs passes wire tool declarations through to the backend form.
func toToolSpecs(tools []types.ChatTool) []backend.ToolSpec {
	if len(tools) == 0 {
		return nil
	}
	out := make([]backend.ToolSpec, 0, len(tools))
	for _, t := range tools {
		out = append(out, backend.ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return out
}

// toGenParams maps request sampling fields onto backend parameters.
func toGenParams(req *types.ChatCompletionRequest, tools []backend.ToolSpec) backend.GenParams {
	p := backend.GenParams{Stop: req.Stop, Tools: tools}
	if req.Temperature != nil {
		p.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		p.TopP = float32(*req.TopP)
	}
	if req.TopK != nil {
		p.TopK = *req.TopK
	}
	if req.MaxTokens != nil {
		p.MaxTokens = *req.MaxTokens
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	return p
}
