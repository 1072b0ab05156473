package backend

import (
	"strings"

	json "github.com/goccy/go-json"

	"inferd/internal/prompt"
)

// ToolPrompt renders the system preamble declaring tools, or "" when none
// are given. It is exported so the protocol layer can charge its token cost
// against the context budget before trimming.
func ToolPrompt(tools []ToolSpec) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<|im_start|>system\n")
	b.WriteString("You may call one of the following tools by replying with ")
	b.WriteString(toolOpen)
	b.WriteString(`{"name": <name>, "arguments": <args>}`)
	b.WriteString(toolClose)
	b.WriteString(".\nAvailable tools:\n")
	for _, t := range tools {
		spec, _ := json.Marshal(map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		})
		b.Write(spec)
		b.WriteByte('\n')
	}
	b.WriteString("<|im_end|>\n")
	return b.String()
}

// renderChat flattens a conversation into ChatML text and leaves the
// assistant turn open for generation. When tools are declared, the tool
// preamble is prepended so function-calling models emit <tool_call> blocks.
func renderChat(msgs []prompt.Message, tools []ToolSpec) string {
	var b strings.Builder
	b.WriteString(ToolPrompt(tools))
	for _, m := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(string(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Text)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}
