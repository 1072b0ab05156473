package backend

import (
	"strings"

	json "github.com/goccy/go-json"
)

const (
	toolOpen  = "<tool_call>"
	toolClose = "</tool_call>"
)

// toolScanner separates plain text from inline tool-call markup in a
// generation stream. Models trained on Hermes-style function calling emit
// <tool_call>{"name":...,"arguments":{...}}</tool_call> blocks in-band; the
// scanner holds back text that might open a marker so callers never see a
// half-emitted tag.
type toolScanner struct {
	pending strings.Builder
	inCall  bool
}

// feed consumes a text delta and returns the plain text that is safe to
// emit plus any tool calls completed by this delta.
func (t *toolScanner) feed(delta string) (string, []ToolCall) {
	t.pending.WriteString(delta)
	var out strings.Builder
	var calls []ToolCall
	for {
		buf := t.pending.String()
		if t.inCall {
			end := strings.Index(buf, toolClose)
			if end < 0 {
				return out.String(), calls
			}
			if tc, ok := parseToolCall(buf[:end]); ok {
				calls = append(calls, tc)
			}
			t.pending.Reset()
			t.pending.WriteString(buf[end+len(toolClose):])
			t.inCall = false
			continue
		}
		start := strings.Index(buf, toolOpen)
		if start >= 0 {
			out.WriteString(buf[:start])
			t.pending.Reset()
			t.pending.WriteString(buf[start+len(toolOpen):])
			t.inCall = true
			continue
		}
		// Emit everything except a trailing prefix of the open marker.
		hold := markerPrefixLen(buf, toolOpen)
		out.WriteString(buf[:len(buf)-hold])
		t.pending.Reset()
		t.pending.WriteString(buf[len(buf)-hold:])
		return out.String(), calls
	}
}

// flush drains whatever is buffered. An unterminated tool block is returned
// as plain text rather than dropped.
func (t *toolScanner) flush() (string, []ToolCall) {
	buf := t.pending.String()
	t.pending.Reset()
	if t.inCall {
		t.inCall = false
		return toolOpen + buf, nil
	}
	return buf, nil
}

// markerPrefixLen is the length of the longest suffix of buf that is a
// proper prefix of marker.
func markerPrefixLen(buf, marker string) int {
	max := len(marker) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(marker, buf[len(buf)-n:]) {
			return n
		}
	}
	return 0
}

func parseToolCall(body string) (ToolCall, bool) {
	var raw struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil || raw.Name == "" {
		return ToolCall{}, false
	}
	args := strings.TrimSpace(string(raw.Arguments))
	if args == "" {
		args = "{}"
	}
	return ToolCall{Name: raw.Name, Arguments: args}, true
}
