package httpapi

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

// sseWriter serializes Server-Sent-Events frames onto an HTTP response,
// flushing after every event so token deltas reach the client promptly.
type sseWriter struct {
	w     io.Writer
	flush func()
}

// newSSEWriter writes the event-stream headers and returns the writer.
// A nil flush is tolerated for buffered test recorders.
func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Del("Content-Length")
	w.WriteHeader(http.StatusOK)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	return &sseWriter{w: w, flush: flush}
}

// Send marshals v as one `data:` frame.
func (s *sseWriter) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Done writes the terminating sentinel frame.
func (s *sseWriter) Done() {
	_, _ = io.WriteString(s.w, "data: [DONE]\n\n")
	s.flush()
}
