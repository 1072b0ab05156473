package httpapi

import (
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// nowFunc is a clock hook for deterministic tests.
var nowFunc = time.Now

// decodeJSON enforces the JSON content type and decodes the body.
func decodeJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return errUnsupportedMedia
	}
	return json.NewDecoder(r.Body).Decode(v)
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const errUnsupportedMedia = sentinelError("Content-Type must be application/json")

// writeJSON encodes v with the configured encoder and status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
