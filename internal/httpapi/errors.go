package httpapi

import (
	"net/http"

	"inferd/internal/backend"
	"inferd/internal/pool"
	"inferd/internal/prompt"
	"inferd/pkg/types"
)

// writeError writes the OpenAI-style error envelope.
func writeError(w http.ResponseWriter, status int, errType, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: types.APIError{
		Message: msg,
		Type:    errType,
		Code:    code,
	}})
}

// mapError classifies a service error onto an HTTP status and error body.
// The taxonomy is closed; anything unrecognized is a 500 server_error.
func mapError(err error) (int, types.APIError) {
	switch {
	case pool.IsModelNotFound(err):
		return http.StatusNotFound, types.APIError{Message: err.Error(), Type: "invalid_request_error", Code: "model_not_found"}
	case pool.IsUnknownKind(err):
		return http.StatusBadRequest, types.APIError{Message: err.Error(), Type: "invalid_request_error", Code: "unknown_model_kind"}
	case pool.IsTooBusy(err):
		return http.StatusTooManyRequests, types.APIError{Message: err.Error(), Type: "server_error", Code: "too_busy"}
	case prompt.IsInvalidRole(err):
		return http.StatusBadRequest, types.APIError{Message: err.Error(), Type: "invalid_request_error", Code: "invalid_role"}
	case prompt.IsContextLimitExceeded(err):
		return http.StatusBadRequest, types.APIError{Message: err.Error(), Type: "invalid_request_error", Code: "context_length_exceeded"}
	case backend.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable, types.APIError{Message: err.Error(), Type: "server_error", Code: "dependency_unavailable"}
	case pool.IsLoadFailed(err):
		return http.StatusInternalServerError, types.APIError{Message: err.Error(), Type: "server_error", Code: "load_failed"}
	case backend.IsInvocationFailed(err):
		return http.StatusInternalServerError, types.APIError{Message: err.Error(), Type: "server_error", Code: "backend_error"}
	default:
		return http.StatusInternalServerError, types.APIError{Message: err.Error(), Type: "server_error"}
	}
}

// writeMappedError maps err and writes the envelope.
func writeMappedError(w http.ResponseWriter, err error) {
	status, apiErr := mapError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure(apiErr.Code)
	}
	writeJSON(w, status, types.ErrorResponse{Error: apiErr})
}
