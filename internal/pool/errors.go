package pool

// tooBusyError signals admission timeout for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// ErrTooBusy constructs a tooBusyError. Exposed so service facades can
// report backpressure of their own through the same taxonomy.
func ErrTooBusy(modelID string) error { return tooBusyError{modelID: modelID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// modelNotFoundError signals a name that resolves to no registry entry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error for a model name absent from the registry.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// unknownKindError signals a model whose kind does not match the requested
// operation (e.g. chat completion against an embedding model).
type unknownKindError struct {
	id   string
	kind string
}

func (e unknownKindError) Error() string {
	return "model " + e.id + " does not serve kind " + e.kind
}

// ErrUnknownKind constructs an unknownKindError.
func ErrUnknownKind(id, kind string) error { return unknownKindError{id: id, kind: kind} }

// IsUnknownKind reports whether err indicates a model/kind mismatch.
func IsUnknownKind(err error) bool {
	_, ok := err.(unknownKindError)
	return ok
}

// loadFailedError wraps a backend construction failure. It is surfaced to
// every waiter of the failed single-flight load.
type loadFailedError struct {
	id  string
	err error
}

func (e loadFailedError) Error() string { return "load failed for " + e.id + ": " + e.err.Error() }
func (e loadFailedError) Unwrap() error { return e.err }

// ErrLoadFailed wraps err as a failed load of the given model.
func ErrLoadFailed(id string, err error) error { return loadFailedError{id: id, err: err} }

// IsLoadFailed reports whether err wraps a failed handle construction.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadFailedError)
	return ok
}
