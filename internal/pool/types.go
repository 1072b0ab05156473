package pool

import (
	"context"
	"time"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// entry is one cached handle plus its usage record. The usage record is
// created when the handle is first cached, touched on every successful
// acquisition and deleted together with the entry.
type entry struct {
	handle   backend.Handle
	model    types.Model
	loadedAt time.Time
	lastUsed time.Time
	useCount int64
}

// doomedEntry is a cache entry removed while its key had an execution in
// flight. The close is deferred to Release so the runtime is never freed
// under a running invocation.
type doomedEntry struct {
	e      *entry
	reason string
}

// pendingLoad is the single in-flight construction task for a model key.
// done is closed exactly once when the load settles; handle and err are
// written before the close and immutable afterwards. cancel aborts the
// load context on Remove/Clear.
type pendingLoad struct {
	done   chan struct{}
	cancel context.CancelFunc
	handle backend.Handle
	err    error
}
