// Package runner provides the in-process reference implementation of the
// workflow execution engine collaborator
package runner

import (
	"context"
	"sync"

	"github.com/orchestra-dev/orchestra/internal/store"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/util"
)

// Local dispatches executions in-process. It transitions accepted
// executions to running; completion and cancellation acknowledgements
// arrive later through the execution status callback, as they would from
// a remote engine
type Local struct {
	storage   store.Storage
	mu        sync.Mutex
	started   util.Set[api.ExecutionID]
	cancelled util.Set[api.ExecutionID]
}

// NewLocal creates a local execution engine over the given storage
func NewLocal(storage store.Storage) *Local {
	return &Local{
		storage:   storage,
		started:   util.Set[api.ExecutionID]{},
		cancelled: util.Set[api.ExecutionID]{},
	}
}

// Start accepts a pending execution and marks it running
func (l *Local) Start(ctx context.Context, execution *api.Execution) error {
	l.mu.Lock()
	l.started.Add(execution.ID)
	l.mu.Unlock()

	_, err := l.storage.UpdateExecutionStatus(
		ctx, execution.ID, api.ExecutionRunning, "")
	return err
}

// RequestCancel records a cancellation request. The lifecycle manager owns
// the resulting status transition
func (l *Local) RequestCancel(
	_ context.Context, id api.ExecutionID, _ bool,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelled.Add(id)
	return nil
}

// Started reports whether the execution was dispatched
func (l *Local) Started(id api.ExecutionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started.Contains(id)
}

// CancelRequested reports whether cancellation was requested
func (l *Local) CancelRequested(id api.ExecutionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelled.Contains(id)
}
