// Package events provides the lifecycle event fan-out and the searchable
// event index
//
// Events are published to a Redis channel for live consumers (the WebSocket
// feed) and appended to a Redis-backed index for query pass-through
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/log"
)

type (
	// EventType classifies lifecycle events
	EventType string

	// Event is a single lifecycle event record
	Event struct {
		Type         EventType        `json:"type"`
		Timestamp    time.Time        `json:"timestamp"`
		BlueprintID  api.BlueprintID  `json:"blueprint_id,omitempty"`
		DeploymentID api.DeploymentID `json:"deployment_id,omitempty"`
		ExecutionID  api.ExecutionID  `json:"execution_id,omitempty"`
		WorkflowID   api.WorkflowID   `json:"workflow_id,omitempty"`
		Status       string           `json:"status,omitempty"`
		Message      string           `json:"message,omitempty"`
	}

	// Bus couples the live hub with the durable index. Emission failures
	// are logged, never surfaced: lifecycle operations do not fail because
	// an event could not be recorded
	Bus struct {
		hub   *Hub
		index *Index
	}
)

const (
	BlueprintPublished EventType = "blueprint.published"
	BlueprintDeleted   EventType = "blueprint.deleted"
	DeploymentCreated  EventType = "deployment.created"
	DeploymentDeleted  EventType = "deployment.deleted"
	ExecutionStarted   EventType = "execution.started"
	ExecutionStatus    EventType = "execution.status"
)

const (
	// EventsIndex is the index name lifecycle events are appended to
	EventsIndex = "events"

	// StorageIndex is the index name entity snapshots are appended to for
	// the search pass-through
	StorageIndex = "storage"
)

// NewBus creates a bus over the given hub and index
func NewBus(hub *Hub, index *Index) *Bus {
	return &Bus{
		hub:   hub,
		index: index,
	}
}

// Emit stamps, publishes, and indexes an event
func (b *Bus) Emit(ctx context.Context, ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := b.hub.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish event",
			slog.String("type", string(ev.Type)),
			log.Error(err))
	}
	if err := b.index.Append(ctx, EventsIndex, ev); err != nil {
		slog.Warn("Failed to index event",
			slog.String("type", string(ev.Type)),
			log.Error(err))
	}
}

// Record appends an entity snapshot to the search index. Failures are
// logged, never surfaced
func (b *Bus) Record(ctx context.Context, record any) {
	if err := b.index.Append(ctx, StorageIndex, record); err != nil {
		slog.Warn("Failed to index record", log.Error(err))
	}
}
