package api

import "time"

type (
	// Params represents a free-form map of named values attached to plans,
	// node properties, and workflow parameters
	Params map[string]any

	// ExecutionStatus represents the current state of a workflow execution
	ExecutionStatus string

	// Blueprint is an uploaded, parsed declarative topology template.
	// Immutable after publish except for timestamps
	Blueprint struct {
		ID        BlueprintID `json:"id"`
		Plan      *Plan       `json:"plan"`
		CreatedAt time.Time   `json:"created_at"`
		UpdatedAt time.Time   `json:"updated_at"`
	}

	// Deployment is a live instantiation of a blueprint. Plan is the
	// materialized copy taken from the blueprint at creation time
	Deployment struct {
		ID          DeploymentID `json:"id"`
		BlueprintID BlueprintID  `json:"blueprint_id"`
		Plan        *Plan        `json:"plan"`
		CreatedAt   time.Time    `json:"created_at"`
		UpdatedAt   time.Time    `json:"updated_at"`
	}

	// Node is the declarative template a deployment materializes instances
	// from
	Node struct {
		ID            NodeID         `json:"id"`
		DeploymentID  DeploymentID   `json:"deployment_id"`
		BlueprintID   BlueprintID    `json:"blueprint_id"`
		Type          string         `json:"type"`
		NumInstances  int            `json:"number_of_instances"`
		HostID        NodeID         `json:"host_id,omitempty"`
		Properties    Params         `json:"properties,omitempty"`
		Relationships []Relationship `json:"relationships,omitempty"`
	}

	// NodeInstance is a runtime-materialized unit of a node template.
	// Version is the optimistic concurrency stamp: every mutating update
	// must present the version it read
	NodeInstance struct {
		ID                InstanceID             `json:"id"`
		NodeID            NodeID                 `json:"node_id"`
		DeploymentID      DeploymentID           `json:"deployment_id"`
		HostID            InstanceID             `json:"host_id,omitempty"`
		State             string                 `json:"state"`
		Version           int                    `json:"version"`
		RuntimeProperties Params                 `json:"runtime_properties,omitempty"`
		Relationships     []InstanceRelationship `json:"relationships,omitempty"`
	}

	// Relationship references another node template from a node template
	Relationship struct {
		Type       string `json:"type"`
		TargetID   NodeID `json:"target_id"`
		Properties Params `json:"properties,omitempty"`
	}

	// InstanceRelationship references another node instance
	InstanceRelationship struct {
		Type     string     `json:"type"`
		TargetID InstanceID `json:"target_id"`
	}

	// Execution is a single run of a named workflow against a deployment
	Execution struct {
		ID           ExecutionID     `json:"id"`
		DeploymentID DeploymentID    `json:"deployment_id"`
		BlueprintID  BlueprintID     `json:"blueprint_id"`
		WorkflowID   WorkflowID      `json:"workflow_id"`
		Status       ExecutionStatus `json:"status"`
		Error        string          `json:"error,omitempty"`
		Parameters   Params          `json:"parameters,omitempty"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	// ProviderContext is the singleton installation record created exactly
	// once per installation
	ProviderContext struct {
		Name    string `json:"name"`
		Context Params `json:"context"`
	}
)

const (
	ExecutionPending    ExecutionStatus = "pending"
	ExecutionRunning    ExecutionStatus = "running"
	ExecutionCancelling ExecutionStatus = "cancelling"
	ExecutionCancelled  ExecutionStatus = "cancelled"
	ExecutionFailed     ExecutionStatus = "failed"
	ExecutionTerminated ExecutionStatus = "terminated"
)

// NodeInstance states with no live resources behind them. Everything else
// counts as live for deletion preconditions
const (
	InstanceUninitialized = "uninitialized"
	InstanceDeleted       = "deleted"
)

// IsTerminal returns true when the status admits no further transitions
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionCancelled, ExecutionFailed, ExecutionTerminated:
		return true
	}
	return false
}

// IsLive reports whether a node instance holds live resources
func (n *NodeInstance) IsLive() bool {
	return n.State != InstanceUninitialized && n.State != InstanceDeleted
}
