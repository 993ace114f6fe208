package api

import "time"

type (
	// CreateDeploymentRequest contains parameters for creating a deployment
	CreateDeploymentRequest struct {
		BlueprintID BlueprintID `json:"blueprint_id"`
	}

	// ExecuteWorkflowRequest contains parameters for starting a workflow
	// execution against a deployment
	ExecuteWorkflowRequest struct {
		WorkflowID WorkflowID `json:"workflow_id"`
		Parameters Params     `json:"parameters,omitempty"`
	}

	// ModifyExecutionRequest applies an action to a running execution.
	// Legal actions are "cancel" and "force-cancel"
	ModifyExecutionRequest struct {
		Action string `json:"action"`
	}

	// UpdateExecutionRequest updates an execution's status. If Error is
	// omitted the stored error text is cleared
	UpdateExecutionRequest struct {
		Status ExecutionStatus `json:"status"`
		Error  string          `json:"error,omitempty"`
	}

	// UpdateInstanceRequest updates a node instance under optimistic
	// locking. Version is required and must match the stored version;
	// RuntimeProperties and State are applied only when present
	UpdateInstanceRequest struct {
		Version           *int   `json:"version"`
		RuntimeProperties Params `json:"runtime_properties,omitempty"`
		State             string `json:"state,omitempty"`
	}

	// PutProviderContextRequest creates the provider context record
	PutProviderContextRequest struct {
		Name    string `json:"name"`
		Context Params `json:"context"`
	}

	// WorkflowInfo describes a workflow in a deployment's workflow listing.
	// CreatedAt is always absent: workflow listings carry no
	// execution-history correlation
	WorkflowInfo struct {
		Name      WorkflowID `json:"name"`
		CreatedAt *time.Time `json:"created_at"`
	}

	// WorkflowsListResponse lists the workflows a deployment's plan declares
	WorkflowsListResponse struct {
		Workflows    []WorkflowInfo `json:"workflows"`
		BlueprintID  BlueprintID    `json:"blueprint_id"`
		DeploymentID DeploymentID   `json:"deployment_id"`
	}

	// BlueprintsListResponse contains a list of published blueprints
	BlueprintsListResponse struct {
		Blueprints []*Blueprint `json:"blueprints"`
		Count      int          `json:"count"`
	}

	// DeploymentsListResponse contains a list of deployments
	DeploymentsListResponse struct {
		Deployments []*Deployment `json:"deployments"`
		Count       int           `json:"count"`
	}

	// ExecutionsListResponse contains a list of executions
	ExecutionsListResponse struct {
		Executions []*Execution `json:"executions"`
		Count      int          `json:"count"`
	}

	// NodesListResponse contains a list of node templates
	NodesListResponse struct {
		Nodes []*Node `json:"nodes"`
		Count int     `json:"count"`
	}

	// InstancesListResponse contains a list of node instances
	InstancesListResponse struct {
		Instances []*NodeInstance `json:"node_instances"`
		Count     int             `json:"count"`
	}

	// StatusResponse reports the state of system services
	StatusResponse struct {
		Status   string          `json:"status"`
		Services []ServiceStatus `json:"services"`
	}

	// ServiceStatus is a single probed service in a status report
	ServiceStatus struct {
		DisplayName string `json:"display_name"`
		State       string `json:"state"`
	}

	// ProviderContextCreatedResponse acknowledges provider context creation
	ProviderContextCreatedResponse struct {
		Status string `json:"status"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// SubscribeRequest is a WebSocket message from a client requesting event
	// subscriptions
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription selects the events a WebSocket client receives.
	// Empty fields match everything
	ClientSubscription struct {
		EventTypes   []string     `json:"event_types,omitempty"`
		DeploymentID DeploymentID `json:"deployment_id,omitempty"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Message   string    `json:"message"`
		ErrorCode ErrorCode `json:"error_code"`
		Status    int       `json:"status,omitempty"`
	}
)
