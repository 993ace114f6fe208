// Package store implements the durable storage engine contract over Redis
//
// Entities are stored as JSON values with set-based secondary indexes.
// "Insert fails if id exists" maps to SET NX; "update fails if version
// stale" maps to a WATCH/MULTI compare-and-swap
package store

import (
	"context"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

// Storage is the contract the ingestion pipeline and lifecycle manager
// consume. The core never caches entity state across requests; every read
// goes back to the engine
type Storage interface {
	InsertBlueprint(ctx context.Context, b *api.Blueprint) error
	GetBlueprint(ctx context.Context, id api.BlueprintID) (*api.Blueprint, error)
	ListBlueprints(ctx context.Context) ([]*api.Blueprint, error)
	DeleteBlueprint(ctx context.Context, id api.BlueprintID) error

	InsertDeployment(ctx context.Context, d *api.Deployment) error
	GetDeployment(ctx context.Context, id api.DeploymentID) (*api.Deployment, error)
	ListDeployments(ctx context.Context) ([]*api.Deployment, error)
	CountDeploymentsByBlueprint(
		ctx context.Context, id api.BlueprintID) (int, error)
	DeleteDeployment(ctx context.Context, id api.DeploymentID) error

	InsertNode(ctx context.Context, n *api.Node) error
	ListNodes(ctx context.Context, id api.DeploymentID) ([]*api.Node, error)
	ListAllNodes(ctx context.Context) ([]*api.Node, error)
	DeleteNodes(ctx context.Context, id api.DeploymentID) error

	InsertNodeInstance(ctx context.Context, n *api.NodeInstance) error
	GetNodeInstance(
		ctx context.Context, id api.InstanceID) (*api.NodeInstance, error)
	ListNodeInstances(
		ctx context.Context, id api.DeploymentID) ([]*api.NodeInstance, error)
	ListAllNodeInstances(ctx context.Context) ([]*api.NodeInstance, error)
	UpdateNodeInstance(ctx context.Context, n *api.NodeInstance) error
	DeleteNodeInstances(ctx context.Context, id api.DeploymentID) error

	InsertExecution(ctx context.Context, e *api.Execution) error
	GetExecution(ctx context.Context, id api.ExecutionID) (*api.Execution, error)
	ListExecutions(
		ctx context.Context, id api.DeploymentID) ([]*api.Execution, error)
	UpdateExecutionStatus(
		ctx context.Context, id api.ExecutionID,
		status api.ExecutionStatus, errText string,
	) (*api.Execution, error)

	GetProviderContext(ctx context.Context) (*api.ProviderContext, error)
	PutProviderContext(ctx context.Context, p *api.ProviderContext) error
}
