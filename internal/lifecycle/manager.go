// Package lifecycle implements the deployment lifecycle manager
//
// The manager materializes deployments from published blueprints, drives
// workflow executions through their state machine, and enforces deletion
// preconditions. It offers no serialization of its own: identity conflicts
// and version staleness are resolved by the storage engine's atomic
// primitives
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/internal/store"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/log"
	"github.com/orchestra-dev/orchestra/pkg/util/call"
)

type (
	// Engine is the workflow execution engine collaborator
	Engine interface {
		Start(ctx context.Context, execution *api.Execution) error
		RequestCancel(
			ctx context.Context, id api.ExecutionID, force bool) error
	}

	// Manager drives deployments, nodes, instances, and executions
	Manager struct {
		cfg     *config.Config
		storage store.Storage
		engine  Engine
		bus     *events.Bus
	}
)

const instanceSuffixLen = 8

// NewManager creates a lifecycle manager over the given collaborators
func NewManager(
	cfg *config.Config, storage store.Storage, engine Engine,
	bus *events.Bus,
) *Manager {
	return &Manager{
		cfg:     cfg,
		storage: storage,
		engine:  engine,
		bus:     bus,
	}
}

// CreateDeployment materializes a deployment from a published blueprint,
// instantiating its node templates and node instances
func (m *Manager) CreateDeployment(
	ctx context.Context, blueprintID api.BlueprintID, id api.DeploymentID,
) (*api.Deployment, error) {
	blueprint, err := m.storage.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	deployment := &api.Deployment{
		ID:          id,
		BlueprintID: blueprintID,
		Plan:        blueprint.Plan,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.storage.InsertDeployment(ctx, deployment); err != nil {
		return nil, err
	}

	if err := m.materializeNodes(ctx, deployment); err != nil {
		return nil, err
	}

	m.bus.Emit(ctx, &events.Event{
		Type:         events.DeploymentCreated,
		BlueprintID:  blueprintID,
		DeploymentID: id,
	})
	m.bus.Record(ctx, deployment)
	slog.Info("Deployment created",
		log.DeploymentID(id), log.BlueprintID(blueprintID))
	return deployment, nil
}

// materializeNodes persists node templates and their instances from the
// deployment's plan. Instance ids carry a random suffix; relationships
// resolve to the first materialized instance of the target template
func (m *Manager) materializeNodes(
	ctx context.Context, d *api.Deployment,
) error {
	instancesByNode := map[api.NodeID][]api.InstanceID{}
	for _, pn := range d.Plan.Nodes {
		count := pn.InstanceCount()
		ids := make([]api.InstanceID, count)
		for i := range count {
			ids[i] = api.InstanceID(fmt.Sprintf(
				"%s_%s", pn.ID, instanceSuffix()))
		}
		instancesByNode[pn.ID] = ids
	}

	for _, pn := range d.Plan.Nodes {
		node := &api.Node{
			ID:            pn.ID,
			DeploymentID:  d.ID,
			BlueprintID:   d.BlueprintID,
			Type:          pn.Type,
			NumInstances:  pn.InstanceCount(),
			HostID:        pn.HostID,
			Properties:    pn.Properties,
			Relationships: pn.Relationships,
		}
		if err := m.storage.InsertNode(ctx, node); err != nil {
			return err
		}

		for _, instID := range instancesByNode[pn.ID] {
			inst := &api.NodeInstance{
				ID:            instID,
				NodeID:        pn.ID,
				DeploymentID:  d.ID,
				HostID:        firstInstance(instancesByNode, pn.HostID),
				State:         api.InstanceUninitialized,
				Version:       1,
				Relationships: instanceRelationships(
					instancesByNode, pn.Relationships),
			}
			if err := m.storage.InsertNodeInstance(ctx, inst); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteDeployment cascades deletion of instances, nodes, and the
// deployment record. Live node instances block deletion unless
// ignoreLiveNodes is set; a non-terminal execution always blocks it
func (m *Manager) DeleteDeployment(
	ctx context.Context, id api.DeploymentID, ignoreLiveNodes bool,
) (*api.Deployment, error) {
	deployment, err := m.storage.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}

	executions, err := m.storage.ListExecutions(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range executions {
		if !e.Status.IsTerminal() {
			return nil, api.DependentExists(
				"deployment %s has a pending execution: %s", id, e.ID)
		}
	}

	if !ignoreLiveNodes {
		instances, err := m.storage.ListNodeInstances(ctx, id)
		if err != nil {
			return nil, err
		}
		if live := liveInstances(instances); len(live) > 0 {
			return nil, api.DependentExists(
				"deployment %s has live node instances: %s",
				id, strings.Join(live, ", "))
		}
	}

	if err := call.Perform(
		call.WithArgs(m.storage.DeleteNodeInstances, ctx, id),
		call.WithArgs(m.storage.DeleteNodes, ctx, id),
		call.WithArgs(m.storage.DeleteDeployment, ctx, id),
	); err != nil {
		return nil, err
	}

	m.bus.Emit(ctx, &events.Event{
		Type:         events.DeploymentDeleted,
		BlueprintID:  deployment.BlueprintID,
		DeploymentID: id,
	})
	slog.Info("Deployment deleted", log.DeploymentID(id))
	return deployment, nil
}

// ListWorkflows enumerates the workflows the deployment's stored plan
// declares. Creation timestamps are always absent: workflow listings carry
// no execution-history correlation
func (m *Manager) ListWorkflows(
	ctx context.Context, id api.DeploymentID,
) (*api.WorkflowsListResponse, error) {
	deployment, err := m.storage.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}

	workflows := make([]api.WorkflowInfo, 0, len(deployment.Plan.Workflows))
	for name := range deployment.Plan.Workflows {
		workflows = append(workflows, api.WorkflowInfo{Name: name})
	}

	return &api.WorkflowsListResponse{
		Workflows:    workflows,
		BlueprintID:  deployment.BlueprintID,
		DeploymentID: deployment.ID,
	}, nil
}

// ExecuteWorkflow creates and dispatches a new execution. At most one
// non-terminal execution may exist per deployment unless force is set; the
// check is a storage-level read, racing creators are resolved by the
// engine's insert primitive
func (m *Manager) ExecuteWorkflow(
	ctx context.Context, deploymentID api.DeploymentID,
	workflowID api.WorkflowID, parameters api.Params, force bool,
) (*api.Execution, error) {
	deployment, err := m.storage.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if !deployment.Plan.HasWorkflow(workflowID) {
		return nil, api.NonexistentWorkflow(
			"workflow %s does not exist in deployment %s",
			workflowID, deploymentID)
	}

	if !force {
		executions, err := m.storage.ListExecutions(ctx, deploymentID)
		if err != nil {
			return nil, err
		}
		for _, e := range executions {
			if !e.Status.IsTerminal() {
				return nil, api.ExistingRunningExecution(
					"execution %s is already running for deployment %s",
					e.ID, deploymentID)
			}
		}
	}

	execution := &api.Execution{
		ID:           api.ExecutionID(uuid.New().String()),
		DeploymentID: deploymentID,
		BlueprintID:  deployment.BlueprintID,
		WorkflowID:   workflowID,
		Status:       api.ExecutionPending,
		Parameters:   parameters,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.storage.InsertExecution(ctx, execution); err != nil {
		return nil, err
	}

	if err := m.engine.Start(ctx, execution); err != nil {
		_, _ = m.storage.UpdateExecutionStatus(
			ctx, execution.ID, api.ExecutionFailed, err.Error())
		return nil, err
	}

	m.bus.Emit(ctx, &events.Event{
		Type:         events.ExecutionStarted,
		BlueprintID:  deployment.BlueprintID,
		DeploymentID: deploymentID,
		ExecutionID:  execution.ID,
		WorkflowID:   workflowID,
		Status:       string(execution.Status),
	})
	m.bus.Record(ctx, execution)
	slog.Info("Workflow execution started",
		log.ExecutionID(execution.ID),
		log.DeploymentID(deploymentID),
		log.WorkflowID(workflowID))
	return execution, nil
}

// CancelExecution transitions an execution toward cancelling, or directly
// to cancelled when forced. Terminal executions fail with IllegalAction
func (m *Manager) CancelExecution(
	ctx context.Context, id api.ExecutionID, force bool,
) (*api.Execution, error) {
	execution, err := m.storage.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if execution.Status.IsTerminal() {
		return nil, api.IllegalAction(
			"cannot cancel execution %s in status %s", id, execution.Status)
	}

	if err := m.engine.RequestCancel(ctx, id, force); err != nil {
		return nil, err
	}

	target := api.ExecutionCancelling
	if force {
		target = api.ExecutionCancelled
	}
	updated, err := m.storage.UpdateExecutionStatus(ctx, id, target, "")
	if err != nil {
		return nil, err
	}

	m.emitStatus(ctx, updated)
	return updated, nil
}

// UpdateExecutionStatus applies a status reported by the execution engine,
// validating it against the execution state machine
func (m *Manager) UpdateExecutionStatus(
	ctx context.Context, id api.ExecutionID,
	status api.ExecutionStatus, errText string,
) (*api.Execution, error) {
	if !executionTransitions.IsKnownStatus(status) {
		return nil, api.BadParameters("unknown execution status: %s", status)
	}

	execution, err := m.storage.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if !executionTransitions.CanTransition(execution.Status, status) {
		return nil, api.IllegalAction(
			"cannot transition execution %s from %s to %s",
			id, execution.Status, status)
	}

	updated, err := m.storage.UpdateExecutionStatus(ctx, id, status, errText)
	if err != nil {
		return nil, err
	}

	m.emitStatus(ctx, updated)
	return updated, nil
}

// UpdateNodeInstance applies a runtime-properties/state update under
// optimistic locking. A stale version surfaces as Conflict; retrying is the
// caller's decision
func (m *Manager) UpdateNodeInstance(
	ctx context.Context, id api.InstanceID, version int,
	runtimeProperties api.Params, state string,
) (*api.NodeInstance, error) {
	err := m.storage.UpdateNodeInstance(ctx, &api.NodeInstance{
		ID:                id,
		Version:           version,
		RuntimeProperties: runtimeProperties,
		State:             state,
	})
	if err != nil {
		return nil, err
	}
	return m.storage.GetNodeInstance(ctx, id)
}

// DeleteBlueprint removes a blueprint and its file-server resources.
// Blueprints with existing deployments cannot be deleted
func (m *Manager) DeleteBlueprint(
	ctx context.Context, id api.BlueprintID,
) (*api.Blueprint, error) {
	blueprint, err := m.storage.GetBlueprint(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := m.storage.CountDeploymentsByBlueprint(ctx, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, api.DependentExists(
			"blueprint %s has existing deployments", id)
	}

	if err := m.storage.DeleteBlueprint(ctx, id); err != nil {
		return nil, err
	}

	for _, folder := range []string{
		m.cfg.BlueprintsFolder, m.cfg.UploadedBlueprintsFolder,
	} {
		dir := filepath.Join(m.cfg.FileServerRoot, folder, string(id))
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Failed to remove blueprint resources",
				log.BlueprintID(id), log.Path(dir), log.Error(err))
		}
	}

	m.bus.Emit(ctx, &events.Event{
		Type:        events.BlueprintDeleted,
		BlueprintID: id,
	})
	slog.Info("Blueprint deleted", log.BlueprintID(id))
	return blueprint, nil
}

func (m *Manager) emitStatus(ctx context.Context, e *api.Execution) {
	m.bus.Emit(ctx, &events.Event{
		Type:         events.ExecutionStatus,
		BlueprintID:  e.BlueprintID,
		DeploymentID: e.DeploymentID,
		ExecutionID:  e.ID,
		WorkflowID:   e.WorkflowID,
		Status:       string(e.Status),
		Message:      e.Error,
	})
}

func instanceSuffix() string {
	return uuid.New().String()[:instanceSuffixLen]
}

func firstInstance(
	byNode map[api.NodeID][]api.InstanceID, node api.NodeID,
) api.InstanceID {
	if node == "" {
		return ""
	}
	ids := byNode[node]
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func instanceRelationships(
	byNode map[api.NodeID][]api.InstanceID, rels []api.Relationship,
) []api.InstanceRelationship {
	if len(rels) == 0 {
		return nil
	}
	res := make([]api.InstanceRelationship, 0, len(rels))
	for _, r := range rels {
		target := firstInstance(byNode, r.TargetID)
		if target == "" {
			continue
		}
		res = append(res, api.InstanceRelationship{
			Type:     r.Type,
			TargetID: target,
		})
	}
	return res
}

func liveInstances(instances []*api.NodeInstance) []string {
	var live []string
	for _, inst := range instances {
		if inst.IsLive() {
			live = append(live, string(inst.ID))
		}
	}
	return live
}
