package lifecycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-dev/orchestra/internal/assert"
	"github.com/orchestra-dev/orchestra/internal/assert/helpers"
	"github.com/orchestra-dev/orchestra/pkg/api"
)

func TestCreateDeployment(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	blueprint := env.SeedBlueprint(t, "bp-1")
	deployment, err := env.Manager.CreateDeployment(ctx, "bp-1", "d-1")
	as.NoError(err)
	as.Equal(api.DeploymentID("d-1"), deployment.ID)
	as.Equal(blueprint.ID, deployment.BlueprintID)
	as.Equal(blueprint.Plan.Name, deployment.Plan.Name)

	nodes, err := env.Storage.ListNodes(ctx, "d-1")
	as.NoError(err)
	as.Len(nodes, 2)

	instances, err := env.Storage.ListNodeInstances(ctx, "d-1")
	as.NoError(err)
	as.Len(instances, 2)
	for _, inst := range instances {
		as.Equal(api.InstanceUninitialized, inst.State)
		as.Equal(1, inst.Version)
		as.Equal(api.DeploymentID("d-1"), inst.DeploymentID)
	}
}

func TestCreateDeploymentResolvesRelationships(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedBlueprint(t, "bp-1")
	_, err := env.Manager.CreateDeployment(ctx, "bp-1", "d-1")
	require.NoError(t, err)

	instances, err := env.Storage.ListNodeInstances(ctx, "d-1")
	require.NoError(t, err)

	byNode := map[api.NodeID]*api.NodeInstance{}
	for _, inst := range instances {
		byNode[inst.NodeID] = inst
	}

	web := byNode["web"]
	require.NotNil(t, web)
	vm := byNode["vm"]
	require.NotNil(t, vm)

	as.Equal(vm.ID, web.HostID)
	require.Len(t, web.Relationships, 1)
	as.Equal(vm.ID, web.Relationships[0].TargetID)
	as.Equal("contained_in", web.Relationships[0].Type)
}

func TestCreateDeploymentMissingBlueprint(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)

	_, err := env.Manager.CreateDeployment(
		context.Background(), "ghost", "d-1")
	as.ErrCode(api.CodeNotFound, err)
}

func TestCreateDeploymentConflict(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedBlueprint(t, "bp-1")
	_, err := env.Manager.CreateDeployment(ctx, "bp-1", "d-1")
	require.NoError(t, err)

	_, err = env.Manager.CreateDeployment(ctx, "bp-1", "d-1")
	as.ErrCode(api.CodeConflict, err)
}

func TestDeleteDeployment(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	deployment, err := env.Manager.DeleteDeployment(ctx, "d-1", false)
	as.NoError(err)
	as.Equal(api.DeploymentID("d-1"), deployment.ID)

	_, err = env.Storage.GetDeployment(ctx, "d-1")
	as.ErrCode(api.CodeNotFound, err)

	instances, err := env.Storage.ListAllNodeInstances(ctx)
	as.NoError(err)
	as.Empty(instances)
}

func TestDeleteDeploymentWithLiveNodes(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	instances, err := env.Storage.ListNodeInstances(ctx, "d-1")
	require.NoError(t, err)
	require.NotEmpty(t, instances)

	require.NoError(t, env.Storage.UpdateNodeInstance(ctx, &api.NodeInstance{
		ID:      instances[0].ID,
		Version: 1,
		State:   "started",
	}))

	_, err = env.Manager.DeleteDeployment(ctx, "d-1", false)
	as.ErrCode(api.CodeDependentExists, err)

	// still present
	_, err = env.Storage.GetDeployment(ctx, "d-1")
	as.NoError(err)

	// ignore_live_nodes overrides the liveness check
	_, err = env.Manager.DeleteDeployment(ctx, "d-1", true)
	as.NoError(err)
}

func TestDeleteDeploymentWithRunningExecution(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	_, err := env.Manager.ExecuteWorkflow(ctx, "d-1", "install", nil, false)
	require.NoError(t, err)

	// a non-terminal execution blocks deletion even when live nodes are
	// ignored
	_, err = env.Manager.DeleteDeployment(ctx, "d-1", true)
	as.ErrCode(api.CodeDependentExists, err)
}

func TestListWorkflows(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)

	env.SeedDeployment(t, "d-1")
	res, err := env.Manager.ListWorkflows(context.Background(), "d-1")
	as.NoError(err)
	as.Equal(api.DeploymentID("d-1"), res.DeploymentID)
	as.Len(res.Workflows, 2)
	for _, wf := range res.Workflows {
		as.Nil(wf.CreatedAt)
	}
}

func TestExecuteWorkflow(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	execution, err := env.Manager.ExecuteWorkflow(
		ctx, "d-1", "install", api.Params{"retries": 3}, false)
	as.NoError(err)
	as.Equal(api.WorkflowID("install"), execution.WorkflowID)
	as.NotEmpty(execution.ID)
	as.True(env.Runner.Started(execution.ID))

	stored, err := env.Storage.GetExecution(ctx, execution.ID)
	as.NoError(err)
	as.ExecStatus(stored, api.ExecutionRunning)
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)

	env.SeedDeployment(t, "d-1")
	_, err := env.Manager.ExecuteWorkflow(
		context.Background(), "d-1", "scale", nil, false)
	as.ErrCode(api.CodeNonexistentWorkflow, err)
}

func TestExecuteWorkflowWhileRunning(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	_, err := env.Manager.ExecuteWorkflow(ctx, "d-1", "install", nil, false)
	require.NoError(t, err)

	_, err = env.Manager.ExecuteWorkflow(ctx, "d-1", "uninstall", nil, false)
	as.ErrCode(api.CodeExistingRunningExecution, err)

	// force bypasses the single-execution check
	_, err = env.Manager.ExecuteWorkflow(ctx, "d-1", "uninstall", nil, true)
	as.NoError(err)
}

func TestExecuteAfterTerminalExecution(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	first, err := env.Manager.ExecuteWorkflow(ctx, "d-1", "install", nil, false)
	require.NoError(t, err)

	_, err = env.Manager.UpdateExecutionStatus(
		ctx, first.ID, api.ExecutionTerminated, "")
	require.NoError(t, err)

	_, err = env.Manager.ExecuteWorkflow(ctx, "d-1", "install", nil, false)
	as.NoError(err)
}

func TestCancelExecution(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	execution, err := env.Manager.ExecuteWorkflow(
		ctx, "d-1", "install", nil, false)
	require.NoError(t, err)

	cancelled, err := env.Manager.CancelExecution(ctx, execution.ID, false)
	as.NoError(err)
	as.ExecStatus(cancelled, api.ExecutionCancelling)
	as.True(env.Runner.CancelRequested(execution.ID))

	// cancelling an execution already on its way out is illegal once it
	// lands in a terminal state
	_, err = env.Manager.UpdateExecutionStatus(
		ctx, execution.ID, api.ExecutionCancelled, "")
	require.NoError(t, err)

	_, err = env.Manager.CancelExecution(ctx, execution.ID, false)
	as.ErrCode(api.CodeIllegalAction, err)
}

func TestForceCancelExecution(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	execution, err := env.Manager.ExecuteWorkflow(
		ctx, "d-1", "install", nil, false)
	require.NoError(t, err)

	cancelled, err := env.Manager.CancelExecution(ctx, execution.ID, true)
	as.NoError(err)
	as.ExecStatus(cancelled, api.ExecutionCancelled)
}

func TestUpdateExecutionStatusValidation(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	execution, err := env.Manager.ExecuteWorkflow(
		ctx, "d-1", "install", nil, false)
	require.NoError(t, err)

	_, err = env.Manager.UpdateExecutionStatus(
		ctx, execution.ID, "exploded", "")
	as.ErrCode(api.CodeBadParameters, err)

	// terminated is legal from running
	updated, err := env.Manager.UpdateExecutionStatus(
		ctx, execution.ID, api.ExecutionTerminated, "")
	as.NoError(err)
	as.ExecStatus(updated, api.ExecutionTerminated)

	// terminal states admit no further transitions
	_, err = env.Manager.UpdateExecutionStatus(
		ctx, execution.ID, api.ExecutionRunning, "")
	as.ErrCode(api.CodeIllegalAction, err)
}

func TestUpdateNodeInstanceThroughManager(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedDeployment(t, "d-1")
	instances, err := env.Storage.ListNodeInstances(ctx, "d-1")
	require.NoError(t, err)
	require.NotEmpty(t, instances)
	id := instances[0].ID

	updated, err := env.Manager.UpdateNodeInstance(
		ctx, id, 1, api.Params{"ip": "10.0.0.9"}, "configured")
	as.NoError(err)
	as.Equal(2, updated.Version)
	as.Equal("configured", updated.State)

	_, err = env.Manager.UpdateNodeInstance(ctx, id, 1, nil, "started")
	as.ErrCode(api.CodeConflict, err)
}

func TestDeleteBlueprintWithDeployments(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	env.SeedBlueprint(t, "bp-1")
	_, err := env.Manager.CreateDeployment(ctx, "bp-1", "d-1")
	require.NoError(t, err)

	_, err = env.Manager.DeleteBlueprint(ctx, "bp-1")
	as.ErrCode(api.CodeDependentExists, err)

	_, err = env.Manager.DeleteDeployment(ctx, "d-1", false)
	require.NoError(t, err)

	deleted, err := env.Manager.DeleteBlueprint(ctx, "bp-1")
	as.NoError(err)
	as.Equal(api.BlueprintID("bp-1"), deleted.ID)

	_, err = env.Storage.GetBlueprint(ctx, "bp-1")
	as.ErrCode(api.CodeNotFound, err)
}
