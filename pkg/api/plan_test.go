package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

func TestHasWorkflow(t *testing.T) {
	plan := &api.Plan{
		Workflows: map[api.WorkflowID]api.Workflow{
			"install": {Operation: "default.install"},
		},
	}

	assert.True(t, plan.HasWorkflow("install"))
	assert.False(t, plan.HasWorkflow("uninstall"))
	assert.ElementsMatch(t,
		[]api.WorkflowID{"install"}, plan.WorkflowNames())
}

func TestInstanceCount(t *testing.T) {
	assert.Equal(t, 1, (&api.PlanNode{}).InstanceCount())
	assert.Equal(t, 1, (&api.PlanNode{Instances: -2}).InstanceCount())
	assert.Equal(t, 3, (&api.PlanNode{Instances: 3}).InstanceCount())
}

func TestExecutionStatusTerminal(t *testing.T) {
	terminal := []api.ExecutionStatus{
		api.ExecutionTerminated, api.ExecutionFailed, api.ExecutionCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal())
	}

	live := []api.ExecutionStatus{
		api.ExecutionPending, api.ExecutionRunning, api.ExecutionCancelling,
	}
	for _, s := range live {
		assert.False(t, s.IsTerminal())
	}
}

func TestNodeInstanceLiveness(t *testing.T) {
	assert.False(t, (&api.NodeInstance{
		State: api.InstanceUninitialized,
	}).IsLive())
	assert.False(t, (&api.NodeInstance{State: api.InstanceDeleted}).IsLive())
	assert.True(t, (&api.NodeInstance{State: "started"}).IsLive())
}
