package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-dev/orchestra/internal/assert"
	"github.com/orchestra-dev/orchestra/internal/assert/helpers"
	"github.com/orchestra-dev/orchestra/pkg/api"
)

func TestLocalStart(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	ctx := context.Background()

	execution := &api.Execution{
		ID:           "e-1",
		DeploymentID: "d-1",
		WorkflowID:   "install",
		Status:       api.ExecutionPending,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, env.Storage.InsertExecution(ctx, execution))

	as.NoError(env.Runner.Start(ctx, execution))
	as.True(env.Runner.Started("e-1"))

	stored, err := env.Storage.GetExecution(ctx, "e-1")
	as.NoError(err)
	as.ExecStatus(stored, api.ExecutionRunning)
}

func TestLocalStartUnknownExecution(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)

	err := env.Runner.Start(context.Background(), &api.Execution{ID: "ghost"})
	as.ErrCode(api.CodeNotFound, err)
}

func TestLocalRequestCancel(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)

	as.NoError(env.Runner.RequestCancel(context.Background(), "e-1", false))
	as.True(env.Runner.CancelRequested("e-1"))
	as.False(env.Runner.CancelRequested("e-2"))
}
