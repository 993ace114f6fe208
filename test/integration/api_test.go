package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/orchestra-dev/orchestra/internal/assert"
	"github.com/orchestra-dev/orchestra/internal/assert/helpers"
	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/internal/server"
	"github.com/orchestra-dev/orchestra/internal/upload"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/client"
	"github.com/orchestra-dev/orchestra/pkg/dsl"
)

type apiEnv struct {
	*helpers.TestEnv
	HTTP   *httptest.Server
	Client *client.Client
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := helpers.NewTestEnv(t)
	resolver := upload.NewResolver(env.Config, dsl.NewYAMLParser())
	srv := server.NewServer(env.Config, server.Components{
		Storage:   env.Storage,
		Receiver:  upload.NewReceiver(env.Config),
		Extractor: upload.NewExtractor(env.Config),
		Publisher: upload.NewPublisher(env.Config, env.Storage, resolver, nil),
		Manager:   env.Manager,
		Index:     env.Index,
		Hub:       env.Hub,
		Bus:       env.Bus,
		Prober:    &server.StaticProber{Names: []string{"manager", "redis"}},
	})

	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(ts.Close)
	return &apiEnv{
		TestEnv: env,
		HTTP:    ts,
		Client:  client.New(ts.URL),
	}
}

func (e *apiEnv) watchEvents(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.HTTP.URL, "http") + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	if res != nil {
		_ = res.Body.Close()
	}

	require.NoError(t, conn.WriteJSON(api.SubscribeRequest{
		Type: "subscribe",
	}))
	time.Sleep(250 * time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return &ev
}

// TestFullLifecycle walks the whole happy path over HTTP: publish a
// blueprint, deploy it, run and cancel a workflow, tear everything down,
// and watch each step surface on the event stream and in the event index
func TestFullLifecycle(t *testing.T) {
	as := assert.New(t)
	env := newAPIEnv(t)
	ctx := context.Background()
	conn := env.watchEvents(t)

	archive := helpers.BuildArchive(t, map[string]string{
		"my-app/blueprint.yaml": helpers.MinimalBlueprintYAML,
	})
	f, err := os.Open(archive)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	blueprint, err := env.Client.UploadBlueprint(ctx, "bp-1", f, "")
	as.NoError(err)
	as.Equal(api.BlueprintID("bp-1"), blueprint.ID)
	as.Equal(events.BlueprintPublished, readEvent(t, conn).Type)

	deployment, err := env.Client.CreateDeployment(ctx, "bp-1", "d-1")
	as.NoError(err)
	as.Equal(api.BlueprintID("bp-1"), deployment.BlueprintID)
	as.Equal(events.DeploymentCreated, readEvent(t, conn).Type)

	instances, err := env.Client.ListNodeInstances(ctx, "d-1")
	as.NoError(err)
	as.Equal(1, instances.Count)
	as.Equal(api.InstanceUninitialized, instances.Instances[0].State)

	execution, err := env.Client.ExecuteWorkflow(
		ctx, "d-1", "install", nil, false)
	as.NoError(err)
	as.Equal(events.ExecutionStarted, readEvent(t, conn).Type)

	running, err := env.Client.GetExecution(ctx, execution.ID)
	as.NoError(err)
	as.Equal(api.ExecutionRunning, running.Status)

	// simulate an agent reporting progress
	inst := instances.Instances[0]
	updated, err := env.Client.UpdateNodeInstance(
		ctx, inst.ID, 1, api.Params{"ip": "10.0.0.5"}, "started")
	as.NoError(err)
	as.Equal(2, updated.Version)

	cancelled, err := env.Client.CancelExecution(ctx, execution.ID, true)
	as.NoError(err)
	as.Equal(api.ExecutionCancelled, cancelled.Status)
	ev := readEvent(t, conn)
	as.Equal(events.ExecutionStatus, ev.Type)
	as.Equal(string(api.ExecutionCancelled), ev.Status)

	// a started instance blocks deletion until acknowledged
	_, err = env.Client.DeleteDeployment(ctx, "d-1", false)
	as.ErrCode(api.CodeDependentExists, err)

	_, err = env.Client.DeleteDeployment(ctx, "d-1", true)
	as.NoError(err)
	as.Equal(events.DeploymentDeleted, readEvent(t, conn).Type)

	_, err = env.Client.DeleteBlueprint(ctx, "bp-1")
	as.NoError(err)
	as.Equal(events.BlueprintDeleted, readEvent(t, conn).Type)

	res := queryEvents(t, env, events.QueryRequest{
		Query: []events.QueryTerm{
			{Path: "deployment_id", Value: "d-1"},
		},
	})
	as.Equal(4, res.Total)
}

func queryEvents(
	t *testing.T, env *apiEnv, req events.QueryRequest,
) *events.QueryResponse {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	res, err := http.Post(
		env.HTTP.URL+"/events", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out events.QueryResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return &out
}
