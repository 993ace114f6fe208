// Package client is the Go client for the orchestration REST API
//
// Failures surfaced by the manager come back as typed api errors, so
// callers can classify them with api.IsCode the same way server-side code
// does
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

// Client talks to a manager over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var ErrUnexpectedStatus = errors.New("unexpected response status")

const DefaultTimeout = 30 * time.Second

// New creates a client for the manager at baseURL
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, DefaultTimeout)
}

func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// UploadBlueprint publishes an archive under the given id. The archive
// reader must contain a gzipped tarball with a single top-level directory
func (c *Client) UploadBlueprint(
	ctx context.Context, id api.BlueprintID, archive io.Reader,
	applicationFileName string,
) (*api.Blueprint, error) {
	path := "/blueprints/" + url.PathEscape(string(id))
	if applicationFileName != "" {
		path += "?application_file_name=" + url.QueryEscape(applicationFileName)
	}

	req, err := http.NewRequestWithContext(
		ctx, "PUT", c.baseURL+path, archive)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var blueprint api.Blueprint
	if err := c.perform(req, &blueprint); err != nil {
		return nil, err
	}
	return &blueprint, nil
}

func (c *Client) GetBlueprint(
	ctx context.Context, id api.BlueprintID,
) (*api.Blueprint, error) {
	var blueprint api.Blueprint
	err := c.doJSON(ctx, "GET",
		"/blueprints/"+url.PathEscape(string(id)), nil, &blueprint)
	if err != nil {
		return nil, err
	}
	return &blueprint, nil
}

func (c *Client) ListBlueprints(
	ctx context.Context,
) (*api.BlueprintsListResponse, error) {
	var res api.BlueprintsListResponse
	if err := c.doJSON(ctx, "GET", "/blueprints", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteBlueprint(
	ctx context.Context, id api.BlueprintID,
) (*api.Blueprint, error) {
	var blueprint api.Blueprint
	err := c.doJSON(ctx, "DELETE",
		"/blueprints/"+url.PathEscape(string(id)), nil, &blueprint)
	if err != nil {
		return nil, err
	}
	return &blueprint, nil
}

// CreateDeployment materializes a deployment from a published blueprint
func (c *Client) CreateDeployment(
	ctx context.Context, blueprintID api.BlueprintID, id api.DeploymentID,
) (*api.Deployment, error) {
	var deployment api.Deployment
	err := c.doJSON(ctx, "PUT",
		"/deployments/"+url.PathEscape(string(id)),
		api.CreateDeploymentRequest{BlueprintID: blueprintID}, &deployment)
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (c *Client) GetDeployment(
	ctx context.Context, id api.DeploymentID,
) (*api.Deployment, error) {
	var deployment api.Deployment
	err := c.doJSON(ctx, "GET",
		"/deployments/"+url.PathEscape(string(id)), nil, &deployment)
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (c *Client) DeleteDeployment(
	ctx context.Context, id api.DeploymentID, ignoreLiveNodes bool,
) (*api.Deployment, error) {
	path := "/deployments/" + url.PathEscape(string(id))
	if ignoreLiveNodes {
		path += "?ignore_live_nodes=true"
	}
	var deployment api.Deployment
	if err := c.doJSON(ctx, "DELETE", path, nil, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// ExecuteWorkflow starts a workflow execution against a deployment
func (c *Client) ExecuteWorkflow(
	ctx context.Context, deploymentID api.DeploymentID,
	workflowID api.WorkflowID, parameters api.Params, force bool,
) (*api.Execution, error) {
	path := fmt.Sprintf("/deployments/%s/executions",
		url.PathEscape(string(deploymentID)))
	if force {
		path += "?force=true"
	}

	var execution api.Execution
	err := c.doJSON(ctx, "POST", path, api.ExecuteWorkflowRequest{
		WorkflowID: workflowID,
		Parameters: parameters,
	}, &execution)
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (c *Client) GetExecution(
	ctx context.Context, id api.ExecutionID,
) (*api.Execution, error) {
	var execution api.Execution
	err := c.doJSON(ctx, "GET",
		"/executions/"+url.PathEscape(string(id)), nil, &execution)
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

// CancelExecution requests cancellation; force skips the cancelling phase
func (c *Client) CancelExecution(
	ctx context.Context, id api.ExecutionID, force bool,
) (*api.Execution, error) {
	action := "cancel"
	if force {
		action = "force-cancel"
	}

	var execution api.Execution
	err := c.doJSON(ctx, "POST",
		"/executions/"+url.PathEscape(string(id)),
		api.ModifyExecutionRequest{Action: action}, &execution)
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (c *Client) ListNodeInstances(
	ctx context.Context, deploymentID api.DeploymentID,
) (*api.InstancesListResponse, error) {
	path := "/node-instances"
	if deploymentID != "" {
		path += "?deployment_id=" + url.QueryEscape(string(deploymentID))
	}
	var res api.InstancesListResponse
	if err := c.doJSON(ctx, "GET", path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateNodeInstance applies a runtime-properties/state update under
// optimistic locking. A stale version comes back as a Conflict api error
func (c *Client) UpdateNodeInstance(
	ctx context.Context, id api.InstanceID, version int,
	runtimeProperties api.Params, state string,
) (*api.NodeInstance, error) {
	var instance api.NodeInstance
	err := c.doJSON(ctx, "PATCH",
		"/node-instances/"+url.PathEscape(string(id)),
		api.UpdateInstanceRequest{
			Version:           &version,
			RuntimeProperties: runtimeProperties,
			State:             state,
		}, &instance)
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.doJSON(ctx, "GET", "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) doJSON(
	ctx context.Context, method, path string, body, out any,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.perform(req, out)
}

func (c *Client) perform(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= 400 {
		return decodeError(res.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// decodeError rebuilds the typed api error a failed request carries. A
// body that is not an error document maps to ErrUnexpectedStatus
func decodeError(status int, data []byte) error {
	var errRes api.ErrorResponse
	if err := json.Unmarshal(data, &errRes); err != nil ||
		errRes.ErrorCode == "" {
		return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, status)
	}
	return api.NewError(errRes.ErrorCode, "%s", errRes.Message)
}
