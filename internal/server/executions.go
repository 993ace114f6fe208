package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

func (s *Server) getExecution(c *gin.Context) {
	id := api.ExecutionID(c.Param("executionID"))
	execution, err := s.Storage.GetExecution(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, execution)
}

func (s *Server) listDeploymentExecutions(c *gin.Context) {
	id := api.DeploymentID(c.Param("deploymentID"))
	if _, err := s.Storage.GetDeployment(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	executions, err := s.Storage.ListExecutions(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ExecutionsListResponse{
		Executions: executions,
		Count:      len(executions),
	})
}

func (s *Server) executeWorkflow(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	id := api.DeploymentID(c.Param("deploymentID"))
	force, err := boolArg(c, "force")
	if err != nil {
		abortWithError(c, err)
		return
	}

	var req api.ExecuteWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, api.BadParameters(
			"malformed execution request body: %s", err))
		return
	}
	if req.WorkflowID == "" {
		abortWithError(c, api.BadParameters(
			"workflow_id must be provided in the request body"))
		return
	}

	execution, err := s.Manager.ExecuteWorkflow(
		c.Request.Context(), id, req.WorkflowID, req.Parameters, force)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, execution)
}

func (s *Server) modifyExecution(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	id := api.ExecutionID(c.Param("executionID"))

	var req api.ModifyExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, api.BadParameters(
			"malformed execution action body: %s", err))
		return
	}

	var force bool
	switch req.Action {
	case "cancel":
	case "force-cancel":
		force = true
	default:
		abortWithError(c, api.BadParameters(
			"invalid action: %s, must be one of cancel, force-cancel",
			req.Action))
		return
	}

	execution, err := s.Manager.CancelExecution(c.Request.Context(), id, force)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, execution)
}

func (s *Server) updateExecutionStatus(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	id := api.ExecutionID(c.Param("executionID"))

	var req api.UpdateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, api.BadParameters(
			"malformed execution update body: %s", err))
		return
	}
	if req.Status == "" {
		abortWithError(c, api.BadParameters(
			"status must be provided in the request body"))
		return
	}

	execution, err := s.Manager.UpdateExecutionStatus(
		c.Request.Context(), id, req.Status, req.Error)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, execution)
}
