package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

func (s *Server) listDeployments(c *gin.Context) {
	deployments, err := s.Storage.ListDeployments(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DeploymentsListResponse{
		Deployments: deployments,
		Count:       len(deployments),
	})
}

func (s *Server) getDeployment(c *gin.Context) {
	id := api.DeploymentID(c.Param("deploymentID"))
	deployment, err := s.Storage.GetDeployment(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, deployment)
}

func (s *Server) createDeployment(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	id := api.DeploymentID(c.Param("deploymentID"))

	var req api.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, api.BadParameters(
			"malformed deployment request body: %s", err))
		return
	}
	if req.BlueprintID == "" {
		abortWithError(c, api.BadParameters(
			"blueprint_id must be provided in the request body"))
		return
	}

	deployment, err := s.Manager.CreateDeployment(
		c.Request.Context(), req.BlueprintID, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deployment)
}

func (s *Server) deleteDeployment(c *gin.Context) {
	id := api.DeploymentID(c.Param("deploymentID"))
	ignoreLiveNodes, err := boolArg(c, "ignore_live_nodes")
	if err != nil {
		abortWithError(c, err)
		return
	}

	deployment, err := s.Manager.DeleteDeployment(
		c.Request.Context(), id, ignoreLiveNodes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, deployment)
}

func (s *Server) listWorkflows(c *gin.Context) {
	id := api.DeploymentID(c.Param("deploymentID"))
	res, err := s.Manager.ListWorkflows(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
