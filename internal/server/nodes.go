package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

func (s *Server) listNodes(c *gin.Context) {
	ctx := c.Request.Context()

	var nodes []*api.Node
	var err error
	if raw := c.Query("deployment_id"); raw != "" {
		nodes, err = s.Storage.ListNodes(ctx, api.DeploymentID(raw))
	} else {
		nodes, err = s.Storage.ListAllNodes(ctx)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.NodesListResponse{
		Nodes: nodes,
		Count: len(nodes),
	})
}

func (s *Server) listNodeInstances(c *gin.Context) {
	ctx := c.Request.Context()

	var instances []*api.NodeInstance
	var err error
	if raw := c.Query("deployment_id"); raw != "" {
		instances, err = s.Storage.ListNodeInstances(
			ctx, api.DeploymentID(raw))
	} else {
		instances, err = s.Storage.ListAllNodeInstances(ctx)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.InstancesListResponse{
		Instances: instances,
		Count:     len(instances),
	})
}

func (s *Server) getNodeInstance(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	instance, err := s.Storage.GetNodeInstance(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}

func (s *Server) updateNodeInstance(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	id := api.InstanceID(c.Param("instanceID"))

	var req api.UpdateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, api.BadParameters(
			"request body must be a map containing an integer 'version' "+
				"field: %s", err))
		return
	}
	if req.Version == nil {
		abortWithError(c, api.BadParameters(
			"request body must be a map containing a 'version' field"))
		return
	}

	instance, err := s.Manager.UpdateNodeInstance(
		c.Request.Context(), id, *req.Version,
		req.RuntimeProperties, req.State)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}
