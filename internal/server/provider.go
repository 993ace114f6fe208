package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

func (s *Server) getProviderContext(c *gin.Context) {
	pc, err := s.Storage.GetProviderContext(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (s *Server) postProviderContext(c *gin.Context) {
	if !requireJSON(c) {
		return
	}

	var req api.PutProviderContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, api.BadParameters(
			"malformed provider context body: %s", err))
		return
	}
	if req.Name == "" || req.Context == nil {
		abortWithError(c, api.BadParameters(
			"request body must contain 'name' and 'context' fields"))
		return
	}

	err := s.Storage.PutProviderContext(c.Request.Context(),
		&api.ProviderContext{
			Name:    req.Name,
			Context: req.Context,
		})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, api.ProviderContextCreatedResponse{
		Status: "ok",
	})
}

func (s *Server) getStatus(c *gin.Context) {
	services := s.Prober.Probe(c.Request.Context())
	c.JSON(http.StatusOK, api.StatusResponse{
		Status:   "running",
		Services: services,
	})
}
