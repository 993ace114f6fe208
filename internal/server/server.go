package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/internal/lifecycle"
	"github.com/orchestra-dev/orchestra/internal/store"
	"github.com/orchestra-dev/orchestra/internal/upload"
	"github.com/orchestra-dev/orchestra/pkg/api"
)

type (
	// Prober reports the state of the system services backing the manager
	Prober interface {
		Probe(ctx context.Context) []api.ServiceStatus
	}

	// Components are the collaborators the resource surface wires to the
	// network boundary
	Components struct {
		Storage   store.Storage
		Receiver  *upload.Receiver
		Extractor *upload.Extractor
		Publisher *upload.Publisher
		Manager   *lifecycle.Manager
		Index     *events.Index
		Hub       *events.Hub
		Bus       *events.Bus
		Prober    Prober
	}

	// Server implements the HTTP API of the manager
	Server struct {
		cfg *config.Config
		Components
	}

	// StaticProber is the default service prober, reporting a fixed set of
	// services as running
	StaticProber struct {
		Names []string
	}
)

// NewServer creates the HTTP API server over its five core components
func NewServer(cfg *config.Config, c Components) *Server {
	return &Server{
		cfg:        cfg,
		Components: c,
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, PATCH, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/blueprints", s.listBlueprints)
	router.POST("/blueprints", s.uploadBlueprint)
	router.GET("/blueprints/:blueprintID", s.getBlueprint)
	router.PUT("/blueprints/:blueprintID", s.uploadBlueprintWithID)
	router.DELETE("/blueprints/:blueprintID", s.deleteBlueprint)
	router.GET("/blueprints/:blueprintID/archive", s.downloadBlueprintArchive)

	router.GET("/deployments", s.listDeployments)
	router.GET("/deployments/:deploymentID", s.getDeployment)
	router.PUT("/deployments/:deploymentID", s.createDeployment)
	router.DELETE("/deployments/:deploymentID", s.deleteDeployment)
	router.GET("/deployments/:deploymentID/executions",
		s.listDeploymentExecutions)
	router.POST("/deployments/:deploymentID/executions", s.executeWorkflow)
	router.GET("/deployments/:deploymentID/workflows", s.listWorkflows)

	router.GET("/executions/:executionID", s.getExecution)
	router.POST("/executions/:executionID", s.modifyExecution)
	router.PATCH("/executions/:executionID", s.updateExecutionStatus)

	router.GET("/nodes", s.listNodes)
	router.GET("/node-instances", s.listNodeInstances)
	router.GET("/node-instances/:instanceID", s.getNodeInstance)
	router.PATCH("/node-instances/:instanceID", s.updateNodeInstance)

	router.GET("/events", s.queryEvents)
	router.POST("/events", s.queryEvents)
	router.POST("/search", s.search)

	router.GET("/status", s.getStatus)
	router.GET("/provider/context", s.getProviderContext)
	router.POST("/provider/context", s.postProviderContext)

	router.GET("/ws", s.handleWebSocket)

	return router
}

// abortWithError surfaces a typed failure with its stable error code. Errors
// without a code report as internal
func abortWithError(c *gin.Context, err error) {
	status := api.HTTPStatus(err)
	c.JSON(status, api.ErrorResponse{
		Message:   err.Error(),
		ErrorCode: api.CodeOf(err),
		Status:    status,
	})
}

// requireJSON enforces the application/json content type on mutating
// endpoints
func requireJSON(c *gin.Context) bool {
	ct := c.ContentType()
	if ct != "application/json" {
		abortWithError(c, api.UnsupportedContentType(
			"content type must be application/json, got %q", ct))
		return false
	}
	return true
}

// boolArg parses a true/false query argument, defaulting to false when
// absent
func boolArg(c *gin.Context, name string) (bool, error) {
	raw := c.DefaultQuery(name, "false")
	switch strings.ToLower(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, api.BadParameters(
		"%s must be <true/false>, got %s", name, raw)
}

// Probe reports every configured service as running
func (p *StaticProber) Probe(context.Context) []api.ServiceStatus {
	services := make([]api.ServiceStatus, 0, len(p.Names))
	for _, name := range p.Names {
		services = append(services, api.ServiceStatus{
			DisplayName: name,
			State:       "running",
		})
	}
	return services
}
