package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/pkg/api"
)

// queryEvents runs an opaque query against the lifecycle event index. The
// body is passed through uninterpreted beyond its envelope
func (s *Server) queryEvents(c *gin.Context) {
	s.queryIndex(c, events.EventsIndex)
}

// search runs an opaque query against the entity snapshot index
func (s *Server) search(c *gin.Context) {
	s.queryIndex(c, events.StorageIndex)
}

func (s *Server) queryIndex(c *gin.Context, index string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWithError(c, api.BadParameters(
			"failed to read query body: %s", err))
		return
	}

	res, err := s.Index.Query(c.Request.Context(), index, body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
