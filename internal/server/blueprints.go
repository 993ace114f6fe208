package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/log"
)

func (s *Server) listBlueprints(c *gin.Context) {
	blueprints, err := s.Storage.ListBlueprints(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.BlueprintsListResponse{
		Blueprints: blueprints,
		Count:      len(blueprints),
	})
}

func (s *Server) getBlueprint(c *gin.Context) {
	id := api.BlueprintID(c.Param("blueprintID"))
	blueprint, err := s.Storage.GetBlueprint(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, blueprint)
}

func (s *Server) uploadBlueprint(c *gin.Context) {
	s.submitBlueprint(c, "")
}

func (s *Server) uploadBlueprintWithID(c *gin.Context) {
	id := api.SanitizeID(api.BlueprintID(c.Param("blueprintID")))
	if id == "" {
		abortWithError(c, api.BadParameters("blueprint id must not be empty"))
		return
	}
	s.submitBlueprint(c, id)
}

// submitBlueprint drives the archive submission pipeline. The received
// archive is staged on disk for the duration of the request; on any failure
// before publication both the archive and the staged tree are gone
func (s *Server) submitBlueprint(c *gin.Context, id api.BlueprintID) {
	ctx := c.Request.Context()

	archivePath, err := s.Receiver.Receive(c.Request)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer func() {
		// the publisher relocates the archive on success; anything left
		// behind here is the residue of a failed submission
		if _, err := os.Stat(archivePath); err == nil {
			if err := os.Remove(archivePath); err != nil {
				slog.Warn("failed to remove submitted archive",
					log.Path(archivePath), log.Error(err))
			}
		}
	}()

	stagedDir, err := s.Extractor.Extract(archivePath)
	if err != nil {
		abortWithError(c, err)
		return
	}

	blueprint, err := s.Publisher.Publish(
		ctx, stagedDir, c.Query("application_file_name"), archivePath, id,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	s.Bus.Emit(ctx, &events.Event{
		Type:        events.BlueprintPublished,
		BlueprintID: blueprint.ID,
	})
	s.Bus.Record(ctx, blueprint)
	c.JSON(http.StatusCreated, blueprint)
}

func (s *Server) deleteBlueprint(c *gin.Context) {
	id := api.BlueprintID(c.Param("blueprintID"))
	blueprint, err := s.Manager.DeleteBlueprint(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, blueprint)
}

func (s *Server) downloadBlueprintArchive(c *gin.Context) {
	id := api.BlueprintID(c.Param("blueprintID"))
	if _, err := s.Storage.GetBlueprint(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	name := fmt.Sprintf("%s.tar.gz", id)
	archivePath := filepath.Join(
		s.cfg.FileServerRoot, s.cfg.UploadedBlueprintsFolder,
		string(id), name,
	)
	if _, err := os.Stat(archivePath); err != nil {
		abortWithError(c, api.NotFound(
			"blueprint archive for %s was not found", id))
		return
	}
	c.FileAttachment(archivePath, name)
}
