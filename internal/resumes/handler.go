package resumes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/server/middleware"
	"resumind/internal/shared/server/respond"
)

// Handler wires the read-only record routes.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches record routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.GET("/resumes/:id/image", h.artifact(ArtifactImage, "image/png"))
	rg.GET("/resumes/:id/file", h.artifact(ArtifactResume, "application/pdf"))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	records, err := h.Svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"items": records})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set(middleware.ResumeIDKey, id)

	rec, err := h.Svc.GetForUser(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) artifact(which Artifact, contentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		id := c.Param("id")
		c.Set(middleware.ResumeIDKey, id)

		rc, _, err := h.Svc.OpenArtifact(c.Request.Context(), userID, id, which)
		if err != nil {
			h.fail(c, err)
			return
		}
		defer rc.Close()
		c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrNoArtifact):
		respond.Error(c, http.StatusNotFound, "not_found", "artifact not available", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load resume", nil)
	}
}
