package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

type ProjectHandler struct {
	gate   service.AccessGate
	logger logrus.FieldLogger
}

// GET /api/projects?organization_id= lists the projects the caller can see.
// Without organization_id the current organization context is used.
func (h *ProjectHandler) ListAccessible(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	orgID, ids, err := h.gate.AccessibleProjects(c.Request.Context(), userID, c.Query("organization_id"))
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.AccessibleProjectsResponse{
		OrganizationID: orgID,
		ProjectIDs:     safeStringSlice(ids),
	})
}
