package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// ============================================
// Organization context and permission checks
// ============================================

type OrganizationHandler struct {
	contextService    service.OrganizationContextService
	permissionService service.PermissionService
	logger            logrus.FieldLogger
}

// GET /api/organizations/current
func (h *OrganizationHandler) Current(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	orgID, err := h.contextService.GetCurrentOrganization(ctx, userID)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	if orgID == "" {
		c.JSON(http.StatusOK, models.CurrentOrganizationResponse{})
		return
	}

	role, err := h.permissionService.GetRole(ctx, userID, orgID)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CurrentOrganizationResponse{OrganizationID: &orgID, Role: role.String()})
}

// POST /api/organizations/:orgId/switch
func (h *OrganizationHandler) Switch(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	orgID := c.Param("orgId")
	if err := h.contextService.SwitchOrganization(c.Request.Context(), userID, orgID); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CurrentOrganizationResponse{OrganizationID: &orgID})
}

// GET /api/organizations/:orgId/membership
func (h *OrganizationHandler) Membership(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)
	c.JSON(http.StatusOK, models.CurrentOrganizationResponse{OrganizationID: &orgID, Role: middleware.GetRole(c).String()})
}

// GET /api/organizations/:orgId/permissions/:permission?resource_id=
func (h *OrganizationHandler) CheckPermission(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	perm, ok := types.ParsePermission(c.Param("permission"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown permission"})
		return
	}

	orgID := c.Param("orgId")
	resourceID := c.Query("resource_id")
	allowed, err := h.permissionService.CheckPermission(c.Request.Context(), userID, orgID, perm, resourceID)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.PermissionCheckResponse{
		OrganizationID: orgID,
		Permission:     string(perm),
		ResourceID:     resourceID,
		Allowed:        allowed,
	})
}

// GET /api/permissions/roles/:role lists the static catalog for a role.
func (h *OrganizationHandler) RolePermissions(c *gin.Context) {
	role, ok := types.ParseRole(c.Param("role"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	perms := service.PermissionsForRole(role)
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	c.JSON(http.StatusOK, models.RolePermissionsResponse{Role: role.String(), Permissions: names})
}
