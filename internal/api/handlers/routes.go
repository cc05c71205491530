package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// RegisterRoutes mounts the public and authenticated API under api.
func RegisterRoutes(api *gin.RouterGroup, h *Handlers, tokens middleware.TokenValidator, gate service.AccessGate, logger logrus.FieldLogger) {
	// ============================================
	// Public routes (no auth required)
	// ============================================
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}
	api.POST("/invitations/accept", h.Invitation.Accept)

	// ============================================
	// Protected routes (require auth middleware)
	// ============================================
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens, logger))
	{
		protected.GET("/organizations/current", h.Organization.Current)
		protected.GET("/permissions/roles/:role", h.Organization.RolePermissions)

		orgs := protected.Group("/organizations/:orgId")
		{
			orgs.POST("/switch", h.Organization.Switch)
			orgs.GET("/membership", middleware.RequireRole(gate, logger, types.ValidRoles...), h.Organization.Membership)
			orgs.GET("/permissions/:permission", h.Organization.CheckPermission)

			orgs.GET("/invitations", middleware.RequirePermission(gate, types.PermInviteMember, "", logger), h.Invitation.ListPending)
			orgs.POST("/invitations", middleware.RequirePermission(gate, types.PermInviteMember, "", logger), h.Invitation.Create)

			orgs.GET("/members", middleware.RequirePermission(gate, types.PermViewMembers, "", logger), h.Member.List)
			orgs.PATCH("/members/:userId/role", middleware.RequirePermission(gate, types.PermManageMemberRoles, "", logger), h.Member.UpdateRole)
		}

		protected.DELETE("/invitations/:id", h.Invitation.Cancel)
		protected.GET("/projects", h.Project.ListAccessible)
		protected.GET("/notifications", h.Notification.List)
	}
}
