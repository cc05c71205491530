package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

type MemberHandler struct {
	memberService service.MemberService
	logger        logrus.FieldLogger
}

func NewMemberHandler(memberService service.MemberService, logger logrus.FieldLogger) *MemberHandler {
	return &MemberHandler{memberService: memberService, logger: logger}
}

// GET /api/organizations/:orgId/members
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.memberService.ListMembers(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	response := make([]models.MemberResponse, len(members))
	for i, m := range members {
		response[i] = toMemberResponse(m)
	}

	c.JSON(http.StatusOK, response)
}

// PATCH /api/organizations/:orgId/members/:userId/role
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	managerID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orgID := c.Param("orgId")
	targetID := c.Param("userId")
	if err := h.memberService.UpdateMemberRole(c.Request.Context(), managerID, targetID, orgID, req.Role); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"organization_id": orgID,
			"user_id":         targetID,
			"manager_id":      managerID,
		}).Debug("role update rejected")
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}
