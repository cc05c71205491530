package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

// InvitationHandler exposes HTTP endpoints for invitation flows.
type InvitationHandler struct {
	invitationService service.InvitationService
	logger            logrus.FieldLogger
}

func NewInvitationHandler(invitationService service.InvitationService, logger logrus.FieldLogger) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService, logger: logger}
}

// POST /api/organizations/:orgId/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issued, err := h.invitationService.GenerateInvitation(c.Request.Context(), service.GenerateInvitationInput{
		Email:          req.Email,
		OrganizationID: c.Param("orgId"),
		Role:           req.Role,
		InviterID:      userID,
		ProjectID:      req.ProjectID,
		BoardID:        req.BoardID,
		Message:        req.Message,
	})
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	// The token and temporary password travel by email only.
	c.JSON(http.StatusCreated, toInvitationResponse(issued.Invitation))
}

// GET /api/organizations/:orgId/invitations
func (h *InvitationHandler) ListPending(c *gin.Context) {
	invitations, err := h.invitationService.GetPendingInvitations(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	response := make([]models.InvitationResponse, len(invitations))
	for i, inv := range invitations {
		response[i] = toInvitationResponse(inv)
	}
	c.JSON(http.StatusOK, response)
}

// POST /api/invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req models.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.invitationService.AcceptInvitation(c.Request.Context(), service.AcceptInvitationInput{
		Token:             req.Token,
		Email:             req.Email,
		TemporaryPassword: req.TemporaryPassword,
		NewPassword:       req.NewPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		IPAddress:         c.ClientIP(),
		UserAgent:         c.Request.UserAgent(),
	})
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.AcceptInvitationResponse{
		UserID:         result.UserID,
		OrganizationID: result.OrganizationID,
		Role:           result.Role.String(),
		RedirectURL:    result.RedirectURL,
		UserCreated:    result.UserCreated,
		Session:        toSessionResponse(result.Session),
	})
}

// DELETE /api/invitations/:id
func (h *InvitationHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	cancelled, err := h.invitationService.CancelInvitation(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CancelInvitationResponse{Cancelled: cancelled})
}
