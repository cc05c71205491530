package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

// ============================================
// Auth Handler
// ============================================

type AuthHandler struct {
	authService service.AuthService
	logger      logrus.FieldLogger
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, session, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		User:    toUserResponse(user),
		Session: toSessionResponse(session),
	})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(session))
}

// Logout revokes the session behind the bearer token. A missing or
// already invalid token still logs out.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token != "" {
		claims, err := h.authService.ValidateToken(c.Request.Context(), token)
		if err == nil {
			if err := h.authService.Logout(c.Request.Context(), claims.SessionID); err != nil {
				middleware.AbortWithError(c, h.logger, err)
				return
			}
		}
	}
	c.Status(http.StatusNoContent)
}
