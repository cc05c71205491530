package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
)

// ============================================
// Notification Handler
// ============================================

type NotificationHandler struct {
	notifications NotificationLister
	logger        logrus.FieldLogger
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	notifications, err := h.notifications.List(c.Request.Context(), userID, limit)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	response := make([]models.NotificationResponse, len(notifications))
	for i, n := range notifications {
		response[i] = toNotificationResponse(n)
	}

	c.JSON(http.StatusOK, response)
}
