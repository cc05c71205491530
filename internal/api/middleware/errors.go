package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

var errorStatuses = []struct {
	kind   error
	status int
}{
	{service.ErrAuthentication, http.StatusUnauthorized},
	{service.ErrInsufficientPermissions, http.StatusForbidden},
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrRetryable, http.StatusServiceUnavailable},
}

// ErrorStatus maps a service error to an HTTP status and a message that is
// safe to show the caller. Unclassified errors become a generic 500.
func ErrorStatus(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.kind) {
			var svcErr *service.Error
			if errors.As(err, &svcErr) {
				return e.status, svcErr.Message
			}
			return e.status, e.kind.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// AbortWithError writes the mapped error response. 5xx errors are logged
// with the underlying cause; the body never carries it.
func AbortWithError(c *gin.Context, logger logrus.FieldLogger, err error) {
	status, msg := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
