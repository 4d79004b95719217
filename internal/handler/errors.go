package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"smartcampus/internal/attendance"
	"smartcampus/internal/auth"
	"smartcampus/internal/faceclient"
	"smartcampus/internal/portal"
	"smartcampus/internal/recognition"
	"smartcampus/internal/tickets"
)

// fail writes the JSON error for err. Unknown errors are logged and hidden.
func (h *Handler) fail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
	case errors.Is(err, tickets.ErrInvalidPage):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid page"})
	case errors.Is(err, tickets.ErrNotFound),
		errors.Is(err, attendance.ErrStudentNotFound),
		errors.Is(err, attendance.ErrJobNotFound),
		errors.Is(err, portal.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, recognition.ErrInvalidFrame),
		errors.Is(err, tickets.ErrInvalid),
		errors.Is(err, portal.ErrInvalid),
		errors.Is(err, portal.ErrInvalidKind),
		errors.Is(err, portal.ErrInvalidFile),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrUnknownStudent),
		errors.Is(err, auth.ErrRoleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrStudentExists), errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, recognition.ErrLookupUnavailable),
		errors.Is(err, recognition.ErrRecognizerUnavailable),
		errors.Is(err, faceclient.ErrNoCamera):
		h.log.Warn("dependency unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// badRequest reports a body or query that could not be bound.
func (h *Handler) badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
