package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pitchfeed/internal/middleware"
	"pitchfeed/internal/models"
	"pitchfeed/internal/services"

	"github.com/gin-gonic/gin"
)

// errorStatus maps a service error kind to its HTTP status and label.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, services.ErrDuplicateEvent):
		return http.StatusConflict, "duplicate_event"
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

// RenderError writes err as a JSON error body.
func RenderError(c *gin.Context, err error) {
	code, kind := errorStatus(err)
	_ = c.Error(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(code, gin.H{"error": kind, "message": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": message})
}

// currentUser is only called behind AuthRequired.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}
