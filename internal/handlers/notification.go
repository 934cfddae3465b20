package handlers

import (
	"net/http"

	"pitchfeed/internal/services"
	"pitchfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(svc *services.Services) *NotificationHandler {
	return &NotificationHandler{notifications: svc.Notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit := utils.ParseLimit(c.Query("limit"), 50, 200)
	list, err := h.notifications.List(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		RenderError(c, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		RenderError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
