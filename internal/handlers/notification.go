package handlers

import (
	"net/http"

	"groupfinder/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notifier *services.NotificationService
	log      *zap.Logger
}

func NewNotificationHandler(notifier *services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, log: log}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	user := currentUser(c)
	notifications, err := h.notifier.List(c.Request.Context(), user.ID, 50)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread":        h.notifier.UnreadCount(c.Request.Context(), user.ID),
	})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user := currentUser(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	found, err := h.notifier.MarkRead(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Notification not found", "code": "not_found"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	found, err := h.notifier.Delete(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Notification not found", "code": "not_found"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := currentUser(c)
	if err := h.notifier.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}
