package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/modules/notifications"
)

type NotificationsHandler struct {
	Logger *slog.Logger
	Svc    *notifications.Service
}

func NewNotificationsHandler(logger *slog.Logger, svc *notifications.Service) *NotificationsHandler {
	return &NotificationsHandler{Logger: logger, Svc: svc}
}

// GET /notifications
func (h *NotificationsHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.Svc.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// POST /notifications/:id/read
func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.Svc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
