// internal/handlers/notification.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/verdict-cms/internal/services"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GET /notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.ListNotifications(c.Request.Context(), actor.ID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(notifications, total, params))
}

// POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, actor.ID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"id": id, "status": "read"})
}
