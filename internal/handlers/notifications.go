package handlers

import (
	"sahel/internal/middleware"
	"sahel/internal/services/notification"
	"sahel/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler exposes the explicit process-completion signal.
type NotificationHandler struct {
	service *notification.Service
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// CompleteProcess marks an applicant's process as completed. The reminder
// scheduler never completes a process on its own; this is the only way.
func (h *NotificationHandler) CompleteProcess(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input struct {
		ProcessType string `json:"process_type"`
	}
	if err := c.BodyParser(&input); err != nil || input.ProcessType == "" {
		return response.BadRequest(c, "missing process type")
	}

	if err := h.service.CompleteProcess(c.Context(), claims.UserID, input.ProcessType); err != nil {
		return response.ServerError(c, "failed to complete process")
	}
	return response.Success(c, "Process completed", nil)
}
