package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"media-site-service/models"
	"media-site-service/services"
	"media-site-service/utils"
)

type NotificationHandler struct {
	Store *services.NotificationStore
}

// ListActive is public.
func (h *NotificationHandler) ListActive(c *gin.Context) {
	utils.SuccessResponse(c, h.Store.GetActive())
}

func (h *NotificationHandler) ListAll(c *gin.Context) {
	utils.SuccessResponse(c, h.Store.GetAll())
}

func (h *NotificationHandler) Create(c *gin.Context) {
	var req services.NewNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Title and message are required")
		return
	}

	notification, err := h.Store.Add(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Failed to create notification")
		return
	}
	utils.CreatedResponse(c, notification)
}

func (h *NotificationHandler) Update(c *gin.Context) {
	var patch models.NotificationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	notification, err := h.Store.Update(c.Param("id"), patch)
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "Notification not found")
	case errors.Is(err, services.ErrInvalidInput):
		utils.BadRequestResponse(c, err.Error())
	case err != nil:
		utils.InternalErrorResponse(c, "Failed to update notification")
	default:
		utils.SuccessResponse(c, notification)
	}
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if !h.Store.Delete(c.Param("id")) {
		utils.NotFoundResponse(c, "Notification not found")
		return
	}
	utils.SuccessMessageResponse(c, "Notification deleted successfully", nil)
}
