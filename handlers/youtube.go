package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"media-site-service/models"
)

// VideoSource lists a channel's latest videos; it never fails.
type VideoSource interface {
	LatestVideos(ctx context.Context) []models.Video
}

type YouTubeHandler struct {
	Videos VideoSource
}

// Latest responds with {"items": [...]}, matching the Data API search shape.
func (h *YouTubeHandler) Latest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.Videos.LatestVideos(c.Request.Context())})
}
