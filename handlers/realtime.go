package handlers

import (
	"github.com/gin-gonic/gin"

	"media-site-service/logging"
	"media-site-service/services"
	"media-site-service/utils"
	"media-site-service/ws"
)

type RealtimeHandler struct {
	Hub      *ws.Hub
	Sessions *services.SessionStore
}

// Connect upgrades to a websocket. Browsers cannot set headers on the
// upgrade request, so the admin token arrives as ?token=.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	if !h.Sessions.VerifySession(c.Query("token")) {
		utils.UnauthorizedResponse(c, "Unauthorized")
		return
	}
	if err := h.Hub.ServeWS(c.Writer, c.Request); err != nil {
		logging.Warn().Err(err).Msg("Websocket upgrade failed")
	}
}
