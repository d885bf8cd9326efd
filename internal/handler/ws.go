package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/realtime"
	"github.com/iliyamo/tripshare/internal/utils"
)

// WSHandler upgrades authenticated requests to the push channel.
type WSHandler struct {
	hub    *realtime.Hub
	secret string
}

func NewWSHandler(hub *realtime.Hub, secret string) *WSHandler {
	return &WSHandler{hub: hub, secret: secret}
}

// Serve handles GET /ws.  Browsers cannot set headers on a websocket
// handshake, so the access token may also come as ?token=.
func (h *WSHandler) Serve(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		raw := c.QueryParam("token")
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
		}
		cl, err := utils.ParseAccessToken(h.secret, raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		userID = cl.UserID
	}
	return h.hub.ServeWS(c.Response(), c.Request(), userID)
}
