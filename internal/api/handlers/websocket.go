package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/ws"
)

// HandleSessionWebSocket streams frames of a session and accepts commands
// on the same connection. ?codec=msgpack switches to binary frames. Viewers
// are disconnected when the session ends.
// GET /api/v1/sessions/:id/ws?token=...
func HandleSessionWebSocket(m *game.SessionManager, hub *ws.Hub, up *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, m)
		if !ok {
			return
		}
		codec, err := ws.ParseCodec(c.Query("codec"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := hub.Serve(c.Writer, c.Request, up, s, s.PlayerID, codec); err != nil {
			log.Printf("[WS] Upgrade error for session %s: %v", s.ID, err)
			return
		}
	}
}
