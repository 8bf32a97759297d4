package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/balldrop/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	commandTimeout = 2 * time.Second
	sendBuffer     = 64
)

// Client is one websocket connection bound to a sandbox session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	playerID  int
	sessionID string
	session   *game.Session
	codec     Codec
	send      chan outbound
}

// NewUpgrader returns an upgrader that accepts origins approved by allow.
// Requests without an Origin header come from native clients and pass.
func NewUpgrader(allow func(origin string) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allow == nil || allow(origin)
		},
	}
}

// Serve upgrades the request and attaches the connection to session. The
// caller has already checked that playerID owns the session.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, up *websocket.Upgrader, s *game.Session, playerID int, codec Codec) error {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		hub:       h,
		conn:      conn,
		playerID:  playerID,
		sessionID: s.ID,
		session:   s,
		codec:     codec,
		send:      make(chan outbound, sendBuffer),
	}
	if !h.join(c) {
		conn.Close()
		return errors.New("hub stopped")
	}
	h.Watch(s)

	go c.writePump()
	go c.readPump()

	// Send the current picture right away so a paused sandbox is not blank.
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if res, err := s.Execute(ctx, game.Snapshot{}); err == nil && res.Frame != nil {
		h.sendTo(c, Envelope{Type: TypeFrame, Data: *res.Frame})
	}
	return nil
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel; best-effort close frame.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(message.kind, message.data); err != nil {
				log.Printf("[WS] Write error for player %d: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for player %d: %v", c.playerID, err)
				return
			}
		}
	}
}

// readPump turns incoming messages into sandbox commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	// A live viewer keeps the session from being expired as idle.
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.session.Touch()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for player %d: %v", c.playerID, err)
			}
			return
		}
		if !c.handleMessage(message) {
			return
		}
	}
}

// handleMessage executes one command and replies with its result. It
// returns false once the session is gone.
func (c *Client) handleMessage(raw []byte) bool {
	cmd, seq, err := c.codec.Decode(raw)
	if err != nil {
		c.sendError(seq, err.Error())
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	res, err := c.session.Execute(ctx, cmd)
	if errors.Is(err, game.ErrSessionClosed) {
		c.sendError(seq, "session closed")
		return false
	}
	if err != nil {
		c.sendError(seq, err.Error())
		return true
	}
	c.hub.sendTo(c, Envelope{Type: TypeResult, Seq: seq, Data: res})
	return true
}

// sendError sends an error message to the client
func (c *Client) sendError(seq int64, message string) {
	c.hub.sendTo(c, Envelope{Type: TypeError, Seq: seq, Message: message})
}
