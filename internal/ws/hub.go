package ws

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/playmatatu/balldrop/internal/game"
)

// Hub tracks the websocket clients watching each sandbox session and fans
// frames and events out to them. It implements game.FrameSink.
type Hub struct {
	rooms      map[string]map[*Client]bool // sessionID -> clients
	watched    map[string]bool             // sessions with an end watcher
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	dropped    atomic.Int64
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		watched:    make(map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.sessionID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[c.sessionID] = room
			}
			room[c] = true
			n := len(room)
			h.mu.Unlock()
			log.Printf("[WS] Player %d joined session %s (codec=%s viewers=%d)", c.playerID, c.sessionID, c.codec, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.sessionID]; ok && room[c] {
				delete(room, c)
				close(c.send)
				if len(room) == 0 {
					delete(h.rooms, c.sessionID)
				}
				log.Printf("[WS] Player %d left session %s", c.playerID, c.sessionID)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// PublishFrame implements game.FrameSink. Each codec is encoded once per
// frame; clients with a full buffer miss the frame.
func (h *Hub) PublishFrame(sessionID string, f game.Frame) {
	h.broadcast(sessionID, Envelope{Type: TypeFrame, Data: f})
}

// Broadcast sends a typed message to every client of a session.
func (h *Hub) Broadcast(sessionID, typ string, data interface{}) {
	h.broadcast(sessionID, Envelope{Type: typ, Data: data})
}

func (h *Hub) broadcast(sessionID string, env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[sessionID]
	if len(room) == 0 {
		return
	}
	encoded := make(map[Codec]outbound, 2)
	for c := range room {
		out, ok := encoded[c.codec]
		if !ok {
			var err error
			if out, err = c.codec.Encode(env); err != nil {
				log.Printf("[WS] Error encoding %s for session %s: %v", env.Type, sessionID, err)
				return
			}
			encoded[c.codec] = out
		}
		select {
		case c.send <- out:
		default:
			h.dropped.Add(1)
		}
	}
}

// sendTo delivers one message to a client that is still registered.
func (h *Hub) sendTo(c *Client, env Envelope) bool {
	out, err := c.codec.Encode(env)
	if err != nil {
		log.Printf("[WS] Error encoding %s for player %d: %v", env.Type, c.playerID, err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.rooms[c.sessionID][c] {
		return false
	}
	select {
	case c.send <- out:
		return true
	default:
		log.Printf("[WS] Send buffer full for player %d in session %s, dropping %s", c.playerID, c.sessionID, env.Type)
		return false
	}
}

// CloseRoom tells every client of a session that it ended and disconnects
// them.
func (h *Hub) CloseRoom(sessionID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for c := range room {
		if out, err := c.codec.Encode(Envelope{Type: TypeClosed, Message: reason}); err == nil {
			select {
			case c.send <- out:
			default:
			}
		}
		close(c.send)
	}
	delete(h.rooms, sessionID)
	log.Printf("[WS] Closed session room %s (%s, %d viewers)", sessionID, reason, len(room))
}

// Watch closes the session's room once the session ends. Only the first call
// per session starts a watcher; it reports whether this call did.
func (h *Hub) Watch(s *game.Session) bool {
	h.mu.Lock()
	if h.watched[s.ID] {
		h.mu.Unlock()
		return false
	}
	h.watched[s.ID] = true
	h.mu.Unlock()

	go func() {
		<-s.Done()
		h.CloseRoom(s.ID, "session ended")
		h.mu.Lock()
		delete(h.watched, s.ID)
		h.mu.Unlock()
	}()
	return true
}

// Watching reports whether a session has an end watcher.
func (h *Hub) Watching(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.watched[sessionID]
}

// RoomSize returns the number of clients watching a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Dropped is the number of frames and events skipped for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
