package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/balldrop/internal/game"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber relays sandbox events published on channel to the
// clients watching the event's session. Events for sessions without viewers
// are dropped.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, channel string, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, channel)
	ch := pubsub.Channel()
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()
	go func() {
		log.Printf("[WS] %s subscriber started", channel)
		for msg := range ch {
			relayEvent(hub, msg.Payload)
		}
		log.Printf("[WS] %s subscriber stopped", channel)
	}()
}

func relayEvent(hub *Hub, payload string) bool {
	var e game.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		log.Printf("[WS] invalid event payload: %v", err)
		return false
	}
	if e.SessionID == "" || e.Type == "" {
		return false
	}
	// play_time ticks every second and is already reflected in frames.
	if e.Type == game.EventPlayTime {
		return false
	}
	if hub.RoomSize(e.SessionID) == 0 {
		return false
	}
	hub.Broadcast(e.SessionID, TypeEvent, e)
	return true
}
