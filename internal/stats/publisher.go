package stats

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"

	"github.com/playmatatu/balldrop/internal/game"
	"github.com/redis/go-redis/v9"
)

// Publisher relays sandbox events to a Redis pub/sub channel. HandleEvent
// only enqueues; Run does the network writes.
type Publisher struct {
	rdb     *redis.Client
	channel string
	queue   chan game.Event
	dropped atomic.Int64
}

func NewPublisher(rdb *redis.Client, channel string, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{rdb: rdb, channel: channel, queue: make(chan game.Event, buffer)}
}

// HandleEvent implements game.EventSink. Events are dropped when the queue
// is full.
func (p *Publisher) HandleEvent(e game.Event) {
	select {
	case p.queue <- e:
	default:
		if n := p.dropped.Add(1); n%100 == 1 {
			log.Printf("[STATS] Event queue full; dropped %d events so far", n)
		}
	}
}

// Dropped is the number of events lost to a full queue.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	log.Printf("[STATS] Publishing events to %q", p.channel)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			b, err := json.Marshal(e)
			if err != nil {
				log.Printf("[STATS] Failed to encode %s event: %v", e.Type, err)
				continue
			}
			if p.rdb == nil {
				continue
			}
			if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
				log.Printf("[STATS] Publish failed: session=%s type=%s err=%v", e.SessionID, e.Type, err)
			}
		}
	}
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []game.EventSink

func (m MultiSink) HandleEvent(e game.Event) {
	for _, s := range m {
		if s != nil {
			s.HandleEvent(e)
		}
	}
}
