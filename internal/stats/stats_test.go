package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/balldrop/internal/game"
)

type memFlusher struct {
	mu     sync.Mutex
	totals map[int]Delta
	fail   bool
	calls  int
}

func (m *memFlusher) AddDeltas(_ context.Context, deltas map[int]Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errors.New("db down")
	}
	if m.totals == nil {
		m.totals = make(map[int]Delta)
	}
	for pid, d := range deltas {
		t := m.totals[pid]
		t.add(d)
		m.totals[pid] = t
	}
	return nil
}

func (m *memFlusher) total(pid int) Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[pid]
}

func TestRecorderAggregatesEvents(t *testing.T) {
	r := NewRecorder()
	events := []game.Event{
		{Type: game.EventPlayTime, PlayerID: 1, PlayMs: 1000},
		{Type: game.EventPlayTime, PlayerID: 1, PlayMs: 1000},
		{Type: game.EventBallDropped, PlayerID: 1},
		{Type: game.EventBallRemoved, PlayerID: 1, Reason: game.RemovedExitedBottom},
		{Type: game.EventShapePlaced, PlayerID: 1},
		{Type: game.EventShapePlaced, PlayerID: 2},
		{Type: game.EventBallDropped},
	}
	for _, e := range events {
		r.HandleEvent(e)
	}

	want := Delta{PlayTimeMs: 2000, BallsDropped: 1, ShapesPlaced: 1}
	if got := r.Pending(1); got != want {
		t.Errorf("player 1 pending = %+v, want %+v", got, want)
	}
	if got := r.Pending(2); got.ShapesPlaced != 1 {
		t.Errorf("player 2 pending = %+v", got)
	}
	if got := r.Pending(0); !got.IsZero() {
		t.Errorf("events without a player must be ignored, got %+v", got)
	}
}

func TestRecorderFlushDrainsAndRetries(t *testing.T) {
	r := NewRecorder()
	f := &memFlusher{fail: true}
	r.Add(3, Delta{BallsDropped: 2})

	if err := r.Flush(context.Background(), f); err == nil {
		t.Fatalf("expected flush error")
	}
	if got := r.Pending(3); got.BallsDropped != 2 {
		t.Fatalf("failed flush lost deltas: %+v", got)
	}

	r.Add(3, Delta{BallsDropped: 1})
	f.fail = false
	if err := r.Flush(context.Background(), f); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := f.total(3); got.BallsDropped != 3 {
		t.Errorf("flushed total = %+v, want 3 dropped", got)
	}
	if got := r.Pending(3); !got.IsZero() {
		t.Errorf("pending after flush = %+v", got)
	}

	calls := f.calls
	r.Flush(context.Background(), f)
	if f.calls != calls {
		t.Errorf("empty flush reached the store")
	}
}

func TestRecorderDiscard(t *testing.T) {
	r := NewRecorder()
	r.Add(5, Delta{ShapesPlaced: 4})
	r.Discard(5)
	if got := r.Pending(5); !got.IsZero() {
		t.Errorf("pending after discard = %+v", got)
	}
}

func TestFlushWorkerFlushesOnShutdown(t *testing.T) {
	r := NewRecorder()
	f := &memFlusher{}
	ctx, cancel := context.WithCancel(context.Background())
	StartFlushWorker(ctx, r, f, time.Hour)

	r.Add(9, Delta{PlayTimeMs: 1000})
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for f.total(9).PlayTimeMs == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := f.total(9); got.PlayTimeMs != 1000 {
		t.Errorf("final flush total = %+v", got)
	}
}

func TestPublisherDropsWhenFull(t *testing.T) {
	p := NewPublisher(nil, "test", 2)
	for i := 0; i < 5; i++ {
		p.HandleEvent(game.Event{Type: game.EventBallCreated})
	}
	if p.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", p.Dropped())
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	r := NewRecorder()
	var seen []game.EventType
	sink := MultiSink{r, nil, game.EventSinkFunc(func(e game.Event) { seen = append(seen, e.Type) })}

	sink.HandleEvent(game.Event{Type: game.EventShapePlaced, PlayerID: 4})
	if len(seen) != 1 || r.Pending(4).ShapesPlaced != 1 {
		t.Errorf("seen=%v pending=%+v", seen, r.Pending(4))
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey(12); got != "player:12:lifetime_stats" {
		t.Errorf("cacheKey = %q", got)
	}
}
