package stats

import (
	"context"
	"log"
	"sync"

	"github.com/playmatatu/balldrop/internal/game"
)

// Delta is the lifetime statistics a player gained since the last flush.
type Delta struct {
	PlayTimeMs      int64
	BallsDropped    int64
	BallsDelivered  int64
	ShapesPlaced    int64
	SessionsStarted int64
}

// IsZero reports whether d carries nothing to write.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

func (d *Delta) add(o Delta) {
	d.PlayTimeMs += o.PlayTimeMs
	d.BallsDropped += o.BallsDropped
	d.BallsDelivered += o.BallsDelivered
	d.ShapesPlaced += o.ShapesPlaced
	d.SessionsStarted += o.SessionsStarted
}

// Flusher persists accumulated deltas.
type Flusher interface {
	AddDeltas(ctx context.Context, deltas map[int]Delta) error
}

// Recorder is the event sink that turns sandbox events into lifetime
// statistics. Session goroutines call HandleEvent concurrently; the flush
// worker drains the pending totals.
type Recorder struct {
	mu      sync.Mutex
	pending map[int]Delta
}

func NewRecorder() *Recorder {
	return &Recorder{pending: make(map[int]Delta)}
}

// HandleEvent implements game.EventSink.
func (r *Recorder) HandleEvent(e game.Event) {
	if e.PlayerID == 0 {
		return
	}
	var d Delta
	switch e.Type {
	case game.EventPlayTime:
		d.PlayTimeMs = e.PlayMs
	case game.EventBallDropped:
		d.BallsDropped = 1
	case game.EventShapePlaced:
		d.ShapesPlaced = 1
	default:
		return
	}
	r.Add(e.PlayerID, d)
}

// Add merges d into the pending totals of a player.
func (r *Recorder) Add(playerID int, d Delta) {
	r.mu.Lock()
	p := r.pending[playerID]
	p.add(d)
	r.pending[playerID] = p
	r.mu.Unlock()
}

// Pending returns the unflushed totals of a player.
func (r *Recorder) Pending(playerID int) Delta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[playerID]
}

// Discard drops the unflushed totals of a player.
func (r *Recorder) Discard(playerID int) {
	r.mu.Lock()
	delete(r.pending, playerID)
	r.mu.Unlock()
}

// Flush hands every pending delta to f. On failure the deltas are merged back
// so the next flush retries them.
func (r *Recorder) Flush(ctx context.Context, f Flusher) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[int]Delta)
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := f.AddDeltas(ctx, batch); err != nil {
		for pid, d := range batch {
			r.Add(pid, d)
		}
		return err
	}
	log.Printf("[STATS] Flushed lifetime stats for %d players", len(batch))
	return nil
}
