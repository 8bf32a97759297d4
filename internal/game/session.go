package game

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// FrameSink receives frames from a session goroutine. It must not block.
type FrameSink interface {
	PublishFrame(sessionID string, f Frame)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(sessionID string, f Frame)

func (fn FrameSinkFunc) PublishFrame(sessionID string, f Frame) { fn(sessionID, f) }

// SessionConfig controls the loop rates of a session.
type SessionConfig struct {
	FrameRate     int
	BroadcastRate int
}

type request struct {
	cmd   Command
	reply chan response
}

type response struct {
	res Result
	err error
}

// Session runs one sandbox on its own goroutine. The goroutine steps the
// world at the frame rate, publishes frames at the broadcast rate and applies
// commands between ticks, so nothing else ever touches the sandbox.
type Session struct {
	ID        string
	PlayerID  int
	CreatedAt time.Time

	sandbox  *Sandbox
	frames   FrameSink
	commands chan request

	frameRate      int
	broadcastEvery uint64

	lastActive atomic.Int64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSession builds the sandbox for opts and starts its loop.
func NewSession(id string, playerID int, opts Options, frames FrameSink, cfg SessionConfig) *Session {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = FrameRate
	}
	if cfg.BroadcastRate <= 0 || cfg.BroadcastRate > cfg.FrameRate {
		cfg.BroadcastRate = cfg.FrameRate
	}
	opts.SessionID = id
	opts.PlayerID = playerID

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:             id,
		PlayerID:       playerID,
		CreatedAt:      time.Now(),
		sandbox:        NewSandbox(opts),
		frames:         frames,
		commands:       make(chan request),
		frameRate:      cfg.FrameRate,
		broadcastEvery: uint64(cfg.FrameRate / cfg.BroadcastRate),
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	s.touch()
	go s.run(ctx)
	return s
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.sandbox.Close()

	ticker := time.NewTicker(time.Second / time.Duration(s.frameRate))
	defer ticker.Stop()

	clock := newFrameClock(time.Now(), MaxFrameDelta)
	var (
		played time.Duration
		ticks  uint64
	)

	log.Printf("[SESSION] %s started (player=%d mode=%s)", s.ID, s.PlayerID, s.sandbox.Mode())
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SESSION] %s stopped", s.ID)
			return

		case req := <-s.commands:
			wasPaused := s.sandbox.Paused()
			res, err := s.sandbox.Apply(req.cmd)
			if wasPaused && !s.sandbox.Paused() {
				clock.Reset(time.Now())
				played = 0
			}
			req.reply <- response{res: res, err: err}
			if res.Applied {
				s.publish()
			}

		case now := <-ticker.C:
			dt := clock.Delta(now)
			if !s.sandbox.Paused() {
				s.sandbox.Advance(dt.Seconds())
				played += dt
				for played >= PlayTimeTick {
					s.sandbox.AddPlayTime(PlayTimeTick)
					played -= PlayTimeTick
				}
			}
			ticks++
			if ticks%s.broadcastEvery == 0 {
				s.publish()
			}
		}
	}
}

func (s *Session) publish() {
	if s.frames == nil {
		return
	}
	s.frames.PublishFrame(s.ID, s.sandbox.Frame())
}

// Execute queues cmd to the session goroutine and waits for its result.
func (s *Session) Execute(ctx context.Context, cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, ErrUnknownCommand
	}
	req := request{cmd: cmd, reply: make(chan response, 1)}
	select {
	case s.commands <- req:
	case <-s.done:
		return Result{}, ErrSessionClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	s.touch()

	select {
	case r := <-req.reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Stop cancels the loop and waits until the goroutine has released the world.
// It is safe to call more than once.
func (s *Session) Stop() {
	s.cancel()
	<-s.done
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastActive is the time of the latest command.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Touch marks the session as in use without running a command.
func (s *Session) Touch() {
	s.touch()
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}
