package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type frameCounter struct {
	mu     sync.Mutex
	frames []Frame
}

func (c *frameCounter) PublishFrame(_ string, f Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
}

func (c *frameCounter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestSessionExecuteAndStop(t *testing.T) {
	frames := &frameCounter{}
	s := NewSession("sbx_test", 7, Options{Seed: 1}, frames, SessionConfig{})
	ctx := context.Background()

	res, err := s.Execute(ctx, Place{Kind: SmallSquare})
	if err != nil || !res.Applied {
		t.Fatalf("place: res=%+v err=%v", res, err)
	}
	snap, err := s.Execute(ctx, Snapshot{})
	if err != nil || snap.Frame == nil {
		t.Fatalf("snapshot: %+v %v", snap, err)
	}
	if len(snap.Frame.Shapes) != 1 || !snap.Frame.Paused {
		t.Errorf("frame shapes=%d paused=%v", len(snap.Frame.Shapes), snap.Frame.Paused)
	}

	s.Stop()
	s.Stop()
	select {
	case <-s.Done():
	default:
		t.Fatalf("Stop returned before the loop exited")
	}
	if _, err := s.Execute(ctx, Snapshot{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("execute after stop: err = %v, want ErrSessionClosed", err)
	}
}

func TestSessionPublishesFramesWhileRunning(t *testing.T) {
	frames := &frameCounter{}
	s := NewSession("sbx_frames", 1, Options{Seed: 1}, frames, SessionConfig{FrameRate: 60, BroadcastRate: 30})
	defer s.Stop()

	if _, err := s.Execute(context.Background(), Resume{}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for frames.len() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if frames.len() < 5 {
		t.Errorf("only %d frames published in 2s", frames.len())
	}
}

func TestSessionCreditsPlayTime(t *testing.T) {
	var (
		mu     sync.Mutex
		played int64
	)
	sink := EventSinkFunc(func(e Event) {
		if e.Type == EventPlayTime {
			mu.Lock()
			played += e.PlayMs
			mu.Unlock()
		}
	})
	s := NewSession("sbx_play", 1, Options{Seed: 1, Events: sink, StartRunning: true}, nil, SessionConfig{})
	defer s.Stop()

	time.Sleep(1300 * time.Millisecond)
	res, err := s.Execute(context.Background(), Snapshot{})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if played < 1000 || res.Frame.Stats.PlayTimeMs != played {
		t.Errorf("play time events=%dms stats=%dms, want at least 1000 and equal", played, res.Frame.Stats.PlayTimeMs)
	}
}

func TestSessionExecuteHonoursContext(t *testing.T) {
	s := NewSession("sbx_ctx", 1, Options{Seed: 1}, nil, SessionConfig{})
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Execute(ctx, Pause{}); err == nil {
		t.Errorf("execute on stopped session with cancelled context succeeded")
	}
}

func TestSessionReportsRejectedLoad(t *testing.T) {
	s := NewSession("sbx_load", 1, Options{Seed: 1}, nil, SessionConfig{})
	defer s.Stop()

	bad := &SaveFile{Version: SaveVersion, Shapes: Layout{{ID: "s1", Kind: "trampoline"}}}
	if _, err := s.Execute(context.Background(), Load{Save: bad}); !errors.Is(err, ErrInvalidSave) {
		t.Errorf("err = %v, want ErrInvalidSave", err)
	}
	if _, err := s.Execute(context.Background(), Load{}); !errors.Is(err, ErrInvalidSave) {
		t.Errorf("err = %v, want ErrInvalidSave for an empty load", err)
	}
}
