package game

import (
	"math"
	"testing"
)

func TestClampSpawnRate(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.01, MinSpawnRate},
		{0.1, 0.1},
		{2.5, 2.5},
		{10, 10},
		{60, MaxSpawnRate},
		{-3, MinSpawnRate},
		{math.NaN(), DefaultSpawnRate},
	}
	for _, c := range cases {
		if got := ClampSpawnRate(c.in); got != c.want {
			t.Errorf("ClampSpawnRate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSpawnerIdleUntilStarted(t *testing.T) {
	s := NewSpawner(1)
	if n := s.Advance(5); n != 0 {
		t.Errorf("idle spawner fired %d times", n)
	}
	s.Start()
	if n := s.Advance(2.5); n != 2 {
		t.Errorf("fires after 2.5s = %d, want 2", n)
	}
}

func TestSpawnerFramesSumToInterval(t *testing.T) {
	s := NewSpawner(1)
	s.Start()
	fires := 0
	for i := 0; i < 300; i++ {
		fires += s.Advance(1.0 / 60)
	}
	if fires != 5 {
		t.Errorf("fires over 5s of frames = %d, want 5", fires)
	}
}

func TestSpawnerStopDropsPartialTime(t *testing.T) {
	s := NewSpawner(1)
	s.Start()
	s.Advance(0.9)
	s.Stop()
	s.Start()
	if n := s.Advance(0.2); n != 0 {
		t.Errorf("pause carried time debt: fired %d", n)
	}
	if n := s.Advance(0.8); n != 1 {
		t.Errorf("fires after a full interval = %d, want 1", n)
	}
}

func TestSpawnerSetIntervalRearms(t *testing.T) {
	s := NewSpawner(5)
	s.Start()
	s.Advance(4)
	if got := s.SetInterval(0.5); got != 0.5 {
		t.Fatalf("SetInterval = %v, want 0.5", got)
	}
	if n := s.Advance(0.5); n != 1 {
		t.Errorf("re-armed spawner fired %d times after one new interval, want 1", n)
	}
	if got := s.SetInterval(0); got != MinSpawnRate {
		t.Errorf("SetInterval(0) = %v, want %v", got, MinSpawnRate)
	}
}
