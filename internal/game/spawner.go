package game

// spawnEpsilon absorbs float drift when frame deltas sum to an interval.
const spawnEpsilon = 1e-9

// Spawner is the spawn timer. While armed it counts simulated time and reports
// how many spawn intervals elapsed; the sandbox turns each one into a ball.
type Spawner struct {
	interval float64
	elapsed  float64
	armed    bool
}

func NewSpawner(interval float64) *Spawner {
	return &Spawner{interval: ClampSpawnRate(interval)}
}

// Start arms the timer from zero.
func (s *Spawner) Start() {
	s.armed = true
	s.elapsed = 0
}

// Stop disarms the timer. Partial progress is discarded.
func (s *Spawner) Stop() {
	s.armed = false
	s.elapsed = 0
}

func (s *Spawner) Spawning() bool    { return s.armed }
func (s *Spawner) Interval() float64 { return s.interval }

// SetInterval clamps seconds to the allowed range and, when armed, restarts the
// countdown with the new interval.
func (s *Spawner) SetInterval(seconds float64) float64 {
	s.interval = ClampSpawnRate(seconds)
	if s.armed {
		s.elapsed = 0
	}
	return s.interval
}

// Advance adds dt seconds and returns the number of fires that became due.
func (s *Spawner) Advance(dt float64) int {
	if !s.armed || dt <= 0 || !finite(dt) {
		return 0
	}
	s.elapsed += dt
	fires := 0
	for s.elapsed+spawnEpsilon >= s.interval {
		s.elapsed -= s.interval
		fires++
	}
	if s.elapsed < 0 {
		s.elapsed = 0
	}
	return fires
}
