package game

import (
	"errors"
	"time"
)

// Play field and physics constants. Every position and size is expressed in
// play-field units; the field is 1600x900 regardless of how it is drawn.
const (
	FieldWidth  = 1600.0
	FieldHeight = 900.0

	BallDiameter  = 0.015 * FieldWidth // 24
	BallRadius    = BallDiameter / 2
	LineThickness = 0.005 * FieldWidth // 8

	Gravity           = 1000.0 // units/s², y grows downward
	BounceCoefficient = 0.8
	WallThickness     = 50.0

	// cp defaults to 10 iterations; thin lines need more to stop fast balls.
	SolverIterations = 20
	MaxSubStep       = 1.0 / 120

	MaxBalls  = 1024
	MaxShapes = 256

	MinSpawnRate     = 0.1
	MaxSpawnRate     = 10.0
	DefaultSpawnRate = 1.5

	SpawnXRatio = 0.25

	PlacementTilt = 0.087
	WheelStep     = 0.05
	GestureFactor = 1.5

	HistoryCapacity = 50

	FrameRate     = 60
	BroadcastRate = 30
	MaxFrameDelta = 100 * time.Millisecond
	PlayTimeTick  = time.Second
)

// Mode selects the bottom boundary behaviour.
type Mode string

const (
	ModeCreative Mode = "creative"
	// ModeChallenge keeps the bottom wall solid. No scoring is attached to it.
	ModeChallenge Mode = "challenge"
)

var ErrInvalidMode = errors.New("invalid mode")

// Valid reports whether m is a recognised mode.
func (m Mode) Valid() bool {
	return m == ModeCreative || m == ModeChallenge
}

// ParseMode validates a mode received from outside the core.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

// ClampSpawnRate bounds a spawn interval in seconds to the allowed range.
func ClampSpawnRate(seconds float64) float64 {
	if seconds != seconds { // NaN
		return DefaultSpawnRate
	}
	if seconds < MinSpawnRate {
		return MinSpawnRate
	}
	if seconds > MaxSpawnRate {
		return MaxSpawnRate
	}
	return seconds
}
