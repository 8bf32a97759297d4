package game

import "time"

// EventType identifies a statistics event emitted by a sandbox.
type EventType string

const (
	EventBallCreated  EventType = "ball_created"
	EventBallRemoved  EventType = "ball_removed"
	EventBallDropped  EventType = "ball_dropped"
	EventShapePlaced  EventType = "shape_placed"
	EventShapeDeleted EventType = "shape_deleted"
	EventPlayTime     EventType = "play_time"
	EventSessionReset EventType = "session_reset"
)

// Event is one discrete notification for the statistics collaborator. Only
// the fields relevant to Type are set.
type Event struct {
	Type      EventType     `json:"type" msgpack:"type"`
	SessionID string        `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	PlayerID  int           `json:"player_id,omitempty" msgpack:"player_id,omitempty"`
	BallID    string        `json:"ball_id,omitempty" msgpack:"ball_id,omitempty"`
	Handle    Handle        `json:"handle,omitempty" msgpack:"handle,omitempty"`
	Color     string        `json:"color,omitempty" msgpack:"color,omitempty"`
	Reason    RemovalReason `json:"reason,omitempty" msgpack:"reason,omitempty"`
	ShapeID   string        `json:"shape_id,omitempty" msgpack:"shape_id,omitempty"`
	Kind      ShapeKind     `json:"kind,omitempty" msgpack:"kind,omitempty"`
	PlayMs    int64         `json:"play_ms,omitempty" msgpack:"play_ms,omitempty"`
	At        time.Time     `json:"at" msgpack:"at"`
}

// EventSink receives sandbox events. Implementations are called from the
// session goroutine and must not block.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) HandleEvent(e Event) { f(e) }

type discardSink struct{}

func (discardSink) HandleEvent(Event) {}

// SessionStats are the per-session counters shown next to the play field.
type SessionStats struct {
	BallsDropped   int   `json:"balls_dropped" msgpack:"balls_dropped"`
	BallsDelivered int   `json:"balls_delivered" msgpack:"balls_delivered"`
	ShapesPlaced   int   `json:"shapes_placed" msgpack:"shapes_placed"`
	PlayTimeMs     int64 `json:"play_time_ms" msgpack:"play_time_ms"`
}
