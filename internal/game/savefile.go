package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveVersion is the only save format this build reads and writes.
const SaveVersion = 1

var ErrInvalidSave = errors.New("invalid save file")

// SaveFile is the downloadable snapshot of a sandbox. Shapes never carry world
// handles.
type SaveFile struct {
	Version      int          `json:"version" msgpack:"version"`
	Shapes       Layout       `json:"shapes" msgpack:"shapes"`
	SpawnRate    float64      `json:"spawnRate" msgpack:"spawnRate"`
	Mode         Mode         `json:"mode" msgpack:"mode"`
	SessionStats SessionStats `json:"sessionStats" msgpack:"sessionStats"`
	IsPaused     bool         `json:"isPaused" msgpack:"isPaused"`
	SavedAt      time.Time    `json:"savedAt" msgpack:"savedAt"`
}

// ParseSaveFile decodes and validates a save file received from outside.
func ParseSaveFile(data []byte) (*SaveFile, error) {
	var head struct {
		Shapes json.RawMessage `json:"shapes"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(head.Shapes), []byte("[")) {
		return nil, fmt.Errorf("%w: shapes must be an array", ErrInvalidSave)
	}

	var f SaveFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the version, the shape list and the settings, filling in
// defaults for an empty mode or spawn rate.
func (f *SaveFile) Validate() error {
	if f.Version != SaveVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidSave, f.Version)
	}
	if f.Shapes == nil {
		return fmt.Errorf("%w: missing shapes", ErrInvalidSave)
	}
	if len(f.Shapes) > MaxShapes {
		return fmt.Errorf("%w: %d shapes exceeds limit of %d", ErrInvalidSave, len(f.Shapes), MaxShapes)
	}
	seen := make(map[string]bool, len(f.Shapes))
	for i, s := range f.Shapes {
		if !s.Kind.Valid() {
			return fmt.Errorf("%w: shape %d: %v %q", ErrInvalidSave, i, ErrUnknownShapeKind, s.Kind)
		}
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("%w: shape %d: missing or duplicate id", ErrInvalidSave, i)
		}
		if !finite(s.X, s.Y, s.Rotation) {
			return fmt.Errorf("%w: shape %d: non-finite transform", ErrInvalidSave, i)
		}
		seen[s.ID] = true
	}

	if f.Mode == "" {
		f.Mode = ModeCreative
	}
	if !f.Mode.Valid() {
		return fmt.Errorf("%w: %v %q", ErrInvalidSave, ErrInvalidMode, f.Mode)
	}
	if f.SpawnRate == 0 {
		f.SpawnRate = DefaultSpawnRate
	}
	if !finite(f.SpawnRate) {
		return fmt.Errorf("%w: spawn rate is not a number", ErrInvalidSave)
	}
	f.SpawnRate = ClampSpawnRate(f.SpawnRate)
	return nil
}

// MarshalIndent renders the save file the way it is offered for download.
func (f *SaveFile) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}
