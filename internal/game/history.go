package game

// History is a bounded linear undo stack of layout snapshots. Snapshots are
// copied on the way in and on the way out, so callers never alias stored state.
type History struct {
	snapshots []Layout
	cursor    int
	capacity  int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = HistoryCapacity
	}
	return &History{cursor: -1, capacity: capacity}
}

// Push records l after the cursor, discarding any redo branch. When the stack
// is full the oldest snapshot is dropped.
func (h *History) Push(l Layout) {
	h.snapshots = append(h.snapshots[:h.cursor+1], l.Clone())
	if len(h.snapshots) > h.capacity {
		drop := len(h.snapshots) - h.capacity
		h.snapshots = append(h.snapshots[:0], h.snapshots[drop:]...)
	}
	h.cursor = len(h.snapshots) - 1
}

// Undo moves the cursor back and returns the snapshot under it. The boolean is
// false when there is nothing to undo.
func (h *History) Undo() (Layout, bool) {
	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.snapshots[h.cursor].Clone(), true
}

// Redo moves the cursor forward and returns the snapshot under it.
func (h *History) Redo() (Layout, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return nil, false
	}
	h.cursor++
	return h.snapshots[h.cursor].Clone(), true
}

// DiscardRedo drops every snapshot after the cursor.
func (h *History) DiscardRedo() {
	h.snapshots = h.snapshots[:h.cursor+1]
}

func (h *History) Clear() {
	h.snapshots = nil
	h.cursor = -1
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }
func (h *History) Len() int      { return len(h.snapshots) }

// AtHead reports whether the cursor sits on the newest snapshot.
func (h *History) AtHead() bool {
	return h.cursor == len(h.snapshots)-1
}
