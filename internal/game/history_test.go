package game

import (
	"fmt"
	"reflect"
	"testing"
)

func layoutOf(ids ...string) Layout {
	l := make(Layout, 0, len(ids))
	for i, id := range ids {
		l = append(l, Shape{ID: id, Kind: SmallSquare, X: float64(100 * (i + 1)), Y: 200})
	}
	return l
}

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	a := layoutOf("a")
	b := layoutOf("a", "b")
	h.Push(a)
	h.Push(b)

	got, ok := h.Undo()
	if !ok || !reflect.DeepEqual(got, a) {
		t.Fatalf("undo = %v (ok=%v), want %v", got, ok, a)
	}
	got, ok = h.Redo()
	if !ok || !reflect.DeepEqual(got, b) {
		t.Fatalf("redo = %v (ok=%v), want %v", got, ok, b)
	}
	if _, ok := h.Redo(); ok {
		t.Errorf("redo at head should be a no-op")
	}
}

func TestHistoryPushAfterUndoDiscardsRedo(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	h.Push(layoutOf("a"))
	h.Push(layoutOf("a", "b"))
	h.Undo()
	h.Push(layoutOf("c"))

	if h.CanRedo() {
		t.Errorf("CanRedo after a new push")
	}
	if _, ok := h.Redo(); ok {
		t.Errorf("redo branch should be discarded")
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
}

func TestHistorySnapshotsAreIsolated(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	a := layoutOf("a")
	h.Push(a)
	h.Push(layoutOf("b"))

	a[0].X = 999
	a[0].ID = "mutated"

	got, _ := h.Undo()
	if got[0].ID != "a" || got[0].X != 100 {
		t.Fatalf("stored snapshot changed through caller slice: %+v", got[0])
	}

	got[0].Rotation = 3
	h.Redo()
	again, _ := h.Undo()
	if again[0].Rotation != 0 {
		t.Errorf("stored snapshot changed through returned slice: %+v", again[0])
	}
}

func TestHistoryBoundedToCapacity(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	for i := 0; i < 60; i++ {
		h.Push(layoutOf(fmt.Sprintf("s%d", i)))
	}
	if h.Len() != HistoryCapacity {
		t.Fatalf("Len = %d, want %d", h.Len(), HistoryCapacity)
	}

	undos := 0
	var last Layout
	for {
		l, ok := h.Undo()
		if !ok {
			break
		}
		last = l
		undos++
	}
	// The head is s59; 49 steps back reach s10, the oldest survivor.
	if undos != HistoryCapacity-1 {
		t.Errorf("undo steps = %d, want %d", undos, HistoryCapacity-1)
	}
	if last[0].ID != "s10" {
		t.Errorf("oldest reachable = %s, want s10", last[0].ID)
	}

	for i := 0; i < HistoryCapacity-1; i++ {
		if _, ok := h.Redo(); !ok {
			t.Fatalf("redo %d failed", i)
		}
	}
	if h.CanRedo() {
		t.Errorf("redo past head")
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	h.Push(layoutOf("a"))
	h.Push(layoutOf("b"))
	h.Clear()

	if h.Len() != 0 || h.CanUndo() || h.CanRedo() {
		t.Errorf("after Clear: len=%d canUndo=%v canRedo=%v", h.Len(), h.CanUndo(), h.CanRedo())
	}
	if _, ok := h.Undo(); ok {
		t.Errorf("undo on cleared history should be a no-op")
	}
}
