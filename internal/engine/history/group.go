package history

import (
	"time"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// BeginGroup starts an undo group.
// Maps recorded while grouping are combined into a single undo unit.
// Nested calls are ignored.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		return
	}

	h.grouping = true
	h.groupName = name
	h.groupSteps = nil
}

// EndGroup finishes an undo group.
// All maps recorded since BeginGroup become one undo unit. An empty group
// records nothing.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}
	h.grouping = false

	if len(h.groupSteps) > 0 {
		h.pushLocked(&entry{
			description: h.groupName,
			steps:       h.groupSteps,
			timestamp:   time.Now(),
		})
	}
	h.groupSteps = nil
}

// CancelGroup closes a group without adding an undo unit.
// Maps already recorded stay in the session mapping.
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.grouping = false
	h.groupSteps = nil
}

// IsGrouping returns true if currently in an undo group.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// GroupScope provides a convenient way to group records using defer.
// Usage:
//
//	func replaceAll(h *History, edits []buffer.Edit) {
//	    defer h.GroupScope("Replace All").End()
//	    for _, e := range edits {
//	        h.RecordEdit(e, "replace")
//	    }
//	}
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a new group scope.
// Call End() or use with defer to properly close the group.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{
		history: h,
		active:  true,
	}
}

// End ends the group scope.
// Safe to call multiple times; only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel cancels the group scope without creating an undo unit.
func (g *GroupScope) Cancel() {
	if g.active {
		g.history.CancelGroup()
		g.active = false
	}
}

// Transaction runs fn within a grouped undo context.
// If fn returns an error, the group is cancelled.
func (h *History) Transaction(name string, fn func() error) error {
	h.BeginGroup(name)

	if err := fn(); err != nil {
		h.CancelGroup()
		return err
	}

	h.EndGroup()
	return nil
}

// RecordGrouped records several maps as a single undo unit.
func (h *History) RecordGrouped(name string, maps ...*mapping.RangeMap) {
	if len(maps) == 0 {
		return
	}
	if !h.IsGrouping() {
		defer h.GroupScope(name).End()
	}
	for _, m := range maps {
		h.Record(m, name)
	}
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int
	version   int
}

// Version returns the document version at the checkpoint.
func (cp Checkpoint) Version() int {
	return cp.version
}

// CreateCheckpoint creates a checkpoint at the current history position.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack), version: h.mapping.Len()}
}

// UndoToCheckpoint undoes all units recorded since the checkpoint and
// returns the appended maps.
func (h *History) UndoToCheckpoint(cp Checkpoint) ([]*mapping.RangeMap, error) {
	var applied []*mapping.RangeMap
	for h.UndoCount() > cp.undoDepth {
		maps, err := h.Undo()
		if err != nil {
			return applied, err
		}
		applied = append(applied, maps...)
	}
	return applied, nil
}

// RedoToCheckpoint redoes units until the undo depth of the checkpoint is
// reached or nothing is left to redo.
func (h *History) RedoToCheckpoint(cp Checkpoint) ([]*mapping.RangeMap, error) {
	var applied []*mapping.RangeMap
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		maps, err := h.Redo()
		if err != nil {
			return applied, err
		}
		applied = append(applied, maps...)
	}
	return applied, nil
}
