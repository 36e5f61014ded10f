package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/mapping"
)

// Common errors for history operations.
var (
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
	ErrVersionOutOfRange = errors.New("version out of range")
	ErrGroupActive       = errors.New("group in progress")
)

// DefaultMaxEntries is the undo depth used when none is given.
const DefaultMaxEntries = 1000

// History manages undo/redo state over a session mapping.
type History struct {
	mu sync.Mutex

	mapping *mapping.Mapping

	undoStack []*entry
	redoStack []*entry

	// Grouping state
	grouping   bool
	groupName  string
	groupSteps []int

	// Configuration
	maxEntries int
}

// New creates a new history manager.
func New(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		mapping:    mapping.New(),
		maxEntries: maxEntries,
	}
}

// Record appends m to the session mapping and pushes it as an undo unit,
// or adds it to the open group. The redo stack is cleared. Record returns
// the index of m in the session mapping.
func (h *History) Record(m *mapping.RangeMap, description string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.mapping.AppendMap(m)
	return h.recordLocked(h.mapping.Len()-1, description)
}

// RecordMirror is like Record, but registers m as the exact inverse of the
// map at index mirrorOf.
func (h *History) RecordMirror(m *mapping.RangeMap, mirrorOf int, description string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if mirrorOf < 0 || mirrorOf >= h.mapping.Len() {
		return 0, ErrVersionOutOfRange
	}
	h.mapping.AppendMapMirror(m, mirrorOf)
	return h.recordLocked(h.mapping.Len()-1, description), nil
}

// RecordEdit records the map of a single edit.
func (h *History) RecordEdit(e buffer.Edit, description string) int {
	return h.Record(e.RangeMap(), description)
}

// RecordEdits records several simultaneous edits as one map.
func (h *History) RecordEdits(edits []buffer.Edit, description string) (int, error) {
	m, err := buffer.EditsRangeMap(edits)
	if err != nil {
		return 0, err
	}
	return h.Record(m, description), nil
}

// recordLocked registers the map at idx without acquiring the lock.
func (h *History) recordLocked(idx int, description string) int {
	h.redoStack = nil
	if h.grouping {
		h.groupSteps = append(h.groupSteps, idx)
		return idx
	}
	h.pushLocked(&entry{
		description: description,
		steps:       []int{idx},
		timestamp:   time.Now(),
	})
	return idx
}

// pushLocked adds an undo entry without acquiring the lock.
func (h *History) pushLocked(e *entry) {
	h.undoStack = append(h.undoStack, e)

	// Enforce max entries
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
}

// revertLocked appends the inverse of every step of e, last step first, and
// returns the entry covering the appended maps. An inverse is mirrored to its
// step only while that step has no partner yet; pairing an already mirrored
// step would break the pair earlier versions are mapped through.
func (h *History) revertLocked(e *entry) (*entry, []*mapping.RangeMap) {
	maps := h.mapping.Maps()
	applied := make([]*mapping.RangeMap, 0, len(e.steps))
	steps := make([]int, 0, len(e.steps))

	for i := len(e.steps) - 1; i >= 0; i-- {
		idx := e.steps[i]
		inv := maps[idx].Invert()
		if _, paired := h.mapping.GetMirror(idx); paired {
			h.mapping.AppendMap(inv)
		} else {
			h.mapping.AppendMapMirror(inv, idx)
		}
		applied = append(applied, inv)
		steps = append(steps, h.mapping.Len()-1)
	}

	return &entry{
		description: e.description,
		steps:       steps,
		timestamp:   time.Now(),
	}, applied
}

// Undo reverts the last undo unit. It returns the maps appended to the
// session mapping, in the order they apply.
func (h *History) Undo() ([]*mapping.RangeMap, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		return nil, ErrGroupActive
	}
	if len(h.undoStack) == 0 {
		return nil, ErrNothingToUndo
	}

	e := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]

	redo, applied := h.revertLocked(e)
	h.redoStack = append(h.redoStack, redo)
	return applied, nil
}

// Redo re-applies the last undone unit by reverting its undo maps.
func (h *History) Redo() ([]*mapping.RangeMap, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		return nil, ErrGroupActive
	}
	if len(h.redoStack) == 0 {
		return nil, ErrNothingToRedo
	}

	e := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]

	undo, applied := h.revertLocked(e)
	h.pushLocked(undo)
	return applied, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Version returns the current document version: the number of maps
// recorded in the session, undo and redo maps included.
func (h *History) Version() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mapping.Len()
}

// Mapping returns a copy of the session mapping.
func (h *History) Mapping() *mapping.Mapping {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mapping.Copy()
}

// Operations returns the maps recorded between two versions.
func (h *History) Operations(from, to int) ([]Operation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if from < 0 || to > h.mapping.Len() || from > to {
		return nil, ErrVersionOutOfRange
	}
	maps := h.mapping.Maps()
	ops := make([]Operation, 0, to-from)
	for i := from; i < to; i++ {
		ops = append(ops, Operation{Index: i, Map: maps[i]})
	}
	return ops, nil
}

// MapBetween maps a position from one version to another. When from is
// greater than to, the position is carried backward through the inverted
// maps.
func (h *History) MapBetween(from, to int, pos int64, assoc mapping.Assoc) (mapping.MapResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mapBetweenLocked(from, to, pos, assoc)
}

// MapFrom maps a position from the given version to the current one.
func (h *History) MapFrom(version int, pos int64, assoc mapping.Assoc) (mapping.MapResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mapBetweenLocked(version, h.mapping.Len(), pos, assoc)
}

func (h *History) mapBetweenLocked(from, to int, pos int64, assoc mapping.Assoc) (mapping.MapResult, error) {
	n := h.mapping.Len()
	if from < 0 || from > n || to < 0 || to > n {
		return mapping.MapResult{}, ErrVersionOutOfRange
	}
	if from <= to {
		return h.mapping.Slice(from, to).MapResult(pos, assoc), nil
	}
	return h.mapping.Slice(to, from).Invert().MapResult(pos, assoc), nil
}

// Clear removes all undo/redo history. The session mapping is kept, so
// versions stay valid.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupSteps = nil
}

// infoLocked summarizes an entry without acquiring the lock. Redo entries
// hold undo maps, so their delta is reported as the redo would apply it.
func (h *History) infoLocked(e *entry, redo bool) OperationInfo {
	maps := h.mapping.Maps()
	var delta int64
	for _, idx := range e.steps {
		delta += maps[idx].Delta()
	}
	if redo {
		delta = -delta
	}
	return OperationInfo{
		Description: e.description,
		Timestamp:   e.timestamp,
		Maps:        len(e.steps),
		Delta:       delta,
	}
}

// UndoInfo returns info about available undo operations, oldest first.
func (h *History) UndoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]OperationInfo, len(h.undoStack))
	for i, e := range h.undoStack {
		result[i] = h.infoLocked(e, false)
	}
	return result
}

// RedoInfo returns info about available redo operations, oldest first.
func (h *History) RedoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]OperationInfo, len(h.redoStack))
	for i, e := range h.redoStack {
		result[i] = h.infoLocked(e, true)
	}
	return result
}

// PeekUndo returns info about the next undo operation without removing it.
func (h *History) PeekUndo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return OperationInfo{}, false
	}
	return h.infoLocked(h.undoStack[len(h.undoStack)-1], false), true
}

// PeekRedo returns info about the next redo operation without removing it.
func (h *History) PeekRedo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return OperationInfo{}, false
	}
	return h.infoLocked(h.redoStack[len(h.redoStack)-1], true), true
}

// SetMaxEntries changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are removed.
func (h *History) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.maxEntries = max
	if len(h.undoStack) > max {
		h.undoStack = h.undoStack[len(h.undoStack)-max:]
	}
}

// MaxEntries returns the maximum number of undo entries.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
