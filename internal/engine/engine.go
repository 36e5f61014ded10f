package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/cursor"
	"github.com/dshills/posmap/internal/engine/history"
	"github.com/dshills/posmap/internal/engine/mapping"
	"github.com/dshills/posmap/internal/engine/tracking"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position in the document.
	ByteOffset = buffer.ByteOffset

	// Range represents a byte range in the document.
	Range = buffer.Range

	// Edit represents an edit operation.
	Edit = buffer.Edit

	// Selection represents a cursor selection.
	Selection = cursor.Selection

	// RevisionID uniquely identifies a document revision.
	RevisionID = buffer.RevisionID

	// SnapshotID uniquely identifies a named snapshot.
	SnapshotID = tracking.SnapshotID

	// Bookmark is a position stored in a snapshot.
	Bookmark = tracking.Bookmark

	// ResolvedBookmark is a bookmark carried to the current revision.
	ResolvedBookmark = tracking.ResolvedBookmark

	// ChangeSet is the list of changes recorded between two revisions.
	ChangeSet = tracking.ChangeSet

	// MapResult is a mapped position with deletion details.
	MapResult = mapping.MapResult

	// Assoc selects which side of an insertion a position sticks to.
	Assoc = mapping.Assoc
)

// Re-export constants.
const (
	AssocBefore = mapping.AssocBefore
	AssocAfter  = mapping.AssocAfter
)

// appliedEdit remembers what an undo or redo must restore besides the
// mapping: the revision it reverts and the selections on either side.
type appliedEdit struct {
	rev           RevisionID
	cursorsBefore []Selection
	cursorsAfter  []Selection
}

// Engine is the main facade over the position mapping packages.
// It combines cursor handling, undo/redo and change tracking for a document
// whose content lives elsewhere: callers report edits, the engine keeps
// every derived position current.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Engine struct {
	mu sync.RWMutex

	// Core components
	cursors *cursor.CursorSet
	history *history.History
	tracker *tracking.Tracker

	// Entries parallel to the history stacks, oldest first.
	undoEntries []appliedEdit
	redoEntries []appliedEdit

	// Configuration
	maxUndoEntries int
	maxChanges     int
	maxRevisions   int
	readOnly       bool
	initCursors    []Selection
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxUndoEntries: DefaultMaxUndoEntries,
		maxChanges:     DefaultMaxChanges,
		maxRevisions:   DefaultMaxRevisions,
	}

	// Apply options to get configuration
	for _, opt := range opts {
		opt(e)
	}

	// Create cursor set, a single cursor at 0 unless configured
	e.cursors = cursor.NewCursorSet(e.initCursors...)

	e.history = history.New(e.maxUndoEntries)

	e.tracker = tracking.NewTracker(
		tracking.WithMaxChanges(e.maxChanges),
		tracking.WithMaxRevisions(e.maxRevisions),
	)

	return e
}

// ============================================================================
// Edits
// ============================================================================

// Apply records simultaneous edits, given in pre-edit coordinates, as one
// undo unit. Cursors are carried through the edit. Apply returns the
// revision created by the edit.
func (e *Engine) Apply(edits ...Edit) (RevisionID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}
	if len(edits) == 0 {
		return e.tracker.CurrentRevision(), nil
	}

	rm, err := buffer.EditsRangeMap(edits)
	if err != nil {
		if errors.Is(err, buffer.ErrOverlappingEdits) {
			return 0, fmt.Errorf("%w: %w", ErrEditsOverlap, err)
		}
		return 0, fmt.Errorf("%w: %w", ErrRangeInvalid, err)
	}

	rev := buffer.NewRevisionID()
	if len(edits) == 1 {
		err = e.tracker.RecordEdit(rev, edits[0], "")
	} else {
		err = e.tracker.RecordMap(rev, rm)
	}
	if err != nil {
		return 0, err
	}
	e.history.Record(rm, describeEdits(edits))

	before := e.cursors.All()
	cursor.MapCursorSet(e.cursors, rm)
	e.pushUndo(appliedEdit{rev: rev, cursorsBefore: before, cursorsAfter: e.cursors.All()})
	e.redoEntries = nil
	return rev, nil
}

// Insert records an insertion of text at offset.
func (e *Engine) Insert(offset ByteOffset, text string) (RevisionID, error) {
	return e.Apply(buffer.NewInsert(offset, text))
}

// Delete records the removal of [start, end).
func (e *Engine) Delete(start, end ByteOffset) (RevisionID, error) {
	if end < start {
		return 0, ErrRangeInvalid
	}
	return e.Apply(buffer.NewDelete(start, end))
}

// Replace records the replacement of [start, end) with text.
func (e *Engine) Replace(start, end ByteOffset, text string) (RevisionID, error) {
	if end < start {
		return 0, ErrRangeInvalid
	}
	return e.Apply(buffer.NewEdit(buffer.NewRange(start, end), text))
}

func describeEdits(edits []Edit) string {
	if len(edits) == 1 {
		return tracking.FromBufferChange(buffer.ChangeFromEdit(edits[0], ""), 0).String()
	}
	return fmt.Sprintf("%d edits", len(edits))
}

// pushUndo adds the newest undo entry, keeping the list in step with the
// history's bounded stack (must hold lock).
func (e *Engine) pushUndo(a appliedEdit) {
	e.undoEntries = append(e.undoEntries, a)
	if excess := len(e.undoEntries) - e.history.MaxEntries(); excess > 0 {
		e.undoEntries = e.undoEntries[excess:]
	}
}

// ============================================================================
// Undo/Redo
// ============================================================================

// Undo reverts the most recent edit and restores the selections from before
// it. The tracker records the revert as the mirror of the original revision,
// so positions inside content it restores map back exactly.
func (e *Engine) Undo() (RevisionID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}

	maps, err := e.history.Undo()
	if err != nil {
		return 0, ErrNothingToUndo
	}

	a := e.undoEntries[len(e.undoEntries)-1]
	e.undoEntries = e.undoEntries[:len(e.undoEntries)-1]

	rev, err := e.recordRevert(a.rev, maps)
	if err != nil {
		return 0, err
	}
	e.cursors.SetAll(a.cursorsBefore)
	e.redoEntries = append(e.redoEntries, appliedEdit{rev: rev, cursorsBefore: a.cursorsBefore, cursorsAfter: a.cursorsAfter})
	return rev, nil
}

// Redo re-applies the most recently undone edit and restores the selections
// from after it.
func (e *Engine) Redo() (RevisionID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}

	maps, err := e.history.Redo()
	if err != nil {
		return 0, ErrNothingToRedo
	}

	a := e.redoEntries[len(e.redoEntries)-1]
	e.redoEntries = e.redoEntries[:len(e.redoEntries)-1]

	rev, err := e.recordRevert(a.rev, maps)
	if err != nil {
		return 0, err
	}
	e.cursors.SetAll(a.cursorsAfter)
	e.pushUndo(appliedEdit{rev: rev, cursorsBefore: a.cursorsBefore, cursorsAfter: a.cursorsAfter})
	return rev, nil
}

// recordRevert tracks maps as the exact inverse of revision ofRev (must hold
// lock). When ofRev has been trimmed from the tracker the maps are recorded
// without mirror information.
func (e *Engine) recordRevert(ofRev RevisionID, maps []*mapping.RangeMap) (RevisionID, error) {
	rev := buffer.NewRevisionID()
	if err := e.tracker.RecordInverse(rev, ofRev); err != nil {
		for _, rm := range maps {
			if err := e.tracker.RecordMap(rev, rm); err != nil {
				return 0, err
			}
		}
	}
	return rev, nil
}

// CanUndo returns true if there are operations to undo.
func (e *Engine) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanUndo()
}

// CanRedo returns true if there are operations to redo.
func (e *Engine) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanRedo()
}

// UndoCount returns the number of undoable operations.
func (e *Engine) UndoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.UndoCount()
}

// RedoCount returns the number of redoable operations.
func (e *Engine) RedoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.RedoCount()
}

// ============================================================================
// Cursors
// ============================================================================

// Cursors returns a copy of the current selections.
func (e *Engine) Cursors() []Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors.All()
}

// PrimaryCursor returns the primary selection.
func (e *Engine) PrimaryCursor() Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors.Primary()
}

// SetCursors replaces all selections.
func (e *Engine) SetCursors(sels ...Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.SetAll(sels)
}

// AddCursor adds a selection to the set.
func (e *Engine) AddCursor(sel Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.Add(sel)
}

// ============================================================================
// Position Mapping
// ============================================================================

// Revision returns the current revision.
func (e *Engine) Revision() RevisionID {
	return e.tracker.CurrentRevision()
}

// Version returns the length of the session mapping.
func (e *Engine) Version() int {
	return e.history.Version()
}

// MapSince carries a position from revision rev to the current revision.
func (e *Engine) MapSince(rev RevisionID, pos ByteOffset, assoc Assoc) (MapResult, error) {
	return e.tracker.MapSince(rev, pos, assoc)
}

// MapBetween carries a position between two revisions, backward when from
// is newer than to.
func (e *Engine) MapBetween(from, to RevisionID, pos ByteOffset, assoc Assoc) (MapResult, error) {
	return e.tracker.MapBetween(from, to, pos, assoc)
}

// MapFromVersion carries a position from a session mapping version to the
// current one.
func (e *Engine) MapFromVersion(version int, pos ByteOffset, assoc Assoc) (MapResult, error) {
	return e.history.MapFrom(version, pos, assoc)
}

// Mapping returns a copy of the session mapping.
func (e *Engine) Mapping() *mapping.Mapping {
	return e.history.Mapping()
}

// ChangesSince returns the changes recorded after revision rev. An Apply
// with several edits records only its map and is not listed. Undo and redo
// list the inverse of what they revert.
func (e *Engine) ChangesSince(rev RevisionID) *ChangeSet {
	return e.tracker.BuildChangeSet(rev)
}

// ChangesBetween returns the changes recorded after revision from up to and
// including revision to.
func (e *Engine) ChangesBetween(from, to RevisionID) *ChangeSet {
	return e.tracker.BuildChangeSetBetween(from, to)
}

// ============================================================================
// Snapshots
// ============================================================================

// CreateSnapshot names the current revision.
func (e *Engine) CreateSnapshot(name string) SnapshotID {
	return e.tracker.CreateSnapshot(name, e.tracker.CurrentRevision())
}

// AddBookmark stores a position in a snapshot.
func (e *Engine) AddBookmark(id SnapshotID, b Bookmark) error {
	return e.tracker.AddBookmark(id, b)
}

// ResolveBookmarks carries a snapshot's bookmarks to the current revision.
func (e *Engine) ResolveBookmarks(id SnapshotID) ([]ResolvedBookmark, error) {
	return e.tracker.ResolveBookmarks(id)
}

// MapSinceSnapshot carries a position from a snapshot to the current
// revision.
func (e *Engine) MapSinceSnapshot(id SnapshotID, pos ByteOffset, assoc Assoc) (MapResult, error) {
	return e.tracker.MapSinceSnapshot(id, pos, assoc)
}

// DeleteSnapshot removes a snapshot.
func (e *Engine) DeleteSnapshot(id SnapshotID) {
	e.tracker.DeleteSnapshot(id)
}

// ============================================================================
// State
// ============================================================================

// IsReadOnly reports whether edits are rejected.
func (e *Engine) IsReadOnly() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.readOnly
}

// SetReadOnly sets the read-only state.
func (e *Engine) SetReadOnly(readOnly bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readOnly = readOnly
}

// Clear drops undo history, tracked changes and snapshots. Cursors stay
// where they are.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
	e.tracker.Clear()
	e.undoEntries = nil
	e.redoEntries = nil
}
