package tracking

import (
	"fmt"
	"strings"

	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/mapping"
)

// ChangeType categorizes the type of a change.
type ChangeType = buffer.ChangeType

// Change types, shared with the buffer package.
const (
	ChangeInsert  = buffer.ChangeInsert
	ChangeDelete  = buffer.ChangeDelete
	ChangeReplace = buffer.ChangeReplace
)

// Change represents a single recorded change to a document.
// It captures both what changed and where.
type Change struct {
	// Type indicates whether this is an insert, delete, or replace.
	Type ChangeType

	// Range is the affected range in the OLD text (before the change).
	// For inserts, Start == End.
	Range buffer.Range

	// NewRange is the affected range in the NEW text (after the change).
	// For deletes, Start == End.
	NewRange buffer.Range

	// OldText is the text that was removed (empty for inserts).
	OldText string

	// NewText is the text that was added (empty for deletes).
	NewText string

	// RevisionID is the revision after this change was applied.
	RevisionID RevisionID
}

// NewInsertChange creates a change representing an insertion.
func NewInsertChange(offset buffer.ByteOffset, text string, revID RevisionID) Change {
	return FromBufferChange(buffer.ChangeFromEdit(buffer.NewInsert(offset, text), ""), revID)
}

// NewDeleteChange creates a change representing a deletion.
func NewDeleteChange(start, end buffer.ByteOffset, oldText string, revID RevisionID) Change {
	return FromBufferChange(buffer.ChangeFromEdit(buffer.NewDelete(start, end), oldText), revID)
}

// NewReplaceChange creates a change representing a replacement.
func NewReplaceChange(start, end buffer.ByteOffset, oldText, newText string, revID RevisionID) Change {
	e := buffer.NewEdit(buffer.Range{Start: start, End: end}, newText)
	return FromBufferChange(buffer.ChangeFromEdit(e, oldText), revID)
}

// FromBufferChange tags a buffer change with the revision it produced.
func FromBufferChange(c buffer.Change, revID RevisionID) Change {
	return Change{
		Type:       c.Type,
		Range:      c.Range,
		NewRange:   c.NewRange,
		OldText:    c.OldText,
		NewText:    c.NewText,
		RevisionID: revID,
	}
}

// BufferChange returns the change without its revision.
func (c Change) BufferChange() buffer.Change {
	return buffer.Change{
		Type:     c.Type,
		Range:    c.Range,
		NewRange: c.NewRange,
		OldText:  c.OldText,
		NewText:  c.NewText,
	}
}

// RangeMap returns the position map of the change.
func (c Change) RangeMap() *mapping.RangeMap {
	return c.BufferChange().RangeMap()
}

// Invert returns a change that undoes this change.
// The revision is left unchanged.
func (c Change) Invert() Change {
	return FromBufferChange(c.BufferChange().Invert(), c.RevisionID)
}

// String returns a human-readable representation of the change. Text that
// was not recorded is shown by its range.
func (c Change) String() string {
	switch c.Type {
	case ChangeInsert:
		if c.NewText == "" {
			return fmt.Sprintf("Insert %d bytes at %d", c.NewRange.Len(), c.Range.Start)
		}
		return fmt.Sprintf("Insert %q at %d", clip(c.NewText, 20), c.Range.Start)
	case ChangeDelete:
		if c.OldText == "" {
			return fmt.Sprintf("Delete %v", c.Range)
		}
		return fmt.Sprintf("Delete %q at %v", clip(c.OldText, 20), c.Range)
	case ChangeReplace:
		if c.OldText == "" {
			return fmt.Sprintf("Replace %v with %q", c.Range, clip(c.NewText, 10))
		}
		return fmt.Sprintf("Replace %q with %q at %v", clip(c.OldText, 10), clip(c.NewText, 10), c.Range)
	default:
		return "Unknown change"
	}
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// Delta returns the byte delta of this change.
// Positive means the document grew, negative means it shrank.
func (c Change) Delta() int64 {
	return c.NewRange.Len() - c.Range.Len()
}

// ChangeSet represents a collection of related changes.
// Changes are stored in the order they were applied.
type ChangeSet struct {
	// Changes in application order.
	Changes []Change

	// StartRevision is the revision before any changes.
	StartRevision RevisionID

	// EndRevision is the revision after all changes.
	EndRevision RevisionID
}

// NewChangeSet creates an empty change set starting at the given revision.
func NewChangeSet(startRevision RevisionID) *ChangeSet {
	return &ChangeSet{
		StartRevision: startRevision,
		EndRevision:   startRevision,
	}
}

// Add adds a change to the set.
func (cs *ChangeSet) Add(c Change) {
	cs.Changes = append(cs.Changes, c)
	cs.EndRevision = c.RevisionID
}

// Len returns the number of changes.
func (cs *ChangeSet) Len() int {
	return len(cs.Changes)
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Changes) == 0
}

// TotalDelta returns the total byte delta of all changes.
func (cs *ChangeSet) TotalDelta() int64 {
	var delta int64
	for _, c := range cs.Changes {
		delta += c.Delta()
	}
	return delta
}

// Mapping returns a mapping that carries positions across every change of
// the set in order.
func (cs *ChangeSet) Mapping() *mapping.Mapping {
	m := mapping.New()
	for _, c := range cs.Changes {
		m.AppendMap(c.RangeMap())
	}
	return m
}

// Summary returns a human-readable summary of the changes.
func (cs *ChangeSet) Summary() string {
	if cs.IsEmpty() {
		return "no changes"
	}

	var inserts, deletes, replaces int
	var insertedBytes, deletedBytes int64

	for _, c := range cs.Changes {
		switch c.Type {
		case ChangeInsert:
			inserts++
			insertedBytes += c.NewRange.Len()
		case ChangeDelete:
			deletes++
			deletedBytes += c.Range.Len()
		case ChangeReplace:
			replaces++
		}
	}

	var parts []string
	if inserts > 0 {
		parts = append(parts, fmt.Sprintf("%d inserts (+%d bytes)", inserts, insertedBytes))
	}
	if deletes > 0 {
		parts = append(parts, fmt.Sprintf("%d deletes (-%d bytes)", deletes, deletedBytes))
	}
	if replaces > 0 {
		parts = append(parts, fmt.Sprintf("%d replaces", replaces))
	}

	return strings.Join(parts, ", ")
}
