package buffer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// Edit errors.
var (
	ErrOverlappingEdits = errors.New("overlapping edits")
	ErrInvalidRange     = errors.New("invalid range")
)

// Edit represents a text edit operation.
// It specifies a range to replace and the new text.
type Edit struct {
	Range   Range  // The range to replace
	NewText string // The replacement text
}

// NewEdit creates a new Edit.
func NewEdit(r Range, newText string) Edit {
	return Edit{Range: r, NewText: newText}
}

// NewInsert creates an Edit that inserts text at a position.
func NewInsert(offset ByteOffset, text string) Edit {
	return Edit{
		Range:   Range{Start: offset, End: offset},
		NewText: text,
	}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(start, end ByteOffset) Edit {
	return Edit{
		Range:   Range{Start: start, End: end},
		NewText: "",
	}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range.String())
	}
	return fmt.Sprintf("Replace%s with %q", e.Range.String(), e.NewText)
}

// IsInsert returns true if this is a pure insertion (empty range).
func (e Edit) IsInsert() bool {
	return e.Range.IsEmpty() && e.NewText != ""
}

// IsDelete returns true if this is a pure deletion (empty replacement).
func (e Edit) IsDelete() bool {
	return !e.Range.IsEmpty() && e.NewText == ""
}

// IsReplace returns true if this replaces existing text with new text.
func (e Edit) IsReplace() bool {
	return !e.Range.IsEmpty() && e.NewText != ""
}

// IsNoOp returns true if this edit does nothing.
func (e Edit) IsNoOp() bool {
	return e.Range.IsEmpty() && e.NewText == ""
}

// Delta returns the change in document length caused by this edit.
func (e Edit) Delta() ByteOffset {
	return ByteOffset(len(e.NewText)) - e.Range.Len()
}

// NewRange returns the range the replacement text occupies after the edit.
func (e Edit) NewRange() Range {
	return Range{Start: e.Range.Start, End: e.Range.Start + ByteOffset(len(e.NewText))}
}

// RangeMap returns the position map of this edit.
// A no-op edit yields the empty map.
func (e Edit) RangeMap() *mapping.RangeMap {
	if e.IsNoOp() {
		return mapping.Empty()
	}
	return mapping.NewRangeMap(mapping.Span{
		Start:   e.Range.Start,
		OldSize: e.Range.Len(),
		NewSize: ByteOffset(len(e.NewText)),
	})
}

// EditsRangeMap combines edits made simultaneously against one document
// version into a single map. All ranges are in pre-edit coordinates.
// Edits may be given in any order; touching edits are allowed, overlapping
// ones are not. No-op edits are skipped.
func EditsRangeMap(edits []Edit) (*mapping.RangeMap, error) {
	sorted := make([]Edit, 0, len(edits))
	for _, e := range edits {
		if !e.Range.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRange, e.Range)
		}
		if e.IsNoOp() {
			continue
		}
		sorted = append(sorted, e)
	}
	if len(sorted) == 0 {
		return mapping.Empty(), nil
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start < sorted[j].Range.Start
	})

	spans := make([]mapping.Span, 0, len(sorted))
	for i, e := range sorted {
		if i > 0 {
			prev := sorted[i-1].Range
			if e.Range.Start < prev.End {
				return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingEdits, prev, e.Range)
			}
			// Two insertions at the same point are ambiguous.
			if e.Range.Start == prev.Start && prev.IsEmpty() && e.Range.IsEmpty() {
				return nil, fmt.Errorf("%w: two insertions at %d", ErrOverlappingEdits, e.Range.Start)
			}
		}
		spans = append(spans, mapping.Span{
			Start:   e.Range.Start,
			OldSize: e.Range.Len(),
			NewSize: ByteOffset(len(e.NewText)),
		})
	}
	return mapping.NewRangeMap(spans...), nil
}

// EditResult contains information about an applied edit.
type EditResult struct {
	OldRange Range  // The original range that was modified
	NewRange Range  // The resulting range after the edit
	OldText  string // The text that was replaced (if any)
	Delta    int64  // Change in document length
}

// ChangeType categorizes the type of change made to a document.
type ChangeType uint8

const (
	ChangeInsert  ChangeType = iota // Text was inserted
	ChangeDelete                    // Text was deleted
	ChangeReplace                   // Text was replaced
)

// String returns a string representation of the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change represents a single recorded change to a document.
// Range is in pre-change coordinates, NewRange in post-change coordinates.
type Change struct {
	Type     ChangeType // Type of change
	Range    Range      // Original range that was affected
	NewRange Range      // Resulting range after the change
	OldText  string     // Text that was removed (for delete/replace)
	NewText  string     // Text that was added (for insert/replace)
}

// ChangeFromEdit builds the change record for an edit that replaced oldText.
func ChangeFromEdit(e Edit, oldText string) Change {
	typ := ChangeReplace
	switch {
	case e.Range.IsEmpty():
		typ = ChangeInsert
	case e.NewText == "":
		typ = ChangeDelete
	}
	return Change{
		Type:     typ,
		Range:    e.Range,
		NewRange: e.NewRange(),
		OldText:  oldText,
		NewText:  e.NewText,
	}
}

// Invert returns the inverse change that would undo this change.
func (c Change) Invert() Change {
	switch c.Type {
	case ChangeInsert:
		return Change{
			Type:     ChangeDelete,
			Range:    c.NewRange,
			NewRange: Range{Start: c.NewRange.Start, End: c.NewRange.Start},
			OldText:  c.NewText,
		}
	case ChangeDelete:
		return Change{
			Type:     ChangeInsert,
			Range:    Range{Start: c.Range.Start, End: c.Range.Start},
			NewRange: c.Range,
			NewText:  c.OldText,
		}
	case ChangeReplace:
		return Change{
			Type:     ChangeReplace,
			Range:    c.NewRange,
			NewRange: c.Range,
			OldText:  c.NewText,
			NewText:  c.OldText,
		}
	default:
		return c
	}
}

// ToEdit converts a Change to an Edit for reapplication.
func (c Change) ToEdit() Edit {
	return Edit{
		Range:   c.Range,
		NewText: c.NewText,
	}
}

// RangeMap returns the position map of this change, derived from its
// old and new ranges.
func (c Change) RangeMap() *mapping.RangeMap {
	if c.Range.IsEmpty() && c.NewRange.IsEmpty() {
		return mapping.Empty()
	}
	return mapping.NewRangeMap(mapping.Span{
		Start:   c.Range.Start,
		OldSize: c.Range.Len(),
		NewSize: c.NewRange.Len(),
	})
}
