package cursor

import (
	"fmt"

	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/mapping"
)

// ByteOffset is an alias for buffer.ByteOffset for convenience.
type ByteOffset = buffer.ByteOffset

// Cursor represents an insertion point in a document.
// Cursor is an immutable value type.
type Cursor struct {
	offset ByteOffset
}

// NewCursor creates a cursor at the given offset.
func NewCursor(offset ByteOffset) Cursor {
	if offset < 0 {
		offset = 0
	}
	return Cursor{offset: offset}
}

// Offset returns the cursor's byte offset.
func (c Cursor) Offset() ByteOffset {
	return c.offset
}

// Map returns the cursor carried through m. Text inserted exactly at the
// cursor pushes it forward.
func (c Cursor) Map(m mapping.Mappable) Cursor {
	return NewCursor(MapOffset(c.offset, m, mapping.AssocAfter))
}

// Clamp returns a cursor clamped to the valid range [0, maxOffset].
func (c Cursor) Clamp(maxOffset ByteOffset) Cursor {
	if c.offset > maxOffset {
		return Cursor{offset: maxOffset}
	}
	return c
}

// Compare returns -1 if c < other, 0 if c == other, 1 if c > other.
func (c Cursor) Compare(other Cursor) int {
	switch {
	case c.offset < other.offset:
		return -1
	case c.offset > other.offset:
		return 1
	default:
		return 0
	}
}

// String returns a string representation of the cursor.
func (c Cursor) String() string {
	return fmt.Sprintf("Cursor(%d)", c.offset)
}

// ToSelection converts this cursor to a selection with no extent.
func (c Cursor) ToSelection() Selection {
	return NewCursorSelection(c.offset)
}
