package cursor

import (
	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/mapping"
)

// Edit is an alias for buffer.Edit for convenience.
type Edit = buffer.Edit

// MapOffset carries an offset through m. Results below zero are clamped.
func MapOffset(offset ByteOffset, m mapping.Mappable, assoc mapping.Assoc) ByteOffset {
	return max(0, m.Map(offset, assoc))
}

// MapSelection carries a selection through m.
//
// A collapsed selection maps with AssocAfter. A non-empty selection maps its
// start with AssocAfter and its end with AssocBefore so that insertions at
// either edge stay outside. If the mapped range inverts, which happens when
// the whole selection was replaced, it collapses at the mapped start.
func MapSelection(sel Selection, m mapping.Mappable) Selection {
	if sel.IsEmpty() {
		return NewCursorSelection(MapOffset(sel.Head, m, mapping.AssocAfter))
	}
	start := MapOffset(sel.Start(), m, mapping.AssocAfter)
	end := MapOffset(sel.End(), m, mapping.AssocBefore)
	if end <= start {
		return NewCursorSelection(start)
	}
	return sel.withRange(start, end)
}

// MapCursorSet carries every selection of cs through m and re-normalizes
// the set.
func MapCursorSet(cs *CursorSet, m mapping.Mappable) {
	cs.MapInPlace(func(sel Selection) Selection {
		return MapSelection(sel, m)
	})
}

// MapRanges carries ranges through m. Each range maps like a non-empty
// selection; ranges that invert collapse at their mapped start.
func MapRanges(ranges []Range, m mapping.Mappable) []Range {
	result := make([]Range, len(ranges))
	for i, r := range ranges {
		result[i] = MapSelection(NewRangeSelection(r), m).Range()
	}
	return result
}

// TransformOffset updates an offset after a single edit.
//
// Offsets before the edit are unchanged, offsets after it shift by the
// edit's delta, and offsets inside the replaced range, or exactly at an
// insertion point, move to the end of the new text.
func TransformOffset(offset ByteOffset, edit Edit) ByteOffset {
	return MapOffset(offset, edit.RangeMap(), mapping.AssocAfter)
}

// TransformOffsetSticky is like TransformOffset, but a sticky offset keeps
// to the content before it: it stays in front of text inserted at its
// position and moves to the start of a replaced range that contains it.
func TransformOffsetSticky(offset ByteOffset, edit Edit, sticky bool) ByteOffset {
	assoc := mapping.AssocAfter
	if sticky {
		assoc = mapping.AssocBefore
	}
	return MapOffset(offset, edit.RangeMap(), assoc)
}

// TransformCursor updates a cursor after an edit.
func TransformCursor(c Cursor, edit Edit) Cursor {
	return c.Map(edit.RangeMap())
}

// TransformSelection updates a selection after an edit.
func TransformSelection(sel Selection, edit Edit) Selection {
	return MapSelection(sel, edit.RangeMap())
}

// TransformCursorSet updates all selections in a cursor set after an edit.
func TransformCursorSet(cs *CursorSet, edit Edit) {
	MapCursorSet(cs, edit.RangeMap())
}

// TransformCursorSetMulti updates selections after several edits made
// simultaneously, all expressed in pre-edit coordinates. Overlapping edits
// return buffer.ErrOverlappingEdits and leave cs untouched.
func TransformCursorSetMulti(cs *CursorSet, edits []Edit) error {
	m, err := buffer.EditsRangeMap(edits)
	if err != nil {
		return err
	}
	MapCursorSet(cs, m)
	return nil
}

// TransformCursorSetSequence updates selections after edits applied one
// after another, each expressed in the coordinates left by the previous one.
func TransformCursorSetSequence(cs *CursorSet, edits []Edit) {
	maps := make([]*mapping.RangeMap, len(edits))
	for i, e := range edits {
		maps[i] = e.RangeMap()
	}
	MapCursorSet(cs, mapping.New(maps...))
}
