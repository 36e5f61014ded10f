// Package history provides undo/redo over a session mapping.
//
// Every edit made in a session is recorded as a [mapping.RangeMap] appended
// to one growing [mapping.Mapping]. Undoing an entry appends the inverse of
// each of its maps, last first, and registers every inverse as the mirror of
// the map it reverses. Positions mapped across an edit and its undo come
// back exactly, even those whose content was deleted and later restored:
//
//	h := history.New(1000)
//	h.Record(buffer.NewDelete(5, 10).RangeMap(), "delete word")
//	h.Undo()
//
//	res, _ := h.MapFrom(0, 7, mapping.AssocAfter) // res.Pos == 7, !res.Deleted
//
// Redo works the same way over the undo maps, so redoing re-applies the
// exact original content.
//
// # Versions
//
// The version of a document is the number of maps recorded so far. Any
// position can be carried between two versions, forward or backward, with
// MapBetween.
//
// # Grouping
//
// Several maps can be recorded as a single undo unit:
//
//	h.BeginGroup("Find and Replace")
//	// ... several Record calls ...
//	h.EndGroup()
//
// GroupScope and Transaction offer the same with defer and error handling.
package history
