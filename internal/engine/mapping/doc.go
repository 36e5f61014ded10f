// Package mapping provides the position remapping algebra used to move
// offsets across edits.
//
// A document edit is described by a [RangeMap]: an ordered list of replaced
// spans, each recording where content was removed and how much content took
// its place. Mapping a position through a RangeMap yields the corresponding
// position in the other version of the document.
//
// # Range Maps
//
// Each span is a triple (start, oldSize, newSize):
//
//	// Replace 2 bytes at offset 4 with 5 bytes
//	m := mapping.NewRangeMap(mapping.Span{Start: 4, OldSize: 2, NewSize: 5})
//
//	m.Map(10, mapping.AssocAfter) // 13
//	m.Invert().Map(13, mapping.AssocAfter) // 10
//
// Inverting a RangeMap is O(1): the inverted map shares the span buffer and
// only flips how old and new sizes are read.
//
// # Association
//
// When content is inserted exactly at a position, the association decides
// which side the position sticks to. [AssocBefore] keeps it before the
// insertion, [AssocAfter] (the default, also the zero value) moves it past.
//
// # Mappings
//
// A [Mapping] chains many RangeMaps. Maps can be declared mirrors of each
// other, meaning one is the exact inverse of the other. When a position is
// deleted by one map and its mirror later reintroduces the same content, the
// mapping recovers the original position instead of reporting it deleted:
//
//	del := mapping.NewRangeMap(mapping.Span{Start: 5, OldSize: 5})
//	m := mapping.New(del)
//	m.AppendMapMirror(del.Invert(), 0)
//
//	m.MapResult(7, mapping.AssocAfter) // {Pos: 7, Deleted: false}
//
// # Thread Safety
//
// RangeMaps are immutable and safe for concurrent use. A Mapping is not
// safe for concurrent mutation, but any number of goroutines may map
// positions through a Mapping that is no longer being appended to.
package mapping
