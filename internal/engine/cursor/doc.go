// Package cursor provides cursors, selections and multi-cursor sets that
// follow document edits.
//
// Selections use an anchor/head model: Anchor is where the selection
// started and Head is where typing occurs. When Anchor == Head the
// selection is a plain cursor. Direction is preserved through every
// transformation.
//
// All transformations go through a [mapping.Mappable], so a selection can
// be carried across a single edit, a multi-span edit or a whole session
// mapping:
//
//	m := mapping.New(edit1.RangeMap(), edit2.RangeMap())
//	sel = cursor.MapSelection(sel, m)
//
// A non-empty selection maps its start with [mapping.AssocAfter] and its
// end with [mapping.AssocBefore], so text inserted at either edge stays
// outside the selection. A collapsed cursor maps with AssocAfter and moves
// past text inserted at its position.
//
// Cursor and Selection are immutable value types and safe for concurrent
// use. CursorSet is not thread-safe.
package cursor
