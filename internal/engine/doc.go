// Package engine keeps positions current while a document is edited.
//
// The engine does not store text. Callers report each edit, and the engine
// records its position effect so cursors, saved offsets and bookmarks can
// be carried to any later revision.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - mapping: RangeMap and Mapping, the position mapping algebra
//   - buffer: offsets, ranges and the Edit vocabulary
//   - cursor: Multi-cursor and selection management
//   - history: undo/redo over a session mapping with mirrors
//   - tracking: revision-indexed change log and snapshots
//   - rebase: rebasing local edits over remote ones
//
// # Thread Safety
//
// All Engine operations are thread-safe. History and Tracker guard their
// own state; the engine's read-write mutex orders edits against cursor
// access.
//
// # Basic Usage
//
//	e := engine.New()
//
//	rev, _ := e.Insert(0, "Hello")
//	e.Delete(1, 3)
//
//	// Where did offset 5 of revision rev end up?
//	res, _ := e.MapSince(rev, 5, engine.AssocAfter)
//
//	// Undo restores deleted content exactly.
//	e.Undo()
//	res, _ = e.MapSince(rev, 2, engine.AssocAfter) // 2, not deleted
//
// # Snapshots
//
//	id := e.CreateSnapshot("before refactor")
//	e.AddBookmark(id, engine.Bookmark{Name: "todo", Offset: 40})
//	marks, _ := e.ResolveBookmarks(id)
//
// # Tests
//
// Test files carried over from the editor engine this package grew out of
// (engine, buffer, cursor, history, tracking, and likewise logging, watcher
// and plugin/lua) use the plain testing package with table-driven cases.
// Test files written for this module (mapping, rebase, script, config and
// cmd/posmap) use testify's require and assert. A package never mixes the
// two.
package engine
