// Package tracking records the changes of successive document revisions
// and translates positions between them.
//
// Every recorded change contributes a [mapping.RangeMap] to one mapping
// owned by the [Tracker]. A position stored at an older revision, such as a
// diagnostic, a search hit or a reader's bookmark, can be carried to the
// current revision at any time:
//
//	tracker := tracking.NewTracker()
//	tracker.RecordChange(rev, tracking.NewInsertChange(0, "hello", rev))
//
//	res, err := tracker.MapSince(oldRev, 42, mapping.AssocAfter)
//
// RecordInverse records the exact undo of an earlier revision. Its maps
// are mirrored to the maps they reverse, so positions inside content that
// was removed and restored come back unchanged.
//
// # Bounded History
//
// The tracker keeps at most WithMaxChanges maps. When older maps are
// dropped the mapping is rebuilt from the retained window, and queries from
// revisions that depend on dropped maps return [ErrRevisionTrimmed].
//
// # Snapshots
//
// Named snapshots remember a revision and can carry bookmarks:
//
//	id := tracker.CreateSnapshot("before_refactor", rev)
//	tracker.AddBookmark(id, tracking.Bookmark{Name: "cursor", Offset: 120})
//
//	// Later
//	marks, err := tracker.ResolveBookmarks(id)
//
// # Thread Safety
//
// All Tracker operations are thread-safe through internal locking.
package tracking
