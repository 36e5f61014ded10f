// Package rebase moves unconfirmed local edits on top of confirmed remote
// edits, as a collaborative editor does when the server accepts someone
// else's changes first.
//
// The local edits are undone, the remote edits applied, and each local edit
// is mapped through what came before it and re-applied. Each rebased map is
// registered as the mirror of the inverse that undid it, so positions inside
// text inserted locally survive the round trip:
//
//	res := rebase.Rebase(
//		[]rebase.Rebaseable{{Map: localInsert}},
//		[]*mapping.RangeMap{remoteInsert},
//	)
//	cursor = res.Mapping.Map(cursor, mapping.AssocAfter)
//
// Local edits whose whole range was deleted remotely are dropped.
package rebase
