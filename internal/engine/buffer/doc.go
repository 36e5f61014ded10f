// Package buffer defines the edit vocabulary shared by the engine packages:
// byte offsets, ranges, edits and recorded changes.
//
// Edits are the client-facing description of a modification. Every edit
// knows the position effect it has on a document, expressed as a
// [mapping.RangeMap]:
//
//	edit := buffer.NewEdit(buffer.Range{Start: 4, End: 6}, "hello")
//	m := edit.RangeMap() // [4,2,5]
//
//	m.Map(10, mapping.AssocAfter) // 13
//
// Several edits made at once against the same document version can be
// combined into a single multi-span map with [EditsRangeMap].
//
// The package does not hold document content; it only describes where
// content changed.
package buffer
