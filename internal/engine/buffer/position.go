package buffer

import "sync/atomic"

// ByteOffset represents a byte position in a document.
// This is the fundamental position type, directly indexing into the text.
type ByteOffset = int64

// RevisionID uniquely identifies a document revision.
// Each modification to the document creates a new revision.
type RevisionID uint64

// revisionCounter is used to generate unique revision IDs.
var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
// This is thread-safe using atomic operations.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}
