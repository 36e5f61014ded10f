package tracking

import (
	"time"

	"github.com/dshills/posmap/internal/engine/buffer"
)

// RevisionID is an alias to buffer.RevisionID for convenience.
// It identifies a document state at a point in time.
type RevisionID = buffer.RevisionID

// Revision describes the maps recorded for one revision.
type Revision struct {
	// ID identifies this revision.
	ID RevisionID

	// Timestamp when the revision was first recorded.
	Timestamp time.Time

	// Maps is the number of maps recorded under this revision.
	Maps int

	// Delta is the total size change of the revision.
	Delta int64
}

// revisionStore keeps metadata for a bounded number of recent revisions.
type revisionStore struct {
	revisions  map[RevisionID]*Revision
	order      []RevisionID // oldest first
	maxEntries int
}

// newRevisionStore creates a new revision store with the given capacity.
func newRevisionStore(maxEntries int) *revisionStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxRevisions
	}
	return &revisionStore{
		revisions:  make(map[RevisionID]*Revision),
		maxEntries: maxEntries,
	}
}

// note accounts one map of the given delta to a revision, creating it on
// first use and evicting the oldest revisions over capacity.
func (rs *revisionStore) note(id RevisionID, delta int64) {
	rev, ok := rs.revisions[id]
	if !ok {
		rev = &Revision{ID: id, Timestamp: time.Now()}
		rs.revisions[id] = rev
		rs.order = append(rs.order, id)
	}
	rev.Maps++
	rev.Delta += delta

	for len(rs.order) > rs.maxEntries {
		delete(rs.revisions, rs.order[0])
		rs.order = rs.order[1:]
	}
}

// Get retrieves a revision by ID.
func (rs *revisionStore) Get(id RevisionID) (*Revision, bool) {
	rev, ok := rs.revisions[id]
	if !ok {
		return nil, false
	}
	cp := *rev
	return &cp, true
}

// Len returns the number of stored revisions.
func (rs *revisionStore) Len() int {
	return len(rs.revisions)
}

// Clear removes all revisions.
func (rs *revisionStore) Clear() {
	rs.revisions = make(map[RevisionID]*Revision)
	rs.order = nil
}
