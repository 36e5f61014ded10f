package tracking

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// Errors returned by snapshot operations.
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotID uniquely identifies a named snapshot.
type SnapshotID uuid.UUID

// NewSnapshotID generates a new random snapshot ID.
func NewSnapshotID() SnapshotID {
	return SnapshotID(uuid.New())
}

// ParseSnapshotID parses the string form of a snapshot ID.
func ParseSnapshotID(s string) (SnapshotID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SnapshotID{}, err
	}
	return SnapshotID(id), nil
}

// String returns the canonical UUID form of the ID.
func (id SnapshotID) String() string {
	return uuid.UUID(id).String()
}

// Bookmark is a named position in the document at a snapshot's revision.
type Bookmark struct {
	Name   string
	Offset int64
	Assoc  mapping.Assoc
}

// ResolvedBookmark is a bookmark carried to a later revision.
type ResolvedBookmark struct {
	Bookmark

	// Current is the bookmark's offset at the target revision.
	Current int64

	// Deleted reports whether the content around the bookmark was removed.
	Deleted bool
}

// Snapshot represents a named checkpoint of a document revision.
type Snapshot struct {
	// ID uniquely identifies this snapshot.
	ID SnapshotID

	// Name is the human-readable name for this snapshot.
	Name string

	// Timestamp when this snapshot was created.
	Timestamp time.Time

	// Revision is the document revision at the time of snapshot.
	Revision RevisionID

	// bookmarks is guarded by the owning manager's lock.
	bookmarks []Bookmark
}

// NewSnapshot creates a new snapshot of the given revision.
func NewSnapshot(name string, revision RevisionID) *Snapshot {
	return &Snapshot{
		ID:        NewSnapshotID(),
		Name:      name,
		Timestamp: time.Now(),
		Revision:  revision,
	}
}

// SnapshotManager manages named snapshots.
// All operations are thread-safe.
type SnapshotManager struct {
	mu        sync.RWMutex
	snapshots map[SnapshotID]*Snapshot
	byName    map[string]*Snapshot
}

// NewSnapshotManager creates a new snapshot manager.
func NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{
		snapshots: make(map[SnapshotID]*Snapshot),
		byName:    make(map[string]*Snapshot),
	}
}

// Create creates a new named snapshot.
// If a snapshot with the same name exists, it is replaced.
func (sm *SnapshotManager) Create(name string, revision RevisionID) SnapshotID {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing, ok := sm.byName[name]; ok {
		delete(sm.snapshots, existing.ID)
	}

	snap := NewSnapshot(name, revision)
	sm.snapshots[snap.ID] = snap
	if name != "" {
		sm.byName[name] = snap
	}
	return snap.ID
}

// Get retrieves a snapshot by ID.
func (sm *SnapshotManager) Get(id SnapshotID) (*Snapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	snap, ok := sm.snapshots[id]
	return snap, ok
}

// GetByName retrieves a snapshot by name.
func (sm *SnapshotManager) GetByName(name string) (*Snapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	snap, ok := sm.byName[name]
	return snap, ok
}

// AddBookmark attaches a bookmark to a snapshot, replacing any bookmark
// with the same name.
func (sm *SnapshotManager) AddBookmark(id SnapshotID, b Bookmark) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	snap, ok := sm.snapshots[id]
	if !ok {
		return ErrSnapshotNotFound
	}
	marks := make([]Bookmark, 0, len(snap.bookmarks)+1)
	for _, existing := range snap.bookmarks {
		if existing.Name != b.Name {
			marks = append(marks, existing)
		}
	}
	snap.bookmarks = append(marks, b)
	return nil
}

// Bookmarks returns a copy of the bookmarks attached to a snapshot.
func (sm *SnapshotManager) Bookmarks(id SnapshotID) ([]Bookmark, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	snap, ok := sm.snapshots[id]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	out := make([]Bookmark, len(snap.bookmarks))
	copy(out, snap.bookmarks)
	return out, nil
}

// Delete removes a snapshot by ID.
func (sm *SnapshotManager) Delete(id SnapshotID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if snap, ok := sm.snapshots[id]; ok {
		if snap.Name != "" {
			delete(sm.byName, snap.Name)
		}
		delete(sm.snapshots, id)
	}
}

// DeleteByName removes a snapshot by name.
func (sm *SnapshotManager) DeleteByName(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if snap, ok := sm.byName[name]; ok {
		delete(sm.snapshots, snap.ID)
		delete(sm.byName, name)
	}
}

// List returns all snapshots, oldest first.
func (sm *SnapshotManager) List() []*Snapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	snapshots := make([]*Snapshot, 0, len(sm.snapshots))
	for _, snap := range sm.snapshots {
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Revision != snapshots[j].Revision {
			return snapshots[i].Revision < snapshots[j].Revision
		}
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots
}

// Count returns the number of snapshots.
func (sm *SnapshotManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.snapshots)
}

// Clear removes all snapshots.
func (sm *SnapshotManager) Clear() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.snapshots = make(map[SnapshotID]*Snapshot)
	sm.byName = make(map[string]*Snapshot)
}

// PruneBefore removes snapshots taken before the given revision.
// Returns the number of snapshots removed.
func (sm *SnapshotManager) PruneBefore(rev RevisionID) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var removed int
	for id, snap := range sm.snapshots {
		if snap.Revision < rev {
			if snap.Name != "" {
				delete(sm.byName, snap.Name)
			}
			delete(sm.snapshots, id)
			removed++
		}
	}
	return removed
}
