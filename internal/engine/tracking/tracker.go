package tracking

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/mapping"
)

// DefaultMaxChanges is the default maximum number of maps to track.
const DefaultMaxChanges = 10000

// DefaultMaxRevisions is the default maximum number of revisions to describe.
const DefaultMaxRevisions = 100

// Errors returned by tracker operations.
var (
	ErrRevisionTrimmed = errors.New("revision no longer tracked")
	ErrRevisionOrder   = errors.New("revision older than current")
	ErrUnknownRevision = errors.New("unknown revision")
)

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMaxChanges sets the maximum number of maps to retain. Older maps are
// dropped and positions from the revisions they belong to can no longer be
// translated. Values below one are ignored.
func WithMaxChanges(maxChanges int) TrackerOption {
	return func(t *Tracker) {
		if maxChanges > 0 {
			t.maxChanges = maxChanges
		}
	}
}

// WithMaxRevisions sets the maximum number of revisions to describe.
func WithMaxRevisions(maxRevisions int) TrackerOption {
	return func(t *Tracker) {
		t.revisions = newRevisionStore(maxRevisions)
	}
}

// trackedChange is one map of the tracker's mapping with its revision.
type trackedChange struct {
	revision RevisionID
	change   *Change // nil when only a map was recorded
	rm       *mapping.RangeMap
}

// Tracker records the maps of successive document revisions and translates
// positions between revisions. It keeps a bounded history and supports
// named snapshots. All operations are thread-safe.
type Tracker struct {
	mu sync.RWMutex

	// entries[i] describes maps[i] of mapping.
	entries    []trackedChange
	mapping    *mapping.Mapping
	maxChanges int

	// trimmedRev is the revision of the newest dropped entry.
	trimmed    bool
	trimmedRev RevisionID

	current   RevisionID
	revisions *revisionStore
	snapshots *SnapshotManager
}

// NewTracker creates a new change tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		mapping:    mapping.New(),
		maxChanges: DefaultMaxChanges,
		revisions:  newRevisionStore(DefaultMaxRevisions),
		snapshots:  NewSnapshotManager(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// RecordChange records a single change made by revision rev.
func (t *Tracker) RecordChange(rev RevisionID, change Change) error {
	return t.RecordChanges(rev, []Change{change})
}

// RecordChanges records changes made by revision rev, in the order they
// were applied.
func (t *Tracker) RecordChanges(rev RevisionID, changes []Change) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOrderLocked(rev); err != nil {
		return err
	}
	for _, c := range changes {
		c.RevisionID = rev
		t.appendLocked(rev, &c, c.RangeMap(), -1)
	}
	t.trimLocked()
	return nil
}

// RecordEdit records a buffer edit that replaced oldText.
func (t *Tracker) RecordEdit(rev RevisionID, e buffer.Edit, oldText string) error {
	return t.RecordChange(rev, FromBufferChange(buffer.ChangeFromEdit(e, oldText), rev))
}

// RecordMap records a bare map made by revision rev.
func (t *Tracker) RecordMap(rev RevisionID, m *mapping.RangeMap) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOrderLocked(rev); err != nil {
		return err
	}
	t.appendLocked(rev, nil, m, -1)
	t.trimLocked()
	return nil
}

// RecordInverse records, as revision rev, the exact undo of revision ofRev:
// the inverse of each of its maps, last first, each mirrored to the map it
// reverses.
func (t *Tracker) RecordInverse(rev, ofRev RevisionID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOrderLocked(rev); err != nil {
		return err
	}
	if t.trimmed && ofRev <= t.trimmedRev {
		return fmt.Errorf("%w: %d", ErrRevisionTrimmed, ofRev)
	}

	lo := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].revision >= ofRev })
	hi := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].revision > ofRev })
	if lo == hi {
		return fmt.Errorf("%w: %d", ErrUnknownRevision, ofRev)
	}

	for i := hi - 1; i >= lo; i-- {
		e := t.entries[i]
		var inv *Change
		if e.change != nil {
			c := e.change.Invert()
			c.RevisionID = rev
			inv = &c
		}
		t.appendLocked(rev, inv, e.rm.Invert(), i)
	}
	t.trimLocked()
	return nil
}

// checkOrderLocked rejects revisions older than the current one.
func (t *Tracker) checkOrderLocked(rev RevisionID) error {
	if rev < t.current {
		return fmt.Errorf("%w: %d < %d", ErrRevisionOrder, rev, t.current)
	}
	return nil
}

// appendLocked adds one map (must hold lock). A non-negative mirrorOf
// registers the map as the mirror of that entry, unless the entry is already
// paired.
func (t *Tracker) appendLocked(rev RevisionID, change *Change, rm *mapping.RangeMap, mirrorOf int) {
	if _, paired := t.mapping.GetMirror(mirrorOf); mirrorOf >= 0 && !paired {
		t.mapping.AppendMapMirror(rm, mirrorOf)
	} else {
		t.mapping.AppendMap(rm)
	}
	t.entries = append(t.entries, trackedChange{revision: rev, change: change, rm: rm})
	t.current = rev
	t.revisions.note(rev, rm.Delta())
}

// trimLocked drops the oldest entries over capacity and rebuilds the mapping
// from the retained window (must hold lock).
func (t *Tracker) trimLocked() {
	excess := len(t.entries) - t.maxChanges
	if excess <= 0 {
		return
	}

	t.trimmed = true
	t.trimmedRev = t.entries[excess-1].revision

	retained := make([]trackedChange, len(t.entries)-excess)
	copy(retained, t.entries[excess:])
	t.entries = retained

	rebuilt := mapping.New()
	rebuilt.AppendMapping(t.mapping.SliceFrom(excess))
	t.mapping = rebuilt
}

// startLocked returns the index of the first map recorded after rev.
func (t *Tracker) startLocked(rev RevisionID) (int, error) {
	if rev > t.current {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRevision, rev)
	}
	if t.trimmed && rev < t.trimmedRev {
		return 0, fmt.Errorf("%w: %d", ErrRevisionTrimmed, rev)
	}
	return sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].revision > rev
	}), nil
}

// Position Mapping

// MapSince maps a position from revision rev to the current revision.
func (t *Tracker) MapSince(rev RevisionID, pos int64, assoc mapping.Assoc) (mapping.MapResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.startLocked(rev)
	if err != nil {
		return mapping.MapResult{}, err
	}
	return t.mapping.SliceFrom(i).MapResult(pos, assoc), nil
}

// MapBetween maps a position from one revision to another. When from is
// newer than to, the position is carried backward.
func (t *Tracker) MapBetween(from, to RevisionID, pos int64, assoc mapping.Assoc) (mapping.MapResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.startLocked(from)
	if err != nil {
		return mapping.MapResult{}, err
	}
	j, err := t.startLocked(to)
	if err != nil {
		return mapping.MapResult{}, err
	}
	if i <= j {
		return t.mapping.Slice(i, j).MapResult(pos, assoc), nil
	}
	return t.mapping.Slice(j, i).Invert().MapResult(pos, assoc), nil
}

// MappingSince returns an independent mapping from revision rev to the
// current revision.
func (t *Tracker) MappingSince(rev RevisionID) (*mapping.Mapping, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.startLocked(rev)
	if err != nil {
		return nil, err
	}
	m := mapping.New()
	m.AppendMapping(t.mapping.SliceFrom(i))
	return m, nil
}

// CurrentRevision returns the newest recorded revision.
func (t *Tracker) CurrentRevision() RevisionID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Change Queries

// ChangesSince returns all changes since a revision in chronological order.
// Bare maps are not included.
func (t *Tracker) ChangesSince(rev RevisionID) []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changesBetweenLocked(rev, t.current)
}

// ChangesBetween returns changes between two revisions (exclusive start,
// inclusive end).
func (t *Tracker) ChangesBetween(startRev, endRev RevisionID) []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changesBetweenLocked(startRev, endRev)
}

func (t *Tracker) changesBetweenLocked(startRev, endRev RevisionID) []Change {
	var result []Change
	for _, tc := range t.entries {
		if tc.change != nil && tc.revision > startRev && tc.revision <= endRev {
			result = append(result, *tc.change)
		}
	}
	return result
}

// LatestChanges returns the most recent n changes in chronological order.
func (t *Tracker) LatestChanges(n int) []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []Change
	for i := len(t.entries) - 1; i >= 0 && len(result) < n; i-- {
		if c := t.entries[i].change; c != nil {
			result = append(result, *c)
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// ChangeCount returns the number of tracked maps.
func (t *Tracker) ChangeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// BuildChangeSet creates a ChangeSet from changes since a revision.
func (t *Tracker) BuildChangeSet(sinceRev RevisionID) *ChangeSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changeSetLocked(sinceRev, t.current)
}

// BuildChangeSetBetween creates a ChangeSet for changes between two revisions.
func (t *Tracker) BuildChangeSetBetween(startRev, endRev RevisionID) *ChangeSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changeSetLocked(startRev, endRev)
}

func (t *Tracker) changeSetLocked(startRev, endRev RevisionID) *ChangeSet {
	cs := NewChangeSet(startRev)
	for _, c := range t.changesBetweenLocked(startRev, endRev) {
		cs.Add(c)
	}
	return cs
}

// Snapshot Operations

// CreateSnapshot creates a named snapshot of revision rev.
func (t *Tracker) CreateSnapshot(name string, rev RevisionID) SnapshotID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshots.Create(name, rev)
}

// GetSnapshot retrieves a snapshot by ID.
func (t *Tracker) GetSnapshot(id SnapshotID) (*Snapshot, error) {
	snap, ok := t.snapshots.Get(id)
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

// GetSnapshotByName retrieves a snapshot by name.
func (t *Tracker) GetSnapshotByName(name string) (*Snapshot, error) {
	snap, ok := t.snapshots.GetByName(name)
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

// DeleteSnapshot removes a snapshot.
func (t *Tracker) DeleteSnapshot(id SnapshotID) {
	t.snapshots.Delete(id)
}

// DeleteSnapshotByName removes a snapshot by name.
func (t *Tracker) DeleteSnapshotByName(name string) {
	t.snapshots.DeleteByName(name)
}

// ListSnapshots returns all snapshots.
func (t *Tracker) ListSnapshots() []*Snapshot {
	return t.snapshots.List()
}

// SnapshotCount returns the number of snapshots.
func (t *Tracker) SnapshotCount() int {
	return t.snapshots.Count()
}

// ChangesSinceSnapshot returns the changes recorded since a snapshot.
func (t *Tracker) ChangesSinceSnapshot(id SnapshotID) ([]Change, error) {
	snap, err := t.GetSnapshot(id)
	if err != nil {
		return nil, err
	}
	return t.ChangesSince(snap.Revision), nil
}

// MapSinceSnapshot maps a position from a snapshot's revision to the
// current revision.
func (t *Tracker) MapSinceSnapshot(id SnapshotID, pos int64, assoc mapping.Assoc) (mapping.MapResult, error) {
	snap, err := t.GetSnapshot(id)
	if err != nil {
		return mapping.MapResult{}, err
	}
	return t.MapSince(snap.Revision, pos, assoc)
}

// AddBookmark attaches a bookmark to a snapshot.
func (t *Tracker) AddBookmark(id SnapshotID, b Bookmark) error {
	return t.snapshots.AddBookmark(id, b)
}

// ResolveBookmarks carries every bookmark of a snapshot to the current
// revision.
func (t *Tracker) ResolveBookmarks(id SnapshotID) ([]ResolvedBookmark, error) {
	snap, err := t.GetSnapshot(id)
	if err != nil {
		return nil, err
	}
	marks, err := t.snapshots.Bookmarks(id)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.startLocked(snap.Revision)
	if err != nil {
		return nil, err
	}
	m := t.mapping.SliceFrom(i)

	resolved := make([]ResolvedBookmark, len(marks))
	for k, b := range marks {
		res := m.MapResult(b.Offset, b.Assoc)
		resolved[k] = ResolvedBookmark{Bookmark: b, Current: res.Pos, Deleted: res.Deleted}
	}
	return resolved, nil
}

// Revision Operations

// GetRevision retrieves the description of a recent revision.
func (t *Tracker) GetRevision(id RevisionID) (*Revision, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revisions.Get(id)
}

// RevisionCount returns the number of described revisions.
func (t *Tracker) RevisionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revisions.Len()
}

// Clear removes all tracked maps, revisions, and snapshots. The current
// revision is kept so that new records stay ordered; every older revision
// is reported as trimmed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) > 0 {
		t.trimmed = true
		t.trimmedRev = t.current
	}
	t.entries = nil
	t.mapping = mapping.New()
	t.revisions.Clear()
	t.snapshots.Clear()
}
