package cursor

import "sort"

// CursorSet manages multiple cursors/selections.
// Selections are kept sorted by position and non-overlapping.
// The first selection is considered the "primary" selection.
type CursorSet struct {
	selections []Selection
}

// NewCursorSet creates a cursor set from the given selections.
// The selections are sorted and overlapping ones are merged.
// An empty call yields a single cursor at offset 0.
func NewCursorSet(selections ...Selection) *CursorSet {
	cs := &CursorSet{}
	cs.SetAll(selections)
	return cs
}

// Primary returns the primary (first) selection.
func (cs *CursorSet) Primary() Selection {
	if len(cs.selections) == 0 {
		return Selection{}
	}
	return cs.selections[0]
}

// All returns a copy of all selections.
func (cs *CursorSet) All() []Selection {
	result := make([]Selection, len(cs.selections))
	copy(result, cs.selections)
	return result
}

// Count returns the number of cursors/selections.
func (cs *CursorSet) Count() int {
	return len(cs.selections)
}

// Get returns the selection at the given index.
// Returns an empty selection if index is out of range.
func (cs *CursorSet) Get(index int) Selection {
	if index < 0 || index >= len(cs.selections) {
		return Selection{}
	}
	return cs.selections[index]
}

// Add adds a new selection, merging with overlapping ones.
func (cs *CursorSet) Add(sel Selection) {
	cs.selections = append(cs.selections, sel)
	cs.normalize()
}

// SetAll replaces all selections.
func (cs *CursorSet) SetAll(sels []Selection) {
	if len(sels) == 0 {
		cs.selections = []Selection{NewCursorSelection(0)}
		return
	}
	cs.selections = make([]Selection, len(sels))
	copy(cs.selections, sels)
	cs.normalize()
}

// MapInPlace applies f to each selection in place.
func (cs *CursorSet) MapInPlace(f func(sel Selection) Selection) {
	for i, sel := range cs.selections {
		cs.selections[i] = f(sel)
	}
	cs.normalize()
}

// Clone returns a deep copy of the cursor set.
func (cs *CursorSet) Clone() *CursorSet {
	clone := &CursorSet{selections: make([]Selection, len(cs.selections))}
	copy(clone.selections, cs.selections)
	return clone
}

// Ranges returns all selection ranges.
func (cs *CursorSet) Ranges() []Range {
	ranges := make([]Range, len(cs.selections))
	for i, sel := range cs.selections {
		ranges[i] = sel.Range()
	}
	return ranges
}

// normalize sorts selections and merges overlapping ones. Two cursors at
// the same offset merge; a cursor touching a selection edge does not.
func (cs *CursorSet) normalize() {
	if len(cs.selections) <= 1 {
		return
	}

	sort.SliceStable(cs.selections, func(i, j int) bool {
		si, sj := cs.selections[i].Start(), cs.selections[j].Start()
		if si != sj {
			return si < sj
		}
		// Same start: larger ranges first
		return cs.selections[i].End() > cs.selections[j].End()
	})

	merged := cs.selections[:1]
	for _, sel := range cs.selections[1:] {
		last := &merged[len(merged)-1]
		if sel.Overlaps(*last) || sel.Range() == last.Range() ||
			(sel.IsEmpty() && sel.Start() > last.Start() && sel.Start() < last.End()) {
			*last = last.Merge(sel)
		} else {
			merged = append(merged, sel)
		}
	}
	cs.selections = merged
}

// Equals returns true if two cursor sets have the same selections.
func (cs *CursorSet) Equals(other *CursorSet) bool {
	if other == nil || cs.Count() != other.Count() {
		return false
	}
	for i, sel := range cs.selections {
		if sel != other.selections[i] {
			return false
		}
	}
	return true
}
