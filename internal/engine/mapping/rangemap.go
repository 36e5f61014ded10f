package mapping

import (
	"strconv"
	"strings"
)

// Assoc selects which side of an insertion point a position sticks to.
type Assoc int

const (
	// AssocBefore keeps a position attached to the content before it.
	AssocBefore Assoc = -1

	// AssocAfter moves a position along with the content after it.
	// The zero value of Assoc behaves the same way.
	AssocAfter Assoc = 1
)

// String returns a human-readable representation of the association.
func (a Assoc) String() string {
	if a < 0 {
		return "before"
	}
	return "after"
}

// Span is a replaced region: at Start, OldSize units were removed and
// NewSize units were inserted in their place.
type Span struct {
	Start   int64
	OldSize int64
	NewSize int64
}

// MapResult is a mapped position with deletion and recovery details.
type MapResult struct {
	// Pos is the mapped position.
	Pos int64

	// Deleted reports whether the content on the side of the position
	// selected by the association was removed.
	Deleted bool

	// Recover is set when the position fell inside a replaced span.
	// Mapping results never carry it.
	Recover *Recovery
}

// Mappable is implemented by everything positions can be mapped through.
type Mappable interface {
	// Map translates pos, ignoring deletion information.
	Map(pos int64, assoc Assoc) int64

	// MapResult translates pos and reports whether it was deleted.
	MapResult(pos int64, assoc Assoc) MapResult
}

// RangeMap describes the position effect of a single edit as an ordered list
// of non-overlapping spans. RangeMaps are immutable; Invert returns a view
// over the same span buffer.
type RangeMap struct {
	spans    []Span
	inverted bool
}

var emptyRangeMap = &RangeMap{}

// Empty returns the identity map.
func Empty() *RangeMap {
	return emptyRangeMap
}

// NewRangeMap creates a map from spans sorted by Start. The spans are not
// validated or sorted.
func NewRangeMap(spans ...Span) *RangeMap {
	if len(spans) == 0 {
		return emptyRangeMap
	}
	buf := make([]Span, len(spans))
	copy(buf, spans)
	return &RangeMap{spans: buf}
}

// FromRanges creates a map from a flat list of (start, oldSize, newSize)
// triples.
func FromRanges(ranges []int64) (*RangeMap, error) {
	if len(ranges)%3 != 0 {
		return nil, ErrRangesLength
	}
	spans := make([]Span, 0, len(ranges)/3)
	for i := 0; i < len(ranges); i += 3 {
		if ranges[i] < 0 || ranges[i+1] < 0 || ranges[i+2] < 0 {
			return nil, ErrNegativeRange
		}
		spans = append(spans, Span{Start: ranges[i], OldSize: ranges[i+1], NewSize: ranges[i+2]})
	}
	if len(spans) == 0 {
		return emptyRangeMap, nil
	}
	return &RangeMap{spans: spans}, nil
}

// Offset returns a map that shifts every position by n.
func Offset(n int64) *RangeMap {
	switch {
	case n == 0:
		return emptyRangeMap
	case n < 0:
		return &RangeMap{spans: []Span{{Start: 0, OldSize: -n, NewSize: 0}}}
	default:
		return &RangeMap{spans: []Span{{Start: 0, OldSize: 0, NewSize: n}}}
	}
}

// sizes returns the span's sizes as seen through this view.
func (m *RangeMap) sizes(s Span) (oldSize, newSize int64) {
	if m.inverted {
		return s.NewSize, s.OldSize
	}
	return s.OldSize, s.NewSize
}

// Map translates pos into the other coordinate space.
func (m *RangeMap) Map(pos int64, assoc Assoc) int64 {
	res, _, _, _ := m.scan(pos, assoc)
	return res
}

// MapResult translates pos and reports deletion and recovery details.
func (m *RangeMap) MapResult(pos int64, assoc Assoc) MapResult {
	res, deleted, rec, hit := m.scan(pos, assoc)
	if !hit {
		return MapResult{Pos: res}
	}
	return MapResult{Pos: res, Deleted: deleted, Recover: &rec}
}

// scan walks the spans in order, carrying the size drift of the spans
// already passed. hit reports whether pos fell inside a span.
func (m *RangeMap) scan(pos int64, assoc Assoc) (res int64, deleted bool, rec Recovery, hit bool) {
	var diff int64
	for i, s := range m.spans {
		start := s.Start
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.sizes(s)
		end := start + oldSize
		if pos <= end {
			side := assoc
			if oldSize != 0 {
				if pos == start {
					side = AssocBefore
				} else if pos == end {
					side = AssocAfter
				}
			}
			res = start + diff
			if side >= 0 {
				res += newSize
			}
			if assoc < 0 {
				deleted = pos != start
			} else {
				deleted = pos != end
			}
			return res, deleted, Recovery{Index: i, Offset: pos - start}, true
		}
		diff += newSize - oldSize
	}
	return pos + diff, false, Recovery{}, false
}

// Recover returns the position a recovery refers to, expressed in this map's
// output space. Called on the mirror of the map that produced r, it restores
// the exact position that fell inside the replaced content.
func (m *RangeMap) Recover(r Recovery) int64 {
	var diff int64
	if !m.inverted {
		for i := 0; i < r.Index; i++ {
			diff += m.spans[i].NewSize - m.spans[i].OldSize
		}
	}
	return m.spans[r.Index].Start + diff + r.Offset
}

// Touches reports whether pos falls inside the span referenced by r.
func (m *RangeMap) Touches(pos int64, r Recovery) bool {
	var diff int64
	for i, s := range m.spans {
		start := s.Start
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.sizes(s)
		if pos <= start+oldSize && i == r.Index {
			return true
		}
		diff += newSize - oldSize
	}
	return false
}

// ForEach calls fn with the location of every span in both coordinate
// spaces, in ascending order.
func (m *RangeMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int64)) {
	var diff int64
	for _, s := range m.spans {
		oldStart, newStart := s.Start, s.Start
		if m.inverted {
			oldStart -= diff
		} else {
			newStart += diff
		}
		oldSize, newSize := m.sizes(s)
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// Invert returns a map from the post-edit space to the pre-edit space.
// The result shares this map's spans.
func (m *RangeMap) Invert() *RangeMap {
	return &RangeMap{spans: m.spans, inverted: !m.inverted}
}

// Inverted reports whether this is an inverted view.
func (m *RangeMap) Inverted() bool {
	return m.inverted
}

// Len returns the number of spans.
func (m *RangeMap) Len() int {
	return len(m.spans)
}

// IsEmpty reports whether the map has no spans.
func (m *RangeMap) IsEmpty() bool {
	return len(m.spans) == 0
}

// Spans returns a copy of the stored spans.
func (m *RangeMap) Spans() []Span {
	out := make([]Span, len(m.spans))
	copy(out, m.spans)
	return out
}

// Ranges returns the stored spans as a flat triple list.
func (m *RangeMap) Ranges() []int64 {
	out := make([]int64, 0, len(m.spans)*3)
	for _, s := range m.spans {
		out = append(out, s.Start, s.OldSize, s.NewSize)
	}
	return out
}

// Delta returns the total size change applied by the map.
func (m *RangeMap) Delta() int64 {
	var delta int64
	for _, s := range m.spans {
		oldSize, newSize := m.sizes(s)
		delta += newSize - oldSize
	}
	return delta
}

// String returns the debug form of the map, e.g. "-[4,2,5]" for an
// inverted single-span map.
func (m *RangeMap) String() string {
	var sb strings.Builder
	if m.inverted {
		sb.WriteByte('-')
	}
	sb.WriteByte('[')
	for i, v := range m.Ranges() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}

var _ Mappable = (*RangeMap)(nil)
