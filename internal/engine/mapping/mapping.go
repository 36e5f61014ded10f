package mapping

import (
	"fmt"
	"slices"
	"strings"
)

// Mapping is an ordered chain of RangeMaps with an optional mirror relation
// between map indexes. Only maps inside the window [From, To) take part in
// mapping positions.
//
// Slice returns views that share the map list and mirror table of the
// mapping they were taken from. Appending to a view copies its storage
// first, so views never write through shared state. Views do observe mirror
// pairs later registered on the original between indexes inside their window.
type Mapping struct {
	maps   []*RangeMap
	mirror *mirrorTable
	from   int
	to     int

	// shared is set on views whose storage belongs to another Mapping.
	shared bool
}

// New creates a mapping over the given maps.
func New(maps ...*RangeMap) *Mapping {
	return &Mapping{
		maps: slices.Clone(maps),
		to:   len(maps),
	}
}

// NewWithMirrors creates a mapping over the given maps with mirror pairs
// registered between the given indexes.
func NewWithMirrors(maps []*RangeMap, pairs [][2]int) *Mapping {
	m := New(maps...)
	for _, p := range pairs {
		m.SetMirror(p[0], p[1])
	}
	return m
}

// Maps returns a copy of the full map list, including maps outside the
// window.
func (m *Mapping) Maps() []*RangeMap {
	return slices.Clone(m.maps)
}

// Len returns the number of maps in the list.
func (m *Mapping) Len() int {
	return len(m.maps)
}

// From returns the start of the active window.
func (m *Mapping) From() int {
	return m.from
}

// To returns the end of the active window.
func (m *Mapping) To() int {
	return m.to
}

// Mirrors returns the registered mirror pairs, lower index first.
func (m *Mapping) Mirrors() [][2]int {
	return m.mirror.pairs()
}

// Slice returns a view restricted to the window [from, to). Bounds are
// clamped to the map list.
func (m *Mapping) Slice(from, to int) *Mapping {
	to = min(max(to, 0), len(m.maps))
	from = min(max(from, 0), to)
	return &Mapping{
		maps:   m.maps,
		mirror: m.mirror,
		from:   from,
		to:     to,
		shared: true,
	}
}

// SliceFrom returns a view of the maps from index from to the end.
func (m *Mapping) SliceFrom(from int) *Mapping {
	return m.Slice(from, len(m.maps))
}

// Copy returns an independent copy with the same window.
func (m *Mapping) Copy() *Mapping {
	return &Mapping{
		maps:   slices.Clone(m.maps),
		mirror: m.mirror.clone(),
		from:   m.from,
		to:     m.to,
	}
}

// own detaches a view from the storage it shares.
func (m *Mapping) own() {
	if !m.shared {
		return
	}
	m.maps = slices.Clone(m.maps)
	m.mirror = m.mirror.clone()
	m.shared = false
}

// AppendMap adds a map to the end of the chain and extends the window to
// cover it.
func (m *Mapping) AppendMap(rm *RangeMap) {
	m.own()
	m.maps = append(m.maps, rm)
	m.to = len(m.maps)
}

// AppendMapMirror adds a map that is the exact inverse of the map at index
// mirrorOf.
func (m *Mapping) AppendMapMirror(rm *RangeMap, mirrorOf int) {
	m.AppendMap(rm)
	m.SetMirror(len(m.maps)-1, mirrorOf)
}

// AppendMapping appends the maps in other's window, keeping the mirror
// pairs that lie entirely inside that window.
func (m *Mapping) AppendMapping(other *Mapping) {
	maps, mirror, from, to := other.maps, other.mirror, other.from, other.to
	base := len(m.maps)
	for k := from; k < to; k++ {
		if j, ok := mirror.get(k); ok && j < k && j >= from {
			m.AppendMapMirror(maps[k], base+j-from)
			continue
		}
		m.AppendMap(maps[k])
	}
}

// AppendMappingInverted appends the inverse of every map in other's window,
// last map first, keeping the mirror pairs that lie inside that window.
func (m *Mapping) AppendMappingInverted(other *Mapping) {
	maps, mirror, from, to := other.maps, other.mirror, other.from, other.to
	total := len(m.maps) + to - from
	for k := to - 1; k >= from; k-- {
		if j, ok := mirror.get(k); ok && j > k && j < to {
			m.AppendMapMirror(maps[k].Invert(), total-(j-from)-1)
			continue
		}
		m.AppendMap(maps[k].Invert())
	}
}

// Invert returns a new mapping that maps positions back through the window,
// from its end to its start.
func (m *Mapping) Invert() *Mapping {
	inv := New()
	inv.AppendMappingInverted(m)
	return inv
}

// GetMirror returns the mirror partner of index i.
func (m *Mapping) GetMirror(i int) (int, bool) {
	return m.mirror.get(i)
}

// SetMirror registers maps i and j as mirrors of each other. Any previous
// partner of either index is unpaired.
func (m *Mapping) SetMirror(i, j int) {
	m.own()
	if m.mirror == nil {
		m.mirror = newMirrorTable()
	}
	m.mirror.set(i, j)
}

// Map translates pos through every map in the window.
func (m *Mapping) Map(pos int64, assoc Assoc) int64 {
	if m.mirror.len() == 0 {
		for i := m.from; i < m.to; i++ {
			pos = m.maps[i].Map(pos, assoc)
		}
		return pos
	}
	return m.mapPos(pos, assoc).Pos
}

// MapResult translates pos through every map in the window and reports
// whether it was deleted along the way. Mirror pairs are used to recover
// positions whose content is removed and later restored unchanged.
func (m *Mapping) MapResult(pos int64, assoc Assoc) MapResult {
	return m.mapPos(pos, assoc)
}

// mapPos walks the window one index at a time. pending holds recoveries
// keyed by the index of the mirror map that may restore them. A deleted
// result whose mirror lies ahead jumps straight to the mirror; a surviving
// one leaves its recovery pending for the mirror to use.
func (m *Mapping) mapPos(pos int64, assoc Assoc) MapResult {
	deleted := false
	var pending map[int]Recovery

	for i := m.from; i < m.to; i++ {
		rm := m.maps[i]
		if rec, ok := pending[i]; ok && rm.Touches(pos, rec) {
			pos = rm.Recover(rec)
			continue
		}

		res, del, rec, hit := rm.scan(pos, assoc)
		if hit {
			if corr, ok := m.mirror.get(i); ok && corr > i && corr < m.to {
				if del {
					i = corr
					pos = m.maps[corr].Recover(rec)
					continue
				}
				if pending == nil {
					pending = make(map[int]Recovery)
				}
				pending[corr] = rec
			}
		}

		if del {
			deleted = true
		}
		pos = res
	}

	return MapResult{Pos: pos, Deleted: deleted}
}

// String returns a debug representation listing the window, maps and
// mirror pairs.
func (m *Mapping) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mapping[%d:%d]{", m.from, m.to)
	for i, rm := range m.maps {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(rm.String())
	}
	sb.WriteByte('}')
	if pairs := m.mirror.pairs(); len(pairs) > 0 {
		fmt.Fprintf(&sb, " mirrors=%v", pairs)
	}
	return sb.String()
}

var _ Mappable = (*Mapping)(nil)
