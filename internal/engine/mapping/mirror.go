package mapping

import "sort"

// mirrorTable is a two-way index of mirror pairs. Every index has at most
// one partner.
type mirrorTable struct {
	partner map[int]int
}

func newMirrorTable() *mirrorTable {
	return &mirrorTable{partner: make(map[int]int)}
}

// get returns the partner of i.
func (t *mirrorTable) get(i int) (int, bool) {
	if t == nil {
		return 0, false
	}
	j, ok := t.partner[i]
	return j, ok
}

// set pairs i and j, unpairing any previous partner of either.
func (t *mirrorTable) set(i, j int) {
	if old, ok := t.partner[i]; ok {
		delete(t.partner, old)
	}
	if old, ok := t.partner[j]; ok {
		delete(t.partner, old)
	}
	t.partner[i] = j
	t.partner[j] = i
}

func (t *mirrorTable) len() int {
	if t == nil {
		return 0
	}
	return len(t.partner)
}

func (t *mirrorTable) clone() *mirrorTable {
	if t == nil {
		return nil
	}
	c := &mirrorTable{partner: make(map[int]int, len(t.partner))}
	for k, v := range t.partner {
		c.partner[k] = v
	}
	return c
}

// pairs returns every pair once, lower index first, sorted.
func (t *mirrorTable) pairs() [][2]int {
	if t == nil {
		return nil
	}
	out := make([][2]int, 0, len(t.partner)/2)
	for i, j := range t.partner {
		if i <= j {
			out = append(out, [2]int{i, j})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a][0] < out[b][0]
	})
	return out
}
