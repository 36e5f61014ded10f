package buffer

import (
	"errors"
	"testing"

	"github.com/dshills/posmap/internal/engine/mapping"
)

func TestEditRangeMap(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
		want string
	}{
		{"insert", NewInsert(3, "abc"), "[3,0,3]"},
		{"delete", NewDelete(2, 7), "[2,5,0]"},
		{"replace", NewEdit(Range{Start: 4, End: 6}, "hello"), "[4,2,5]"},
		{"noop", NewInsert(9, ""), "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.edit.RangeMap().String()
			if got != tt.want {
				t.Errorf("RangeMap() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEditRangeMapMapsPositions(t *testing.T) {
	m := NewEdit(Range{Start: 4, End: 6}, "hello").RangeMap()

	tests := []struct {
		pos   int64
		assoc mapping.Assoc
		want  int64
	}{
		{0, mapping.AssocAfter, 0},
		{4, mapping.AssocAfter, 4},
		{5, mapping.AssocBefore, 4},
		{5, mapping.AssocAfter, 9},
		{6, mapping.AssocBefore, 9},
		{10, mapping.AssocAfter, 13},
	}

	for _, tt := range tests {
		if got := m.Map(tt.pos, tt.assoc); got != tt.want {
			t.Errorf("Map(%d, %s) = %d, want %d", tt.pos, tt.assoc, got, tt.want)
		}
	}
}

func TestEditDelta(t *testing.T) {
	tests := []struct {
		edit Edit
		want ByteOffset
	}{
		{NewInsert(0, "hello"), 5},
		{NewDelete(0, 5), -5},
		{NewEdit(Range{Start: 0, End: 2}, "abcd"), 2},
	}

	for _, tt := range tests {
		if got := tt.edit.Delta(); got != tt.want {
			t.Errorf("%s.Delta() = %d, want %d", tt.edit, got, tt.want)
		}
		if got := tt.edit.RangeMap().Delta(); got != tt.want {
			t.Errorf("%s.RangeMap().Delta() = %d, want %d", tt.edit, got, tt.want)
		}
	}
}

func TestEditKinds(t *testing.T) {
	if !NewInsert(0, "x").IsInsert() {
		t.Error("NewInsert should be an insert")
	}
	if !NewDelete(0, 1).IsDelete() {
		t.Error("NewDelete should be a delete")
	}
	if !NewEdit(Range{Start: 0, End: 1}, "y").IsReplace() {
		t.Error("NewEdit with text over a range should be a replace")
	}
	if !NewInsert(0, "").IsNoOp() {
		t.Error("empty insert should be a no-op")
	}
}

func TestEditsRangeMap(t *testing.T) {
	edits := []Edit{
		NewInsert(10, "xyz"),
		NewDelete(2, 4),
		NewEdit(Range{Start: 6, End: 7}, "ab"),
	}

	m, err := EditsRangeMap(edits)
	if err != nil {
		t.Fatalf("EditsRangeMap() error = %v", err)
	}
	if got, want := m.String(), "[2,2,0,6,1,2,10,0,3]"; got != want {
		t.Errorf("EditsRangeMap() = %s, want %s", got, want)
	}

	// Positions in pre-edit coordinates shift by the spans before them.
	tests := []struct {
		pos  int64
		want int64
	}{
		{0, 0},
		{5, 3},
		{8, 7},
		{12, 14},
	}
	for _, tt := range tests {
		if got := m.Map(tt.pos, mapping.AssocAfter); got != tt.want {
			t.Errorf("Map(%d) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestEditsRangeMapTouching(t *testing.T) {
	m, err := EditsRangeMap([]Edit{NewDelete(4, 6), NewInsert(6, "a")})
	if err != nil {
		t.Fatalf("EditsRangeMap() error = %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestEditsRangeMapErrors(t *testing.T) {
	tests := []struct {
		name  string
		edits []Edit
		want  error
	}{
		{"overlap", []Edit{NewDelete(2, 6), NewDelete(5, 8)}, ErrOverlappingEdits},
		{"same insert point", []Edit{NewInsert(3, "a"), NewInsert(3, "b")}, ErrOverlappingEdits},
		{"invalid range", []Edit{NewDelete(6, 2)}, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EditsRangeMap(tt.edits)
			if !errors.Is(err, tt.want) {
				t.Errorf("EditsRangeMap() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEditsRangeMapEmpty(t *testing.T) {
	m, err := EditsRangeMap([]Edit{NewInsert(4, "")})
	if err != nil {
		t.Fatalf("EditsRangeMap() error = %v", err)
	}
	if !m.IsEmpty() {
		t.Errorf("EditsRangeMap() = %s, want empty", m)
	}
}

func TestChangeInvertRangeMap(t *testing.T) {
	edits := []struct {
		edit    Edit
		oldText string
	}{
		{NewInsert(3, "abc"), ""},
		{NewDelete(2, 5), "xyz"},
		{NewEdit(Range{Start: 1, End: 3}, "hello"), "ab"},
	}

	for _, e := range edits {
		c := ChangeFromEdit(e.edit, e.oldText)
		fwd := c.RangeMap()
		back := c.Invert().RangeMap()

		if got, want := back.Delta(), -fwd.Delta(); got != want {
			t.Errorf("%s: inverse delta = %d, want %d", e.edit, got, want)
		}
		for _, pos := range []int64{0, 10, 20} {
			if got := back.Map(fwd.Map(pos, mapping.AssocAfter), mapping.AssocAfter); got != pos {
				t.Errorf("%s: round trip of %d = %d", e.edit, pos, got)
			}
		}
		if inv := c.Invert().Invert(); inv != c {
			t.Errorf("%s: double invert = %+v, want %+v", e.edit, inv, c)
		}
	}
}

func TestChangeFromEdit(t *testing.T) {
	c := ChangeFromEdit(NewEdit(Range{Start: 4, End: 6}, "hello"), "xy")
	if c.Type != ChangeReplace {
		t.Errorf("Type = %s, want replace", c.Type)
	}
	if c.NewRange != (Range{Start: 4, End: 9}) {
		t.Errorf("NewRange = %s, want [4:9)", c.NewRange)
	}
	if c.ToEdit() != NewEdit(Range{Start: 4, End: 6}, "hello") {
		t.Errorf("ToEdit() = %s", c.ToEdit())
	}
}

func TestRange(t *testing.T) {
	r := NewRange(2, 6)
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}
	if !r.Contains(2) || r.Contains(6) {
		t.Error("Contains should be half-open")
	}
	if !r.Overlaps(NewRange(5, 8)) || r.Overlaps(NewRange(6, 8)) {
		t.Error("Overlaps should ignore touching ranges")
	}
	if got := r.Shift(3); got != NewRange(5, 9) {
		t.Errorf("Shift(3) = %s, want [5:9)", got)
	}
}

func TestNewRevisionIDUnique(t *testing.T) {
	a, b := NewRevisionID(), NewRevisionID()
	if a == b || b < a {
		t.Errorf("NewRevisionID() = %d then %d, want increasing", a, b)
	}
}
