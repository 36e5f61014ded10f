package history

import (
	"errors"
	"testing"

	"github.com/dshills/posmap/internal/engine/buffer"
	"github.com/dshills/posmap/internal/engine/mapping"
)

func mapStrings(maps []*mapping.RangeMap) []string {
	out := make([]string, len(maps))
	for i, m := range maps {
		out[i] = m.String()
	}
	return out
}

func TestUndoRestoresDeletedPositions(t *testing.T) {
	h := New(0)
	h.RecordEdit(buffer.NewDelete(5, 10), "delete")

	res, err := h.MapFrom(0, 7, mapping.AssocAfter)
	if err != nil {
		t.Fatalf("MapFrom() error = %v", err)
	}
	if res.Pos != 5 || !res.Deleted {
		t.Errorf("before undo: got %+v, want pos 5 deleted", res)
	}

	undone, err := h.Undo()
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if got := mapStrings(undone); len(got) != 1 || got[0] != "-[5,5,0]" {
		t.Errorf("Undo() = %v, want [-[5,5,0]]", got)
	}

	for pos := int64(0); pos < 15; pos++ {
		res, err := h.MapFrom(0, pos, mapping.AssocAfter)
		if err != nil {
			t.Fatalf("MapFrom() error = %v", err)
		}
		if res.Pos != pos || res.Deleted {
			t.Errorf("after undo: MapFrom(0, %d) = %+v, want %d not deleted", pos, res, pos)
		}
	}
	if h.Version() != 2 {
		t.Errorf("Version() = %d, want 2", h.Version())
	}
}

func TestRedoRestoresInsertedContent(t *testing.T) {
	h := New(0)
	h.RecordEdit(buffer.NewInsert(5, "abc"), "type")

	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	redone, err := h.Redo()
	if err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if got := mapStrings(redone); len(got) != 1 || got[0] != "[5,0,3]" {
		t.Errorf("Redo() = %v, want [[5,0,3]]", got)
	}

	// The undo map stays paired with the original insert, so a position
	// inside the typed text is lost by the undo and the redo lands after
	// the re-inserted text.
	res, err := h.MapBetween(1, 3, 6, mapping.AssocAfter)
	if err != nil {
		t.Fatalf("MapBetween() error = %v", err)
	}
	if res.Pos != 8 || !res.Deleted {
		t.Errorf("MapBetween(1, 3, 6) = %+v, want 8 deleted", res)
	}

	if !h.CanUndo() || h.CanRedo() {
		t.Error("after redo the unit should be undoable again")
	}
}

func TestRedoKeepsEarlierMirrors(t *testing.T) {
	h := New(0)
	h.RecordEdit(buffer.NewDelete(5, 10), "cut")

	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	before := make(map[int64]mapping.MapResult)
	for pos := int64(0); pos < 15; pos++ {
		res, err := h.MapBetween(0, 2, pos, mapping.AssocAfter)
		if err != nil {
			t.Fatalf("MapBetween() error = %v", err)
		}
		before[pos] = res
	}

	if _, err := h.Redo(); err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	for pos := int64(0); pos < 15; pos++ {
		res, err := h.MapBetween(0, 2, pos, mapping.AssocAfter)
		if err != nil {
			t.Fatalf("MapBetween() error = %v", err)
		}
		if res != before[pos] {
			t.Errorf("after redo: MapBetween(0, 2, %d) = %+v, want %+v", pos, res, before[pos])
		}
	}
	if res := before[7]; res.Pos != 7 || res.Deleted {
		t.Errorf("MapBetween(0, 2, 7) = %+v, want 7 not deleted", res)
	}

	// A second undo pairs with the redo map, which nothing else claimed.
	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	mirrors := h.Mapping().Mirrors()
	want := [][2]int{{0, 1}, {2, 3}}
	if len(mirrors) != len(want) {
		t.Fatalf("Mirrors() = %v, want %v", mirrors, want)
	}
	for i := range want {
		if mirrors[i] != want[i] {
			t.Errorf("Mirrors()[%d] = %v, want %v", i, mirrors[i], want[i])
		}
	}
}

func TestUndoRedoEmpty(t *testing.T) {
	h := New(10)

	if _, err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() error = %v, want ErrNothingToUndo", err)
	}
	if _, err := h.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() error = %v, want ErrNothingToRedo", err)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewInsert(0, "a"), "a")
	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if h.RedoCount() != 1 {
		t.Fatalf("RedoCount() = %d, want 1", h.RedoCount())
	}

	h.RecordEdit(buffer.NewInsert(0, "b"), "b")
	if h.RedoCount() != 0 {
		t.Errorf("RedoCount() = %d after record, want 0", h.RedoCount())
	}
}

func TestGroupUndoesAsOneUnit(t *testing.T) {
	h := New(10)

	h.BeginGroup("typing")
	h.RecordEdit(buffer.NewInsert(0, "ab"), "a")
	h.RecordEdit(buffer.NewInsert(10, "xyz"), "b")
	h.EndGroup()

	if h.UndoCount() != 1 {
		t.Fatalf("UndoCount() = %d, want 1", h.UndoCount())
	}

	undone, err := h.Undo()
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	got := mapStrings(undone)
	want := []string{"-[10,0,3]", "-[0,0,2]"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Undo() = %v, want %v", got, want)
	}

	res, err := h.MapFrom(0, 20, mapping.AssocAfter)
	if err != nil {
		t.Fatalf("MapFrom() error = %v", err)
	}
	if res.Pos != 20 || res.Deleted {
		t.Errorf("MapFrom(0, 20) = %+v, want 20", res)
	}
}

func TestUndoDuringGroup(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewInsert(0, "a"), "a")

	h.BeginGroup("g")
	if _, err := h.Undo(); !errors.Is(err, ErrGroupActive) {
		t.Errorf("Undo() error = %v, want ErrGroupActive", err)
	}
	h.CancelGroup()

	if h.IsGrouping() {
		t.Error("CancelGroup should end the group")
	}
}

func TestEmptyGroup(t *testing.T) {
	h := New(10)
	h.BeginGroup("empty")
	h.EndGroup()

	if h.UndoCount() != 0 {
		t.Errorf("UndoCount() = %d, want 0", h.UndoCount())
	}
}

func TestTransaction(t *testing.T) {
	h := New(10)
	errBoom := errors.New("boom")

	err := h.Transaction("fail", func() error {
		h.RecordEdit(buffer.NewInsert(0, "a"), "a")
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Transaction() error = %v, want boom", err)
	}
	if h.UndoCount() != 0 {
		t.Errorf("UndoCount() = %d, want 0 after failed transaction", h.UndoCount())
	}
	if h.Version() != 1 {
		t.Errorf("Version() = %d, want 1: recorded maps stay in the session", h.Version())
	}

	err = h.Transaction("ok", func() error {
		h.RecordEdit(buffer.NewInsert(0, "b"), "b")
		h.RecordEdit(buffer.NewInsert(0, "c"), "c")
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if h.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", h.UndoCount())
	}
}

func TestGroupScope(t *testing.T) {
	h := New(10)

	func() {
		scope := h.GroupScope("scope")
		defer scope.End()
		h.RecordEdit(buffer.NewInsert(0, "a"), "a")
		h.RecordEdit(buffer.NewInsert(1, "b"), "b")
	}()

	info, ok := h.PeekUndo()
	if !ok {
		t.Fatal("PeekUndo() should find the group")
	}
	if info.Description != "scope" || info.Maps != 2 || info.Delta != 2 {
		t.Errorf("PeekUndo() = %+v", info)
	}
}

func TestRecordGrouped(t *testing.T) {
	h := New(10)
	h.RecordGrouped("pair", buffer.NewInsert(0, "a").RangeMap(), buffer.NewDelete(3, 5).RangeMap())

	if h.UndoCount() != 1 || h.Version() != 2 {
		t.Errorf("UndoCount() = %d, Version() = %d, want 1, 2", h.UndoCount(), h.Version())
	}
}

func TestMapBetweenBackward(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewEdit(buffer.Range{Start: 4, End: 6}, "hello"), "replace")

	res, err := h.MapBetween(1, 0, 13, mapping.AssocAfter)
	if err != nil {
		t.Fatalf("MapBetween() error = %v", err)
	}
	if res.Pos != 10 {
		t.Errorf("MapBetween(1, 0, 13) = %d, want 10", res.Pos)
	}

	if _, err := h.MapBetween(0, 5, 0, mapping.AssocAfter); !errors.Is(err, ErrVersionOutOfRange) {
		t.Errorf("MapBetween(0, 5) error = %v, want ErrVersionOutOfRange", err)
	}
}

func TestRecordMirror(t *testing.T) {
	h := New(10)
	del := h.Record(buffer.NewDelete(5, 10).RangeMap(), "cut")
	if _, err := h.RecordMirror(buffer.NewInsert(5, "hello").RangeMap(), del, "paste back"); err != nil {
		t.Fatalf("RecordMirror() error = %v", err)
	}

	res, err := h.MapFrom(0, 7, mapping.AssocAfter)
	if err != nil {
		t.Fatalf("MapFrom() error = %v", err)
	}
	if res.Pos != 7 || res.Deleted {
		t.Errorf("MapFrom(0, 7) = %+v, want 7 not deleted", res)
	}

	if _, err := h.RecordMirror(mapping.Empty(), 9, "bad"); !errors.Is(err, ErrVersionOutOfRange) {
		t.Errorf("RecordMirror() error = %v, want ErrVersionOutOfRange", err)
	}
}

func TestRecordEditsOverlap(t *testing.T) {
	h := New(10)
	_, err := h.RecordEdits([]buffer.Edit{buffer.NewDelete(0, 4), buffer.NewDelete(2, 6)}, "bad")
	if !errors.Is(err, buffer.ErrOverlappingEdits) {
		t.Errorf("RecordEdits() error = %v, want ErrOverlappingEdits", err)
	}
	if h.Version() != 0 {
		t.Errorf("Version() = %d, want 0", h.Version())
	}
}

func TestCheckpoint(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewInsert(0, "a"), "a")
	cp := h.CreateCheckpoint()
	h.RecordEdit(buffer.NewInsert(0, "b"), "b")
	h.RecordEdit(buffer.NewInsert(0, "c"), "c")

	applied, err := h.UndoToCheckpoint(cp)
	if err != nil {
		t.Fatalf("UndoToCheckpoint() error = %v", err)
	}
	if len(applied) != 2 || h.UndoCount() != 1 {
		t.Errorf("UndoToCheckpoint() applied %d maps, UndoCount() = %d; want 2, 1", len(applied), h.UndoCount())
	}
	if cp.Version() != 1 {
		t.Errorf("cp.Version() = %d, want 1", cp.Version())
	}

	res, err := h.MapBetween(cp.Version(), h.Version(), 3, mapping.AssocAfter)
	if err != nil {
		t.Fatalf("MapBetween() error = %v", err)
	}
	if res.Pos != 3 {
		t.Errorf("MapBetween(cp, now, 3) = %d, want 3", res.Pos)
	}

	end := Checkpoint{undoDepth: 3}
	if _, err := h.RedoToCheckpoint(end); err != nil {
		t.Fatalf("RedoToCheckpoint() error = %v", err)
	}
	if h.UndoCount() != 3 {
		t.Errorf("UndoCount() = %d, want 3", h.UndoCount())
	}
}

func TestSetMaxEntries(t *testing.T) {
	h := New(10)
	for i := 0; i < 5; i++ {
		h.RecordEdit(buffer.NewInsert(0, "x"), "x")
	}
	h.SetMaxEntries(2)

	if h.UndoCount() != 2 || h.MaxEntries() != 2 {
		t.Errorf("UndoCount() = %d, MaxEntries() = %d, want 2, 2", h.UndoCount(), h.MaxEntries())
	}

	h.SetMaxEntries(0)
	if h.MaxEntries() != DefaultMaxEntries {
		t.Errorf("MaxEntries() = %d, want default", h.MaxEntries())
	}
}

func TestInfo(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewInsert(0, "abc"), "insert")
	h.RecordEdit(buffer.NewDelete(0, 2), "delete")
	if _, err := h.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	undo := h.UndoInfo()
	if len(undo) != 1 || undo[0].Description != "insert" || undo[0].Delta != 3 {
		t.Errorf("UndoInfo() = %+v", undo)
	}
	redo, ok := h.PeekRedo()
	if !ok || redo.Description != "delete" || redo.Delta != -2 {
		t.Errorf("PeekRedo() = %+v, %v", redo, ok)
	}
	if got := h.RedoInfo(); len(got) != 1 {
		t.Errorf("RedoInfo() has %d entries, want 1", len(got))
	}
}

func TestOperations(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewInsert(0, "abc"), "a")
	h.RecordEdit(buffer.NewDelete(0, 1), "b")

	ops, err := h.Operations(0, 2)
	if err != nil {
		t.Fatalf("Operations() error = %v", err)
	}
	if len(ops) != 2 || ops[1].Index != 1 || ops[1].Map.String() != "[0,1,0]" {
		t.Errorf("Operations() = %+v", ops)
	}
	if _, err := h.Operations(1, 0); !errors.Is(err, ErrVersionOutOfRange) {
		t.Errorf("Operations(1, 0) error = %v, want ErrVersionOutOfRange", err)
	}
}

func TestClearKeepsVersions(t *testing.T) {
	h := New(10)
	h.RecordEdit(buffer.NewInsert(0, "abc"), "a")
	h.Clear()

	if h.CanUndo() || h.Version() != 1 {
		t.Errorf("Clear(): CanUndo() = %v, Version() = %d", h.CanUndo(), h.Version())
	}
	if h.Mapping().Len() != 1 {
		t.Error("Mapping() should still hold the recorded map")
	}
}
