package rebase

import "github.com/dshills/posmap/internal/engine/mapping"

// Rebaseable is an unconfirmed local edit.
type Rebaseable struct {
	// Map is the position effect of the edit.
	Map *mapping.RangeMap

	// Origin is carried unchanged to the rebased edit. Clients use it to
	// tell which transaction an edit came from.
	Origin any
}

// Result is the outcome of a rebase.
type Result struct {
	// Steps are the local edits that survived, rebased onto the remote
	// edits, in their original order.
	Steps []Rebaseable

	// Maps holds the map of every rebased step.
	Maps []*mapping.RangeMap

	// Mapping carries positions from the local document to the rebased
	// document. It holds the inverted local maps, the remote maps and the
	// rebased maps, with mirrors between each inverse and its rebased form.
	Mapping *mapping.Mapping
}

// MapRangeMap maps every span of m through another mapping. Span starts
// map with AssocAfter and span ends with AssocBefore, so the replaced range
// never grows over neighboring insertions. A span whose both ends were
// deleted is dropped; nil is returned when no span survives. The empty map
// maps to itself.
func MapRangeMap(m *mapping.RangeMap, through mapping.Mappable) *mapping.RangeMap {
	if m.IsEmpty() {
		return m
	}

	spans := make([]mapping.Span, 0, m.Len())
	m.ForEach(func(oldStart, oldEnd, newStart, newEnd int64) {
		from := through.MapResult(oldStart, mapping.AssocAfter)
		to := through.MapResult(oldEnd, mapping.AssocBefore)
		if from.Deleted && to.Deleted {
			return
		}
		spans = append(spans, mapping.Span{
			Start:   from.Pos,
			OldSize: max(0, to.Pos-from.Pos),
			NewSize: newEnd - newStart,
		})
	})

	if len(spans) == 0 {
		return nil
	}
	return mapping.NewRangeMap(spans...)
}

// Rebase rebases local over remote. Both are given in application order:
// local[0] applied to the common base, remote[0] likewise.
func Rebase(local []Rebaseable, remote []*mapping.RangeMap) Result {
	m := mapping.New()
	for i := len(local) - 1; i >= 0; i-- {
		m.AppendMap(local[i].Map.Invert())
	}
	for _, r := range remote {
		m.AppendMap(r)
	}

	res := Result{Mapping: m}
	mapFrom := len(local)
	for _, step := range local {
		mapped := MapRangeMap(step.Map, m.SliceFrom(mapFrom))
		mapFrom--
		if mapped == nil {
			continue
		}
		m.AppendMapMirror(mapped, mapFrom)
		res.Steps = append(res.Steps, Rebaseable{Map: mapped, Origin: step.Origin})
		res.Maps = append(res.Maps, mapped)
	}
	return res
}
