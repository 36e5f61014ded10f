package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/posmap/internal/engine/history"
	"github.com/dshills/posmap/internal/engine/mapping"
	"github.com/dshills/posmap/internal/logging"
)

// Result is the outcome of one query.
type Result struct {
	Name string

	// From and To are the resolved versions.
	From int
	To   int

	Pos     int64
	Deleted bool

	// Checked is set when the query carried an expectation.
	Checked bool
	Passed  bool

	Query Query
	Err   error
}

// Failed reports whether the query errored or missed its expectation.
func (r Result) Failed() bool {
	return r.Err != nil || (r.Checked && !r.Passed)
}

// String formats the result as a single report line.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: error: %v", r.Name, r.Err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d@%d->%d (%s) = %d", r.Name, r.Query.Pos, r.From, r.To,
		mapping.Assoc(r.Query.Assoc), r.Pos)
	if r.Deleted {
		b.WriteString(" deleted")
	}
	if !r.Checked {
		return b.String()
	}
	if r.Passed {
		b.WriteString(" ok")
		return b.String()
	}

	b.WriteString(" FAIL (want")
	if e := r.Query.Expect; e != nil {
		if e.Pos != nil {
			fmt.Fprintf(&b, " pos %d", *e.Pos)
		}
		if e.Deleted != nil {
			fmt.Fprintf(&b, " deleted %t", *e.Deleted)
		}
	}
	b.WriteString(")")
	return b.String()
}

// Report collects the results of a run.
type Report struct {
	Script string

	// Version is the session mapping length after all steps ran.
	Version int

	// Mapping is a copy of the final session mapping.
	Mapping *mapping.Mapping

	Results []Result
}

// Failed returns the number of failed queries.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// OK reports whether every query passed.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

// RunOption configures Run.
type RunOption func(*runOptions)

type runOptions struct {
	logger     *logging.Logger
	history    *history.History
	maxEntries int
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) RunOption {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHistory runs the steps against an existing history instead of a
// fresh one.
func WithHistory(h *history.History) RunOption {
	return func(o *runOptions) {
		o.history = h
	}
}

// WithMaxEntries bounds the undo stack of the fresh history.
func WithMaxEntries(n int) RunOption {
	return func(o *runOptions) {
		o.maxEntries = n
	}
}

type runner struct {
	h      *history.History
	labels map[string]int
	log    *logging.Logger
}

// Run executes the steps of s and answers its queries. A step failure
// aborts the run with an error; query failures are reported in the
// results.
func Run(ctx context.Context, s *Script, opts ...RunOption) (*Report, error) {
	o := runOptions{logger: logging.Get(), maxEntries: history.DefaultMaxEntries}
	for _, opt := range opts {
		opt(&o)
	}
	if o.history == nil {
		o.history = history.New(o.maxEntries)
	}

	r := &runner{
		h:      o.history,
		labels: make(map[string]int),
		log:    o.logger.WithComponent("script").WithField("script", s.Name),
	}

	if err := r.exec(ctx, s.Steps); err != nil {
		r.log.Error("step failed: %v", err)
		return nil, err
	}

	report := &Report{
		Script:  s.Name,
		Version: r.h.Version(),
		Mapping: r.h.Mapping(),
		Results: make([]Result, 0, len(s.Queries)),
	}

	for i, q := range s.Queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := r.query(q)
		if res.Name == "" {
			res.Name = fmt.Sprintf("#%d", i+1)
		}
		report.Results = append(report.Results, res)
	}

	r.log.Info("ran %d steps, %d queries, %d failed", len(s.Steps), len(report.Results), report.Failed())
	return report, nil
}

func (r *runner) exec(ctx context.Context, steps []Step) error {
	for i := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := &steps[i]
		if err := r.step(ctx, st); err != nil {
			if st.line > 0 {
				return fmt.Errorf("line %d: %s: %w", st.line, st.Kind(), err)
			}
			return fmt.Errorf("step %d: %s: %w", i, st.Kind(), err)
		}
	}
	return nil
}

func (r *runner) step(ctx context.Context, st *Step) error {
	switch st.Kind() {
	case "map":
		m, err := mapping.FromRanges(st.Map)
		if err != nil {
			return err
		}
		return r.record(st, m, "map "+m.String())

	case "offset":
		return r.record(st, mapping.Offset(*st.Offset), fmt.Sprintf("offset %d", *st.Offset))

	case "invert":
		target, ok := r.labels[st.Invert]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLabel, st.Invert)
		}
		ops, err := r.h.Operations(target, target+1)
		if err != nil {
			return err
		}
		idx, err := r.h.RecordMirror(ops[0].Map.Invert(), target, "invert "+st.Invert)
		if err != nil {
			return err
		}
		r.setLabel(st, idx)
		r.log.Debug("inverted %s (%d) as %d", st.Invert, target, idx)
		return nil

	case "undo":
		maps, err := r.h.Undo()
		if err != nil {
			return err
		}
		r.log.Debug("undo appended %d maps", len(maps))
		return nil

	case "redo":
		maps, err := r.h.Redo()
		if err != nil {
			return err
		}
		r.log.Debug("redo appended %d maps", len(maps))
		return nil

	case "group":
		r.h.BeginGroup(st.Group)
		if err := r.exec(ctx, st.Steps); err != nil {
			r.h.CancelGroup()
			return err
		}
		r.h.EndGroup()
		r.log.Debug("group %q closed", st.Group)
		return nil
	}
	return ErrInvalidStep
}

func (r *runner) record(st *Step, m *mapping.RangeMap, desc string) error {
	var idx int
	if st.MirrorOf != nil {
		target, err := r.stepIndex(*st.MirrorOf)
		if err != nil {
			return err
		}
		idx, err = r.h.RecordMirror(m, target, desc)
		if err != nil {
			return err
		}
	} else {
		idx = r.h.Record(m, desc)
	}
	r.setLabel(st, idx)
	r.log.Debug("recorded %s at %d", desc, idx)
	return nil
}

func (r *runner) setLabel(st *Step, idx int) {
	if st.Label != "" {
		r.labels[st.Label] = idx
	}
}

func (r *runner) stepIndex(ref Ref) (int, error) {
	if ref.Label == "" {
		return ref.Index, nil
	}
	idx, ok := r.labels[ref.Label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, ref.Label)
	}
	return idx, nil
}

// version resolves a query reference. A label resolves to the version
// before its step when used as a start and after it when used as an end.
func (r *runner) version(ref *Ref, def int, end bool) (int, error) {
	switch {
	case ref == nil:
		return def, nil
	case ref.Label == End:
		return r.h.Version(), nil
	case ref.Label != "":
		idx, err := r.stepIndex(*ref)
		if err != nil {
			return 0, err
		}
		if end {
			idx++
		}
		return idx, nil
	default:
		return ref.Index, nil
	}
}

func (r *runner) query(q Query) Result {
	res := Result{Name: q.Name, Query: q}

	from, err := r.version(q.From, 0, false)
	if err != nil {
		res.Err = err
		return res
	}
	to, err := r.version(q.To, r.h.Version(), true)
	if err != nil {
		res.Err = err
		return res
	}
	res.From, res.To = from, to

	mr, err := r.h.MapBetween(from, to, q.Pos, mapping.Assoc(q.Assoc))
	if err != nil {
		res.Err = err
		return res
	}
	res.Pos, res.Deleted = mr.Pos, mr.Deleted

	if e := q.Expect; e != nil {
		res.Checked = true
		res.Passed = (e.Pos == nil || *e.Pos == mr.Pos) && (e.Deleted == nil || *e.Deleted == mr.Deleted)
	}
	return res
}
