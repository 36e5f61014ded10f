package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// Script is a parsed mapping script.
type Script struct {
	Name    string  `yaml:"name"`
	Steps   []Step  `yaml:"steps"`
	Queries []Query `yaml:"queries"`
}

// Step is one action. Exactly one of Map, Offset, Invert, Undo, Redo or
// Group is set. In YAML, undo and redo may be written as bare scalars.
type Step struct {
	// Map is a flat list of (start, oldSize, newSize) triples.
	Map []int64 `yaml:"map,omitempty"`

	// Offset records a map that shifts every position.
	Offset *int64 `yaml:"offset,omitempty"`

	// Invert records the inverse of the labeled step, mirrored to it.
	Invert string `yaml:"invert,omitempty"`

	Undo bool `yaml:"undo,omitempty"`
	Redo bool `yaml:"redo,omitempty"`

	// Group names a grouped undo unit made of Steps.
	Group string `yaml:"group,omitempty"`
	Steps []Step `yaml:"steps,omitempty"`

	// MirrorOf marks a map step as the exact inverse of another step.
	MirrorOf *Ref `yaml:"mirror_of,omitempty"`

	// Label names the step for later references.
	Label string `yaml:"label,omitempty"`

	line int
}

var stepKeys = map[string]bool{
	"map": true, "offset": true, "invert": true, "undo": true, "redo": true,
	"group": true, "steps": true, "mirror_of": true, "label": true,
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		switch node.Value {
		case "undo":
			*s = Step{Undo: true, line: node.Line}
			return nil
		case "redo":
			*s = Step{Redo: true, line: node.Line}
			return nil
		}
		return fmt.Errorf("line %d: %w: %q", node.Line, ErrInvalidStep, node.Value)
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !stepKeys[key.Value] {
				return fmt.Errorf("line %d: %w: unknown field %q", key.Line, ErrInvalidStep, key.Value)
			}
		}
	}

	type rawStep Step
	var raw rawStep
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = Step(raw)
	s.line = node.Line
	return nil
}

// Kind returns the action name of the step.
func (s *Step) Kind() string {
	switch {
	case s.Map != nil:
		return "map"
	case s.Offset != nil:
		return "offset"
	case s.Invert != "":
		return "invert"
	case s.Undo:
		return "undo"
	case s.Redo:
		return "redo"
	case s.Group != "":
		return "group"
	default:
		return ""
	}
}

// Line returns the source line of the step, or 0 if unknown.
func (s *Step) Line() int {
	return s.line
}

func (s *Step) actions() int {
	n := 0
	for _, set := range []bool{s.Map != nil, s.Offset != nil, s.Invert != "", s.Undo, s.Redo, s.Group != ""} {
		if set {
			n++
		}
	}
	return n
}

// Ref refers to a version or step either by number or by label.
type Ref struct {
	Label string
	Index int
}

// End is the label naming the current version.
const End = "end"

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Value == "" {
		return fmt.Errorf("line %d: reference must be a number or a label", node.Line)
	}
	if n, err := strconv.Atoi(node.Value); err == nil {
		if n < 0 {
			return fmt.Errorf("line %d: reference must not be negative", node.Line)
		}
		*r = Ref{Index: n}
		return nil
	}
	*r = Ref{Label: node.Value}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Ref) MarshalYAML() (any, error) {
	if r.Label != "" {
		return r.Label, nil
	}
	return r.Index, nil
}

// String returns the label or the index.
func (r Ref) String() string {
	if r.Label != "" {
		return r.Label
	}
	return strconv.Itoa(r.Index)
}

// Assoc is a mapping.Assoc that reads "before", "after", -1 or 1.
type Assoc mapping.Assoc

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Assoc) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "before", "-1":
		*a = Assoc(mapping.AssocBefore)
	case "after", "1":
		*a = Assoc(mapping.AssocAfter)
	default:
		return fmt.Errorf("line %d: assoc must be before, after, -1 or 1, got %q", node.Line, node.Value)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a Assoc) MarshalYAML() (any, error) {
	return mapping.Assoc(a).String(), nil
}

// Query maps one position between two versions.
type Query struct {
	Name   string  `yaml:"name,omitempty"`
	Pos    int64   `yaml:"pos"`
	Assoc  Assoc   `yaml:"assoc,omitempty"`
	From   *Ref    `yaml:"from,omitempty"`
	To     *Ref    `yaml:"to,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a query. Unset fields are not checked.
type Expect struct {
	Pos     *int64 `yaml:"pos,omitempty"`
	Deleted *bool  `yaml:"deleted,omitempty"`
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyScript
		}
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load parses the script file at path. A script without a name is named
// after its file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Encode writes the script as YAML.
func Encode(w io.Writer, s *Script) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks step shapes and label references that can be resolved
// statically.
func (s *Script) Validate() error {
	labels := make(map[string]bool)
	if err := validateSteps(s.Steps, labels, false); err != nil {
		return err
	}

	for i, q := range s.Queries {
		if q.Pos < 0 {
			return fmt.Errorf("query %d: %w: negative position %d", i, ErrInvalidQuery, q.Pos)
		}
		for _, ref := range []*Ref{q.From, q.To} {
			if ref != nil && ref.Label != "" && ref.Label != End && !labels[ref.Label] {
				return fmt.Errorf("query %d: %w: %q", i, ErrUnknownLabel, ref.Label)
			}
		}
	}
	return nil
}

func validateSteps(steps []Step, labels map[string]bool, inGroup bool) error {
	for i := range steps {
		st := &steps[i]
		where := fmt.Sprintf("step %d", i)
		if st.line > 0 {
			where = fmt.Sprintf("line %d", st.line)
		}

		if n := st.actions(); n != 1 {
			return fmt.Errorf("%s: %w: expected one action, found %d", where, ErrInvalidStep, n)
		}

		switch st.Kind() {
		case "map":
			if _, err := mapping.FromRanges(st.Map); err != nil {
				return fmt.Errorf("%s: %w: %v", where, ErrInvalidStep, err)
			}
		case "invert":
			if !labels[st.Invert] {
				return fmt.Errorf("%s: %w: %q", where, ErrUnknownLabel, st.Invert)
			}
		case "undo", "redo":
			if inGroup {
				return fmt.Errorf("%s: %w: %s inside a group", where, ErrInvalidStep, st.Kind())
			}
		case "group":
			if len(st.Steps) == 0 {
				return fmt.Errorf("%s: %w: group %q has no steps", where, ErrInvalidStep, st.Group)
			}
		}

		if st.Kind() != "group" && len(st.Steps) > 0 {
			return fmt.Errorf("%s: %w: only groups have steps", where, ErrInvalidStep)
		}
		if st.MirrorOf != nil && st.Kind() != "map" && st.Kind() != "offset" {
			return fmt.Errorf("%s: %w: mirror_of applies to map and offset steps", where, ErrInvalidStep)
		}
		if st.MirrorOf != nil && st.MirrorOf.Label != "" && !labels[st.MirrorOf.Label] {
			return fmt.Errorf("%s: %w: %q", where, ErrUnknownLabel, st.MirrorOf.Label)
		}

		if st.Label != "" {
			switch st.Kind() {
			case "map", "offset", "invert":
			default:
				return fmt.Errorf("%s: %w: %s steps cannot be labeled", where, ErrInvalidStep, st.Kind())
			}
			if st.Label == End {
				return fmt.Errorf("%s: %w: %q is reserved", where, ErrInvalidStep, End)
			}
			if labels[st.Label] {
				return fmt.Errorf("%s: %w: %q", where, ErrDuplicateLabel, st.Label)
			}
			labels[st.Label] = true
		}

		if st.Kind() == "group" {
			if err := validateSteps(st.Steps, labels, true); err != nil {
				return err
			}
		}
	}
	return nil
}
