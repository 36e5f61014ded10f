// Package script runs YAML position-mapping scripts.
//
// A script records a sequence of steps into an undo history and then asks
// where positions end up between two versions of the session mapping:
//
//	name: delete then undo
//	steps:
//	  - map: [2, 4, 0]        # (start, oldSize, newSize) triples
//	    label: cut
//	  - undo
//	  - offset: 3
//	  - group: typing
//	    steps:
//	      - map: [0, 0, 1]
//	      - map: [1, 0, 1]
//	queries:
//	  - name: survives undo
//	    pos: 4
//	    assoc: before
//	    to: cut               # a label: the version right after that step
//	    expect: {pos: 2, deleted: true}
//
// Versions are indexes into the session mapping. A label used as "from"
// names the version just before the labeled step and, used as "to", the
// version just after it. "end" names the current version. Queries default
// to mapping from version 0 to the end.
package script
