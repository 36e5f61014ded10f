package history

import (
	"time"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// Operation is one map recorded in the session mapping.
type Operation struct {
	Index int               // Position of the map in the session mapping
	Map   *mapping.RangeMap // The recorded map
}

// entry is an undo unit: the indexes of the maps it applied, in order.
type entry struct {
	description string
	steps       []int
	timestamp   time.Time
}

// OperationInfo provides read-only info about an undo unit.
// Used for displaying undo/redo history to users.
type OperationInfo struct {
	Description string    // Human-readable description
	Timestamp   time.Time // When the unit was recorded
	Maps        int       // Number of maps in the unit
	Delta       int64     // Positive for insertions, negative for deletions
}
