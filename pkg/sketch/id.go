package sketch

import (
	"strconv"
	"sync/atomic"
)

// ID identifies an entity. IDs are issued from a process-wide counter and
// are never reused.
type ID uint64

// ConstraintID identifies a constraint. It is drawn from the same counter
// as entity ids.
type ConstraintID uint64

// ZeroID is never issued.
const ZeroID ID = 0

var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}

// IsZero reports whether id is the unset id.
func (id ID) IsZero() bool { return id == ZeroID }

func (id ID) String() string { return "e" + strconv.FormatUint(uint64(id), 10) }

func (id ConstraintID) String() string { return "c" + strconv.FormatUint(uint64(id), 10) }
