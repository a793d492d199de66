package tensor

import (
	"strconv"
	"sync/atomic"
)

// UniqueID identifies one logical value in a computation graph.
// IDs are process-wide, so they stay unique for the lifetime of any tape.
type UniqueID uint64

var lastID atomic.Uint64

// NewID allocates a fresh identifier. Never returns 0.
func NewID() UniqueID {
	return UniqueID(lastID.Add(1))
}

func (id UniqueID) String() string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}
