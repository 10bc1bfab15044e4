package memory

import "errors"

var (
	// ErrMemoryIndexOutOfRange is returned when Update or Get is called
	// with an index outside the node's memory array.
	ErrMemoryIndexOutOfRange = errors.New("memory: index out of range")
)
