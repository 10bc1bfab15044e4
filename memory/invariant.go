package memory

import "fmt"

// invariant panics with a formatted message when cond is false. Every
// InvariantViolation-class condition in this package (spec §7.4) goes
// through this single helper rather than an inline panic call, so a reader
// can grep one name for "this should never happen" assertions.
func invariant(cond bool, msg string, kv ...any) {
	if cond {
		return
	}
	panic(fmt.Sprintf("memory: %s %v", msg, kv))
}
