package reservation

import "fmt"

// invariant panics with a formatted message when cond is false. Used for
// the InvariantViolation-class conditions spec §7.4 calls fatal (a peer
// naming an unknown reservation or message type), never for ordinary
// protocol outcomes like AdmissionFailed, which are returned as errors.
func invariant(cond bool, msg string, kv ...any) {
	if cond {
		return
	}
	panic(fmt.Sprintf("reservation: %s %v", msg, kv))
}
