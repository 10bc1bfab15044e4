package reservation

import "errors"

var (
	// ErrAdmissionFailed is returned when schedule cannot fit a reservation
	// on this node (spec §7, AdmissionFailure).
	ErrAdmissionFailed = errors.New("reservation: admission failed")

	// ErrPathExhausted is returned by Push when routing finds no next hop
	// from the initiator toward the responder (spec §7.2). A forwarding node
	// in the same situation answers the REQUEST with a REJECT instead.
	ErrPathExhausted = errors.New("reservation: path exhausted")

	// ErrInvalidRequest is returned by Push when the reservation's own
	// invariants are violated (start_time < end_time, memory_size >= 1,
	// target_fidelity in (0,1]).
	ErrInvalidRequest = errors.New("reservation: invalid request parameters")

	// ErrUnknownReservation names the case of an APPROVE or REJECT for a
	// reservation this node holds no pending entry for. Nothing in this
	// package returns it: such an APPROVE fails an invariant (a panic), and
	// such a REJECT is ignored.
	ErrUnknownReservation = errors.New("reservation: unknown reservation id")
)
