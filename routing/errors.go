package routing

import "errors"

var (
	// ErrNoRoute is returned when a node has no physical neighbor at all,
	// surfaced by the reservation protocol as ErrPathExhausted (spec §7.2).
	ErrNoRoute = errors.New("routing: no physical neighbor available")

	// ErrUnknownNode is returned when a distance lookup names a node absent
	// from the table's topology.
	ErrUnknownNode = errors.New("routing: unknown node")
)
