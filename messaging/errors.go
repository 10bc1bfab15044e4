package messaging

import "errors"

var (
	// ErrUnknownDestination is returned when Send targets a node name the
	// Fabric has no Receiver registered for.
	ErrUnknownDestination = errors.New("messaging: unknown destination node")
	// ErrNoTargetProtocol names the case of an envelope arriving for a
	// protocol name the receiving node has no handler for. Nothing in this
	// module returns it: network.Node drops such an envelope and logs it at
	// Debug level.
	ErrNoTargetProtocol = errors.New("messaging: no protocol registered for target name")
)
