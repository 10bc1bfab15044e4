package protocols

import "errors"

var (
	// ErrUnknownMiddleNode names the case of a generation rule addressing a
	// BSM node that was never registered. Nothing in this package returns
	// it: GenerationA.Start discards the send error, so such an attempt
	// request is lost.
	ErrUnknownMiddleNode = errors.New("protocols: unknown middle (BSM) node")

	// ErrAlreadyStopped names the case of a message reaching an instance
	// after Stop. Nothing in this package returns it: a stopped instance
	// ignores the message.
	ErrAlreadyStopped = errors.New("protocols: protocol already stopped")
)
