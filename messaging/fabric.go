// Package messaging delivers classical messages between named protocol
// instances on different nodes, honoring each classical channel's configured
// delay (spec §4.2). Delivery is modeled as a timeline event: Send schedules
// a ReceiveMessage call on the destination at now + delay. There is no
// retransmission and no loss — classical channels are assumed lossless.
package messaging

import (
	"github.com/gandalf-the-gray/qnetsim/timeline"
)

// Receiver is implemented by every node: it accepts an inbound Envelope and
// dispatches it to the protocol instance named by Envelope.Target.
type Receiver interface {
	ReceiveMessage(source string, envelope Envelope)
}

// DelayFunc returns the one-way classical channel delay, in simulated
// picoseconds, between two named nodes.
type DelayFunc func(src, dst string) uint64

// Fabric routes classical messages between nodes registered on it,
// scheduling delivery on a shared Timeline.
type Fabric struct {
	timeline  *timeline.Timeline
	receivers map[string]Receiver
	delay     DelayFunc
}

// New creates a Fabric that schedules deliveries on tl and computes delay
// per pair of node names with delayFn.
func New(tl *timeline.Timeline, delayFn DelayFunc) *Fabric {
	return &Fabric{
		timeline:  tl,
		receivers: make(map[string]Receiver),
		delay:     delayFn,
	}
}

// Register attaches a node's Receiver under its name so messages can be
// addressed to it.
func (f *Fabric) Register(node string, r Receiver) {
	f.receivers[node] = r
}

// Send schedules delivery of an envelope addressed to targetProtocol on
// destination, honoring the classical channel delay between source and
// destination. Messages sent from the same source to the same destination
// are delivered in send order: the timeline's (time, priority, insertion)
// tie-break is FIFO-stable, and the classical channel delay is constant, so
// two sends at times t1 <= t2 arrive at t1+delay <= t2+delay in the same
// relative order (spec §5).
func (f *Fabric) Send(source, destination, targetProtocol string, payload any) error {
	receiver, ok := f.receivers[destination]
	if !ok {
		return ErrUnknownDestination
	}
	now := f.timeline.Now()
	envelope := NewEnvelope(messageTypeName(payload), source, targetProtocol, now, payload)
	delay := f.delay(source, destination)
	_, err := f.timeline.Schedule(now+delay, 5, "deliver:"+envelope.Type(), func() {
		receiver.ReceiveMessage(source, envelope)
	})
	return err
}

// messageTypeName derives a CloudEvents "type" attribute from the payload's
// MessageType() method, falling back to "message" for a payload that has
// none, so callers of Send never pass a message kind themselves.
func messageTypeName(payload any) string {
	type typed interface{ MessageType() string }
	if t, ok := payload.(typed); ok {
		return t.MessageType()
	}
	return "message"
}
