package messaging

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// simTimeExtension is the CloudEvents extension attribute carrying the
// simulated picosecond timestamp the message was sent at, since the
// CloudEvents "time" attribute itself is wall-clock (set for audit/debugging
// only, never read back by the simulator).
const simTimeExtension = "simtime"

// Envelope is a classical message wrapped with CloudEvents metadata for
// uniform structured transport and logging, the same role CloudEvents plays
// for EmitEvent in the eventbus/scheduler modules this package is grounded
// on. The payload itself travels as a plain Go value rather than through
// JSON marshaling: everything here runs in one process, and round-tripping
// protocol payloads (which carry live object references such as a
// *reservation.Reservation) through JSON would silently break identity semantics
// the reservation protocol depends on. Wrapping does not change wire
// semantics either way: classical channels remain lossless and delivery
// order is still governed entirely by the timeline (spec §4.2).
type Envelope struct {
	event   cloudevents.Event
	payload any
}

// NewEnvelope packages payload (the concrete message type, e.g. a
// reservation REQUEST) addressed to the protocol instance named target,
// stamped with the simulated send time simTime.
func NewEnvelope(msgType, source, target string, simTime uint64, payload any) Envelope {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(source)
	event.SetType(msgType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	event.SetExtension("target", target)
	event.SetExtension(simTimeExtension, simTime)

	return Envelope{event: event, payload: payload}
}

// ID returns the envelope's unique message identifier.
func (e Envelope) ID() string { return e.event.ID() }

// Type returns the message kind (the payload's MessageType() value, or
// "message" for a payload without that method).
func (e Envelope) Type() string { return e.event.Type() }

// Source returns the sending node's name.
func (e Envelope) Source() string { return e.event.Source() }

// SimTime returns the simulated time the message was sent at.
func (e Envelope) SimTime() uint64 {
	v, _ := e.event.Context.GetExtension(simTimeExtension)
	switch t := v.(type) {
	case uint64:
		return t
	case int64:
		return uint64(t)
	default:
		return 0
	}
}

// Target returns the name of the protocol instance the message is addressed to.
func (e Envelope) Target() string {
	v, _ := e.event.Context.GetExtension("target")
	s, _ := v.(string)
	return s
}

// Payload returns the wrapped message value. Callers type-assert it to the
// concrete message type they expect for the envelope's Type().
func (e Envelope) Payload() any { return e.payload }
