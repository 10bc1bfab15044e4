package messaging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/messaging"
	"github.com/gandalf-the-gray/qnetsim/timeline"
)

type recordingReceiver struct {
	received []string
}

func (r *recordingReceiver) ReceiveMessage(source string, envelope messaging.Envelope) {
	payload, _ := envelope.Payload().(string)
	r.received = append(r.received, source+":"+payload)
}

func TestSendDeliversAfterChannelDelay(t *testing.T) {
	tl := timeline.New()
	fabric := messaging.New(tl, func(src, dst string) uint64 { return 100 })

	a := &recordingReceiver{}
	b := &recordingReceiver{}
	fabric.Register("a", a)
	fabric.Register("b", b)

	require.NoError(t, fabric.Send("a", "b", "proto", "hello"))

	tl.Run()

	require.Len(t, b.received, 1)
	assert.Equal(t, "a:hello", b.received[0])
	assert.Equal(t, uint64(100), tl.Now())
}

func TestSendToUnknownDestinationFails(t *testing.T) {
	tl := timeline.New()
	fabric := messaging.New(tl, func(src, dst string) uint64 { return 1 })

	err := fabric.Send("a", "ghost", "proto", "hi")
	assert.ErrorIs(t, err, messaging.ErrUnknownDestination)
}

func TestMessagesFromSamePeerPreserveSendOrder(t *testing.T) {
	tl := timeline.New()
	fabric := messaging.New(tl, func(src, dst string) uint64 { return 10 })

	b := &recordingReceiver{}
	fabric.Register("a", &recordingReceiver{})
	fabric.Register("b", b)

	require.NoError(t, fabric.Send("a", "b", "proto", "first"))
	require.NoError(t, fabric.Send("a", "b", "proto", "second"))

	tl.Run()

	require.Len(t, b.received, 2)
	assert.Equal(t, "a:first", b.received[0])
	assert.Equal(t, "a:second", b.received[1])
}
