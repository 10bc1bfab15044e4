package network_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/messaging"
	"github.com/gandalf-the-gray/qnetsim/network"
	"github.com/gandalf-the-gray/qnetsim/routing"
	"github.com/gandalf-the-gray/qnetsim/timeline"
)

func oneNodeFixture(t *testing.T) (*network.Node, *messaging.Fabric, *timeline.Timeline) {
	t.Helper()
	tl := timeline.New()
	fab := messaging.New(tl, func(src, dst string) uint64 { return 1 })
	routes := routing.NewTable(map[string][]string{"A": {}}, map[string]map[string]float64{"A": {"A": 0}})
	n := network.NewNode(network.Config{
		Name: "A", MemoryCount: 1, GlobalSeed: 1,
		Timeline: tl, Fabric: fab, Routes: routes,
	})
	return n, fab, tl
}

func TestReceiveMessageDropsUnknownTargetWithoutPanicking(t *testing.T) {
	n, fab, tl := oneNodeFixture(t)

	require.NotPanics(t, func() {
		require.NoError(t, fab.Send("ghost", "A", "no-such-protocol", struct{}{}))
		tl.Run()
	})
	_ = n
}

func TestRegisterHandlerRoutesMessageToTheRightInstance(t *testing.T) {
	n, fab, tl := oneNodeFixture(t)

	received := make(chan string, 1)
	n.RegisterHandler("probe", recordingHandler{received})

	require.NoError(t, fab.Send("peer", "A", "probe", "hello"))
	tl.Run()

	select {
	case got := <-received:
		assert.Equal(t, "hello", got)
	default:
		t.Fatal("handler was never invoked")
	}
}

type recordingHandler struct{ ch chan string }

func (h recordingHandler) Name() string { return "probe" }
func (h recordingHandler) OnMessage(source string, payload any) {
	h.ch <- payload.(string)
}
