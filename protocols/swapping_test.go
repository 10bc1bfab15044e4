package protocols_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/messaging"
	"github.com/gandalf-the-gray/qnetsim/protocols"
	"github.com/gandalf-the-gray/qnetsim/timeline"
)

func TestSwapSuccessRepointsBothEndsAtEachOther(t *testing.T) {
	tl := timeline.New()
	fab := messaging.New(tl, fixedDelay(10))

	memLeft := memory.NewManager(1, tl)
	memMid := memory.NewManager(2, tl)
	memRight := memory.NewManager(1, tl)

	nodeLeft, nodeMid, nodeRight := newTestNode(), newTestNode(), newTestNode()
	fab.Register("left", nodeLeft)
	fab.Register("mid", nodeMid)
	fab.Register("right", nodeRight)

	entangle(t, memLeft, 0, "mid", "0", 0.9)
	entangle(t, memRight, 0, "mid", "1", 0.9)
	leftAtMid, err := memMid.Update("setup", 0, memory.ENTANGLED, memory.WithRemote("left", "0"), memory.WithFidelity(0.9))
	require.NoError(t, err)
	rightAtMid, err := memMid.Update("setup", 1, memory.ENTANGLED, memory.WithRemote("right", "0"), memory.WithFidelity(0.9))
	require.NoError(t, err)

	swapEndLeft := protocols.NewSwapEnd("left", 0, memLeft, &fakeDetacher{}, nodeLeft)
	swapEndRight := protocols.NewSwapEnd("right", 0, memRight, &fakeDetacher{}, nodeRight)
	swapEndLeft.Start()
	swapEndRight.Start()

	rng := rand.New(rand.NewPCG(5, 6))
	mid := protocols.NewSwapMiddle("mid", 0, 1, 1.0, 0.95, memMid, &fakeDetacher{}, fab, rng)
	mid.Run(leftAtMid, rightAtMid)
	tl.Run()

	infoLeft, err := memLeft.Get(0)
	require.NoError(t, err)
	infoRight, err := memRight.Get(0)
	require.NoError(t, err)
	midLeft, _ := memMid.Get(0)
	midRight, _ := memMid.Get(1)

	assert.Equal(t, memory.ENTANGLED, infoLeft.State)
	assert.Equal(t, "right", infoLeft.RemoteNode)
	assert.Equal(t, "0", infoLeft.RemoteMemo)
	assert.InDelta(t, 0.9*0.9*0.95, infoLeft.Fidelity, 1e-9)

	assert.Equal(t, memory.ENTANGLED, infoRight.State)
	assert.Equal(t, "left", infoRight.RemoteNode)
	assert.Equal(t, "0", infoRight.RemoteMemo)

	assert.Equal(t, memory.RAW, midLeft.State)
	assert.Equal(t, memory.RAW, midRight.State)
}

func TestSwapFailureRevertsEndsToRAW(t *testing.T) {
	tl := timeline.New()
	fab := messaging.New(tl, fixedDelay(10))

	memLeft := memory.NewManager(1, tl)
	memMid := memory.NewManager(2, tl)
	memRight := memory.NewManager(1, tl)

	nodeLeft, nodeMid, nodeRight := newTestNode(), newTestNode(), newTestNode()
	fab.Register("left", nodeLeft)
	fab.Register("mid", nodeMid)
	fab.Register("right", nodeRight)

	entangle(t, memLeft, 0, "mid", "0", 0.9)
	entangle(t, memRight, 0, "mid", "1", 0.9)
	leftAtMid, _ := memMid.Update("setup", 0, memory.ENTANGLED, memory.WithRemote("left", "0"), memory.WithFidelity(0.9))
	rightAtMid, _ := memMid.Update("setup", 1, memory.ENTANGLED, memory.WithRemote("right", "0"), memory.WithFidelity(0.9))

	protocols.NewSwapEnd("left", 0, memLeft, &fakeDetacher{}, nodeLeft).Start()
	protocols.NewSwapEnd("right", 0, memRight, &fakeDetacher{}, nodeRight).Start()

	rng := rand.New(rand.NewPCG(5, 6))
	mid := protocols.NewSwapMiddle("mid", 0, 1, 0.0, 0.95, memMid, &fakeDetacher{}, fab, rng)
	mid.Run(leftAtMid, rightAtMid)
	tl.Run()

	infoLeft, _ := memLeft.Get(0)
	infoRight, _ := memRight.Get(0)
	assert.Equal(t, memory.RAW, infoLeft.State)
	assert.Equal(t, memory.RAW, infoRight.State)
}
