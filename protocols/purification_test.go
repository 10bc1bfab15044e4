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

func entangle(t *testing.T, mm *memory.Manager, index int, remoteNode, remoteMemo string, fidelity float64) {
	t.Helper()
	_, err := mm.Update("setup", index, memory.ENTANGLED,
		memory.WithRemote(remoteNode, remoteMemo), memory.WithFidelity(fidelity))
	require.NoError(t, err)
}

func TestPurificationImprovesFidelityOnSuccess(t *testing.T) {
	tl := timeline.New()
	fab := messaging.New(tl, fixedDelay(10))

	memA := memory.NewManager(2, tl)
	memB := memory.NewManager(2, tl)
	nodeA, nodeB := newTestNode(), newTestNode()
	fab.Register("A", nodeA)
	fab.Register("B", nodeB)

	entangle(t, memA, 0, "B", "0", 0.9)
	entangle(t, memA, 1, "B", "1", 0.9)
	entangle(t, memB, 0, "A", "0", 0.9)
	entangle(t, memB, 1, "A", "1", 0.9)

	rngA := rand.New(rand.NewPCG(1, 2))
	rngB := rand.New(rand.NewPCG(3, 4))

	purA := protocols.NewPurificationA("A", 0, 1, "B", 0, memA, &fakeDetacher{}, nodeA, fab, rngA)
	purB := protocols.NewPurificationB("B", 0, 1, 0.9, memB, &fakeDetacher{}, nodeB, fab, rngB)

	purB.Start()
	purA.Start()
	tl.Run()

	infoA, err := memA.Get(0)
	require.NoError(t, err)
	measA, err := memA.Get(1)
	require.NoError(t, err)
	assert.Equal(t, memory.RAW, measA.State)

	if infoA.State == memory.ENTANGLED {
		assert.Greater(t, infoA.Fidelity, 0.9)
	} else {
		assert.Equal(t, memory.RAW, infoA.State)
	}
}

func TestBBPSSWFormulaMatchesWorkedExample(t *testing.T) {
	// spec §4.5.2's canonical example: F=0.9 purifies to a higher fidelity
	// with the success probability computed from the same F.
	const f = 0.9
	other := (1 - f) / 3
	wantProb := f*f + 2*f*other + 5*other*other
	wantFidelity := (f*f + other*other) / wantProb

	gotProb, gotFidelity := protocols.BBPSSWUpdate(f)
	assert.InDelta(t, wantProb, gotProb, 1e-9)
	assert.InDelta(t, wantFidelity, gotFidelity, 1e-9)
	assert.Greater(t, gotFidelity, f, "purification must improve fidelity above the input")
}
