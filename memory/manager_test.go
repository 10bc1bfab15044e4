package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/memory"
)

type fakeClock struct{ t uint64 }

func (c fakeClock) Now() uint64 { return c.t }

type spyObserver struct {
	updates []memory.Info
}

func (s *spyObserver) OnMemoryUpdate(info memory.Info) {
	s.updates = append(s.updates, info)
}

func TestNewManagerStartsAllRAW(t *testing.T) {
	m := memory.NewManager(3, fakeClock{t: 0})
	for i := 0; i < 3; i++ {
		info, err := m.Get(i)
		require.NoError(t, err)
		assert.Equal(t, memory.RAW, info.State)
		assert.True(t, info.Free())
	}
}

func TestUpdateNotifiesObserver(t *testing.T) {
	obs := &spyObserver{}
	m := memory.NewManager(2, fakeClock{t: 42}, memory.WithObserver(obs))

	info, err := m.Update("GenerationA", 0, memory.ENTANGLED, memory.WithRemote("b", "b.m0"), memory.WithFidelity(0.93))
	require.NoError(t, err)

	assert.Equal(t, memory.ENTANGLED, info.State)
	assert.Equal(t, "b", info.RemoteNode)
	assert.Equal(t, 0.93, info.Fidelity)
	assert.Equal(t, uint64(42), info.EntangleTime)
	require.Len(t, obs.updates, 1)
	assert.Equal(t, info, obs.updates[0])
}

func TestUpdateToRAWClearsRemoteFields(t *testing.T) {
	m := memory.NewManager(1, fakeClock{t: 0})
	_, err := m.Update("x", 0, memory.ENTANGLED, memory.WithRemote("b", "b.m0"), memory.WithFidelity(0.9))
	require.NoError(t, err)

	info, err := m.Update("x", 0, memory.RAW)
	require.NoError(t, err)
	assert.Equal(t, "", info.RemoteNode)
	assert.Equal(t, 0.0, info.Fidelity)
}

func TestUpdateOutOfRangeIndexErrors(t *testing.T) {
	m := memory.NewManager(1, fakeClock{t: 0})
	_, err := m.Update("x", 5, memory.RAW)
	assert.ErrorIs(t, err, memory.ErrMemoryIndexOutOfRange)
}

func TestEntangledWithoutRemoteNodePanics(t *testing.T) {
	m := memory.NewManager(1, fakeClock{t: 0})
	assert.Panics(t, func() {
		_, _ = m.Update("x", 0, memory.ENTANGLED)
	})
}
