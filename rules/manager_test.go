package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/rules"
)

type fakeClock struct{ t uint64 }

func (c fakeClock) Now() uint64 { return c.t }

type stubProtocol struct{ name string }

func (s *stubProtocol) Name() string { return s.name }

func alwaysRawCondition(params any, changed memory.Info, reader rules.MemoryReader) []int {
	if changed.State != memory.RAW {
		return nil
	}
	return []int{changed.Index}
}

func newStubAction(calls *int) rules.Action {
	return func(params any, selected []memory.Info) (rules.Protocol, []string) {
		*calls++
		return &stubProtocol{name: "stub"}, nil
	}
}

func TestHigherPriorityRuleFiresFirst(t *testing.T) {
	mm := memory.NewManager(1, fakeClock{t: 0})
	var lowCalls, highCalls int

	mgr := rules.NewManager("n1", mm, mm, map[rules.Kind]rules.Dispatch{
		rules.KindGenerateLeft: {
			Condition: alwaysRawCondition,
			Action:    newStubAction(&highCalls),
		},
		rules.KindGenerateRight: {
			Condition: alwaysRawCondition,
			Action:    newStubAction(&lowCalls),
		},
	}, nil)
	mm.SetObserver(mgr)

	low := &rules.Rule{Kind: rules.KindGenerateRight, Priority: 5}
	high := &rules.Rule{Kind: rules.KindGenerateLeft, Priority: 10}
	mgr.Load(low)
	mgr.Load(high)

	_, err := mm.Update("test", 0, memory.RAW)
	require.NoError(t, err)

	assert.Equal(t, 1, highCalls)
	assert.Equal(t, 0, lowCalls)
}

func TestAttachedMemoryBlocksFurtherMatches(t *testing.T) {
	mm := memory.NewManager(1, fakeClock{t: 0})
	var calls int
	mgr := rules.NewManager("n1", mm, mm, map[rules.Kind]rules.Dispatch{
		rules.KindGenerateLeft: {Condition: alwaysRawCondition, Action: newStubAction(&calls)},
	}, nil)
	mm.SetObserver(mgr)

	rule := &rules.Rule{Kind: rules.KindGenerateLeft, Priority: 10}
	mgr.Load(rule)

	_, err := mm.Update("test", 0, memory.RAW)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	proto := rule.ActiveProtocols()
	require.Len(t, proto, 1)

	// A second RAW transition must not fire the rule again while memory 0 is attached.
	_, err = mm.Update("test", 0, memory.RAW)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExpireReturnsMemoriesToRAW(t *testing.T) {
	mm := memory.NewManager(1, fakeClock{t: 0})
	var calls int
	mgr := rules.NewManager("n1", mm, mm, map[rules.Kind]rules.Dispatch{
		rules.KindGenerateLeft: {Condition: alwaysRawCondition, Action: newStubAction(&calls)},
	}, nil)
	mm.SetObserver(mgr)

	rule := &rules.Rule{Kind: rules.KindGenerateLeft, Priority: 10}
	mgr.Load(rule)

	// RAW fires the rule, attaching memory 0 to the stub protocol.
	_, err := mm.Update("test", 0, memory.RAW)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// The attached protocol completes and leaves the memory ENTANGLED.
	_, err = mm.Update("stub", 0, memory.ENTANGLED, memory.WithRemote("b", "0"), memory.WithFidelity(0.9))
	require.NoError(t, err)

	require.NoError(t, mgr.Expire(rule))

	info, err := mm.Get(0)
	require.NoError(t, err)
	assert.Equal(t, memory.RAW, info.State)
	assert.Empty(t, rule.ActiveProtocols())
}

func TestExpireUnknownRuleErrors(t *testing.T) {
	mm := memory.NewManager(1, fakeClock{t: 0})
	mgr := rules.NewManager("n1", mm, mm, nil, nil)
	err := mgr.Expire(&rules.Rule{})
	assert.ErrorIs(t, err, rules.ErrRuleNotLoaded)
}
