package timeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/timeline"
)

func TestScheduleOrdersByTimePriorityThenInsertion(t *testing.T) {
	tl := timeline.New()
	var order []string

	_, err := tl.Schedule(10, 0, "b", func() { order = append(order, "b") })
	require.NoError(t, err)
	_, err = tl.Schedule(5, 0, "a", func() { order = append(order, "a") })
	require.NoError(t, err)
	_, err = tl.Schedule(10, 1, "c", func() { order = append(order, "c") })
	require.NoError(t, err)
	// same time and priority as "b"; must run after it (insertion order).
	_, err = tl.Schedule(10, 0, "b2", func() { order = append(order, "b2") })
	require.NoError(t, err)

	tl.Run()

	assert.Equal(t, []string{"a", "b", "b2", "c"}, order)
	assert.Equal(t, uint64(10), tl.Now())
}

func TestScheduleRejectsPastTime(t *testing.T) {
	tl := timeline.New()
	_, err := tl.Schedule(100, 0, "", func() {})
	require.NoError(t, err)
	tl.Run()

	_, err = tl.Schedule(50, 0, "", func() {})
	assert.ErrorIs(t, err, timeline.ErrEventTimeInPast)
}

func TestCancelSkipsTombstonedEvent(t *testing.T) {
	tl := timeline.New()
	ran := false
	ev, err := tl.Schedule(5, 0, "", func() { ran = true })
	require.NoError(t, err)
	ev.Cancel()

	tl.Run()

	assert.False(t, ran)
	assert.True(t, ev.Cancelled())
}

func TestSoftStopTimeRunsToLastRealEvent(t *testing.T) {
	tl := timeline.New()
	tl.ScheduleStop(100)
	var last uint64
	_, err := tl.Schedule(5, 0, "", func() { last = 5 })
	require.NoError(t, err)

	tl.Run()

	assert.Equal(t, uint64(5), last)
	assert.Equal(t, uint64(5), tl.Now())
}

func TestStopTimeHoldsBackLaterEvents(t *testing.T) {
	tl := timeline.New()
	tl.ScheduleStop(10)
	ranLate := false
	_, err := tl.Schedule(5, 0, "", func() {})
	require.NoError(t, err)
	_, err = tl.Schedule(50, 0, "", func() { ranLate = true })
	require.NoError(t, err)

	tl.Run()

	assert.False(t, ranLate)
	assert.Equal(t, uint64(5), tl.Now())
}

func TestRunIsReentrant(t *testing.T) {
	tl := timeline.New()
	var order []int
	_, err := tl.Schedule(1, 0, "", func() {
		order = append(order, 1)
		_, schedErr := tl.Schedule(2, 0, "", func() { order = append(order, 2) })
		require.NoError(t, schedErr)
	})
	require.NoError(t, err)

	tl.Run()
	assert.Equal(t, []int{1, 2}, order)

	_, err = tl.Schedule(3, 0, "", func() { order = append(order, 3) })
	require.NoError(t, err)
	tl.Run()

	assert.Equal(t, []int{1, 2, 3}, order)
}
