package reservation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gandalf-the-gray/qnetsim/reservation"
)

func nonVirtual(start, end uint64) *reservation.Reservation {
	return &reservation.Reservation{StartTime: start, EndTime: end, MemorySize: 1, TargetFidelity: 0.9}
}

func TestCardRejectsOverlappingNonVirtualReservations(t *testing.T) {
	card := reservation.NewMemoryTimeCard(0)
	assert.True(t, card.Add(nonVirtual(10, 20)))
	assert.False(t, card.Add(nonVirtual(15, 25)), "overlapping interval must be rejected")
	assert.False(t, card.Add(nonVirtual(20, 30)), "touching endpoints are not disjoint (spec: a.end < b.start)")
	assert.True(t, card.Add(nonVirtual(21, 30)))
}

func TestCardAcceptsDisjointIntervalsInAnyInsertOrder(t *testing.T) {
	card := reservation.NewMemoryTimeCard(0)
	assert.True(t, card.Add(nonVirtual(100, 200)))
	assert.True(t, card.Add(nonVirtual(0, 50)))
	assert.True(t, card.Add(nonVirtual(60, 90)))
	assert.Len(t, card.Reservations(), 3)
}

func TestCardVirtualReservationsAlwaysOverlap(t *testing.T) {
	card := reservation.NewMemoryTimeCard(0)
	assert.True(t, card.Add(nonVirtual(10, 20)))

	v := nonVirtual(10, 20)
	v.IsVirtual = true
	assert.True(t, card.Add(v), "virtual reservations never conflict")
}

func TestCardRemoveRestoresPriorState(t *testing.T) {
	card := reservation.NewMemoryTimeCard(0)
	r := nonVirtual(10, 20)
	require := assert.New(t)
	require.True(card.Add(r))
	card.Remove(r)
	require.Empty(card.Reservations())
	require.True(card.Add(nonVirtual(10, 20)), "slot must be free again after Remove")
}
