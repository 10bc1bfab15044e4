package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandalf-the-gray/qnetsim/routing"
)

// chain builds a linear A-B-C-D topology with unit-distance hops.
func chain() *routing.Table {
	nodes := []string{"A", "B", "C", "D"}
	edges := map[string]map[string]float64{
		"A": {"B": 1},
		"B": {"A": 1, "C": 1},
		"C": {"B": 1, "D": 1},
		"D": {"C": 1},
	}
	dist := routing.BuildDistanceTable(nodes, edges)
	neighbors := map[string][]string{
		"A": {"B"},
		"B": {"A", "C"},
		"C": {"B", "D"},
		"D": {"C"},
	}
	return routing.NewTable(neighbors, dist)
}

func TestNextHopGreedyAlongChain(t *testing.T) {
	tbl := chain()

	hop, err := tbl.NextHop("A", "D")
	require.NoError(t, err)
	assert.Equal(t, "B", hop)

	hop, err = tbl.NextHop("B", "D")
	require.NoError(t, err)
	assert.Equal(t, "C", hop)

	hop, err = tbl.NextHop("B", "A")
	require.NoError(t, err)
	assert.Equal(t, "A", hop)
}

func TestNextHopTiesBreakLexicographically(t *testing.T) {
	nodes := []string{"X", "A", "B", "Z"}
	edges := map[string]map[string]float64{
		"X": {"A": 1, "B": 1},
		"A": {"X": 1, "Z": 1},
		"B": {"X": 1, "Z": 1},
		"Z": {"A": 1, "B": 1},
	}
	dist := routing.BuildDistanceTable(nodes, edges)
	neighbors := map[string][]string{"X": {"A", "B"}}
	tbl := routing.NewTable(neighbors, dist)

	hop, err := tbl.NextHop("X", "Z")
	require.NoError(t, err)
	assert.Equal(t, "A", hop, "equal-distance neighbors break ties lexicographically")
}

func TestNextHopNoNeighborsErrors(t *testing.T) {
	tbl := routing.NewTable(map[string][]string{}, map[string]map[string]float64{"D": {}})
	_, err := tbl.NextHop("isolated", "D")
	assert.ErrorIs(t, err, routing.ErrNoRoute)
}

func TestNextHopUnknownDestinationErrors(t *testing.T) {
	tbl := chain()
	_, err := tbl.NextHop("A", "nowhere")
	assert.ErrorIs(t, err, routing.ErrUnknownNode)
}
