// Package routing implements greedy next-hop selection over an all-pairs
// shortest-distance matrix restricted to a node's physical neighbors (spec
// §4.6). The distance matrix itself is computed once, up front, by
// BuildDistanceTable (or supplied directly by package topology) since the
// topology graph is static for the lifetime of a simulation run.
package routing

import "sort"

// Table is a static routing table: for each node, its physical-neighbor set
// (excluding virtual links, per spec §4.6) and the all-pairs shortest
// distance matrix used to greedily pick among them.
type Table struct {
	neighbors map[string][]string
	distance  map[string]map[string]float64
}

// NewTable builds a Table from a physical-neighbor adjacency (virtual links
// already excluded by the caller — see package topology) and a precomputed
// all-pairs distance matrix.
func NewTable(neighbors map[string][]string, distance map[string]map[string]float64) *Table {
	return &Table{neighbors: neighbors, distance: distance}
}

// Neighbors returns the physical neighbors of node, in no particular order.
func (t *Table) Neighbors(node string) []string {
	out := make([]string, len(t.neighbors[node]))
	copy(out, t.neighbors[node])
	return out
}

// NextHop picks the physical neighbor of from that minimizes distance to to,
// ties broken by lexicographically smaller node name (spec §4.6). Returns
// ErrNoRoute if from has no physical neighbor at all, ErrUnknownNode if to
// is absent from the distance matrix.
func (t *Table) NextHop(from, to string) (string, error) {
	neighbors := t.neighbors[from]
	if len(neighbors) == 0 {
		return "", ErrNoRoute
	}
	if _, ok := t.distance[to]; !ok {
		return "", ErrUnknownNode
	}

	sorted := make([]string, len(neighbors))
	copy(sorted, neighbors)
	sort.Strings(sorted)

	best := ""
	bestDist := 0.0
	for _, n := range sorted {
		d, ok := t.distance[n][to]
		if !ok {
			continue
		}
		if best == "" || d < bestDist {
			best = n
			bestDist = d
		}
	}
	if best == "" {
		return "", ErrNoRoute
	}
	return best, nil
}

// BuildDistanceTable runs Floyd–Warshall over the given physical-link edge
// weights (symmetric; a missing entry means no direct link) to produce the
// all-pairs shortest-distance matrix NewTable expects. nodes lists every
// node name the matrix should cover.
func BuildDistanceTable(nodes []string, edges map[string]map[string]float64) map[string]map[string]float64 {
	const inf = 1e18

	dist := make(map[string]map[string]float64, len(nodes))
	for _, a := range nodes {
		dist[a] = make(map[string]float64, len(nodes))
		for _, b := range nodes {
			switch {
			case a == b:
				dist[a][b] = 0
			default:
				if w, ok := edges[a][b]; ok {
					dist[a][b] = w
				} else {
					dist[a][b] = inf
				}
			}
		}
	}

	for _, k := range nodes {
		for _, i := range nodes {
			for _, j := range nodes {
				if dist[i][k]+dist[k][j] < dist[i][j] {
					dist[i][j] = dist[i][k] + dist[k][j]
				}
			}
		}
	}
	return dist
}
