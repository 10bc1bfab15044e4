package topology

import (
	"math"
	"sort"

	"github.com/gandalf-the-gray/qnetsim/reservation"
	"github.com/gandalf-the-gray/qnetsim/routing"
)

// Derived bundles everything package network needs to wire a Graph's
// QuantumRouters into running nodes: the physical-neighbor routing table,
// each router's peer map (naming the mediating BSM, per the glossary's
// "middle node"), each router's configured memory count, and the classical
// channel delay function the messaging Fabric needs.
type Derived struct {
	Routes         *routing.Table
	Neighbors      map[string]map[string]reservation.NeighborInfo // router -> peer -> info
	MemorySizes    map[string]int
	ClassicalDelay func(src, dst string) uint64
}

// Derive computes the physical-neighbor adjacency (two routers are
// neighbors iff a BSM node's qchannels connect to both of them), the
// all-pairs shortest-distance table over that adjacency (the two mediating
// qchannels' distances, summed, per qchannel's `distance` field), and the
// classical delay lookup, from a parsed Graph.
func Derive(g *Graph) *Derived {
	isRouter := make(map[string]bool)
	memorySizes := make(map[string]int)
	var routerNames []string
	for _, n := range g.Nodes {
		if n.Type == QuantumRouter {
			isRouter[n.Name] = true
			memorySizes[n.Name] = n.MemoSize
			routerNames = append(routerNames, n.Name)
		}
	}
	sort.Strings(routerNames)

	linksFrom := make(map[string][]QChannel)
	for _, q := range g.QChannels {
		linksFrom[q.Source] = append(linksFrom[q.Source], q)
		linksFrom[q.Destination] = append(linksFrom[q.Destination], QChannel{
			Source: q.Destination, Destination: q.Source,
			Attenuation: q.Attenuation, Distance: q.Distance,
		})
	}

	neighbors := make(map[string]map[string]reservation.NeighborInfo)
	edgeWeights := make(map[string]map[string]float64)
	link := func(a, b, middle string, weight float64) {
		if neighbors[a] == nil {
			neighbors[a] = make(map[string]reservation.NeighborInfo)
			edgeWeights[a] = make(map[string]float64)
		}
		neighbors[a][b] = reservation.NeighborInfo{Middle: middle}
		edgeWeights[a][b] = weight
	}

	for _, n := range g.Nodes {
		if n.Type != BSMNode {
			continue
		}
		links := linksFrom[n.Name]
		for i := 0; i < len(links); i++ {
			for j := i + 1; j < len(links); j++ {
				r1, r2 := links[i].Destination, links[j].Destination
				if !isRouter[r1] || !isRouter[r2] {
					continue
				}
				weight := links[i].Distance + links[j].Distance
				link(r1, r2, n.Name, weight)
				link(r2, r1, n.Name, weight)
			}
		}
	}

	adjacency := make(map[string][]string, len(routerNames))
	for _, r := range routerNames {
		peers := make([]string, 0, len(neighbors[r]))
		for peer := range neighbors[r] {
			peers = append(peers, peer)
		}
		sort.Strings(peers)
		adjacency[r] = peers
	}

	distance := routing.BuildDistanceTable(routerNames, edgeWeights)
	routes := routing.NewTable(adjacency, distance)

	delay := make(map[string]map[string]uint64)
	setDelay := func(from, to string, d uint64) {
		if delay[from] == nil {
			delay[from] = make(map[string]uint64)
		}
		delay[from][to] = d
	}
	for _, c := range g.CChannels {
		setDelay(c.Source, c.Destination, c.Delay)
		setDelay(c.Destination, c.Source, c.Delay)
	}

	// Virtual links add to the neighbor map only, never to the routing
	// adjacency: they have no physical qchannel for greedy routing to hop
	// over, only a pre-established entanglement a reservation can build on
	// directly (reservation.NeighborInfo.Virtual skips the generation rule).
	for _, v := range g.VirtualLinks {
		if neighbors[v.Source] == nil {
			neighbors[v.Source] = make(map[string]reservation.NeighborInfo)
		}
		if neighbors[v.Destination] == nil {
			neighbors[v.Destination] = make(map[string]reservation.NeighborInfo)
		}
		neighbors[v.Source][v.Destination] = reservation.NeighborInfo{Virtual: true}
		neighbors[v.Destination][v.Source] = reservation.NeighborInfo{Virtual: true}
	}

	return &Derived{
		Routes:      routes,
		Neighbors:   neighbors,
		MemorySizes: memorySizes,
		ClassicalDelay: func(src, dst string) uint64 {
			return delay[src][dst]
		},
	}
}

// BSMSuccessProbability computes the per-attempt Bell-state-measurement
// success probability a BSM station mediating the two qchannels should use,
// following spec §4.5's `η_A · η_B · η_det² · (1 − e^{−α·L})` shape with a
// fixed detector/coupling efficiency, since the topology loader (not the
// physical-layer collaborator itself) is this repo's only place that ever
// turns qchannel attenuation and distance into a probability.
func BSMSuccessProbability(a, b QChannel, detectorEfficiency, couplingEfficiency float64) float64 {
	attn := (a.Attenuation + b.Attenuation) / 2
	length := a.Distance + b.Distance
	return couplingEfficiency * couplingEfficiency * detectorEfficiency * detectorEfficiency *
		(1 - math.Exp(-attn*length))
}
