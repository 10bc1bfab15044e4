package topology

import (
	"encoding/json"
	"fmt"

	"github.com/golobby/cast"
)

// Load parses the spec §6 JSON shape into a Graph, coercing each numeric
// field (memo_size, attenuation, distance, delay) through golobby/cast since
// hand-authored fixtures are free to write them as either a JSON integer or
// float.
func Load(data []byte) (*Graph, error) {
	var raw rawGraph
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("topology: parse: %w", err)
	}

	g := &Graph{
		Nodes:     make([]Node, 0, len(raw.Nodes)),
		QChannels: make([]QChannel, 0, len(raw.QChannels)),
		CChannels: make([]CChannel, 0, len(raw.CChannels)),
	}

	for _, n := range raw.Nodes {
		memoSize, err := cast.ToIntE(n.MemoSize)
		if err != nil {
			return nil, fmt.Errorf("topology: node %q memo_size: %w", n.Name, err)
		}
		g.Nodes = append(g.Nodes, Node{Name: n.Name, Type: NodeType(n.Type), MemoSize: memoSize})
	}

	for _, q := range raw.QChannels {
		attenuation, err := cast.ToFloat64E(q.Attenuation)
		if err != nil {
			return nil, fmt.Errorf("topology: qchannel %s->%s attenuation: %w", q.Source, q.Destination, err)
		}
		distance, err := cast.ToFloat64E(q.Distance)
		if err != nil {
			return nil, fmt.Errorf("topology: qchannel %s->%s distance: %w", q.Source, q.Destination, err)
		}
		g.QChannels = append(g.QChannels, QChannel{
			Source: q.Source, Destination: q.Destination,
			Attenuation: attenuation, Distance: distance,
		})
	}

	for _, c := range raw.CChannels {
		delay, err := cast.ToUint64E(c.Delay)
		if err != nil {
			return nil, fmt.Errorf("topology: cchannel %s->%s delay: %w", c.Source, c.Destination, err)
		}
		g.CChannels = append(g.CChannels, CChannel{Source: c.Source, Destination: c.Destination, Delay: delay})
	}

	for _, v := range raw.VirtualLinks {
		g.VirtualLinks = append(g.VirtualLinks, VirtualLink{Source: v.Source, Destination: v.Destination})
	}

	return g, nil
}
