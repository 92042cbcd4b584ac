package instgraph

import (
	"encoding/json"
	"fmt"
)

// ToJSON serializes the full graph, adjacency included. The output feeds
// both persistence and the round-trip contract: decoding and re-encoding
// preserves node and edge IDs, roles, and counts.
func (g *InstanceGraph) ToJSON() ([]byte, error) {
	return json.Marshal(g)
}

// FromJSON restores a graph serialized with ToJSON. Missing maps are
// re-initialized so every node keeps an adjacency entry.
func FromJSON(data []byte) (*InstanceGraph, error) {
	var g InstanceGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode instance graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*InstanceNode)
	}
	if g.Edges == nil {
		g.Edges = make(map[string]*WiringEdge)
	}
	if g.NameToID == nil {
		g.NameToID = make(map[string]string)
	}
	if g.Outgoing == nil {
		g.Outgoing = make(map[string][]string)
	}
	if g.Incoming == nil {
		g.Incoming = make(map[string][]string)
	}
	for id := range g.Nodes {
		if g.Outgoing[id] == nil {
			g.Outgoing[id] = []string{}
		}
		if g.Incoming[id] == nil {
			g.Incoming[id] = []string{}
		}
	}
	return &g, nil
}
