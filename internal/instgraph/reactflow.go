package instgraph

import "sort"

const (
	columnSpacing = 280
	rowSpacing    = 140
)

// RFPosition is a React Flow canvas coordinate.
type RFPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RFNode is one React Flow node.
type RFNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position RFPosition     `json:"position"`
	Data     map[string]any `json:"data"`
}

// RFEdge is one React Flow edge.
type RFEdge struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Label  string         `json:"label,omitempty"`
	Data   map[string]any `json:"data"`
}

// RFGraph is the React Flow rendering of an instance graph.
type RFGraph struct {
	Nodes    []RFNode       `json:"nodes"`
	Edges    []RFEdge       `json:"edges"`
	Metadata map[string]any `json:"metadata"`
}

// connection is one entry of a node's detail-panel summary.
type connection struct {
	Node   string `json:"node"`
	Method string `json:"method"`
}

// ToReactFlow lays nodes out left to right in topological order of the
// wiring edges, each node carrying incoming/outgoing connection summaries
// for the UI detail panel.
func (g *InstanceGraph) ToReactFlow() *RFGraph {
	order := g.topologicalOrder()

	out := &RFGraph{Nodes: make([]RFNode, 0, len(g.Nodes))}
	for i, id := range order {
		n := g.Nodes[id]
		out.Nodes = append(out.Nodes, RFNode{
			ID:       n.ID,
			Type:     "instanceNode",
			Position: RFPosition{X: i * columnSpacing, Y: rowSpacing},
			Data: map[string]any{
				"label":            n.Name,
				"type_name":        n.TypeName,
				"role":             string(n.Role),
				"creation_pattern": string(n.CreationPattern),
				"is_pointer":       n.IsPointer,
				"location":         n.Location,
				"type_location":    n.TypeLocation,
				"incoming":         g.connections(g.Incoming[id], func(e *WiringEdge) string { return e.SourceID }),
				"outgoing":         g.connections(g.Outgoing[id], func(e *WiringEdge) string { return e.TargetID }),
			},
		})
	}

	edgeIDs := make([]string, 0, len(g.Edges))
	for id := range g.Edges {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Strings(edgeIDs)
	for _, id := range edgeIDs {
		e := g.Edges[id]
		out.Edges = append(out.Edges, RFEdge{
			ID:     e.ID,
			Source: e.SourceID,
			Target: e.TargetID,
			Label:  e.Method,
			Data: map[string]any{
				"method":   e.Method,
				"location": e.Location,
			},
		})
	}

	out.Metadata = map[string]any{
		"file_path":     g.FilePath,
		"function_name": g.FunctionName,
		"node_count":    len(g.Nodes),
		"edge_count":    len(g.Edges),
		"isolated":      len(g.FindIsolated()),
	}
	return out
}

// connections maps edge IDs to {peer name, method} summaries.
func (g *InstanceGraph) connections(edgeIDs []string, peer func(*WiringEdge) string) []connection {
	out := make([]connection, 0, len(edgeIDs))
	for _, id := range edgeIDs {
		e := g.Edges[id]
		if e == nil {
			continue
		}
		name := ""
		if n := g.Nodes[peer(e)]; n != nil {
			name = n.Name
		}
		out = append(out, connection{Node: name, Method: e.Method})
	}
	return out
}

// topologicalOrder returns node IDs in Kahn order, name-sorted at each tier
// for determinism. Nodes left over by cycles are appended name-sorted.
func (g *InstanceGraph) topologicalOrder() []string {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = len(g.Incoming[id])
	}

	byName := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool { return g.Nodes[ids[i]].Name < g.Nodes[ids[j]].Name })
	}

	var frontier []string
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}
	byName(frontier)

	order := make([]string, 0, len(g.Nodes))
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)

		var released []string
		for _, edgeID := range g.Outgoing[id] {
			e := g.Edges[edgeID]
			if e == nil {
				continue
			}
			indegree[e.TargetID]--
			if indegree[e.TargetID] == 0 {
				released = append(released, e.TargetID)
			}
		}
		byName(released)
		frontier = append(frontier, released...)
	}

	if len(order) < len(g.Nodes) {
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			seen[id] = true
		}
		var rest []string
		for id := range g.Nodes {
			if !seen[id] {
				rest = append(rest, id)
			}
		}
		byName(rest)
		order = append(order, rest...)
	}
	return order
}
