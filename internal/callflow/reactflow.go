package callflow

import (
	"fmt"
	"sort"
)

// Layout spacing for the generated React Flow positions.
const (
	columnSpacing = 320
	rowSpacing    = 120
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

// RFGraph is the React Flow rendering of a call graph, plus summary
// metadata the frontend shows alongside the canvas.
type RFGraph struct {
	Nodes    []RFNode       `json:"nodes"`
	Edges    []RFEdge       `json:"edges"`
	Metadata map[string]any `json:"metadata"`
}

// ToReactFlow lays the graph out in depth columns: x grows with call depth,
// y with the node's position inside its column. Node order inside a column
// is sorted by symbol ID, so the rendering is deterministic.
func ToReactFlow(g *CallGraph) *RFGraph {
	byDepth := make(map[int][]*CallNode)
	maxDepth := 0
	for _, n := range g.Nodes {
		byDepth[n.Depth] = append(byDepth[n.Depth], n)
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}

	out := &RFGraph{Nodes: make([]RFNode, 0, len(g.Nodes))}
	for depth := 0; depth <= maxDepth; depth++ {
		column := byDepth[depth]
		sort.Slice(column, func(i, j int) bool { return column[i].ID < column[j].ID })
		for row, n := range column {
			out.Nodes = append(out.Nodes, RFNode{
				ID:       n.ID,
				Type:     nodeType(n),
				Position: RFPosition{X: depth * columnSpacing, Y: row * rowSpacing},
				Data: map[string]any{
					"label":          n.Name,
					"qualified_name": n.QualifiedName,
					"file_path":      n.FilePath,
					"line":           n.Line,
					"kind":           string(n.Kind),
					"depth":          n.Depth,
					"complexity":     n.Complexity,
					"loc":            n.LOC,
					"is_entry_point": n.IsEntryPoint,
					"docstring":      n.Docstring,
				},
			})
		}
	}

	for i, e := range g.Edges {
		out.Edges = append(out.Edges, RFEdge{
			ID:     fmt.Sprintf("e%d", i),
			Source: e.SourceID,
			Target: e.TargetID,
			Label:  string(e.CallType),
			Data: map[string]any{
				"call_site_line": e.CallSiteLine,
				"call_type":      string(e.CallType),
				"expression":     e.Expression,
				"arguments":      e.Arguments,
			},
		})
	}

	out.Metadata = map[string]any{
		"entry_point":       g.EntryPoint,
		"node_count":        len(g.Nodes),
		"edge_count":        len(g.Edges),
		"max_depth":         g.MaxDepth,
		"max_depth_reached": g.MaxDepthReached,
		"ignored_count":     len(g.IgnoredCalls),
		"unresolved_count":  len(g.UnresolvedCalls),
		"cycles_detected":   g.Cycles(),
	}
	return out
}

func nodeType(n *CallNode) string {
	if n.IsEntryPoint {
		return "entryNode"
	}
	return "callNode"
}
