package instgraph

import (
	"sort"

	"github.com/flowgraph-io/flowgraph/internal/compose"
)

// InstanceRole classifies a node by its final edge connectivity. Derived,
// never authoritative input; recomputed whenever edges change.
type InstanceRole string

const (
	RoleSource     InstanceRole = "SOURCE"
	RoleProcessing InstanceRole = "PROCESSING"
	RoleSink       InstanceRole = "SINK"
	RoleUnknown    InstanceRole = "UNKNOWN"
)

// InstanceNode is one instantiated component in the graph.
type InstanceNode struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	TypeName        string                  `json:"type_name"`
	ActualType      string                  `json:"actual_type,omitempty"`
	Role            InstanceRole            `json:"role"`
	CreationPattern compose.CreationPattern `json:"creation_pattern"`
	FactoryName     string                  `json:"factory_name,omitempty"`
	ConstructorArgs []string                `json:"constructor_args,omitempty"`
	IsPointer       bool                    `json:"is_pointer"`
	PointerType     string                  `json:"pointer_type,omitempty"`
	Location        compose.Location        `json:"location"`
	TypeLocation    *compose.Location       `json:"type_location,omitempty"`
}

// WiringEdge is one wiring call connecting two instances.
type WiringEdge struct {
	ID         string           `json:"id"`
	SourceID   string           `json:"source_id"`
	TargetID   string           `json:"target_id"`
	Method     string           `json:"method"`
	WiringType string           `json:"wiring_type,omitempty"`
	Location   compose.Location `json:"location"`
}

// InstanceGraph is the normalized composition-root graph. Every node ID is
// present in both adjacency maps, with empty slices rather than missing keys.
type InstanceGraph struct {
	FilePath     string                   `json:"file_path"`
	FunctionName string                   `json:"function_name"`
	Nodes        map[string]*InstanceNode `json:"nodes"`
	Edges        map[string]*WiringEdge   `json:"edges"`
	NameToID     map[string]string        `json:"name_to_id"`
	Outgoing     map[string][]string      `json:"outgoing"`
	Incoming     map[string][]string      `json:"incoming"`
	Lifecycle    []compose.LifecycleCall  `json:"lifecycle,omitempty"`
}

// NewInstanceGraph creates an empty graph.
func NewInstanceGraph(filePath, functionName string) *InstanceGraph {
	return &InstanceGraph{
		FilePath:     filePath,
		FunctionName: functionName,
		Nodes:        make(map[string]*InstanceNode),
		Edges:        make(map[string]*WiringEdge),
		NameToID:     make(map[string]string),
		Outgoing:     make(map[string][]string),
		Incoming:     make(map[string][]string),
	}
}

// AddNode inserts a node and registers it in the name index and both
// adjacency maps.
func (g *InstanceGraph) AddNode(n *InstanceNode) {
	g.Nodes[n.ID] = n
	g.NameToID[n.Name] = n.ID
	if g.Outgoing[n.ID] == nil {
		g.Outgoing[n.ID] = []string{}
	}
	if g.Incoming[n.ID] == nil {
		g.Incoming[n.ID] = []string{}
	}
}

// AddEdge inserts an edge and updates adjacency. Roles are not touched;
// callers recompute them once all edges are in place.
func (g *InstanceGraph) AddEdge(e *WiringEdge) {
	g.Edges[e.ID] = e
	g.Outgoing[e.SourceID] = append(g.Outgoing[e.SourceID], e.ID)
	g.Incoming[e.TargetID] = append(g.Incoming[e.TargetID], e.ID)
}

// NodeByName returns the node declared under the given instance name, or nil.
func (g *InstanceGraph) NodeByName(name string) *InstanceNode {
	id, ok := g.NameToID[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// RecomputeRoles derives each node's role purely from final adjacency:
// both directions -> PROCESSING, outgoing only -> SOURCE, incoming only ->
// SINK, neither -> UNKNOWN.
func (g *InstanceGraph) RecomputeRoles() {
	for id, n := range g.Nodes {
		out := len(g.Outgoing[id]) > 0
		in := len(g.Incoming[id]) > 0
		switch {
		case out && in:
			n.Role = RoleProcessing
		case out:
			n.Role = RoleSource
		case in:
			n.Role = RoleSink
		default:
			n.Role = RoleUnknown
		}
	}
}

// FindIsolated returns the nodes with no edges in either direction, sorted
// by name.
func (g *InstanceGraph) FindIsolated() []*InstanceNode {
	var out []*InstanceNode
	for id, n := range g.Nodes {
		if len(g.Outgoing[id]) == 0 && len(g.Incoming[id]) == 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
