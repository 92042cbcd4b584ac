package callflow

import "fmt"

// SymbolKind classifies a definition.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindClass    SymbolKind = "class"
)

// ResolutionStatus classifies the outcome of resolving one call target.
type ResolutionStatus string

const (
	// ResolvedProject means the target was found in project source. Only
	// these calls produce graph nodes and recursion.
	ResolvedProject ResolutionStatus = "resolved_project"
	// IgnoredBuiltin covers calls to builtin callables (print, len, ...).
	IgnoredBuiltin ResolutionStatus = "ignored_builtin"
	// IgnoredStdlib covers calls into standard-library modules.
	IgnoredStdlib ResolutionStatus = "ignored_stdlib"
	// IgnoredThirdParty covers calls into installed third-party packages.
	IgnoredThirdParty ResolutionStatus = "ignored_third_party"
	// Unresolved means the target could not be determined. A technical
	// gap, not a product decision.
	Unresolved ResolutionStatus = "unresolved"
	// Ambiguous means multiple candidates matched. Left unresolved in v1.
	Ambiguous ResolutionStatus = "ambiguous"
)

// CallType classifies the syntactic shape of a call site.
type CallType string

const (
	CallDirect      CallType = "direct"
	CallMethod      CallType = "method"
	CallConstructor CallType = "constructor"
	CallModuleAttr  CallType = "module_attr"
	CallSuper       CallType = "super"
	CallStatic      CallType = "static"
)

// Location identifies an exact source position. Stable across re-parses only
// while the file is unchanged.
type Location struct {
	FilePath  string `json:"file_path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
}

// SymbolID builds the deterministic symbol key for a definition. Two calls
// reaching the same definition always produce the same ID within one run,
// so repeated visits collapse into one node.
func SymbolID(relPath string, line, column int, kind SymbolKind, name string) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", relPath, line, column, kind, name)
}

// CallNode is one distinct function, method, or class in the call graph.
type CallNode struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualified_name"`
	FilePath      string           `json:"file_path"`
	Line          int              `json:"line"`
	Column        int              `json:"column"`
	Kind          SymbolKind       `json:"kind"`
	IsEntryPoint  bool             `json:"is_entry_point"`
	// Depth is the distance from the entry point at first sight. It is not
	// updated when the node is reached again via a different path.
	Depth      int              `json:"depth"`
	Docstring  string           `json:"docstring,omitempty"`
	Resolution ResolutionStatus `json:"resolution_status"`
	Complexity int              `json:"complexity"`
	LOC        int              `json:"loc"`
}

// CallEdge is one call occurrence. Multiple edges between the same node pair
// are meaningful: each represents a distinct call site.
type CallEdge struct {
	SourceID     string           `json:"source_id"`
	TargetID     string           `json:"target_id"`
	CallSiteLine int              `json:"call_site_line"`
	CallType     CallType         `json:"call_type"`
	Arguments    []string         `json:"arguments,omitempty"`
	Expression   string           `json:"expression"`
	Resolution   ResolutionStatus `json:"resolution_status"`
}

// IgnoredCall records a call that was intentionally not expanded.
type IgnoredCall struct {
	Expression string           `json:"expression"`
	Line       int              `json:"line"`
	Reason     ResolutionStatus `json:"reason"`
	Module     string           `json:"module,omitempty"`
}

// CallGraph is the aggregate result of one extraction. Node keys are symbol
// IDs; edges keep insertion order.
type CallGraph struct {
	EntryPoint      string               `json:"entry_point"`
	Nodes           map[string]*CallNode `json:"nodes"`
	Edges           []*CallEdge          `json:"edges"`
	MaxDepth        int                  `json:"max_depth"`
	MaxDepthReached bool                 `json:"max_depth_reached"`
	IgnoredCalls    []IgnoredCall        `json:"ignored_calls"`
	UnresolvedCalls []string             `json:"unresolved_calls"`
	Diagnostics     map[string]any       `json:"diagnostics"`
}

// NewCallGraph creates an empty graph with the given depth bound.
func NewCallGraph(maxDepth int) *CallGraph {
	return &CallGraph{
		Nodes:       make(map[string]*CallNode),
		MaxDepth:    maxDepth,
		Diagnostics: make(map[string]any),
	}
}

// Node returns the node with the given symbol ID, or nil.
func (g *CallGraph) Node(id string) *CallNode {
	return g.Nodes[id]
}

// EdgesBetween returns all edges from source to target, in insertion order.
func (g *CallGraph) EdgesBetween(sourceID, targetID string) []*CallEdge {
	var out []*CallEdge
	for _, e := range g.Edges {
		if e.SourceID == sourceID && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out
}

// addCycle appends a detected cycle path to the diagnostics bag.
func (g *CallGraph) addCycle(path string) {
	cycles, _ := g.Diagnostics["cycles_detected"].([]string)
	g.Diagnostics["cycles_detected"] = append(cycles, path)
}

// Cycles returns the recorded cycle paths.
func (g *CallGraph) Cycles() []string {
	cycles, _ := g.Diagnostics["cycles_detected"].([]string)
	return cycles
}
