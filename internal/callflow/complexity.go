package callflow

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/lang"
	"github.com/flowgraph-io/flowgraph/internal/parser"
)

// Complexity computes the branching complexity of a function definition:
// 1 plus the number of branching constructs in its body. Loops are not
// counted; they repeat work rather than choose between paths.
func Complexity(fnNode *tree_sitter.Node, source []byte) int {
	spec := lang.ForLanguage(lang.Python)
	branching := make(map[string]bool, len(spec.BranchingNodeTypes))
	for _, kind := range spec.BranchingNodeTypes {
		branching[kind] = true
	}

	count := 1
	parser.Walk(fnNode, func(node *tree_sitter.Node) bool {
		if node.Kind() == "function_definition" && node.StartByte() != fnNode.StartByte() {
			return false // nested defs carry their own score
		}
		if branching[node.Kind()] {
			count++
		}
		return true
	})
	return count
}
