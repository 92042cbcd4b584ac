package pysrc

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/parser"
)

// parseImports extracts the import table for a Python source file.
// Returns localName -> Import.
//
// Python import AST structures:
//
//	import_statement:
//	  dotted_name children (e.g., "import foo.bar")
//	  aliased_import with alias (e.g., "import foo as f")
//
//	import_from_statement:
//	  module_name: dotted_name or relative_import
//	  name: dotted_name (what's being imported)
//	  Multiple names possible (e.g., "from foo import bar, baz")
func parseImports(root *tree_sitter.Node, source []byte) map[string]Import {
	imports := make(map[string]Import)

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		switch node.Kind() {
		case "import_statement":
			processImport(node, source, imports)
			return false
		case "import_from_statement":
			processFromImport(node, source, imports)
			return false
		}
		return true
	})

	return imports
}

// processImport handles "import X" and "import X as Y" statements.
func processImport(node *tree_sitter.Node, source []byte, imports map[string]Import) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "dotted_name":
			module := parser.NodeText(child, source)
			local := lastDotSegment(module)
			imports[local] = Import{LocalName: local, Module: module}

		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			module := parser.NodeText(nameNode, source)
			local := lastDotSegment(module)
			if aliasNode != nil {
				local = parser.NodeText(aliasNode, source)
			}
			imports[local] = Import{LocalName: local, Module: module}
		}
	}
}

// processFromImport handles "from X import Y [as Z]" statements.
func processFromImport(node *tree_sitter.Node, source []byte, imports map[string]Import) {
	moduleNode := node.ChildByFieldName("module_name")
	var module string
	if moduleNode != nil {
		module = parser.NodeText(moduleNode, source)
	} else if strings.HasPrefix(parser.NodeText(node, source), "from .") {
		module = "."
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "dotted_name":
			name := parser.NodeText(child, source)
			// The module_name itself appears as a dotted_name child; skip it.
			if name == module {
				continue
			}
			local := lastDotSegment(name)
			imports[local] = Import{LocalName: local, Module: module, Symbol: name}

		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			name := parser.NodeText(nameNode, source)
			local := lastDotSegment(name)
			if aliasNode != nil {
				local = parser.NodeText(aliasNode, source)
			}
			imports[local] = Import{LocalName: local, Module: module, Symbol: name}
		}
	}
}

// lastDotSegment returns the last segment of a .-separated name.
func lastDotSegment(name string) string {
	parts := strings.Split(name, ".")
	return parts[len(parts)-1]
}
