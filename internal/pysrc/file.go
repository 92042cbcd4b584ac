package pysrc

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/lang"
	"github.com/flowgraph-io/flowgraph/internal/parser"
)

// File is the parsed index of a single Python source file: its standalone
// functions, classes (with methods), import table, and the return-type
// annotation cache used for cross-file type inference.
type File struct {
	Path    string // absolute
	RelPath string // relative to the index root, slash-separated
	Source  []byte
	Tree    *tree_sitter.Tree

	Functions map[string]*Function // module-level functions by name
	Classes   map[string]*Class    // classes by name
	Imports   map[string]Import    // local name -> import record

	// ReturnTypes caches function name -> annotated return type string,
	// including methods under "Class.method". Built once per file.
	ReturnTypes map[string]string
}

// Function is a function or method definition.
type Function struct {
	Name       string
	Node       *tree_sitter.Node
	Class      *Class // nil for standalone functions
	ReturnType string // raw annotation text, "" if absent
	Docstring  string
}

// Class is a class definition with its methods.
type Class struct {
	Name    string
	Node    *tree_sitter.Node
	Methods map[string]*Function
	Init    *Function // __init__ if present
}

// Import records one imported name visible in a file's module scope.
type Import struct {
	LocalName string
	Module    string // dotted module path ("os.path", "pipeline.stages")
	Symbol    string // imported symbol for from-imports, "" for plain imports
}

// Method returns the method with the given name, or nil.
func (c *Class) Method(name string) *Function {
	return c.Methods[name]
}

// QualifiedName returns "name" for standalone functions and
// "Class.name" for methods.
func (f *Function) QualifiedName() string {
	if f.Class != nil {
		return f.Class.Name + "." + f.Name
	}
	return f.Name
}

// Body returns the block node of the function, or nil.
func (f *Function) Body() *tree_sitter.Node {
	return f.Node.ChildByFieldName("body")
}

// Lookup finds a function by entry-symbol name. Accepts both "func" and
// "Class.method" forms. Returns nil if the symbol is not defined in the file.
func (f *File) Lookup(name string) *Function {
	if cls, method, ok := strings.Cut(name, "."); ok {
		c := f.Classes[cls]
		if c == nil {
			return nil
		}
		return c.Methods[method]
	}
	if fn := f.Functions[name]; fn != nil {
		return fn
	}
	// A bare class name resolves to its constructor when present.
	if c := f.Classes[name]; c != nil && c.Init != nil {
		return c.Init
	}
	return nil
}

// Close releases the parse tree.
func (f *File) Close() {
	if f.Tree != nil {
		f.Tree.Close()
		f.Tree = nil
	}
}

// buildFile parses source and indexes its definitions.
func buildFile(absPath, relPath string, source []byte) (*File, error) {
	tree, err := parser.Parse(lang.Python, source)
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:        absPath,
		RelPath:     relPath,
		Source:      source,
		Tree:        tree,
		Functions:   make(map[string]*Function),
		Classes:     make(map[string]*Class),
		Imports:     make(map[string]Import),
		ReturnTypes: make(map[string]string),
	}

	root := tree.RootNode()
	f.indexDefinitions(root)
	f.Imports = parseImports(root, source)
	return f, nil
}

// indexDefinitions walks module-level statements and collects functions and
// classes. Nested (function-local) definitions are intentionally skipped:
// they are not addressable entry points.
func (f *File) indexDefinitions(root *tree_sitter.Node) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		node := unwrapDecorated(child)
		switch node.Kind() {
		case "function_definition":
			if fn := f.newFunction(node, nil); fn != nil {
				f.Functions[fn.Name] = fn
				f.ReturnTypes[fn.Name] = fn.ReturnType
			}
		case "class_definition":
			if cls := f.newClass(node); cls != nil {
				f.Classes[cls.Name] = cls
			}
		}
	}
}

func (f *File) newClass(node *tree_sitter.Node) *Class {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	cls := &Class{
		Name:    parser.NodeText(nameNode, f.Source),
		Node:    node,
		Methods: make(map[string]*Function),
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil {
			continue
		}
		member := unwrapDecorated(child)
		if member.Kind() != "function_definition" {
			continue
		}
		m := f.newFunction(member, cls)
		if m == nil {
			continue
		}
		cls.Methods[m.Name] = m
		f.ReturnTypes[cls.Name+"."+m.Name] = m.ReturnType
		if m.Name == "__init__" {
			cls.Init = m
		}
	}
	return cls
}

func (f *File) newFunction(node *tree_sitter.Node, cls *Class) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	fn := &Function{
		Name:  parser.NodeText(nameNode, f.Source),
		Node:  node,
		Class: cls,
	}
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		fn.ReturnType = parser.NodeText(rt, f.Source)
	}
	fn.Docstring = extractDocstring(node, f.Source)
	return fn
}

// unwrapDecorated returns the definition inside a decorated_definition,
// or the node itself.
func unwrapDecorated(node *tree_sitter.Node) *tree_sitter.Node {
	if node.Kind() != "decorated_definition" {
		return node
	}
	if def := node.ChildByFieldName("definition"); def != nil {
		return def
	}
	return node
}

// extractDocstring returns the docstring of a function node, if its body
// starts with a string expression. Quotes are stripped.
func extractDocstring(fnNode *tree_sitter.Node, source []byte) string {
	body := fnNode.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	str := first.Child(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	text := parser.NodeText(str, source)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return strings.TrimSpace(text[len(q) : len(text)-len(q)])
		}
	}
	return strings.TrimSpace(text)
}
