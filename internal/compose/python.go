package compose

import (
	"log/slog"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/lang"
	"github.com/flowgraph-io/flowgraph/internal/parser"
	"github.com/flowgraph-io/flowgraph/internal/pysrc"
)

// PythonExtractor finds composition roots in Python sources: a function that
// assigns component instances and wires them together with method calls.
type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (e *PythonExtractor) Available() bool         { return true }
func (e *PythonExtractor) Language() lang.Language { return lang.Python }

// Extract parses filePath and extracts the composition root rooted at
// functionName. Returns (nil, nil) when the file or function cannot be
// found — best-effort extraction, not validation.
func (e *PythonExtractor) Extract(filePath, functionName string) (*CompositionRoot, error) {
	ix, err := pysrc.NewIndex(filepath.Dir(filePath))
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	file, err := ix.FileOf(filePath)
	if err != nil {
		slog.Warn("compose.python.unavailable", "file", filePath, "err", err)
		return nil, nil
	}
	fn := file.Lookup(functionName)
	if fn == nil {
		slog.Debug("compose.python.root_missing", "file", filePath, "function", functionName)
		return nil, nil
	}
	body := fn.Body()
	if body == nil {
		return nil, nil
	}

	root := &CompositionRoot{
		FilePath:     filePath,
		FunctionName: functionName,
		Location:     Location{FilePath: filePath, Line: parser.Line(fn.Node), Column: parser.Column(fn.Node)},
	}

	// Pass one: instance declarations.
	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment" {
			return true
		}
		e.collectInstance(node, file, filePath, root)
		return false
	})

	// Pass two: wiring and lifecycle calls on known instances.
	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if node.Kind() == "assignment" {
			return false // instance creation, not wiring
		}
		if node.Kind() != "call" {
			return true
		}
		e.collectCall(node, file, filePath, root)
		return true
	})

	return root, nil
}

// collectInstance records x = ClassName(...) and x = create_foo(...) forms.
func (e *PythonExtractor) collectInstance(node *tree_sitter.Node, file *pysrc.File, filePath string, root *CompositionRoot) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "identifier" || right.Kind() != "call" {
		return
	}
	fnNode := right.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	var callee string
	switch fnNode.Kind() {
	case "identifier", "attribute":
		callee = parser.NodeText(fnNode, file.Source)
	default:
		return
	}
	base := callee
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		base = base[idx+1:]
	}

	info := InstanceInfo{
		Name:            parser.NodeText(left, file.Source),
		Location:        Location{FilePath: filePath, Line: parser.Line(node), Column: parser.Column(node)},
		ConstructorArgs: argTexts(right, file.Source),
	}

	switch {
	case isTypeName(base):
		info.TypeName = base
		info.CreationPattern = PatternDirect
	case strings.HasPrefix(base, "create_") || strings.HasPrefix(base, "make_"):
		info.FactoryName = base
		info.CreationPattern = PatternFactory
	default:
		return // plain call, not an instance declaration
	}
	root.Instances = append(root.Instances, info)
}

// collectCall records instance.method(...) calls as wiring (instance
// arguments) or lifecycle (no instance arguments).
func (e *PythonExtractor) collectCall(node *tree_sitter.Node, file *pysrc.File, filePath string, root *CompositionRoot) {
	// Calls nested in another call's arguments are wiring targets, not
	// standalone calls.
	if p := node.Parent(); p != nil && p.Kind() == "argument_list" {
		return
	}
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || fnNode.Kind() != "attribute" {
		return
	}
	objNode := fnNode.ChildByFieldName("object")
	methodNode := fnNode.ChildByFieldName("attribute")
	if objNode == nil || methodNode == nil || objNode.Kind() != "identifier" {
		return
	}
	obj := parser.NodeText(objNode, file.Source)
	if root.Instance(obj) == nil {
		return
	}
	method := parser.NodeText(methodNode, file.Source)
	loc := Location{FilePath: filePath, Line: parser.Line(node), Column: parser.Column(node)}

	wired := false
	args := node.ChildByFieldName("arguments")
	if args != nil {
		for i := uint(0); i < args.NamedChildCount(); i++ {
			a := args.NamedChild(i)
			if a == nil || a.Kind() != "identifier" {
				continue
			}
			target := parser.NodeText(a, file.Source)
			if root.Instance(target) == nil {
				continue
			}
			root.Wiring = append(root.Wiring, WiringInfo{
				Source:   obj,
				Target:   target,
				Method:   method,
				Location: loc,
			})
			wired = true
		}
	}
	if !wired {
		root.Lifecycle = append(root.Lifecycle, LifecycleCall{Instance: obj, Method: method, Location: loc})
	}
}

// argTexts returns the raw argument texts of a call node.
func argTexts(call *tree_sitter.Node, source []byte) []string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < args.NamedChildCount(); i++ {
		if a := args.NamedChild(i); a != nil {
			out = append(out, parser.NodeText(a, source))
		}
	}
	return out
}

// isTypeName reports whether a name looks like a class name (PascalCase).
func isTypeName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
