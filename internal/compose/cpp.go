package compose

import (
	"log/slog"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/lang"
	"github.com/flowgraph-io/flowgraph/internal/parser"
)

// CPPExtractor finds composition roots in C++ sources. Recognized creation
// forms:
//
//	auto x = std::make_unique<T>(...);
//	auto x = std::make_shared<T>(...);
//	T* x = new T(...);
//	T x(...);            direct stack declaration
//	auto x = createFoo(...);
type CPPExtractor struct{}

func NewCPPExtractor() *CPPExtractor { return &CPPExtractor{} }

func (e *CPPExtractor) Available() bool         { return true }
func (e *CPPExtractor) Language() lang.Language { return lang.CPP }

// Extract parses filePath and extracts the composition root rooted at
// functionName. Returns (nil, nil) when the file or function cannot be found.
func (e *CPPExtractor) Extract(filePath, functionName string) (*CompositionRoot, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("compose.cpp.unavailable", "file", filePath, "err", err)
		return nil, nil
	}
	tree, err := parser.Parse(lang.CPP, source)
	if err != nil {
		slog.Warn("compose.cpp.parse_failed", "file", filePath, "err", err)
		return nil, nil
	}
	defer tree.Close()

	fn := findCPPFunction(tree.RootNode(), source, functionName)
	if fn == nil {
		slog.Debug("compose.cpp.root_missing", "file", filePath, "function", functionName)
		return nil, nil
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil, nil
	}

	root := &CompositionRoot{
		FilePath:     filePath,
		FunctionName: functionName,
		Location:     Location{FilePath: filePath, Line: parser.Line(fn), Column: parser.Column(fn)},
	}

	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "declaration" {
			return true
		}
		e.collectDeclaration(node, source, filePath, root)
		return false
	})

	parser.Walk(body, func(node *tree_sitter.Node) bool {
		switch node.Kind() {
		case "declaration":
			return false
		case "call_expression":
			e.collectCall(node, source, filePath, root)
		}
		return true
	})

	return root, nil
}

// findCPPFunction locates the function_definition whose declarator name
// matches the requested name.
func findCPPFunction(rootNode *tree_sitter.Node, source []byte, name string) *tree_sitter.Node {
	var found *tree_sitter.Node
	parser.Walk(rootNode, func(node *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if node.Kind() != "function_definition" {
			return true
		}
		decl := node.ChildByFieldName("declarator")
		if decl == nil {
			return true
		}
		if id := parser.DescendantByKind(decl, "identifier"); id != nil &&
			parser.NodeText(id, source) == name {
			found = node
			return false
		}
		return true
	})
	return found
}

// collectDeclaration records one instance-creating declaration.
func (e *CPPExtractor) collectDeclaration(node *tree_sitter.Node, source []byte, filePath string, root *CompositionRoot) {
	loc := Location{FilePath: filePath, Line: parser.Line(node), Column: parser.Column(node)}

	init := parser.DescendantByKind(node, "init_declarator")
	if init == nil {
		// Direct stack declaration: T x; or T x(args);
		e.collectDirectDeclaration(node, source, loc, root)
		return
	}

	declName := leftmostIdentifier(init.ChildByFieldName("declarator"), source)
	if declName == "" {
		return
	}
	value := init.ChildByFieldName("value")
	if value == nil {
		e.collectDirectDeclaration(node, source, loc, root)
		return
	}

	info := InstanceInfo{Name: declName, Location: loc}

	switch value.Kind() {
	case "call_expression":
		fnText := calleeTextCPP(value, source)
		args := cppArgTexts(value, source)
		switch {
		case strings.Contains(fnText, "make_unique"):
			info.TypeName = templateArgument(value, source)
			info.CreationPattern = PatternMakeUnique
			info.IsPointer = true
			info.PointerType = "unique_ptr"
			info.ConstructorArgs = args
		case strings.Contains(fnText, "make_shared"):
			info.TypeName = templateArgument(value, source)
			info.CreationPattern = PatternMakeShared
			info.IsPointer = true
			info.PointerType = "shared_ptr"
			info.ConstructorArgs = args
		case isFactoryName(baseName(fnText)):
			info.FactoryName = baseName(fnText)
			info.CreationPattern = PatternFactory
			info.ConstructorArgs = args
		case isTypeName(baseName(fnText)):
			info.TypeName = baseName(fnText)
			info.CreationPattern = PatternDirect
			info.ConstructorArgs = args
		default:
			return
		}
	case "new_expression":
		typeNode := value.ChildByFieldName("type")
		if typeNode == nil {
			return
		}
		info.TypeName = baseName(parser.NodeText(typeNode, source))
		info.CreationPattern = PatternNew
		info.IsPointer = true
		info.PointerType = "raw"
		if call := parser.DescendantByKind(value, "argument_list"); call != nil {
			info.ConstructorArgs = listTexts(call, source)
		}
	default:
		return
	}

	root.Instances = append(root.Instances, info)
}

// collectDirectDeclaration handles T x; and T x(args); stack instances.
func (e *CPPExtractor) collectDirectDeclaration(node *tree_sitter.Node, source []byte, loc Location, root *CompositionRoot) {
	typeNode := node.ChildByFieldName("type")
	declNode := node.ChildByFieldName("declarator")
	if typeNode == nil || declNode == nil {
		return
	}
	typeName := baseName(parser.NodeText(typeNode, source))
	if !isTypeName(typeName) {
		return
	}
	name := leftmostIdentifier(declNode, source)
	if name == "" {
		return
	}
	info := InstanceInfo{
		Name:            name,
		TypeName:        typeName,
		Location:        loc,
		CreationPattern: PatternDirect,
	}
	if args := parser.DescendantByKind(declNode, "argument_list"); args != nil {
		info.ConstructorArgs = listTexts(args, source)
	}
	root.Instances = append(root.Instances, info)
}

// collectCall records wiring (a->setNext(b)) and lifecycle (gen->start())
// calls on known instances.
func (e *CPPExtractor) collectCall(node *tree_sitter.Node, source []byte, filePath string, root *CompositionRoot) {
	// Calls nested in another call's arguments (proc.get()) are handled as
	// wiring targets, not as standalone calls.
	if p := node.Parent(); p != nil && p.Kind() == "argument_list" {
		return
	}
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || fnNode.Kind() != "field_expression" {
		return
	}
	objNode := fnNode.ChildByFieldName("argument")
	methodNode := fnNode.ChildByFieldName("field")
	if objNode == nil || methodNode == nil || objNode.Kind() != "identifier" {
		return
	}
	obj := parser.NodeText(objNode, source)
	if root.Instance(obj) == nil {
		return
	}
	method := parser.NodeText(methodNode, source)
	loc := Location{FilePath: filePath, Line: parser.Line(node), Column: parser.Column(node)}

	wired := false
	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := uint(0); i < args.NamedChildCount(); i++ {
			a := args.NamedChild(i)
			if a == nil {
				continue
			}
			target := instanceArgument(a, source)
			if target == "" || root.Instance(target) == nil {
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

// instanceArgument unwraps common argument shapes to an instance name:
// b, &b, std::move(b), b.get().
func instanceArgument(node *tree_sitter.Node, source []byte) string {
	switch node.Kind() {
	case "identifier":
		return parser.NodeText(node, source)
	case "pointer_expression", "unary_expression":
		if inner := parser.DescendantByKind(node, "identifier"); inner != nil {
			return parser.NodeText(inner, source)
		}
	case "call_expression":
		// std::move(b) and b.get(): the wired instance is the first plain
		// identifier that is not part of the callee's qualified name.
		if args := node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
			if first := args.NamedChild(0); first != nil {
				return instanceArgument(first, source)
			}
		}
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Kind() == "field_expression" {
			if arg := fn.ChildByFieldName("argument"); arg != nil && arg.Kind() == "identifier" {
				return parser.NodeText(arg, source)
			}
		}
	}
	return ""
}

// calleeTextCPP returns the full text of a call's function expression.
func calleeTextCPP(call *tree_sitter.Node, source []byte) string {
	fnNode := call.ChildByFieldName("function")
	if fnNode == nil {
		return ""
	}
	return parser.NodeText(fnNode, source)
}

// templateArgument extracts T from make_unique<T>/make_shared<T>.
func templateArgument(call *tree_sitter.Node, source []byte) string {
	fnNode := call.ChildByFieldName("function")
	if fnNode == nil {
		return ""
	}
	list := parser.DescendantByKind(fnNode, "template_argument_list")
	if list == nil {
		return ""
	}
	text := parser.NodeText(list, source)
	text = strings.TrimPrefix(text, "<")
	text = strings.TrimSuffix(text, ">")
	return baseName(strings.TrimSpace(text))
}

// cppArgTexts returns the raw argument texts of a call_expression.
func cppArgTexts(call *tree_sitter.Node, source []byte) []string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	return listTexts(args, source)
}

func listTexts(list *tree_sitter.Node, source []byte) []string {
	var out []string
	for i := uint(0); i < list.NamedChildCount(); i++ {
		if a := list.NamedChild(i); a != nil {
			out = append(out, parser.NodeText(a, source))
		}
	}
	return out
}

// leftmostIdentifier digs through pointer/reference declarators to the
// declared name.
func leftmostIdentifier(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	if id := parser.DescendantByKind(node, "identifier"); id != nil {
		return parser.NodeText(id, source)
	}
	return ""
}

// baseName strips namespace qualifiers: std::Foo -> Foo.
func baseName(name string) string {
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		return name[idx+2:]
	}
	return name
}

// isFactoryName reports whether a callee looks like a factory function.
func isFactoryName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "create") || strings.HasPrefix(lower, "make")
}
