package callflow

import (
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/parser"
	"github.com/flowgraph-io/flowgraph/internal/pysrc"
)

// TypeSource identifies how a variable's type was inferred. Sources carry a
// fixed confidence; a recorded type is never overwritten by a
// lower-confidence source.
type TypeSource string

const (
	SourceParameter  TypeSource = "parameter"   // confidence 1.0
	SourceAnnotation TypeSource = "annotation"  // confidence 1.0
	SourceCtor       TypeSource = "constructor" // confidence 0.9
	SourceReturnType TypeSource = "return_type" // confidence 0.8
)

// TypeInfo is one inferred type for a name in scope.
type TypeInfo struct {
	Name       string
	Module     string // dotted module for imported types, "" for local
	FilePath   string // defining file when known
	Confidence float64
	Source     TypeSource
}

// ScopeInfo holds the inferred types for one function body.
type ScopeInfo struct {
	Variables  map[string]TypeInfo
	Parameters map[string]TypeInfo
}

// Resolve looks a name up: parameters shadow body variables. Returns nil
// when the type is unknown — the caller must treat that as unresolved,
// never guess.
func (s *ScopeInfo) Resolve(name string) *TypeInfo {
	if t, ok := s.Parameters[name]; ok {
		return &t
	}
	if t, ok := s.Variables[name]; ok {
		return &t
	}
	return nil
}

// setVariable records a type unless an equal-or-higher confidence entry
// already exists.
func (s *ScopeInfo) setVariable(name string, t TypeInfo) {
	if existing, ok := s.Variables[name]; ok && existing.Confidence >= t.Confidence {
		return
	}
	s.Variables[name] = t
}

// AnalyzeScope infers local variable and parameter types for a function
// body. Priority order (later steps never downgrade an existing entry):
//
//  1. parameter annotations          (1.0)
//  2. annotated local declarations   (1.0)
//  3. constructor-call assignments   (0.9)
//  4. known return-type assignments  (0.8)
func AnalyzeScope(fn *pysrc.Function, file *pysrc.File, ix *pysrc.Index) *ScopeInfo {
	scope := &ScopeInfo{
		Variables:  make(map[string]TypeInfo),
		Parameters: make(map[string]TypeInfo),
	}

	collectParameterTypes(fn, file, scope)

	body := fn.Body()
	if body == nil {
		return scope
	}

	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment" {
			return true
		}
		collectAssignment(node, fn, file, ix, scope)
		return false
	})

	return scope
}

// collectParameterTypes extracts annotated parameters (step 1).
func collectParameterTypes(fn *pysrc.Function, file *pysrc.File, scope *ScopeInfo) {
	params := fn.Node.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}
		var nameNode, typeNode *tree_sitter.Node
		switch p.Kind() {
		case "typed_parameter", "typed_default_parameter":
			typeNode = p.ChildByFieldName("type")
			nameNode = p.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = parser.ChildByKind(p, "identifier")
			}
		default:
			continue
		}
		if nameNode == nil || typeNode == nil {
			continue
		}
		typeName := BaseType(parser.NodeText(typeNode, file.Source))
		if !isClassLike(typeName) {
			continue
		}
		name := parser.NodeText(nameNode, file.Source)
		scope.Parameters[name] = TypeInfo{
			Name:       typeName,
			Module:     importedModule(typeName, file),
			Confidence: 1.0,
			Source:     SourceParameter,
		}
	}
}

// collectAssignment handles one assignment statement (steps 2-4).
func collectAssignment(node *tree_sitter.Node, fn *pysrc.Function, file *pysrc.File, ix *pysrc.Index, scope *ScopeInfo) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	varName := parser.NodeText(left, file.Source)

	// Annotated declaration: x: Foo = ... or bare x: Foo
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		typeName := BaseType(parser.NodeText(typeNode, file.Source))
		if isClassLike(typeName) {
			scope.setVariable(varName, TypeInfo{
				Name:       typeName,
				Module:     importedModule(typeName, file),
				Confidence: 1.0,
				Source:     SourceAnnotation,
			})
			return
		}
	}

	right := node.ChildByFieldName("right")
	if right == nil || right.Kind() != "call" {
		return
	}
	callee := calleeText(right, file.Source)
	if callee == "" {
		return
	}

	// Constructor call: x = ClassName(...)
	base := lastSegment(callee)
	if isClassLike(base) {
		scope.setVariable(varName, TypeInfo{
			Name:       base,
			Module:     importedModule(base, file),
			Confidence: 0.9,
			Source:     SourceCtor,
		})
		return
	}

	// Known return type: x = make_thing() where make_thing is annotated.
	if rt := lookupReturnType(callee, fn, file, ix); rt != "" {
		typeName := BaseType(rt)
		if isClassLike(typeName) {
			scope.setVariable(varName, TypeInfo{
				Name:       typeName,
				Module:     importedModule(typeName, file),
				Confidence: 0.8,
				Source:     SourceReturnType,
			})
		}
	}
}

// lookupReturnType finds the annotated return type of a called function:
// same file first, then cross-file via the import table. Results come from
// the per-file return-type cache, so each file is parsed at most once.
func lookupReturnType(callee string, fn *pysrc.Function, file *pysrc.File, ix *pysrc.Index) string {
	// self.helper() -> method of the enclosing class
	if rest, ok := strings.CutPrefix(callee, "self."); ok && fn.Class != nil {
		return file.ReturnTypes[fn.Class.Name+"."+rest]
	}

	if rt, ok := file.ReturnTypes[callee]; ok {
		return rt
	}

	// Imported function: from mod import make_thing
	if imp, ok := file.Imports[callee]; ok && imp.Symbol != "" {
		if target := resolveImportedFile(imp, file, ix); target != nil {
			return target.ReturnTypes[imp.Symbol]
		}
	}

	// Module attribute: mod.make_thing()
	if modName, rest, ok := strings.Cut(callee, "."); ok {
		if imp, impOK := file.Imports[modName]; impOK && imp.Symbol == "" {
			if target := resolveImportedFile(imp, file, ix); target != nil {
				return target.ReturnTypes[rest]
			}
		}
	}
	return ""
}

// resolveImportedFile loads the project file behind an import, or nil for
// stdlib/third-party/unreadable modules.
func resolveImportedFile(imp pysrc.Import, from *pysrc.File, ix *pysrc.Index) *pysrc.File {
	path := ix.ResolveModuleFrom(imp.Module, from.Path)
	if path == "" {
		return nil
	}
	target, err := ix.FileOf(path)
	if err != nil {
		return nil
	}
	return target
}

// importedModule returns the module a type name was imported from, if any.
func importedModule(typeName string, file *pysrc.File) string {
	if imp, ok := file.Imports[typeName]; ok {
		return imp.Module
	}
	return ""
}

// BaseType reduces a type annotation to its base class name:
//
//	Optional[X] -> X
//	Union[X, Y] -> X   (first alternative)
//	X | Y       -> X   (first alternative)
//	List[X]     -> List (container, not element)
//
// Quotes around forward references are stripped.
func BaseType(annotation string) string {
	t := strings.TrimSpace(annotation)
	t = strings.Trim(t, `"'`)

	// PEP 604 unions: first alternative wins.
	if idx := strings.IndexByte(t, '|'); idx >= 0 {
		return BaseType(t[:idx])
	}

	open := strings.IndexByte(t, '[')
	if open < 0 {
		return t
	}
	outer := strings.TrimSpace(t[:open])
	inner := t[open+1:]
	if end := strings.LastIndexByte(inner, ']'); end >= 0 {
		inner = inner[:end]
	}

	switch outer {
	case "Optional", "typing.Optional":
		return BaseType(inner)
	case "Union", "typing.Union":
		if idx := topLevelComma(inner); idx >= 0 {
			inner = inner[:idx]
		}
		return BaseType(inner)
	default:
		// Container annotations resolve to the container itself.
		return lastSegment(outer)
	}
}

// topLevelComma finds the first comma not nested in brackets.
func topLevelComma(s string) int {
	depth := 0
	for i, ch := range s {
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// isClassLike reports whether a name plausibly refers to a class: it must
// start uppercase and not be a builtin or constant-style name.
func isClassLike(name string) bool {
	if name == "" || pysrc.IsBuiltin(name) {
		return false
	}
	switch name {
	case "None", "True", "False", "Any":
		return false
	}
	runes := []rune(name)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// calleeText returns the full text of a call's function expression.
func calleeText(callNode *tree_sitter.Node, source []byte) string {
	fnNode := callNode.ChildByFieldName("function")
	if fnNode == nil {
		return ""
	}
	switch fnNode.Kind() {
	case "identifier", "attribute":
		return parser.NodeText(fnNode, source)
	}
	return ""
}

// lastSegment returns the last dot-separated segment.
func lastSegment(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
