package callflow

import (
	"log/slog"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/parser"
	"github.com/flowgraph-io/flowgraph/internal/pysrc"
)

// DefaultMaxDepth bounds recursion when the caller does not choose one.
// The depth bound is mandatory: it is the only guard against unbounded
// expansion through mutual recursion spread across many files.
const DefaultMaxDepth = 10

// Extractor builds call graphs from Python sources. Each Extractor owns its
// file index; independent extractors never share mutable state.
type Extractor struct {
	ix       *pysrc.Index
	maxDepth int
}

// New creates an Extractor rooted at projectRoot. maxDepth <= 0 selects
// DefaultMaxDepth.
func New(projectRoot string, maxDepth int) (*Extractor, error) {
	ix, err := pysrc.NewIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Extractor{ix: ix, maxDepth: maxDepth}, nil
}

// Close releases all cached parse trees.
func (e *Extractor) Close() {
	e.ix.Close()
}

// Extract builds the call graph rooted at functionName in filePath.
// functionName accepts "func" and "Class.method" forms. Returns (nil, nil)
// when the entry symbol cannot be located or the file is unreadable —
// "no graph" is an answer, not an error.
func (e *Extractor) Extract(filePath, functionName string) (*CallGraph, error) {
	file, err := e.ix.FileOf(filePath)
	if err != nil {
		slog.Warn("extract.unavailable", "file", filePath, "err", err)
		return nil, nil
	}
	entry := file.Lookup(functionName)
	if entry == nil {
		slog.Warn("extract.entry_missing", "file", filePath, "function", functionName)
		return nil, nil
	}

	s := &session{
		ix:       e.ix,
		graph:    NewCallGraph(e.maxDepth),
		expanded: make(map[string]bool),
	}

	node := s.nodeFor(file, entry, 0)
	node.IsEntryPoint = true
	s.graph.EntryPoint = node.ID

	s.expand(file, entry, 0, []string{node.ID})

	if len(e.ix.Errors) > 0 {
		failed := make([]string, 0, len(e.ix.Errors))
		for _, fe := range e.ix.Errors {
			failed = append(failed, fe.Error())
		}
		s.graph.Diagnostics["file_errors"] = failed
	}

	slog.Info("extract.done",
		"entry", functionName,
		"nodes", len(s.graph.Nodes),
		"edges", len(s.graph.Edges),
		"ignored", len(s.graph.IgnoredCalls),
		"unresolved", len(s.graph.UnresolvedCalls))
	return s.graph, nil
}

// session carries the state of one extraction run.
type session struct {
	ix    *pysrc.Index
	graph *CallGraph
	// expanded marks symbol IDs whose bodies have been walked, so a
	// diamond-shaped graph emits each body's edges exactly once.
	expanded map[string]bool
}

// callTarget is the outcome of resolving one call expression.
type callTarget struct {
	status   ResolutionStatus
	callType CallType
	file     *pysrc.File
	fn       *pysrc.Function // nil for a class-definition target
	class    *pysrc.Class    // constructor target without __init__
	module   string          // dotted module, for ignored classification
}

// expand walks fn's body, resolves every call expression, and recurses into
// resolved project targets. stack holds the symbol IDs on the current path
// from the entry point: a target already on the stack is a true cycle, while
// a target seen only on a sibling branch is re-linked without being flagged.
func (s *session) expand(file *pysrc.File, fn *pysrc.Function, depth int, stack []string) {
	sourceID := stack[len(stack)-1]
	if s.expanded[sourceID] {
		return
	}
	s.expanded[sourceID] = true

	body := fn.Body()
	if body == nil {
		return
	}

	scope := AnalyzeScope(fn, file, s.ix)

	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "call" {
			return true
		}
		s.handleCall(node, file, fn, scope, depth, stack)
		return true // nested calls in arguments are call sites too
	})
}

// handleCall resolves one call site and updates the graph.
func (s *session) handleCall(call *tree_sitter.Node, file *pysrc.File, encl *pysrc.Function, scope *ScopeInfo, depth int, stack []string) {
	expr := parser.NodeText(call, file.Source)
	line := parser.Line(call)

	tgt := s.resolve(call, file, encl, scope)

	switch tgt.status {
	case ResolvedProject:
		s.linkResolved(call, file, expr, line, tgt, depth, stack)
	case IgnoredBuiltin, IgnoredStdlib, IgnoredThirdParty:
		s.graph.IgnoredCalls = append(s.graph.IgnoredCalls, IgnoredCall{
			Expression: expr,
			Line:       line,
			Reason:     tgt.status,
			Module:     tgt.module,
		})
	default:
		s.graph.UnresolvedCalls = append(s.graph.UnresolvedCalls, expr)
	}
}

// linkResolved adds the node and edge for a resolved call and recurses
// unless a cycle or the depth bound stops it.
func (s *session) linkResolved(call *tree_sitter.Node, file *pysrc.File, expr string, line int, tgt callTarget, depth int, stack []string) {
	sourceID := stack[len(stack)-1]

	var targetID string
	if tgt.fn != nil {
		targetID = s.symbolID(tgt.file, tgt.fn)
	} else {
		targetID = s.classSymbolID(tgt.file, tgt.class)
	}

	// Per-branch cycle detection: only the current path counts.
	onPath := false
	for _, id := range stack {
		if id == targetID {
			onPath = true
			break
		}
	}
	if onPath {
		s.graph.addCycle(strings.Join(append(stack, targetID), " -> "))
		s.addEdge(sourceID, targetID, line, expr, tgt, call, file)
		return
	}

	targetDepth := depth + 1
	if targetDepth > s.graph.MaxDepth {
		s.graph.MaxDepthReached = true
		return
	}

	if tgt.fn != nil {
		node := s.nodeFor(tgt.file, tgt.fn, targetDepth)
		s.addEdge(sourceID, targetID, line, expr, tgt, call, file)
		s.expand(tgt.file, tgt.fn, targetDepth, append(stack, node.ID))
		return
	}

	// Class without __init__: terminal node, nothing to expand.
	s.classNodeFor(tgt.file, tgt.class, targetDepth)
	s.addEdge(sourceID, targetID, line, expr, tgt, call, file)
}

func (s *session) addEdge(sourceID, targetID string, line int, expr string, tgt callTarget, call *tree_sitter.Node, file *pysrc.File) {
	s.graph.Edges = append(s.graph.Edges, &CallEdge{
		SourceID:     sourceID,
		TargetID:     targetID,
		CallSiteLine: line,
		CallType:     tgt.callType,
		Arguments:    callArguments(call, file.Source),
		Expression:   expr,
		Resolution:   tgt.status,
	})
}

// resolve classifies a call expression. Resolution order, first match wins:
//
//	a. self.method()         — enclosing class only (no inheritance walk)
//	b. direct same-file call — functions, then classes (constructor)
//	c. imported name         — stdlib/third-party short-circuit or project file
//	d. receiver.method()     — import receiver, static class, or scope-inferred type
//	e. builtins / unresolved fallback
func (s *session) resolve(call *tree_sitter.Node, file *pysrc.File, encl *pysrc.Function, scope *ScopeInfo) callTarget {
	fnNode := call.ChildByFieldName("function")
	if fnNode == nil {
		return callTarget{status: Unresolved, callType: CallDirect}
	}

	switch fnNode.Kind() {
	case "identifier":
		return s.resolveBareName(parser.NodeText(fnNode, file.Source), file)
	case "attribute":
		return s.resolveAttribute(fnNode, file, encl, scope)
	default:
		return callTarget{status: Unresolved, callType: CallDirect}
	}
}

// resolveBareName handles f(...) where f is a plain identifier.
func (s *session) resolveBareName(name string, file *pysrc.File) callTarget {
	if fn, ok := file.Functions[name]; ok {
		return callTarget{status: ResolvedProject, callType: CallDirect, file: file, fn: fn}
	}
	if cls, ok := file.Classes[name]; ok {
		return s.constructorTarget(file, cls)
	}
	if imp, ok := file.Imports[name]; ok {
		return s.resolveImportedName(imp, name, file)
	}
	if pysrc.IsBuiltin(name) {
		return callTarget{status: IgnoredBuiltin, callType: CallDirect}
	}
	return callTarget{status: Unresolved, callType: CallDirect}
}

// resolveImportedName follows an import to a project file or classifies it
// as stdlib/third-party.
func (s *session) resolveImportedName(imp pysrc.Import, name string, file *pysrc.File) callTarget {
	targetFile := s.fileForImport(imp, file)
	if targetFile == nil {
		return s.classifyExternal(imp, CallDirect)
	}
	symbol := imp.Symbol
	if symbol == "" {
		symbol = name
	}
	if fn, ok := targetFile.Functions[symbol]; ok {
		return callTarget{status: ResolvedProject, callType: CallDirect, file: targetFile, fn: fn}
	}
	if cls, ok := targetFile.Classes[symbol]; ok {
		return s.constructorTarget(targetFile, cls)
	}
	return callTarget{status: Unresolved, callType: CallDirect}
}

// resolveAttribute handles receiver.method(...) calls.
func (s *session) resolveAttribute(attr *tree_sitter.Node, file *pysrc.File, encl *pysrc.Function, scope *ScopeInfo) callTarget {
	objNode := attr.ChildByFieldName("object")
	methodNode := attr.ChildByFieldName("attribute")
	if objNode == nil || methodNode == nil {
		return callTarget{status: Unresolved, callType: CallMethod}
	}
	method := parser.NodeText(methodNode, file.Source)

	// super().method() — inherited methods are not walked in v1.
	if objNode.Kind() == "call" {
		if inner := objNode.ChildByFieldName("function"); inner != nil &&
			inner.Kind() == "identifier" && parser.NodeText(inner, file.Source) == "super" {
			return callTarget{status: Unresolved, callType: CallSuper}
		}
	}

	if objNode.Kind() != "identifier" {
		// Chained receivers (a.b.c()): classify by the leftmost name when
		// it is an imported module, otherwise give up.
		if leftmost := parser.DescendantByKind(objNode, "identifier"); leftmost != nil {
			obj := parser.NodeText(leftmost, file.Source)
			if imp, ok := file.Imports[obj]; ok && imp.Symbol == "" {
				if s.fileForImport(imp, file) == nil {
					return s.classifyExternal(imp, CallModuleAttr)
				}
			}
		}
		return callTarget{status: Unresolved, callType: CallMethod}
	}

	obj := parser.NodeText(objNode, file.Source)

	// self.method(): enclosing class only. Methods defined on a base class
	// stay unresolved — a known v1 gap, preserved deliberately.
	if obj == "self" {
		if encl.Class != nil {
			if m, ok := encl.Class.Methods[method]; ok {
				return callTarget{status: ResolvedProject, callType: CallMethod, file: file, fn: m}
			}
		}
		return callTarget{status: Unresolved, callType: CallMethod}
	}

	// Imported module receiver: mod.func()
	if imp, ok := file.Imports[obj]; ok && imp.Symbol == "" {
		targetFile := s.fileForImport(imp, file)
		if targetFile == nil {
			return s.classifyExternal(imp, CallModuleAttr)
		}
		if fn, fok := targetFile.Functions[method]; fok {
			return callTarget{status: ResolvedProject, callType: CallModuleAttr, file: targetFile, fn: fn}
		}
		if cls, cok := targetFile.Classes[method]; cok {
			return s.constructorTarget(targetFile, cls)
		}
		return callTarget{status: Unresolved, callType: CallModuleAttr}
	}

	// Static call on a same-file or imported class: ClassName.method()
	if tgt, ok := s.resolveStatic(obj, method, file); ok {
		return tgt
	}

	// Receiver type from scope inference.
	if t := scope.Resolve(obj); t != nil {
		return s.resolveTypedReceiver(t, method, file)
	}

	return callTarget{status: Unresolved, callType: CallMethod}
}

// resolveStatic handles ClassName.method() for classes visible in the file.
func (s *session) resolveStatic(obj, method string, file *pysrc.File) (callTarget, bool) {
	if cls, ok := file.Classes[obj]; ok {
		if m, mok := cls.Methods[method]; mok {
			return callTarget{status: ResolvedProject, callType: CallStatic, file: file, fn: m}, true
		}
		return callTarget{status: Unresolved, callType: CallStatic}, true
	}
	if imp, ok := file.Imports[obj]; ok && imp.Symbol != "" && isUpperName(obj) {
		targetFile := s.fileForImport(imp, file)
		if targetFile == nil {
			return s.classifyExternal(imp, CallStatic), true
		}
		if cls, cok := targetFile.Classes[imp.Symbol]; cok {
			if m, mok := cls.Methods[method]; mok {
				return callTarget{status: ResolvedProject, callType: CallStatic, file: targetFile, fn: m}, true
			}
			return callTarget{status: Unresolved, callType: CallStatic}, true
		}
	}
	return callTarget{}, false
}

// resolveTypedReceiver finds t.Name's class and looks the method up on it,
// following the type's defining module when it is not local.
func (s *session) resolveTypedReceiver(t *TypeInfo, method string, file *pysrc.File) callTarget {
	classFile := file
	cls := file.Classes[t.Name]

	if cls == nil {
		imp, ok := file.Imports[t.Name]
		if !ok && t.Module != "" {
			imp = pysrc.Import{Module: t.Module, Symbol: t.Name}
			ok = true
		}
		if !ok {
			return callTarget{status: Unresolved, callType: CallMethod}
		}
		targetFile := s.fileForImport(imp, file)
		if targetFile == nil {
			return s.classifyExternal(imp, CallMethod)
		}
		classFile = targetFile
		cls = targetFile.Classes[t.Name]
	}

	if cls == nil {
		return callTarget{status: Unresolved, callType: CallMethod}
	}
	if m, ok := cls.Methods[method]; ok {
		return callTarget{status: ResolvedProject, callType: CallMethod, file: classFile, fn: m}
	}
	return callTarget{status: Unresolved, callType: CallMethod}
}

// constructorTarget resolves a class call to its __init__ when present,
// else to the class definition itself.
func (s *session) constructorTarget(file *pysrc.File, cls *pysrc.Class) callTarget {
	if cls.Init != nil {
		return callTarget{status: ResolvedProject, callType: CallConstructor, file: file, fn: cls.Init}
	}
	return callTarget{status: ResolvedProject, callType: CallConstructor, file: file, class: cls}
}

// classifyExternal maps an unresolvable import to stdlib or third-party.
func (s *session) classifyExternal(imp pysrc.Import, ct CallType) callTarget {
	if pysrc.IsStdlibModule(imp.Module) {
		return callTarget{status: IgnoredStdlib, callType: ct, module: imp.Module}
	}
	return callTarget{status: IgnoredThirdParty, callType: ct, module: imp.Module}
}

// fileForImport loads the project file behind an import, or nil when the
// module is external or unreadable.
func (s *session) fileForImport(imp pysrc.Import, from *pysrc.File) *pysrc.File {
	path := s.ix.ResolveModuleFrom(imp.Module, from.Path)
	if path == "" {
		return nil
	}
	f, err := s.ix.FileOf(path)
	if err != nil {
		return nil
	}
	return f
}

// nodeFor returns the CallNode for a function definition, creating it on
// first sight. Depth is recorded at creation and kept on re-visits.
func (s *session) nodeFor(file *pysrc.File, fn *pysrc.Function, depth int) *CallNode {
	id := s.symbolID(file, fn)
	if node, ok := s.graph.Nodes[id]; ok {
		return node
	}
	kind := KindFunction
	if fn.Class != nil {
		kind = KindMethod
	}
	node := &CallNode{
		ID:            id,
		Name:          fn.Name,
		QualifiedName: qualify(file.RelPath, fn.QualifiedName()),
		FilePath:      file.RelPath,
		Line:          parser.Line(fn.Node),
		Column:        parser.Column(fn.Node),
		Kind:          kind,
		Depth:         depth,
		Docstring:     fn.Docstring,
		Resolution:    ResolvedProject,
		Complexity:    Complexity(fn.Node, file.Source),
		LOC:           parser.EndLine(fn.Node) - parser.Line(fn.Node) + 1,
	}
	s.graph.Nodes[id] = node
	return node
}

// classNodeFor returns the CallNode for a class definition target.
func (s *session) classNodeFor(file *pysrc.File, cls *pysrc.Class, depth int) *CallNode {
	id := s.classSymbolID(file, cls)
	if node, ok := s.graph.Nodes[id]; ok {
		return node
	}
	node := &CallNode{
		ID:            id,
		Name:          cls.Name,
		QualifiedName: qualify(file.RelPath, cls.Name),
		FilePath:      file.RelPath,
		Line:          parser.Line(cls.Node),
		Column:        parser.Column(cls.Node),
		Kind:          KindClass,
		Depth:         depth,
		Resolution:    ResolvedProject,
		LOC:           parser.EndLine(cls.Node) - parser.Line(cls.Node) + 1,
	}
	s.graph.Nodes[id] = node
	return node
}

func (s *session) symbolID(file *pysrc.File, fn *pysrc.Function) string {
	kind := KindFunction
	if fn.Class != nil {
		kind = KindMethod
	}
	return SymbolID(file.RelPath, parser.Line(fn.Node), parser.Column(fn.Node), kind, fn.Name)
}

func (s *session) classSymbolID(file *pysrc.File, cls *pysrc.Class) string {
	return SymbolID(file.RelPath, parser.Line(cls.Node), parser.Column(cls.Node), KindClass, cls.Name)
}

// callArguments extracts the raw argument texts of a call.
func callArguments(call *tree_sitter.Node, source []byte) []string {
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

// moduleQN converts a relative path into a dotted module name:
// "pkg/stages.py" -> "pkg.stages"; package __init__ files collapse to the
// package itself.
func moduleQN(relPath string) string {
	qn := strings.TrimSuffix(relPath, ".py")
	qn = strings.TrimSuffix(qn, "/__init__")
	if qn == "__init__" {
		qn = ""
	}
	return strings.ReplaceAll(qn, "/", ".")
}

// qualify prefixes a symbol with its module, skipping the prefix for files
// at the root package level.
func qualify(relPath, symbol string) string {
	if qn := moduleQN(relPath); qn != "" {
		return qn + "." + symbol
	}
	return symbol
}

// isUpperName reports whether a name starts with an uppercase letter.
func isUpperName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
