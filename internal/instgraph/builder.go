package instgraph

import (
	"strings"

	"github.com/google/uuid"

	"github.com/flowgraph-io/flowgraph/internal/compose"
)

// TypeLocator resolves a type name to its definition location. Nil results
// are expected for unknown types.
type TypeLocator interface {
	Resolve(typeName string) *compose.Location
}

// Builder converts a flat CompositionRoot into a normalized InstanceGraph.
// It exclusively owns node and edge creation during Build.
type Builder struct {
	locator TypeLocator
	// typeCache holds per-builder resolution results, including negative
	// entries, so each type name is resolved at most once.
	typeCache map[string]*compose.Location
}

// NewBuilder creates a Builder. locator may be nil; type locations are then
// left unset.
func NewBuilder(locator TypeLocator) *Builder {
	return &Builder{
		locator:   locator,
		typeCache: make(map[string]*compose.Location),
	}
}

// Build runs the deterministic single pass: nodes, type locations, edges,
// then role inference over the final adjacency.
func (b *Builder) Build(root *compose.CompositionRoot) *InstanceGraph {
	g := NewInstanceGraph(root.FilePath, root.FunctionName)
	g.Lifecycle = root.Lifecycle

	for i := range root.Instances {
		inst := &root.Instances[i]
		node := &InstanceNode{
			ID:              uuid.NewString(),
			Name:            inst.Name,
			TypeName:        inst.TypeName,
			ActualType:      inst.ActualType,
			Role:            RoleUnknown,
			CreationPattern: inst.CreationPattern,
			FactoryName:     inst.FactoryName,
			ConstructorArgs: inst.ConstructorArgs,
			IsPointer:       inst.IsPointer,
			PointerType:     inst.PointerType,
			Location:        inst.Location,
		}
		if symbol := typeSymbol(inst); symbol != "" {
			node.TypeLocation = b.resolveType(symbol)
			if node.TypeName == "" {
				node.TypeName = symbol
			}
		}
		g.AddNode(node)
	}

	for _, w := range root.Wiring {
		sourceID, sok := g.NameToID[w.Source]
		targetID, tok := g.NameToID[w.Target]
		if !sok || !tok {
			// Best-effort extraction, not validation: dangling wiring is
			// dropped silently.
			continue
		}
		g.AddEdge(&WiringEdge{
			ID:         uuid.NewString(),
			SourceID:   sourceID,
			TargetID:   targetID,
			Method:     w.Method,
			WiringType: w.WiringType,
			Location:   w.Location,
		})
	}

	g.RecomputeRoles()
	return g
}

// typeSymbol picks the symbol to resolve for an instance: actual type first,
// declared type next, then a guess stripped from the factory name.
func typeSymbol(inst *compose.InstanceInfo) string {
	if inst.ActualType != "" {
		return inst.ActualType
	}
	if inst.TypeName != "" {
		return inst.TypeName
	}
	if inst.FactoryName != "" {
		return stripFactoryPrefix(inst.FactoryName)
	}
	return ""
}

// stripFactoryPrefix turns create_foo / makeWidget into foo / Widget.
func stripFactoryPrefix(factory string) string {
	for _, prefix := range []string{"create_", "make_", "create", "make"} {
		if rest, ok := strings.CutPrefix(factory, prefix); ok && rest != "" {
			return rest
		}
	}
	return factory
}

// resolveType resolves one type name through the locator, caching both hits
// and misses for the life of the builder.
func (b *Builder) resolveType(typeName string) *compose.Location {
	if loc, ok := b.typeCache[typeName]; ok {
		return loc
	}
	var loc *compose.Location
	if b.locator != nil {
		loc = b.locator.Resolve(typeName)
	}
	b.typeCache[typeName] = loc
	return loc
}
