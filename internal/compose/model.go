package compose

import (
	"path/filepath"

	"github.com/flowgraph-io/flowgraph/internal/lang"
)

// CreationPattern classifies how an instance is created inside a
// composition root.
type CreationPattern string

const (
	PatternFactory    CreationPattern = "factory"
	PatternMakeUnique CreationPattern = "make_unique"
	PatternMakeShared CreationPattern = "make_shared"
	PatternDirect     CreationPattern = "direct"
	PatternNew        CreationPattern = "new"
	PatternUnknown    CreationPattern = "unknown"
)

// Location identifies a source position inside the analyzed file.
type Location struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// InstanceInfo is one component instance declared in a composition root.
type InstanceInfo struct {
	Name            string          `json:"name"`
	TypeName        string          `json:"type_name"`
	ActualType      string          `json:"actual_type,omitempty"`
	Location        Location        `json:"location"`
	CreationPattern CreationPattern `json:"creation_pattern"`
	FactoryName     string          `json:"factory_name,omitempty"`
	ConstructorArgs []string        `json:"constructor_args,omitempty"`
	IsPointer       bool            `json:"is_pointer"`
	PointerType     string          `json:"pointer_type,omitempty"`
}

// WiringInfo is one method call connecting two instances, e.g. a.set_next(b).
type WiringInfo struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Method     string   `json:"method"`
	Location   Location `json:"location"`
	WiringType string   `json:"wiring_type,omitempty"`
}

// LifecycleCall is a method call on a single instance that wires nothing,
// e.g. gen.start().
type LifecycleCall struct {
	Instance string   `json:"instance"`
	Method   string   `json:"method"`
	Location Location `json:"location"`
}

// CompositionRoot is the flat extraction result for one root function,
// before graph construction.
type CompositionRoot struct {
	FilePath     string          `json:"file_path"`
	FunctionName string          `json:"function_name"`
	Location     Location        `json:"location"`
	Instances    []InstanceInfo  `json:"instances"`
	Wiring       []WiringInfo    `json:"wiring"`
	Lifecycle    []LifecycleCall `json:"lifecycle"`
}

// Instance returns the declared instance with the given name, or nil.
func (r *CompositionRoot) Instance(name string) *InstanceInfo {
	for i := range r.Instances {
		if r.Instances[i].Name == name {
			return &r.Instances[i]
		}
	}
	return nil
}

// Extractor turns one source file's composition root into a flat
// CompositionRoot. Implementations are language-specific and best-effort:
// a root that cannot be found yields (nil, nil).
type Extractor interface {
	Extract(filePath, functionName string) (*CompositionRoot, error)
	Available() bool
	Language() lang.Language
}

// ForFile picks the bundled extractor matching the file's extension, or nil
// when the language is not supported.
func ForFile(path string) Extractor {
	language, ok := lang.LanguageForExtension(filepath.Ext(path))
	if !ok {
		return nil
	}
	switch language {
	case lang.Python:
		return NewPythonExtractor()
	case lang.CPP:
		return NewCPPExtractor()
	}
	return nil
}
