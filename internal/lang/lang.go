package lang

// Language represents a supported programming language.
type Language string

const (
	Python Language = "python"
	CPP    Language = "cpp"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{Python, CPP}
}

// LanguageSpec defines the tree-sitter node types for a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// HeaderExtensions lists extensions scanned for type definitions
	// (jump-to-definition index). A subset of FileExtensions.
	HeaderExtensions  []string
	FunctionNodeTypes []string
	ClassNodeTypes    []string
	CallNodeTypes     []string
	ImportNodeTypes   []string
	ImportFromTypes   []string

	// BranchingNodeTypes lists AST node kinds counted for the complexity
	// metric. Loop constructs are deliberately absent: loops are not
	// decision points for this metric.
	BranchingNodeTypes  []string
	AssignmentNodeTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".py").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}
