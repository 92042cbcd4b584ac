package pysrc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Index owns the per-session file cache for one extraction run. Parsed files
// and their derived tables (definitions, imports, return types) are computed
// once per path and reused. The cache lives on the Index instance — never in
// package state — so concurrent extraction sessions are independent.
type Index struct {
	root  string // absolute project root
	files map[string]*File

	// Errors collects per-file parse/read failures. A failed file
	// contributes nothing; the run continues.
	Errors []FileError
}

// FileError records a single file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// NewIndex creates an Index rooted at the given project directory.
func NewIndex(root string) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	return &Index{root: abs, files: make(map[string]*File)}, nil
}

// Root returns the absolute project root.
func (ix *Index) Root() string {
	return ix.root
}

// FileOf returns the parsed index for a source file, loading and caching it
// on first use. A file that previously failed is not retried within the
// session.
func (ix *Index) FileOf(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if f, ok := ix.files[abs]; ok {
		if f == nil {
			return nil, fmt.Errorf("file previously failed: %s", abs)
		}
		return f, nil
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		ix.files[abs] = nil
		ix.Errors = append(ix.Errors, FileError{Path: abs, Err: err})
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	f, err := buildFile(abs, ix.relPath(abs), source)
	if err != nil {
		ix.files[abs] = nil
		ix.Errors = append(ix.Errors, FileError{Path: abs, Err: err})
		return nil, fmt.Errorf("parse %s: %w", abs, err)
	}
	ix.files[abs] = f
	return f, nil
}

// ResolveModule maps a dotted module path to a project source file:
// "a.b" -> <root>/a/b.py, or <root>/a/b/__init__.py for packages.
// Returns "" when the module does not exist under the root — the caller
// classifies it as stdlib or third-party instead.
func (ix *Index) ResolveModule(module string) string {
	if module == "" || strings.HasPrefix(module, ".") {
		return ix.resolveRelative(module)
	}
	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))

	asFile := filepath.Join(ix.root, rel+".py")
	if fileExists(asFile) {
		return asFile
	}
	asPackage := filepath.Join(ix.root, rel, "__init__.py")
	if fileExists(asPackage) {
		return asPackage
	}
	return ""
}

// ResolveModuleFrom resolves a module path relative to the importing file's
// directory first, then falls back to root-relative resolution. Matches
// Python's package-local import behavior for flat projects.
func (ix *Index) ResolveModuleFrom(module, fromFile string) string {
	if strings.HasPrefix(module, ".") {
		return ix.resolveRelativeTo(module, filepath.Dir(fromFile))
	}
	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))
	local := filepath.Join(filepath.Dir(fromFile), rel+".py")
	if fileExists(local) {
		return local
	}
	localPkg := filepath.Join(filepath.Dir(fromFile), rel, "__init__.py")
	if fileExists(localPkg) {
		return localPkg
	}
	return ix.ResolveModule(module)
}

// resolveRelative handles bare relative modules against the root.
func (ix *Index) resolveRelative(module string) string {
	return ix.resolveRelativeTo(module, ix.root)
}

// resolveRelativeTo resolves ".mod" / "..pkg.mod" style paths from a base dir.
func (ix *Index) resolveRelativeTo(module, baseDir string) string {
	dots := 0
	for dots < len(module) && module[dots] == '.' {
		dots++
	}
	dir := baseDir
	for i := 1; i < dots; i++ {
		dir = filepath.Dir(dir)
	}
	remainder := module[dots:]
	if remainder == "" {
		init := filepath.Join(dir, "__init__.py")
		if fileExists(init) {
			return init
		}
		return ""
	}
	rel := filepath.FromSlash(strings.ReplaceAll(remainder, ".", "/"))
	asFile := filepath.Join(dir, rel+".py")
	if fileExists(asFile) {
		return asFile
	}
	asPackage := filepath.Join(dir, rel, "__init__.py")
	if fileExists(asPackage) {
		return asPackage
	}
	return ""
}

// relPath converts an absolute path to a slash-separated root-relative path.
func (ix *Index) relPath(abs string) string {
	rel, err := filepath.Rel(ix.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Close releases all cached parse trees.
func (ix *Index) Close() {
	for _, f := range ix.files {
		if f != nil {
			f.Close()
		}
	}
	ix.files = make(map[string]*File)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
