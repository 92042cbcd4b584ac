package typeloc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flowgraph-io/flowgraph/internal/compose"
	"github.com/flowgraph-io/flowgraph/internal/lang"
)

// declPattern matches class and struct definitions at declaration position.
var declPattern = regexp.MustCompile(`^[ \t]*(?:class|struct)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// skipDirs are directory names never scanned for type definitions.
var skipDirs = map[string]bool{
	"build":        true,
	"dist":         true,
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"target":       true,
}

// FileError records one definition file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Resolver maps type names to their definition locations by scanning
// header/definition files under the project root. The index is built lazily
// on the first Resolve call; lookups afterwards hit the in-memory cache,
// negative results included.
type Resolver struct {
	root string

	mu    sync.Mutex
	built bool
	index map[string]compose.Location
	cache map[string]*compose.Location
	errs  []FileError
}

// NewResolver creates a Resolver for the given project root. No IO happens
// until the first Resolve call.
func NewResolver(root string) *Resolver {
	return &Resolver{
		root:  root,
		index: make(map[string]compose.Location),
		cache: make(map[string]*compose.Location),
	}
}

// Resolve returns the definition location for a type name, or nil when no
// definition exists under the root.
func (r *Resolver) Resolve(typeName string) *compose.Location {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.built {
		r.buildIndex()
		r.built = true
	}
	if loc, ok := r.cache[typeName]; ok {
		return loc
	}
	var loc *compose.Location
	if found, ok := r.index[typeName]; ok {
		found := found
		loc = &found
	}
	r.cache[typeName] = loc
	return loc
}

// Diagnostics returns the per-file read failures collected while building
// the index.
func (r *Resolver) Diagnostics() []FileError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FileError(nil), r.errs...)
}

// buildIndex scans all definition files once. Files are scanned in parallel
// but merged in path order, so the first definition of a name wins
// deterministically.
func (r *Resolver) buildIndex() {
	paths := r.definitionFiles()
	sort.Strings(paths)

	type fileHits struct {
		hits []struct {
			name string
			loc  compose.Location
		}
		err error
	}
	results := make([]fileHits, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			source, err := os.ReadFile(path)
			if err != nil {
				results[i].err = err
				return nil
			}
			for lineNo, line := range strings.Split(string(source), "\n") {
				m := declPattern.FindStringSubmatchIndex(line)
				if m == nil {
					continue
				}
				name := line[m[2]:m[3]]
				results[i].hits = append(results[i].hits, struct {
					name string
					loc  compose.Location
				}{name, compose.Location{FilePath: path, Line: lineNo + 1, Column: m[2]}})
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if res.err != nil {
			r.errs = append(r.errs, FileError{Path: paths[i], Err: res.err})
			continue
		}
		for _, h := range res.hits {
			if _, exists := r.index[h.name]; !exists {
				r.index[h.name] = h.loc
			}
		}
	}
}

// definitionFiles lists the header/definition files under the root,
// skipping hidden and build directories.
func (r *Resolver) definitionFiles() []string {
	exts := make(map[string]bool)
	for _, language := range lang.AllLanguages() {
		spec := lang.ForLanguage(language)
		if spec == nil {
			continue
		}
		for _, ext := range spec.HeaderExtensions {
			exts[ext] = true
		}
	}

	var paths []string
	_ = filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.errs = append(r.errs, FileError{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != r.root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if exts[filepath.Ext(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}
