package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/flowgraph-io/flowgraph/internal/compose"
	"github.com/flowgraph-io/flowgraph/internal/instgraph"
	"github.com/flowgraph-io/flowgraph/internal/lang"
	"github.com/flowgraph-io/flowgraph/internal/store"
	"github.com/flowgraph-io/flowgraph/internal/typeloc"
)

// ExtractFunc produces an instance graph for one composition root, along
// with the absolute source paths the result depends on. A (nil, nil, nil)
// return means "no graph could be produced" and is not an error.
type ExtractFunc func(sourceFile, functionName string) (*instgraph.InstanceGraph, []string, error)

// Options configures a Service. Zero values select the bundled extractors
// and no persistence.
type Options struct {
	Store        *store.Store
	Extract      ExtractFunc
	EagerRefresh bool
}

// entry is one cached graph plus the state needed to validate it.
type entry struct {
	key        uint64
	sourceFile string // absolute
	relPath    string
	function   string
	graph      *instgraph.InstanceGraph
	mtime      time.Time // source mtime at build time
	analyzedAt time.Time
	deps       []string
}

// Service caches instance graphs keyed by (project root, source file,
// function), validates entries against source modification times, persists
// them across restarts, and invalidates on file-change notifications.
//
// The cache and its dependency index are the only shared mutable state; a
// single mutex serializes the read-check-then-write sequence in GetGraph.
// Two callers racing on a cold key may both extract; extraction is a pure
// function of file content, so the last writer wins harmlessly.
type Service struct {
	root    string
	extract ExtractFunc
	st      *store.Store
	eager   bool

	mu    sync.Mutex
	cache map[uint64]*entry
	// deps maps an absolute source path to the cache keys depending on it.
	deps map[string]map[uint64]bool
}

// New creates a Service for the given project root.
func New(root string, opts Options) (*Service, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	s := &Service{
		root:    abs,
		extract: opts.Extract,
		st:      opts.Store,
		eager:   opts.EagerRefresh,
		cache:   make(map[uint64]*entry),
		deps:    make(map[string]map[uint64]bool),
	}
	if s.extract == nil {
		s.extract = DefaultExtractor(abs)
	}
	return s, nil
}

// DefaultExtractor wires the bundled composition extractors and graph
// builder for a project root. The type-location resolver is shared across
// calls so the header index is built once.
func DefaultExtractor(root string) ExtractFunc {
	locator := typeloc.NewResolver(root)
	return func(sourceFile, functionName string) (*instgraph.InstanceGraph, []string, error) {
		extractor := compose.ForFile(sourceFile)
		if extractor == nil || !extractor.Available() {
			return nil, nil, nil
		}
		compRoot, err := extractor.Extract(sourceFile, functionName)
		if err != nil {
			return nil, nil, err
		}
		if compRoot == nil {
			return nil, nil, nil
		}
		graph := instgraph.NewBuilder(locator).Build(compRoot)

		deps := []string{sourceFile}
		seen := map[string]bool{sourceFile: true}
		for _, n := range graph.Nodes {
			if n.TypeLocation != nil && !seen[n.TypeLocation.FilePath] {
				seen[n.TypeLocation.FilePath] = true
				deps = append(deps, n.TypeLocation.FilePath)
			}
		}
		return graph, deps, nil
	}
}

// Key returns the stable cache key for (root, relative path, function).
func (s *Service) Key(relPath, functionName string) uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(s.root)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(relPath)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(functionName)
	return h.Sum64()
}

// GetGraph returns the instance graph for a composition root, from cache
// when the source file is unchanged. A cached graph is valid iff the file's
// current mtime is not strictly after the mtime recorded at build time.
// forceRefresh bypasses validity. Returns (nil, nil) when no graph can be
// produced.
func (s *Service) GetGraph(sourceFile, functionName string, forceRefresh bool) (*instgraph.InstanceGraph, error) {
	abs, err := filepath.Abs(sourceFile)
	if err != nil {
		return nil, err
	}
	rel := s.relPath(abs)
	key := s.Key(rel, functionName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.cache[key]; ok && !forceRefresh {
		if info, err := os.Stat(abs); err == nil && !info.ModTime().After(ent.mtime) {
			return ent.graph, nil
		}
		slog.Debug("service.cache_stale", "file", rel, "function", functionName)
	}
	return s.extractLocked(key, abs, rel, functionName)
}

// extractLocked re-extracts one graph and installs it in the cache. Caller
// holds s.mu.
func (s *Service) extractLocked(key uint64, abs, rel, functionName string) (*instgraph.InstanceGraph, error) {
	var mtime time.Time
	if info, err := os.Stat(abs); err == nil {
		mtime = info.ModTime()
	}

	graph, deps, err := s.extract(abs, functionName)
	if err != nil {
		slog.Warn("service.extract_failed", "file", rel, "function", functionName, "err", err)
		return nil, nil
	}
	if graph == nil {
		s.evictLocked(key)
		return nil, nil
	}

	s.installLocked(&entry{
		key:        key,
		sourceFile: abs,
		relPath:    rel,
		function:   functionName,
		graph:      graph,
		mtime:      mtime,
		analyzedAt: time.Now(),
		deps:       deps,
	})
	return graph, nil
}

// installLocked stores an entry and indexes its dependencies.
func (s *Service) installLocked(ent *entry) {
	s.evictLocked(ent.key)
	s.cache[ent.key] = ent
	for _, dep := range ent.deps {
		if s.deps[dep] == nil {
			s.deps[dep] = make(map[uint64]bool)
		}
		s.deps[dep][ent.key] = true
	}
}

// evictLocked removes an entry and its dependency index rows.
func (s *Service) evictLocked(key uint64) {
	ent, ok := s.cache[key]
	if !ok {
		return
	}
	delete(s.cache, key)
	for _, dep := range ent.deps {
		if keys := s.deps[dep]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.deps, dep)
			}
		}
	}
}

// CachedCount returns the number of live cache entries.
func (s *Service) CachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// ChangeResult summarizes the effect of a file-change notification.
type ChangeResult struct {
	Invalidated  []string       `json:"invalidated"`
	Refreshed    []string       `json:"refreshed"`
	FilesChanged map[string]int `json:"files_changed"` // per language
}

// OnFilesChanged drops every cached graph depending on one of the changed
// paths. Only files whose extension belongs to a tracked language count.
// With EagerRefresh, invalidated graphs are re-extracted immediately.
func (s *Service) OnFilesChanged(paths []string) ChangeResult {
	result := ChangeResult{FilesChanged: make(map[string]int)}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*entry
	for _, path := range paths {
		language, tracked := lang.LanguageForExtension(filepath.Ext(path))
		if !tracked {
			continue
		}
		result.FilesChanged[string(language)]++

		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		for key := range s.deps[abs] {
			if ent, ok := s.cache[key]; ok {
				stale = append(stale, ent)
			}
		}
	}

	for _, ent := range stale {
		s.evictLocked(ent.key)
		result.Invalidated = append(result.Invalidated, entryID(ent.key))
		if s.eager {
			if graph, _ := s.extractLocked(ent.key, ent.sourceFile, ent.relPath, ent.function); graph != nil {
				result.Refreshed = append(result.Refreshed, entryID(ent.key))
			}
		}
	}
	if len(result.Invalidated) > 0 {
		slog.Info("service.invalidated",
			"count", len(result.Invalidated),
			"refreshed", len(result.Refreshed))
	}
	return result
}

func (s *Service) relPath(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func entryID(key uint64) string {
	return fmt.Sprintf("%016x", key)
}
