package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flowgraph-io/flowgraph/internal/instgraph"
	"github.com/flowgraph-io/flowgraph/internal/store"
)

// SaveAll persists every cached graph in one transaction. Called on
// shutdown; it must complete before the cache is torn down. A nil store
// makes this a no-op.
func (s *Service) SaveAll() error {
	if s.st == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st.WithTransaction(func(tx *store.Store) error {
		for _, ent := range s.cache {
			data, err := ent.graph.ToJSON()
			if err != nil {
				return fmt.Errorf("serialize %s: %w", ent.relPath, err)
			}
			rec := &store.GraphRecord{
				ID:               entryID(ent.key),
				ProjectPath:      s.root,
				SourceFile:       ent.relPath,
				FunctionName:     ent.function,
				AnalyzedAt:       ent.analyzedAt,
				SourceModifiedAt: ent.mtime,
				NodeCount:        len(ent.graph.Nodes),
				EdgeCount:        len(ent.graph.Edges),
				DependsOn:        ent.deps,
				GraphData:        data,
			}
			if err := tx.SaveGraph(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPersisted restores persisted graphs into the cache, revalidating each
// against the live source mtime. Stale or corrupt entries are dropped
// silently; they never fail startup.
func (s *Service) LoadPersisted() error {
	if s.st == nil {
		return nil
	}
	recs, err := s.st.LoadGraphs(s.root)
	if err != nil {
		return fmt.Errorf("load persisted graphs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, rec := range recs {
		abs := filepath.Join(s.root, filepath.FromSlash(rec.SourceFile))
		info, err := os.Stat(abs)
		if err != nil || info.ModTime().After(rec.SourceModifiedAt) {
			slog.Debug("service.persisted_stale", "file", rec.SourceFile, "function", rec.FunctionName)
			_ = s.st.DeleteGraph(rec.ID)
			continue
		}
		graph, err := instgraph.FromJSON(rec.GraphData)
		if err != nil {
			slog.Warn("service.persisted_corrupt", "id", rec.ID, "err", err)
			_ = s.st.DeleteGraph(rec.ID)
			continue
		}
		s.installLocked(&entry{
			key:        s.Key(rec.SourceFile, rec.FunctionName),
			sourceFile: abs,
			relPath:    rec.SourceFile,
			function:   rec.FunctionName,
			graph:      graph,
			mtime:      rec.SourceModifiedAt,
			analyzedAt: rec.AnalyzedAt,
			deps:       rec.DependsOn,
		})
		restored++
	}
	slog.Info("service.restored", "count", restored, "dropped", len(recs)-restored)
	return nil
}
