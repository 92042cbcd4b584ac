package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowgraph-io/flowgraph/internal/compose"
	"github.com/flowgraph-io/flowgraph/internal/instgraph"
	"github.com/flowgraph-io/flowgraph/internal/store"
)

// countingExtract builds a trivial one-node graph and counts invocations.
type countingExtract struct {
	calls int
}

func (c *countingExtract) extract(sourceFile, functionName string) (*instgraph.InstanceGraph, []string, error) {
	c.calls++
	g := instgraph.NewBuilder(nil).Build(&compose.CompositionRoot{
		FilePath:     sourceFile,
		FunctionName: functionName,
		Instances:    []compose.InstanceInfo{{Name: "gen", TypeName: "Generator"}},
	})
	return g, []string{sourceFile}, nil
}

func writeSource(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestService(t *testing.T, root string, ex *countingExtract, st *store.Store) *Service {
	t.Helper()
	s, err := New(root, Options{Extract: ex.extract, Store: st})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGetGraph_CachedWhileUnchanged(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "def main():\n    pass\n")
	ex := &countingExtract{}
	s := newTestService(t, root, ex, nil)

	first, err := s.GetGraph(src, "main", false)
	if err != nil || first == nil {
		t.Fatalf("first get: %v, %v", first, err)
	}
	second, err := s.GetGraph(src, "main", false)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("unchanged file must return the cached graph instance")
	}
	if ex.calls != 1 {
		t.Fatalf("extractor calls: want 1, got %d", ex.calls)
	}
}

func TestGetGraph_ReextractsOnMtimeAdvance(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "def main():\n    pass\n")
	ex := &countingExtract{}
	s := newTestService(t, root, ex, nil)

	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(src, future, future); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if ex.calls != 2 {
		t.Fatalf("mtime advance must re-extract: want 2 calls, got %d", ex.calls)
	}

	// Equal-or-earlier mtime stays valid (clock-resolution ties tolerated).
	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if ex.calls != 2 {
		t.Fatalf("unchanged mtime must hit cache: got %d calls", ex.calls)
	}
}

func TestGetGraph_ForceRefresh(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "def main():\n    pass\n")
	ex := &countingExtract{}
	s := newTestService(t, root, ex, nil)

	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetGraph(src, "main", true); err != nil {
		t.Fatal(err)
	}
	if ex.calls != 2 {
		t.Fatalf("force refresh must bypass cache: got %d calls", ex.calls)
	}
}

func TestGetGraph_ExtractorFailureIsNil(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "x = 1\n")
	s, err := New(root, Options{Extract: func(string, string) (*instgraph.InstanceGraph, []string, error) {
		return nil, nil, nil
	}})
	if err != nil {
		t.Fatal(err)
	}

	g, err := s.GetGraph(src, "main", false)
	if err != nil || g != nil {
		t.Fatalf("no-graph must be nil,nil: got %v, %v", g, err)
	}
}

func TestOnFilesChanged(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "def main():\n    pass\n")
	other := writeSource(t, root, "other.py", "def main():\n    pass\n")
	ex := &countingExtract{}
	s := newTestService(t, root, ex, nil)

	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetGraph(other, "main", false); err != nil {
		t.Fatal(err)
	}

	result := s.OnFilesChanged([]string{src, filepath.Join(root, "notes.txt")})

	if len(result.Invalidated) != 1 {
		t.Fatalf("want 1 invalidated key, got %v", result.Invalidated)
	}
	if result.FilesChanged["python"] != 1 {
		t.Errorf("python files changed: want 1, got %d", result.FilesChanged["python"])
	}
	if _, ok := result.FilesChanged["txt"]; ok {
		t.Error("untracked extensions must not be counted")
	}
	if s.CachedCount() != 1 {
		t.Errorf("one entry must survive, got %d", s.CachedCount())
	}

	// The invalidated graph re-extracts on next access.
	calls := ex.calls
	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if ex.calls != calls+1 {
		t.Error("invalidated entry must re-extract on access")
	}
}

func TestOnFilesChanged_EagerRefresh(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "def main():\n    pass\n")
	ex := &countingExtract{}
	s, err := New(root, Options{Extract: ex.extract, EagerRefresh: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	result := s.OnFilesChanged([]string{src})

	if len(result.Refreshed) != 1 {
		t.Fatalf("eager refresh: want 1 refreshed, got %v", result.Refreshed)
	}
	if ex.calls != 2 {
		t.Errorf("eager refresh must re-extract immediately: got %d calls", ex.calls)
	}
	if s.CachedCount() != 1 {
		t.Errorf("refreshed entry must be cached, got %d", s.CachedCount())
	}
}

func TestPersistence_RoundTripAndStaleDrop(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "app.py", "def main():\n    pass\n")
	stale := writeSource(t, root, "stale.py", "def main():\n    pass\n")

	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ex := &countingExtract{}
	s := newTestService(t, root, ex, st)
	if _, err := s.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetGraph(stale, "main", false); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAll(); err != nil {
		t.Fatal(err)
	}

	// Touch one source forward; its persisted record is now stale.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(stale, future, future); err != nil {
		t.Fatal(err)
	}

	ex2 := &countingExtract{}
	restored := newTestService(t, root, ex2, st)
	if err := restored.LoadPersisted(); err != nil {
		t.Fatal(err)
	}

	if restored.CachedCount() != 1 {
		t.Fatalf("want 1 restored entry (stale dropped), got %d", restored.CachedCount())
	}
	// The fresh entry serves from cache without re-extracting.
	if _, err := restored.GetGraph(src, "main", false); err != nil {
		t.Fatal(err)
	}
	if ex2.calls != 0 {
		t.Errorf("restored entry must not re-extract: got %d calls", ex2.calls)
	}
}
