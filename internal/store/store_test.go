package store

import (
	"testing"
	"time"
)

func sampleRecord(id string) *GraphRecord {
	return &GraphRecord{
		ID:               id,
		ProjectPath:      "/proj",
		SourceFile:       "pipeline.py",
		FunctionName:     "main",
		AnalyzedAt:       time.Unix(0, 1000),
		SourceModifiedAt: time.Unix(0, 900),
		NodeCount:        3,
		EdgeCount:        2,
		DependsOn:        []string{"/proj/pipeline.py"},
		GraphData:        []byte(`{"nodes":{}}`),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SaveGraph(sampleRecord("g1")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveGraph(sampleRecord("g2")); err != nil {
		t.Fatal(err)
	}

	recs, err := s.LoadGraphs("/proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	var g1 *GraphRecord
	for _, r := range recs {
		if r.ID == "g1" {
			g1 = r
		}
	}
	if g1 == nil {
		t.Fatal("g1 missing")
	}
	if g1.SourceFile != "pipeline.py" || g1.NodeCount != 3 || g1.EdgeCount != 2 {
		t.Errorf("record fields lost: %+v", g1)
	}
	if !g1.SourceModifiedAt.Equal(time.Unix(0, 900)) {
		t.Errorf("mtime lost: %v", g1.SourceModifiedAt)
	}
	if len(g1.DependsOn) != 1 || g1.DependsOn[0] != "/proj/pipeline.py" {
		t.Errorf("depends_on lost: %v", g1.DependsOn)
	}
	if string(g1.GraphData) != `{"nodes":{}}` {
		t.Errorf("graph data lost: %s", g1.GraphData)
	}
}

func TestSaveGraph_Replace(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SaveGraph(sampleRecord("g1")); err != nil {
		t.Fatal(err)
	}
	updated := sampleRecord("g1")
	updated.NodeCount = 7
	if err := s.SaveGraph(updated); err != nil {
		t.Fatal(err)
	}

	recs, err := s.LoadGraphs("/proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].NodeCount != 7 {
		t.Fatalf("replace failed: %+v", recs)
	}
}

func TestDelete(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SaveGraph(sampleRecord("g1")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteGraph("g1"); err != nil {
		t.Fatal(err)
	}
	recs, err := s.LoadGraphs("/proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("want empty after delete, got %d", len(recs))
	}
}

func TestCorruptRecordSkipped(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SaveGraph(sampleRecord("good")); err != nil {
		t.Fatal(err)
	}
	// Bypass SaveGraph to plant an unparseable depends_on payload.
	if _, err := s.q.Exec(`
		INSERT INTO graphs (id, project_path, source_file, function_name,
			analyzed_at, source_modified_at, node_count, edge_count, depends_on, graph_data)
		VALUES ('bad', '/proj', 'x.py', 'main', 0, 0, 0, 0, 'not-json', '{}')`); err != nil {
		t.Fatal(err)
	}

	recs, err := s.LoadGraphs("/proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "good" {
		t.Fatalf("corrupt record must be skipped, got %+v", recs)
	}
}

func TestWithTransaction_Rollback(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	wantErr := s.WithTransaction(func(tx *Store) error {
		if err := tx.SaveGraph(sampleRecord("g1")); err != nil {
			return err
		}
		return errAbort
	})
	if wantErr != errAbort {
		t.Fatalf("want errAbort, got %v", wantErr)
	}
	recs, err := s.LoadGraphs("/proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatal("rolled-back write must not persist")
	}
}

var errAbort = errTest("abort")

type errTest string

func (e errTest) Error() string { return string(e) }
