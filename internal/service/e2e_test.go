package service

import (
	"path/filepath"
	"testing"

	"github.com/flowgraph-io/flowgraph/internal/callflow"
	"github.com/flowgraph-io/flowgraph/internal/instgraph"
)

// The bundled pipeline sample wires gen -> proc -> out via set_next and
// starts the generator. The full path (composition extractor, builder,
// service cache) must reproduce that shape.
func TestEndToEnd_PythonPipeline(t *testing.T) {
	root, err := filepath.Abs("../../testdata/python_pipeline")
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	g, err := s.GetGraph(filepath.Join(root, "pipeline.py"), "main", false)
	if err != nil {
		t.Fatal(err)
	}
	if g == nil {
		t.Fatal("no graph produced for sample pipeline")
	}

	if len(g.Nodes) != 3 {
		t.Fatalf("nodes: want 3, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 2 {
		t.Fatalf("edges: want 2, got %d", len(g.Edges))
	}
	wantRoles := map[string]instgraph.InstanceRole{
		"gen":  instgraph.RoleSource,
		"proc": instgraph.RoleProcessing,
		"out":  instgraph.RoleSink,
	}
	for name, role := range wantRoles {
		n := g.NodeByName(name)
		if n == nil {
			t.Fatalf("missing instance %s", name)
		}
		if n.Role != role {
			t.Errorf("%s role: want %s, got %s", name, role, n.Role)
		}
	}
	if isolated := g.FindIsolated(); len(isolated) != 0 {
		t.Errorf("want zero isolated nodes, got %d", len(isolated))
	}

	// Type definitions live in the sample itself.
	gen := g.NodeByName("gen")
	if gen.TypeLocation == nil || filepath.Base(gen.TypeLocation.FilePath) != "pipeline.py" {
		t.Errorf("Generator type location: got %+v", gen.TypeLocation)
	}

	// Second call serves from cache.
	again, err := s.GetGraph(filepath.Join(root, "pipeline.py"), "main", false)
	if err != nil {
		t.Fatal(err)
	}
	if again != g {
		t.Error("unchanged sample must be served from cache")
	}
}

func TestEndToEnd_CallGraphSample(t *testing.T) {
	// Generator.start -> emit -> process chain through the sample classes.
	root, err := filepath.Abs("../../testdata/python_pipeline")
	if err != nil {
		t.Fatal(err)
	}
	e, err := callflow.New(root, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	g, err := e.Extract(filepath.Join(root, "pipeline.py"), "Generator.start")
	if err != nil {
		t.Fatal(err)
	}
	if g == nil {
		t.Fatal("no call graph for Generator.start")
	}
	entry := g.Node(g.EntryPoint)
	if entry == nil || entry.QualifiedName != "pipeline.Generator.start" {
		t.Fatalf("entry: got %+v", entry)
	}
	emit := false
	for _, n := range g.Nodes {
		if n.Name == "emit" {
			emit = true
		}
	}
	if !emit {
		t.Error("self.emit() not expanded from start")
	}
}
