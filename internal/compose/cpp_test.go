package compose

import "testing"

const cppSample = "../../testdata/cpp_pipeline/main.cpp"

func TestCPPExtract_PipelineSample(t *testing.T) {
	e := NewCPPExtractor()
	root, err := e.Extract(cppSample, "main")
	if err != nil {
		t.Fatal(err)
	}
	if root == nil {
		t.Fatal("no composition root found in sample")
	}

	if len(root.Instances) != 3 {
		t.Fatalf("instances: want 3, got %d (%+v)", len(root.Instances), root.Instances)
	}

	gen := root.Instance("gen")
	if gen == nil || gen.TypeName != "Generator" || gen.CreationPattern != PatternMakeUnique {
		t.Fatalf("gen: got %+v", gen)
	}
	if !gen.IsPointer || gen.PointerType != "unique_ptr" {
		t.Errorf("gen pointer info: got %+v", gen)
	}

	proc := root.Instance("proc")
	if proc == nil || proc.TypeName != "Processor" || proc.CreationPattern != PatternMakeShared {
		t.Fatalf("proc: got %+v", proc)
	}
	if proc.PointerType != "shared_ptr" {
		t.Errorf("proc pointer type: got %s", proc.PointerType)
	}

	out := root.Instance("out")
	if out == nil || out.TypeName != "Output" || out.CreationPattern != PatternNew {
		t.Fatalf("out: got %+v", out)
	}
	if !out.IsPointer || out.PointerType != "raw" {
		t.Errorf("out pointer info: got %+v", out)
	}

	if len(root.Wiring) != 2 {
		t.Fatalf("wiring: want 2, got %+v", root.Wiring)
	}
	if w := root.Wiring[0]; w.Source != "gen" || w.Target != "proc" || w.Method != "setNext" {
		t.Errorf("first wiring: got %+v", w)
	}
	if w := root.Wiring[1]; w.Source != "proc" || w.Target != "out" {
		t.Errorf("second wiring: got %+v", w)
	}

	if len(root.Lifecycle) != 1 || root.Lifecycle[0].Instance != "gen" || root.Lifecycle[0].Method != "start" {
		t.Errorf("lifecycle: want gen->start(), got %+v", root.Lifecycle)
	}
}
