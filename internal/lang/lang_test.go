package lang

import "testing"

func TestForExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want Language
	}{
		{".py", Python},
		{".cpp", CPP},
		{".hpp", CPP},
		{".cc", CPP},
	}
	for _, tc := range cases {
		spec := ForExtension(tc.ext)
		if spec == nil || spec.Language != tc.want {
			t.Errorf("ForExtension(%s): want %s, got %v", tc.ext, tc.want, spec)
		}
	}
	if ForExtension(".rs") != nil {
		t.Error("unsupported extension must return nil")
	}
}

func TestForLanguage(t *testing.T) {
	for _, l := range AllLanguages() {
		spec := ForLanguage(l)
		if spec == nil {
			t.Fatalf("no spec for %s", l)
		}
		if len(spec.FileExtensions) == 0 || len(spec.CallNodeTypes) == 0 {
			t.Errorf("%s spec incomplete: %+v", l, spec)
		}
	}
}

func TestPythonBranchingExcludesLoops(t *testing.T) {
	spec := ForLanguage(Python)
	for _, kind := range spec.BranchingNodeTypes {
		if kind == "for_statement" || kind == "while_statement" {
			t.Errorf("loops must not count as decision points, found %s", kind)
		}
	}
}
