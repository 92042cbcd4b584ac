package callflow

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowgraph-io/flowgraph/internal/pysrc"
)

func scopeFor(t *testing.T, files map[string]string, file, function string) *ScopeInfo {
	t.Helper()
	root := writeProject(t, files)
	ix, err := pysrc.NewIndex(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ix.Close)
	f, err := ix.FileOf(filepath.Join(root, filepath.FromSlash(file)))
	if err != nil {
		t.Fatal(err)
	}
	fn := f.Lookup(function)
	if fn == nil {
		t.Fatalf("function %s not found", function)
	}
	return AnalyzeScope(fn, f, ix)
}

func TestAnalyzeScope_Sources(t *testing.T) {
	scope := scopeFor(t, map[string]string{
		"app.py": strings.Join([]string{
			"class Processor:",
			"    pass",
			"",
			"class Output:",
			"    pass",
			"",
			"def make_output() -> Output:",
			"    return Output()",
			"",
			"def main(proc: Processor):",
			"    annotated: Output = something()",
			"    ctor = Processor()",
			"    ret = make_output()",
			"",
		}, "\n"),
	}, "app.py", "main")

	cases := []struct {
		name       string
		typeName   string
		source     TypeSource
		confidence float64
	}{
		{"proc", "Processor", SourceParameter, 1.0},
		{"annotated", "Output", SourceAnnotation, 1.0},
		{"ctor", "Processor", SourceCtor, 0.9},
		{"ret", "Output", SourceReturnType, 0.8},
	}
	for _, tc := range cases {
		got := scope.Resolve(tc.name)
		if got == nil {
			t.Errorf("%s: no type inferred", tc.name)
			continue
		}
		if got.Name != tc.typeName || got.Source != tc.source || got.Confidence != tc.confidence {
			t.Errorf("%s: want %s/%s/%.1f, got %s/%s/%.1f",
				tc.name, tc.typeName, tc.source, tc.confidence, got.Name, got.Source, got.Confidence)
		}
	}
}

func TestAnalyzeScope_NoDowngrade(t *testing.T) {
	scope := scopeFor(t, map[string]string{
		"app.py": strings.Join([]string{
			"class Foo:",
			"    pass",
			"",
			"class Baz:",
			"    pass",
			"",
			"def main(x: Foo):",
			"    x = Baz()",
			"",
		}, "\n"),
	}, "app.py", "main")

	// Parameter annotation (1.0) must survive the constructor re-assignment
	// (0.9).
	got := scope.Resolve("x")
	if got == nil || got.Name != "Foo" {
		t.Fatalf("want Foo from parameter annotation, got %+v", got)
	}
}

func TestAnalyzeScope_UnknownStaysNil(t *testing.T) {
	scope := scopeFor(t, map[string]string{
		"app.py": strings.Join([]string{
			"def main():",
			"    y = compute()",
			"",
		}, "\n"),
	}, "app.py", "main")

	if got := scope.Resolve("y"); got != nil {
		t.Fatalf("unknown type must resolve to nil, got %+v", got)
	}
}

func TestAnalyzeScope_CrossFileReturnType(t *testing.T) {
	scope := scopeFor(t, map[string]string{
		"app.py": strings.Join([]string{
			"from factory import make_widget",
			"",
			"def main():",
			"    w = make_widget()",
			"",
		}, "\n"),
		"factory.py": strings.Join([]string{
			"class Widget:",
			"    pass",
			"",
			"def make_widget() -> Widget:",
			"    return Widget()",
			"",
		}, "\n"),
	}, "app.py", "main")

	got := scope.Resolve("w")
	if got == nil || got.Name != "Widget" || got.Source != SourceReturnType {
		t.Fatalf("want Widget via imported return type, got %+v", got)
	}
}

func TestBaseType(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Foo", "Foo"},
		{"Optional[Foo]", "Foo"},
		{"typing.Optional[Foo]", "Foo"},
		{"Union[Foo, Bar]", "Foo"},
		{"Union[Dict[str, int], Bar]", "Dict"},
		{"Foo | None", "Foo"},
		{"List[Foo]", "List"},
		{"dict[str, Foo]", "dict"},
		{`"Forward"`, "Forward"},
		{"Optional[Union[Foo, Bar]]", "Foo"},
	}
	for _, tc := range cases {
		if got := BaseType(tc.in); got != tc.want {
			t.Errorf("BaseType(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestIsClassLike(t *testing.T) {
	yes := []string{"Foo", "HTTPClient", "A1"}
	no := []string{"foo", "list", "None", "True", "Any", "", "int"}
	for _, n := range yes {
		if !isClassLike(n) {
			t.Errorf("isClassLike(%q): want true", n)
		}
	}
	for _, n := range no {
		if isClassLike(n) {
			t.Errorf("isClassLike(%q): want false", n)
		}
	}
}
