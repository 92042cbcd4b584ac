package pysrc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func indexFile(t *testing.T, files map[string]string, rel string) (*Index, *File) {
	t.Helper()
	root := t.TempDir()
	for name, src := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ix, err := NewIndex(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ix.Close)
	f, err := ix.FileOf(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return ix, f
}

func TestBuildFile_Definitions(t *testing.T) {
	_, f := indexFile(t, map[string]string{
		"app.py": strings.Join([]string{
			"def standalone() -> int:",
			"    \"\"\"Returns a number.\"\"\"",
			"    return 1",
			"",
			"class Worker:",
			"    def __init__(self, name):",
			"        self.name = name",
			"",
			"    def run(self) -> bool:",
			"        return True",
			"",
			"def outer():",
			"    def inner():",
			"        pass",
			"",
		}, "\n"),
	}, "app.py")

	fn := f.Functions["standalone"]
	if fn == nil {
		t.Fatal("standalone function not indexed")
	}
	if fn.ReturnType != "int" {
		t.Errorf("return type: want int, got %q", fn.ReturnType)
	}
	if fn.Docstring != "Returns a number." {
		t.Errorf("docstring: got %q", fn.Docstring)
	}

	cls := f.Classes["Worker"]
	if cls == nil {
		t.Fatal("class not indexed")
	}
	if cls.Init == nil || cls.Init.Name != "__init__" {
		t.Error("__init__ not recorded")
	}
	run := cls.Method("run")
	if run == nil || run.Class != cls {
		t.Fatal("method run not indexed")
	}
	if run.QualifiedName() != "Worker.run" {
		t.Errorf("qualified name: got %s", run.QualifiedName())
	}
	if f.ReturnTypes["Worker.run"] != "bool" {
		t.Errorf("method return type cache: got %q", f.ReturnTypes["Worker.run"])
	}

	// Nested definitions are not addressable entry points.
	if f.Functions["inner"] != nil {
		t.Error("nested def must not be indexed at module level")
	}
}

func TestLookup(t *testing.T) {
	_, f := indexFile(t, map[string]string{
		"app.py": strings.Join([]string{
			"class Worker:",
			"    def __init__(self):",
			"        pass",
			"",
			"    def run(self):",
			"        pass",
			"",
			"def main():",
			"    pass",
			"",
		}, "\n"),
	}, "app.py")

	if f.Lookup("main") == nil {
		t.Error("bare function lookup failed")
	}
	if got := f.Lookup("Worker.run"); got == nil || got.Name != "run" {
		t.Error("Class.method lookup failed")
	}
	// A bare class name resolves to its constructor.
	if got := f.Lookup("Worker"); got == nil || got.Name != "__init__" {
		t.Error("bare class lookup must return __init__")
	}
	if f.Lookup("absent") != nil || f.Lookup("Worker.absent") != nil {
		t.Error("missing symbols must return nil")
	}
}

func TestParseImports(t *testing.T) {
	_, f := indexFile(t, map[string]string{
		"app.py": strings.Join([]string{
			"import os",
			"import os.path",
			"import numpy as np",
			"from pipeline.stages import Generator, Processor as Proc",
			"from . import sibling",
			"",
		}, "\n"),
	}, "app.py")

	cases := []struct {
		local, module, symbol string
	}{
		{"os", "os", ""},
		{"path", "os.path", ""},
		{"np", "numpy", ""},
		{"Generator", "pipeline.stages", "Generator"},
		{"Proc", "pipeline.stages", "Processor"},
		{"sibling", ".", "sibling"},
	}
	for _, tc := range cases {
		imp, ok := f.Imports[tc.local]
		if !ok {
			t.Errorf("import %s missing", tc.local)
			continue
		}
		if imp.Module != tc.module || imp.Symbol != tc.symbol {
			t.Errorf("import %s: want %s/%s, got %s/%s",
				tc.local, tc.module, tc.symbol, imp.Module, imp.Symbol)
		}
	}
}

func TestResolveModule(t *testing.T) {
	ix, _ := indexFile(t, map[string]string{
		"app.py":          "x = 1\n",
		"pkg/__init__.py": "",
		"pkg/mod.py":      "y = 2\n",
	}, "app.py")

	if got := ix.ResolveModule("pkg.mod"); filepath.Base(got) != "mod.py" {
		t.Errorf("module file: got %q", got)
	}
	if got := ix.ResolveModule("pkg"); filepath.Base(got) != "__init__.py" {
		t.Errorf("package: got %q", got)
	}
	if got := ix.ResolveModule("os"); got != "" {
		t.Errorf("external module must resolve empty, got %q", got)
	}
}

func TestResolveModuleFrom_Relative(t *testing.T) {
	ix, _ := indexFile(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "x = 1\n",
		"pkg/b.py":        "y = 2\n",
	}, "pkg/a.py")

	from := filepath.Join(ix.Root(), "pkg", "a.py")
	if got := ix.ResolveModuleFrom(".b", from); filepath.Base(got) != "b.py" {
		t.Errorf("relative import: got %q", got)
	}
	// Package-local resolution without the leading dot.
	if got := ix.ResolveModuleFrom("b", from); filepath.Base(got) != "b.py" {
		t.Errorf("sibling module: got %q", got)
	}
}

func TestFileOf_FailureRecorded(t *testing.T) {
	ix, _ := indexFile(t, map[string]string{"app.py": "x = 1\n"}, "app.py")

	missing := filepath.Join(ix.Root(), "gone.py")
	if _, err := ix.FileOf(missing); err == nil {
		t.Fatal("want error for missing file")
	}
	if len(ix.Errors) != 1 {
		t.Fatalf("want 1 recorded FileError, got %d", len(ix.Errors))
	}
	// Failed files are not retried within the session.
	if _, err := ix.FileOf(missing); err == nil {
		t.Fatal("second access must still fail")
	}
	if len(ix.Errors) != 1 {
		t.Errorf("failure must be recorded once, got %d", len(ix.Errors))
	}
}

func TestStdlibTables(t *testing.T) {
	if !IsBuiltin("print") || IsBuiltin("mystery") {
		t.Error("builtin table broken")
	}
	if !IsStdlibModule("os") || !IsStdlibModule("os.path") {
		t.Error("stdlib table must match by first segment")
	}
	if IsStdlibModule("requests") {
		t.Error("third-party module misclassified as stdlib")
	}
}
