package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flowgraph-io/flowgraph/internal/lang"
)

func TestParsePython(t *testing.T) {
	src := []byte("def f():\n    return 1\n")
	tree, err := Parse(lang.Python, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	fn := DescendantByKind(tree.RootNode(), "function_definition")
	if fn == nil {
		t.Fatal("function_definition not found")
	}
	if Line(fn) != 1 || Column(fn) != 0 {
		t.Errorf("position: want 1:0, got %d:%d", Line(fn), Column(fn))
	}
	if EndLine(fn) != 2 {
		t.Errorf("end line: want 2, got %d", EndLine(fn))
	}
	name := fn.ChildByFieldName("name")
	if name == nil || NodeText(name, src) != "f" {
		t.Error("function name extraction failed")
	}
}

func TestParseCPP(t *testing.T) {
	src := []byte("int main() { return 0; }\n")
	tree, err := Parse(lang.CPP, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if DescendantByKind(tree.RootNode(), "function_definition") == nil {
		t.Fatal("cpp function_definition not found")
	}
}

func TestParseUnsupported(t *testing.T) {
	if _, err := Parse(lang.Language("rust"), []byte("fn main() {}")); err == nil {
		t.Fatal("want error for unsupported language")
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	src := []byte("def f():\n    g()\n")
	tree, err := Parse(lang.Python, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	calls := 0
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "call" {
			calls++
		}
		return n.Kind() != "function_definition" // do not descend into bodies
	})
	if calls != 0 {
		t.Errorf("walk must honor skip, saw %d calls", calls)
	}
}
