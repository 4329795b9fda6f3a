package tree_test

import (
	"reflect"
	"testing"

	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/tree"
)

func TestBuildScenario(t *testing.T) {
	keys := []string{"src/Main.java", "src/Utils.java", "README.md", ".sync/lock", "src/tmp.partial"}

	nodes := tree.BuildSorted(keys, filetype.DefaultReserved)

	if len(nodes) != 2 {
		t.Fatalf("expected 2 top level nodes, got %d", len(nodes))
	}

	src := nodes[0]
	if src.Type != tree.Folder || src.Name != "src" || src.Path != "src" {
		t.Fatalf("unexpected first node %+v", src)
	}

	if len(src.Children) != 2 {
		t.Fatalf("expected 2 children in src, got %d", len(src.Children))
	}

	if src.Children[0].Path != "src/Main.java" || src.Children[1].Path != "src/Utils.java" {
		t.Fatalf("unexpected src children %+v %+v", src.Children[0], src.Children[1])
	}

	if readme := nodes[1]; readme.Type != tree.File || readme.Path != "README.md" || readme.Children != nil {
		t.Fatalf("unexpected readme node %+v", readme)
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	a := []string{"b/c/d.txt", "a.txt", "b/e.txt", "b/c/a.txt", "z/y.txt"}
	b := []string{"z/y.txt", "b/c/a.txt", "b/e.txt", "a.txt", "b/c/d.txt"}

	ta := tree.BuildSorted(a, filetype.DefaultReserved)
	tb := tree.BuildSorted(b, filetype.DefaultReserved)

	if !reflect.DeepEqual(ta, tb) {
		t.Fatalf("tree depends on input order")
	}

	var paths []string
	tree.Walk(ta, func(n *tree.FileNode) { paths = append(paths, n.Path) })

	want := []string{"b", "b/c", "b/c/a.txt", "b/c/d.txt", "b/e.txt", "z", "z/y.txt", "a.txt"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("walk order = %v, want %v", paths, want)
	}
}

func TestBuildDedupAndPlaceholders(t *testing.T) {
	nodes := tree.BuildSorted([]string{"docs/", "docs/a.md", "docs/a.md", "empty/"}, filetype.Reserved{})

	if len(nodes) != 2 {
		t.Fatalf("expected docs and empty, got %d nodes", len(nodes))
	}

	if len(nodes[0].Children) != 1 {
		t.Fatalf("duplicate key produced %d children", len(nodes[0].Children))
	}

	if nodes[1].Name != "empty" || nodes[1].Type != tree.Folder || len(nodes[1].Children) != 0 {
		t.Fatalf("unexpected placeholder node %+v", nodes[1])
	}
}
