package model

import (
	"testing"
	"time"
)

func sortSample() []TreeNode {
	big := NewDirNode("big", KindDir)
	big.AddChild(&FileNode{Name: "x", Size: 300, Kind: KindFile})
	small := NewDirNode("small", KindDir)
	small.AddChild(&FileNode{Name: "y", Size: 10, Kind: KindFile})

	return []TreeNode{
		&FileNode{Name: "file10", Size: 200, Mtime: time.Unix(200, 0), Kind: KindFile},
		big,
		&FileNode{Name: "file2", Size: 50, Mtime: time.Unix(300, 0), Kind: KindFile},
		small,
	}
}

func names(nodes []TreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.GetName()
	}
	return out
}

func assertOrder(t *testing.T, got []TreeNode, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("order = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("order = %v, want %v", g, want)
		}
	}
}

func TestSortBySizeDirsFirst(t *testing.T) {
	nodes := sortSample()
	SortChildren(nodes, DefaultSort())
	assertOrder(t, nodes, "big", "small", "file10", "file2")
}

func TestSortBySizeAscending(t *testing.T) {
	nodes := sortSample()
	SortChildren(nodes, SortConfig{Field: SortBySize, Order: SortAsc, DirsFirst: false})
	assertOrder(t, nodes, "small", "file2", "file10", "big")
}

func TestSortByNameNatural(t *testing.T) {
	nodes := sortSample()
	SortChildren(nodes, SortConfig{Field: SortByName, Order: SortAsc, DirsFirst: false})
	// Natural ordering puts file2 before file10.
	assertOrder(t, nodes, "big", "file2", "file10", "small")
}

func TestSortByMtime(t *testing.T) {
	nodes := []TreeNode{
		&FileNode{Name: "old", Mtime: time.Unix(100, 0), Kind: KindFile},
		&FileNode{Name: "new", Mtime: time.Unix(900, 0), Kind: KindFile},
	}
	SortChildren(nodes, SortConfig{Field: SortByMtime, Order: SortDesc, DirsFirst: false})
	assertOrder(t, nodes, "new", "old")
}

func TestSortByItems(t *testing.T) {
	many := NewDirNode("many", KindDir)
	many.AddChild(&FileNode{Name: "a", Kind: KindFile})
	many.AddChild(&FileNode{Name: "b", Kind: KindFile})
	few := NewDirNode("few", KindDir)
	few.AddChild(&FileNode{Name: "c", Kind: KindFile})

	nodes := []TreeNode{few, many}
	SortChildren(nodes, SortConfig{Field: SortByItems, Order: SortDesc, DirsFirst: true})
	assertOrder(t, nodes, "many", "few")
}

func TestSortStable(t *testing.T) {
	a := &FileNode{Name: "a", Size: 10, Kind: KindFile}
	b := &FileNode{Name: "b", Size: 10, Kind: KindFile}
	nodes := []TreeNode{a, b}
	SortChildren(nodes, SortConfig{Field: SortBySize, Order: SortDesc, DirsFirst: false})
	assertOrder(t, nodes, "a", "b")
}
