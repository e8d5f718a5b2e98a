package model

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// buildSample creates:
//
//	root/
//	  a/
//	    f1 (100)
//	    b/
//	      f2 (50)
func buildSample() (root, a, b *DirNode, f1, f2 *FileNode) {
	root = NewRoot()
	a = NewDirNode("a", KindDir)
	b = NewDirNode("b", KindDir)
	f1 = &FileNode{Name: "f1", Size: 100, Kind: KindFile}
	f2 = &FileNode{Name: "f2", Size: 50, Kind: KindFile}

	root.AddChild(a)
	a.AddChild(f1)
	a.AddChild(b)
	b.AddChild(f2)
	return
}

func TestPath(t *testing.T) {
	_, a, b, _, f2 := buildSample()

	if got := a.Path(); got != "a" {
		t.Errorf("a.Path() = %q, want %q", got, "a")
	}
	if got := b.Path(); got != filepath.Join("a", "b") {
		t.Errorf("b.Path() = %q, want %q", got, filepath.Join("a", "b"))
	}
	if got := f2.Path(); got != filepath.Join("a", "b", "f2") {
		t.Errorf("f2.Path() = %q, want %q", got, filepath.Join("a", "b", "f2"))
	}
}

func TestTotals(t *testing.T) {
	root, a, b, _, _ := buildSample()

	at := a.Totals()
	if at.Size != 150 {
		t.Errorf("a size = %d, want 150", at.Size)
	}
	if at.Items != 3 {
		t.Errorf("a items = %d, want 3", at.Items)
	}
	if at.SubDirs != 1 {
		t.Errorf("a subdirs = %d, want 1", at.SubDirs)
	}

	bt := b.Totals()
	if bt.Size != 50 || bt.Items != 1 || bt.SubDirs != 0 {
		t.Errorf("b totals = %+v, want {50 1 0}", bt)
	}

	rt := root.Totals()
	if rt.Size != 150 || rt.Items != 4 || rt.SubDirs != 2 {
		t.Errorf("root totals = %+v, want {150 4 2}", rt)
	}
}

func TestTotalsInvalidation(t *testing.T) {
	_, a, b, _, _ := buildSample()

	if got := a.Totals().Size; got != 150 {
		t.Fatalf("initial a size = %d, want 150", got)
	}

	// Mutating a deep directory must be visible at every ancestor.
	f3 := &FileNode{Name: "f3", Size: 25, Kind: KindFile}
	b.AddChild(f3)
	if got := a.Totals().Size; got != 175 {
		t.Errorf("a size after add = %d, want 175", got)
	}

	if !b.RemoveChild(f3) {
		t.Fatal("RemoveChild(f3) = false, want true")
	}
	if got := a.Totals().Size; got != 150 {
		t.Errorf("a size after remove = %d, want 150", got)
	}
}

func TestTotalsConcurrentAdds(t *testing.T) {
	// A Totals recompute that overlaps an AddChild must not cache a result
	// missing the new child. Run with -race.
	const adds = 500
	dir := NewDirNode("data", KindDir)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				dir.Totals()
			}
		}
	}()

	for i := 0; i < adds; i++ {
		dir.AddChild(&FileNode{Name: fmt.Sprintf("f%d", i), Size: 1, Kind: KindFile})
	}
	close(stop)
	wg.Wait()

	got := dir.Totals()
	if got.Size != adds || got.Items != adds {
		t.Fatalf("totals = %+v after %d adds, want {%d %d 0}", got, adds, adds, adds)
	}
	// The cache must now be clean and stable.
	if again := dir.Totals(); again != got {
		t.Fatalf("repeat totals = %+v, want %+v", again, got)
	}
}

func TestTotalsConcurrentDeepInvalidation(t *testing.T) {
	// Ancestors recompute from child caches; a mutation deep in the tree
	// that lands mid-recompute must leave every ancestor dirty, not stale.
	const adds = 300
	root, a, b, _, _ := buildSample()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, reader := range []*DirNode{root, a} {
		wg.Add(1)
		go func(d *DirNode) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					d.Totals()
				}
			}
		}(reader)
	}

	for i := 0; i < adds; i++ {
		b.AddChild(&FileNode{Name: fmt.Sprintf("g%d", i), Size: 2, Kind: KindFile})
	}
	close(stop)
	wg.Wait()

	want := int64(150 + 2*adds)
	if got := root.Totals().Size; got != want {
		t.Fatalf("root size = %d, want %d", got, want)
	}
	if got := a.Totals().Size; got != want {
		t.Fatalf("a size = %d, want %d", got, want)
	}
}

func TestDetachReattach(t *testing.T) {
	_, a, b, _, _ := buildSample()

	if !a.RemoveChild(b) {
		t.Fatal("RemoveChild(b) = false, want true")
	}
	if got := a.Totals(); got.Size != 100 || got.Items != 1 || got.SubDirs != 0 {
		t.Errorf("a totals after detach = %+v, want {100 1 0}", got)
	}

	a.AddChild(b)
	if got := a.Totals(); got.Size != 150 || got.Items != 3 || got.SubDirs != 1 {
		t.Errorf("a totals after reattach = %+v, want {150 3 1}", got)
	}
}

func TestRemoveChildNotFound(t *testing.T) {
	_, a, b, _, _ := buildSample()

	stray := &FileNode{Name: "stray", Kind: KindFile}
	if a.RemoveChild(stray) {
		t.Error("RemoveChild(stray) = true, want false")
	}
	// b's children must not be touched either.
	if b.ChildCount() != 1 {
		t.Errorf("b child count = %d, want 1", b.ChildCount())
	}
}

func TestEnsureAggregate(t *testing.T) {
	d := NewDirNode("d", KindDir)

	agg, created := d.EnsureAggregate()
	if !created {
		t.Error("first EnsureAggregate: created = false, want true")
	}
	if agg.Name != AggregateName || agg.Kind != KindAggregate {
		t.Errorf("aggregate = %q/%v, want %q/%v", agg.Name, agg.Kind, AggregateName, KindAggregate)
	}

	again, created := d.EnsureAggregate()
	if created {
		t.Error("second EnsureAggregate: created = true, want false")
	}
	if again != agg {
		t.Error("second EnsureAggregate returned a different node")
	}
	if d.Aggregate() != agg {
		t.Error("Aggregate() did not return the attached node")
	}
}

func TestAggregateTotalsTransparent(t *testing.T) {
	d := NewDirNode("d", KindDir)
	sub := NewDirNode("sub", KindDir)
	d.AddChild(sub)

	agg, _ := d.EnsureAggregate()
	agg.AddChild(&FileNode{Name: "f", Size: 10, Kind: KindFile})

	// The aggregate groups files but is not itself an item or subdir.
	got := d.Totals()
	if got.Size != 10 || got.Items != 2 || got.SubDirs != 1 {
		t.Errorf("totals = %+v, want {10 2 1}", got)
	}
}

func TestLocate(t *testing.T) {
	root, a, b, _, f2 := buildSample()

	if got := root.Locate("a", false); got != TreeNode(a) {
		t.Errorf("Locate(a) = %v", got)
	}
	if got := root.Locate("a/b", false); got != TreeNode(b) {
		t.Errorf("Locate(a/b) = %v", got)
	}
	if got := root.Locate("a/b/f2", false); got != TreeNode(f2) {
		t.Errorf("Locate(a/b/f2) = %v", got)
	}
	if got := root.Locate("a/missing", false); got != nil {
		t.Errorf("Locate(a/missing) = %v, want nil", got)
	}
	if got := root.Locate("", false); got != TreeNode(root) {
		t.Errorf("Locate(\"\") = %v, want root", got)
	}
}

func TestLocateThroughAggregate(t *testing.T) {
	root := NewRoot()
	d := NewDirNode("d", KindDir)
	root.AddChild(d)
	d.AddChild(NewDirNode("sub", KindDir))
	agg, _ := d.EnsureAggregate()
	f := &FileNode{Name: "f", Size: 10, Kind: KindFile}
	agg.AddChild(f)

	// Files inside the aggregate resolve as if they were direct children.
	if got := root.Locate("d/f", false); got != TreeNode(f) {
		t.Errorf("Locate(d/f) = %v, want f", got)
	}

	// The aggregate itself is invisible unless asked for.
	if got := root.Locate("d/"+AggregateName, false); got != nil {
		t.Errorf("Locate(d/%s) without includeAggregate = %v, want nil", AggregateName, got)
	}
	if got := root.Locate("d/"+AggregateName, true); got != TreeNode(agg) {
		t.Errorf("Locate(d/%s) with includeAggregate = %v, want aggregate", AggregateName, got)
	}
	if got := root.Locate("d/"+AggregateName+"/f", true); got != TreeNode(f) {
		t.Errorf("Locate(d/%s/f) = %v, want f", AggregateName, got)
	}
}

func TestIsAncestorOf(t *testing.T) {
	root, a, b, _, f2 := buildSample()

	if !root.IsAncestorOf(f2) {
		t.Error("root should be ancestor of f2")
	}
	if !a.IsAncestorOf(a) {
		t.Error("a node is its own ancestor")
	}
	if b.IsAncestorOf(a) {
		t.Error("b must not be ancestor of a")
	}
	if a.IsAncestorOf(nil) {
		t.Error("IsAncestorOf(nil) = true, want false")
	}
}

func TestWalkOrder(t *testing.T) {
	_, a, _, _, _ := buildSample()

	var names []string
	a.Walk(func(n TreeNode) { names = append(names, n.GetName()) })

	want := []string{"f1", "b", "f2"}
	if len(names) != len(want) {
		t.Fatalf("walk visited %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("walk visited %v, want %v", names, want)
		}
	}
}

func TestClearChildren(t *testing.T) {
	_, a, _, _, _ := buildSample()

	detached := a.ClearChildren()
	if len(detached) != 2 {
		t.Fatalf("detached %d children, want 2", len(detached))
	}
	if a.ChildCount() != 0 {
		t.Errorf("child count after clear = %d, want 0", a.ChildCount())
	}
	if got := a.Totals(); got.Size != 0 || got.Items != 0 {
		t.Errorf("totals after clear = %+v, want zero", got)
	}
}

func TestStateTransitions(t *testing.T) {
	d := NewDirNode("d", KindDir)
	if d.State() != ReadPending {
		t.Errorf("new dir state = %v, want pending", d.State())
	}
	d.SetState(ReadReading)
	d.SetState(ReadFinished)
	if d.State() != ReadFinished {
		t.Errorf("state = %v, want finished", d.State())
	}
}

func TestSaturatingAdd(t *testing.T) {
	if got := saturatingAddInt64(maxInt64, 1); got != maxInt64 {
		t.Errorf("saturatingAddInt64(max, 1) = %d, want max", got)
	}
	if got := saturatingAddInt64(minInt64, -1); got != minInt64 {
		t.Errorf("saturatingAddInt64(min, -1) = %d, want min", got)
	}
	if got := saturatingAddInt64(2, 3); got != 5 {
		t.Errorf("saturatingAddInt64(2, 3) = %d, want 5", got)
	}
}

func TestFileNodeAccessors(t *testing.T) {
	now := time.Now()
	f := &FileNode{Name: "f", Size: 7, Mtime: now, Dev: 3, Nlink: 2, Kind: KindFile}

	if f.IsDir() {
		t.Error("file reports IsDir")
	}
	if f.GetSize() != 7 || f.GetDev() != 3 || f.GetNlink() != 2 {
		t.Error("accessor mismatch")
	}
	if !f.GetMtime().Equal(now) {
		t.Error("mtime mismatch")
	}
}
