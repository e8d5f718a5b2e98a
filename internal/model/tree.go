package model

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// AggregateName is the conventional name of the pseudo-child that groups a
// directory's non-directory entries.
const AggregateName = "<Files>"

// NodeKind classifies a tree node.
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindDir
	// KindRoot is the invisible pseudo root holding the toplevel scanned paths.
	KindRoot
	// KindAggregate is the synthetic <Files> child; it is never scanned.
	KindAggregate
	// KindExcluded marks a directory on another filesystem that was not descended into.
	KindExcluded
	// KindError marks an entry whose metadata could not be read.
	KindError
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindRoot:
		return "root"
	case KindAggregate:
		return "aggregate"
	case KindExcluded:
		return "excluded"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ReadState tracks how far a directory's read has progressed.
// Transitions are monotonic: Pending -> Reading -> {Finished | Aborted | Error}.
// Only an explicit refresh resets a directory to Pending.
type ReadState uint8

const (
	ReadPending ReadState = iota
	ReadReading
	ReadFinished
	ReadAborted
	ReadError
)

func (s ReadState) String() string {
	switch s {
	case ReadPending:
		return "pending"
	case ReadReading:
		return "reading"
	case ReadFinished:
		return "finished"
	case ReadAborted:
		return "aborted"
	case ReadError:
		return "error"
	default:
		return "unknown"
	}
}

// FileNode represents a single non-directory entry in the tree.
type FileNode struct {
	Name   string    // Relative name (not full path)
	Size   int64     // Size in bytes
	Mtime  time.Time // Last modification time
	Dev    uint64    // Device id the entry resides on
	Nlink  uint64    // Hard link count
	Kind   NodeKind
	Parent *DirNode // Parent directory (nil for root)
}

// DirNode represents a directory, the pseudo root, or an aggregate.
type DirNode struct {
	FileNode

	mu        sync.RWMutex
	children  []TreeNode // Discovery order, never sorted in place
	aggregate *DirNode   // The <Files> child, if present
	state     ReadState
	totals    Totals
	dirty     bool   // Totals must be recomputed before the next read
	gen       uint64 // Bumped on every invalidation; guards the recompute store
}

// Totals are a directory's cached recursive aggregates. Size sums plain-file
// descendants only; directories contribute no bytes of their own.
type Totals struct {
	Size    int64
	Items   int64
	SubDirs int64
}

// TreeNode is the interface satisfied by both FileNode and DirNode.
type TreeNode interface {
	GetName() string
	GetSize() int64
	GetMtime() time.Time
	GetDev() uint64
	GetNlink() uint64
	GetKind() NodeKind
	GetParent() *DirNode
	IsDir() bool
	Path() string

	setParent(*DirNode)
}

// --- FileNode implements TreeNode ---

func (f *FileNode) GetName() string     { return f.Name }
func (f *FileNode) GetSize() int64      { return f.Size }
func (f *FileNode) GetMtime() time.Time { return f.Mtime }
func (f *FileNode) GetDev() uint64      { return f.Dev }
func (f *FileNode) GetNlink() uint64    { return f.Nlink }
func (f *FileNode) GetKind() NodeKind   { return f.Kind }
func (f *FileNode) GetParent() *DirNode { return f.Parent }
func (f *FileNode) IsDir() bool         { return false }

func (f *FileNode) setParent(p *DirNode) { f.Parent = p }

func (f *FileNode) Path() string {
	return buildPath(f.Parent, f.Name)
}

// --- DirNode implements TreeNode ---

func (d *DirNode) IsDir() bool { return true }

// GetSize returns the directory's recursive file-size total.
func (d *DirNode) GetSize() int64 { return d.Totals().Size }

func (d *DirNode) Path() string {
	return buildPath(d.Parent, d.Name)
}

// NewDirNode creates an unread directory node.
func NewDirNode(name string, kind NodeKind) *DirNode {
	return &DirNode{
		FileNode: FileNode{Name: name, Kind: kind},
		state:    ReadPending,
	}
}

// NewRoot creates the pseudo root. It has no filesystem correspondence; its
// direct children are the toplevel scanned paths.
func NewRoot() *DirNode {
	r := NewDirNode("", KindRoot)
	r.state = ReadFinished
	return r
}

// State returns the directory's read state.
func (d *DirNode) State() ReadState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// SetState sets the directory's read state.
func (d *DirNode) SetState(s ReadState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// AddChild appends a child in discovery order, reparents it, and invalidates
// cached totals up to the root. Duplicate names are a caller error and are
// not checked here.
func (d *DirNode) AddChild(child TreeNode) {
	child.setParent(d)
	d.mu.Lock()
	d.children = append(d.children, child)
	if a, ok := child.(*DirNode); ok && a.Kind == KindAggregate {
		d.aggregate = a
	}
	d.mu.Unlock()
	d.Invalidate()
}

// RemoveChild detaches a child by identity. Returns false (and changes
// nothing) if the node is not actually a child of this directory.
func (d *DirNode) RemoveChild(child TreeNode) bool {
	d.mu.Lock()
	found := false
	for i, c := range d.children {
		if c == child {
			d.children = append(d.children[:i], d.children[i+1:]...)
			found = true
			break
		}
	}
	if found && d.aggregate != nil && TreeNode(d.aggregate) == child {
		d.aggregate = nil
	}
	d.mu.Unlock()

	if found {
		d.Invalidate()
	}
	return found
}

// GetChildren returns a snapshot of children thread-safely.
func (d *DirNode) GetChildren() []TreeNode {
	d.mu.RLock()
	cp := make([]TreeNode, len(d.children))
	copy(cp, d.children)
	d.mu.RUnlock()
	return cp
}

// ChildCount returns the number of direct children.
func (d *DirNode) ChildCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.children)
}

// Aggregate returns the <Files> child, or nil.
func (d *DirNode) Aggregate() *DirNode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.aggregate
}

// EnsureAggregate returns the <Files> child, creating and attaching it if
// necessary. Reports whether it was just created so callers can notify.
func (d *DirNode) EnsureAggregate() (*DirNode, bool) {
	d.mu.RLock()
	a := d.aggregate
	d.mu.RUnlock()
	if a != nil {
		return a, false
	}

	a = NewDirNode(AggregateName, KindAggregate)
	a.state = ReadFinished
	d.AddChild(a)
	return a, true
}

// ClearChildren detaches every child (aggregate included) and invalidates
// totals. The detached children are returned so callers can notify about
// the batch deletion.
func (d *DirNode) ClearChildren() []TreeNode {
	d.mu.Lock()
	old := d.children
	d.children = nil
	d.aggregate = nil
	d.mu.Unlock()

	d.Invalidate()
	return old
}

// Invalidate marks totals dirty from this directory up to the root. The
// generation counter is bumped on every node of the chain, dirty or not, so
// an in-flight Totals recompute anywhere above can tell that its snapshot
// predates this mutation.
func (d *DirNode) Invalidate() {
	for n := d; n != nil; {
		n.mu.Lock()
		n.dirty = true
		n.gen++
		p := n.Parent
		n.mu.Unlock()
		n = p
	}
}

// Totals returns the cached aggregates, recomputing first if any mutation
// happened since the last read. Recomputation relies on still-clean child
// caches, so the walk only covers dirty subtrees.
func (d *DirNode) Totals() Totals {
	d.mu.RLock()
	if !d.dirty {
		t := d.totals
		d.mu.RUnlock()
		return t
	}
	gen := d.gen
	d.mu.RUnlock()

	var t Totals
	for _, c := range d.GetChildren() {
		if sub, ok := c.(*DirNode); ok {
			ct := sub.Totals()
			t.Size = saturatingAddInt64(t.Size, ct.Size)
			t.Items = saturatingAddInt64(t.Items, ct.Items)
			t.SubDirs = saturatingAddInt64(t.SubDirs, ct.SubDirs)
			if sub.Kind != KindAggregate {
				t.Items = saturatingAddInt64(t.Items, 1)
				t.SubDirs = saturatingAddInt64(t.SubDirs, 1)
			}
			continue
		}
		if c.GetKind() == KindFile {
			t.Size = saturatingAddInt64(t.Size, c.GetSize())
		}
		t.Items = saturatingAddInt64(t.Items, 1)
	}

	// A mutation that landed while we were computing bumped the generation;
	// its totals are not in t, so the cache must stay dirty. The freshly
	// computed value is still a valid snapshot to hand back.
	d.mu.Lock()
	if d.gen == gen {
		d.totals = t
		d.dirty = false
	}
	d.mu.Unlock()
	return t
}

// Locate resolves a '/'-separated path relative to this directory by
// name-matching child by child. Children of an aggregate are matched as if
// they were direct children; the <Files> node itself is only matched when
// includeAggregate is set. Returns nil if any segment is unmatched.
func (d *DirNode) Locate(url string, includeAggregate bool) TreeNode {
	url = strings.Trim(url, "/")
	if url == "" {
		return d
	}
	seg, rest, _ := strings.Cut(url, "/")

	for _, c := range d.GetChildren() {
		if sub, ok := c.(*DirNode); ok && sub.Kind == KindAggregate {
			if includeAggregate && seg == AggregateName {
				return sub.Locate(rest, includeAggregate)
			}
			if hit := sub.Locate(url, includeAggregate); hit != nil {
				return hit
			}
			continue
		}
		if c.GetName() != seg {
			continue
		}
		if rest == "" {
			return c
		}
		if sub, ok := c.(*DirNode); ok {
			return sub.Locate(rest, includeAggregate)
		}
		return nil
	}
	return nil
}

// Walk visits every descendant (this node excluded) in depth-first
// discovery order.
func (d *DirNode) Walk(fn func(TreeNode)) {
	for _, c := range d.GetChildren() {
		fn(c)
		if sub, ok := c.(*DirNode); ok {
			sub.Walk(fn)
		}
	}
}

// IsAncestorOf reports whether d is node itself or one of its ancestors.
func (d *DirNode) IsAncestorOf(node TreeNode) bool {
	if node == nil {
		return false
	}
	if TreeNode(d) == node {
		return true
	}
	for p := node.GetParent(); p != nil; p = p.Parent {
		if p == d {
			return true
		}
	}
	return false
}

func saturatingAddInt64(a, b int64) int64 {
	if b > 0 && a > maxInt64-b {
		return maxInt64
	}
	if b < 0 && a < minInt64-b {
		return minInt64
	}
	return a + b
}

// buildPath reconstructs the full path by walking up the parent chain.
// The pseudo root's empty name contributes nothing.
func buildPath(parent *DirNode, name string) string {
	if parent == nil {
		return name
	}
	depth := 0
	for p := parent; p != nil; p = p.Parent {
		depth++
	}
	parts := make([]string, depth+1)
	parts[depth] = name
	i := depth - 1
	for p := parent; p != nil; p = p.Parent {
		parts[i] = p.Name
		i--
	}
	return filepath.Join(parts...)
}
