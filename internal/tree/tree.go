// Package tree implements the directory scan coordinator: a single mutable
// tree of file nodes, built by a queue of per-directory read jobs drained by
// one worker goroutine, with observer notifications, mid-scan abort, partial
// refresh, and cache-file persistence.
package tree

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sadopc/dirtree/internal/cache"
	"github.com/sadopc/dirtree/internal/fsys"
	"github.com/sadopc/dirtree/internal/model"
)

// Tree owns the pseudo root, the job queue, and tree-wide policy. All
// external interaction goes through its methods; collaborators never mutate
// nodes directly.
type Tree struct {
	lister  fsys.Lister
	log     *zap.Logger
	version string

	mu               sync.Mutex
	root             *model.DirNode
	selection        model.TreeNode
	queue            jobQueue
	crossFileSystems bool
	busy             bool
	aborting         bool
	rootPath         string        // last StartReading target, for whole-tree refresh
	done             chan struct{} // closed when the current scan reaches a terminal state

	lmu       sync.RWMutex
	listeners []Listener
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger; the default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tree) { t.log = log }
}

// WithCrossFileSystems sets the initial cross-filesystem policy.
func WithCrossFileSystems(cross bool) Option {
	return func(t *Tree) { t.crossFileSystems = cross }
}

// WithVersion sets the version string written into cache file headers.
func WithVersion(v string) Option {
	return func(t *Tree) { t.version = v }
}

// New creates an empty tree reading through the given lister.
func New(lister fsys.Lister, opts ...Option) *Tree {
	done := make(chan struct{})
	close(done)
	t := &Tree{
		lister:  lister,
		log:     zap.NewNop(),
		version: "dev",
		root:    model.NewRoot(),
		queue:   newJobQueue(),
		done:    done,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// AddListener registers a notification consumer.
func (t *Tree) AddListener(l Listener) {
	t.lmu.Lock()
	t.listeners = append(t.listeners, l)
	t.lmu.Unlock()
}

// Root returns the pseudo root. It is never nil.
func (t *Tree) Root() *model.DirNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// FirstToplevel returns the first toplevel scanned directory, or nil.
func (t *Tree) FirstToplevel() *model.DirNode {
	for _, c := range t.Root().GetChildren() {
		if d, ok := c.(*model.DirNode); ok {
			return d
		}
	}
	return nil
}

// IsToplevel reports whether node is a direct child of the pseudo root.
func (t *Tree) IsToplevel(node model.TreeNode) bool {
	return node != nil && node.GetParent() == t.Root()
}

// IsBusy reports whether a scan is in progress.
func (t *Tree) IsBusy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// CrossFileSystems reports the tree-wide boundary policy.
func (t *Tree) CrossFileSystems() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.crossFileSystems
}

// SetCrossFileSystems changes the policy. Jobs already created keep the
// policy they snapshotted.
func (t *Tree) SetCrossFileSystems(cross bool) {
	t.mu.Lock()
	t.crossFileSystems = cross
	t.mu.Unlock()
}

// Selection returns the current selection, or nil.
func (t *Tree) Selection() model.TreeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selection
}

// SelectItem sets the selection and always notifies, even when the node is
// already selected: repeated reselection deliberately resets view state.
func (t *Tree) SelectItem(node model.TreeNode) {
	t.mu.Lock()
	t.selection = node
	t.mu.Unlock()
	t.notifySelectionChanged(node)
}

// Locate resolves a full path to a node. Toplevel names may themselves
// contain separators, so they are matched as prefixes before descending.
func (t *Tree) Locate(url string, includeAggregate bool) model.TreeNode {
	for _, c := range t.Root().GetChildren() {
		top, ok := c.(*model.DirNode)
		if !ok {
			continue
		}
		if url == top.Name {
			return top
		}
		if strings.HasPrefix(url, top.Name+"/") {
			return top.Locate(url[len(top.Name)+1:], includeAggregate)
		}
	}
	return t.Root().Locate(url, includeAggregate)
}

// StartReading creates the toplevel node for path, queues its read job, and
// returns immediately; the scan proceeds on a background worker. Fails with
// ErrAlreadyBusy while another scan is in flight.
func (t *Tree) StartReading(path string) error {
	info, err := t.lister.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir {
		return fmt.Errorf("%s is not a directory", path)
	}

	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return ErrAlreadyBusy
	}
	top := model.NewDirNode(path, model.KindDir)
	top.Mtime, top.Dev, top.Nlink = info.Mtime, info.Dev, info.Nlink
	t.root.AddChild(top)
	t.rootPath = path
	t.busy = true
	t.aborting = false
	t.done = make(chan struct{})
	t.queue.add(&scanJob{dir: top, path: path, crossFS: t.crossFileSystems})
	t.mu.Unlock()

	t.log.Info("scan starting", zap.String("path", path))
	t.notifyScanStarting()
	t.notifyChildAdded(top)
	go t.run()
	return nil
}

// Refresh re-reads a subtree from disk. The node itself keeps its identity
// (external references stay valid); all its descendants are destroyed, each
// with a deletion notice, before the new read is queued. A nil node
// refreshes the whole tree from the original toplevel path.
func (t *Tree) Refresh(node *model.DirNode) error {
	if node == nil {
		t.mu.Lock()
		if t.busy {
			t.mu.Unlock()
			return ErrAlreadyBusy
		}
		path := t.rootPath
		t.mu.Unlock()
		if path == "" {
			return fmt.Errorf("nothing to refresh: no scan was started")
		}
		if err := t.Clear(); err != nil {
			return err
		}
		return t.StartReading(path)
	}

	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return ErrAlreadyBusy
	}
	if node.Kind != model.KindDir || !t.root.IsAncestorOf(node) {
		t.mu.Unlock()
		return ErrNotInTree
	}
	sel := t.selection
	selLost := sel != nil && model.TreeNode(node) != sel && node.IsAncestorOf(sel)
	if selLost {
		t.selection = nil
	}
	t.busy = true
	t.aborting = false
	t.done = make(chan struct{})
	t.mu.Unlock()

	node.Walk(func(n model.TreeNode) { t.notifyDeletingChild(n) })
	node.ClearChildren()
	t.notifyChildrenDeleted()
	if selLost {
		t.notifySelectionChanged(nil)
	}
	node.SetState(model.ReadPending)

	path := t.listerPath(node)
	t.mu.Lock()
	t.queue.add(&scanJob{dir: node, path: path, crossFS: t.crossFileSystems})
	t.mu.Unlock()

	t.log.Info("refresh starting", zap.String("path", path))
	t.notifyScanStarting()
	go t.run()
	return nil
}

// listerPath rebuilds a node's scan path with the lister's own separator.
// Node paths are host-style, which is wrong for a remote lister when the
// host separator differs.
func (t *Tree) listerPath(node model.TreeNode) string {
	var parts []string
	for n := node; n != nil; {
		if name := n.GetName(); name != "" {
			parts = append(parts, name)
		}
		p := n.GetParent()
		if p == nil {
			break
		}
		n = p
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return t.lister.Join(parts...)
}

// AbortReading requests a stop. Pending jobs are discarded; the job in
// flight finishes its current directory listing but produces no sub-jobs.
// The tree always reaches idle with an aborted notification. A no-op when
// no scan is running.
func (t *Tree) AbortReading() {
	t.mu.Lock()
	if !t.busy {
		t.mu.Unlock()
		return
	}
	t.aborting = true
	t.mu.Unlock()
	t.log.Info("scan abort requested")
}

// Wait blocks until the tree is idle. Mainly for headless use and tests;
// interactive consumers should watch the notifications instead.
func (t *Tree) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	<-done
}

// DeleteSubtree detaches node and releases it with all descendants. The
// selection is cleared (with a notification) if it pointed into the deleted
// subtree.
func (t *Tree) DeleteSubtree(node model.TreeNode) error {
	t.mu.Lock()
	if node == nil || model.TreeNode(t.root) == node || !t.root.IsAncestorOf(node) {
		t.mu.Unlock()
		return ErrNotInTree
	}
	parent := node.GetParent()
	sel := t.selection
	clearSel := false
	if sel != nil {
		if sel == node {
			clearSel = true
		} else if dn, ok := node.(*model.DirNode); ok && dn.IsAncestorOf(sel) {
			clearSel = true
		}
	}
	if clearSel {
		t.selection = nil
	}
	t.mu.Unlock()

	t.notifyDeletingChild(node)
	parent.RemoveChild(node)
	t.notifyChildrenDeleted()
	if clearSel {
		t.notifySelectionChanged(nil)
	}
	return nil
}

// Clear drops every node of the tree, leaving the empty pseudo root.
func (t *Tree) Clear() error {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return ErrAlreadyBusy
	}
	root := t.root
	hadSelection := t.selection != nil
	t.selection = nil
	t.mu.Unlock()

	for _, c := range root.GetChildren() {
		t.notifyDeletingChild(c)
	}
	root.ClearChildren()
	t.notifyChildrenDeleted()
	if hadSelection {
		t.notifySelectionChanged(nil)
	}
	return nil
}

// SetRoot replaces the root wholesale. The selection is dropped.
func (t *Tree) SetRoot(root *model.DirNode) {
	t.mu.Lock()
	t.root = root
	t.selection = nil
	if top := firstToplevelOf(root); top != nil {
		t.rootPath = top.Name
	}
	t.mu.Unlock()
}

// WriteCache serializes the full tree to a cache file.
func (t *Tree) WriteCache(filename string) error {
	return cache.Write(t.Root(), filename, t.version)
}

// ReadCache replaces the current tree with the one stored in a cache file.
// On any error the existing tree is left untouched. Fails with
// ErrAlreadyBusy while a scan is in flight.
func (t *Tree) ReadCache(filename string) error {
	if t.IsBusy() {
		return ErrAlreadyBusy
	}
	root, err := cache.Read(filename)
	if err != nil {
		return err
	}
	t.SetRoot(root)
	t.notifyChildrenDeleted()
	t.notifySelectionChanged(nil)
	t.notifyScanFinished()
	t.log.Info("cache loaded", zap.String("file", filename))
	return nil
}

// run drains the job queue until it is empty or an abort is observed.
// Exactly one run goroutine exists per scan; it is the only tree writer.
func (t *Tree) run() {
	for {
		t.mu.Lock()
		if t.aborting {
			dropped := t.queue.drain()
			t.mu.Unlock()
			for _, j := range dropped {
				j.dir.SetState(model.ReadAborted)
			}
			t.finishScan(true)
			return
		}
		j := t.queue.pop()
		if j == nil {
			t.mu.Unlock()
			t.finishScan(false)
			return
		}
		t.mu.Unlock()

		subJobs := t.runJob(j)

		t.mu.Lock()
		t.queue.finishCurrent()
		aborting := t.aborting
		if !aborting {
			for _, sj := range subJobs {
				if !t.queue.add(sj) {
					t.log.Warn("duplicate read job ignored", zap.String("path", sj.path))
				}
			}
		}
		t.mu.Unlock()

		if aborting {
			for _, sj := range subJobs {
				sj.dir.SetState(model.ReadAborted)
			}
		}
	}
}

func (t *Tree) finishScan(aborted bool) {
	t.mu.Lock()
	t.busy = false
	t.aborting = false
	done := t.done
	t.mu.Unlock()

	if aborted {
		t.log.Info("scan aborted")
		t.notifyScanAborted()
	} else {
		t.log.Info("scan finished")
		t.notifyScanFinished()
	}
	close(done)
}

func firstToplevelOf(root *model.DirNode) *model.DirNode {
	for _, c := range root.GetChildren() {
		if d, ok := c.(*model.DirNode); ok {
			return d
		}
	}
	return nil
}
