package tree

import "github.com/sadopc/dirtree/internal/model"

// Listener receives tree notifications. Callbacks are invoked synchronously
// from the goroutine draining the job queue, so implementations that need a
// particular thread (e.g. a UI loop) must marshal the call themselves.
// Callbacks must not call back into the Tree's scan-control operations.
type Listener interface {
	// ChildAdded fires for every node attached to the tree, aggregates included.
	ChildAdded(node model.TreeNode)

	// DeletingChild fires for each node about to be detached.
	DeletingChild(node model.TreeNode)

	// ChildrenDeleted fires once per deletion batch, after the batch is gone.
	ChildrenDeleted()

	ScanStarting()
	ScanFinished()
	ScanAborted()

	// DirStarting fires when a directory's read job begins.
	DirStarting(dir *model.DirNode)

	// DirFinished fires after a directory's read job and its local cleanup
	// (aggregate handling) are done.
	DirFinished(dir *model.DirNode)

	// SelectionChanged fires on every SelectItem call, repeats included.
	SelectionChanged(node model.TreeNode)

	// Progress carries an advisory single-line status; neither the rate nor
	// the content is stable.
	Progress(line string)
}

// Events is a no-op Listener for embedding, so consumers only implement the
// callbacks they care about.
type Events struct{}

func (Events) ChildAdded(model.TreeNode)       {}
func (Events) DeletingChild(model.TreeNode)    {}
func (Events) ChildrenDeleted()                {}
func (Events) ScanStarting()                   {}
func (Events) ScanFinished()                   {}
func (Events) ScanAborted()                    {}
func (Events) DirStarting(*model.DirNode)      {}
func (Events) DirFinished(*model.DirNode)      {}
func (Events) SelectionChanged(model.TreeNode) {}
func (Events) Progress(string)                 {}

func (t *Tree) snapshotListeners() []Listener {
	t.lmu.RLock()
	ls := make([]Listener, len(t.listeners))
	copy(ls, t.listeners)
	t.lmu.RUnlock()
	return ls
}

func (t *Tree) notifyChildAdded(node model.TreeNode) {
	for _, l := range t.snapshotListeners() {
		l.ChildAdded(node)
	}
}

func (t *Tree) notifyDeletingChild(node model.TreeNode) {
	for _, l := range t.snapshotListeners() {
		l.DeletingChild(node)
	}
}

func (t *Tree) notifyChildrenDeleted() {
	for _, l := range t.snapshotListeners() {
		l.ChildrenDeleted()
	}
}

func (t *Tree) notifyScanStarting() {
	for _, l := range t.snapshotListeners() {
		l.ScanStarting()
	}
}

func (t *Tree) notifyScanFinished() {
	for _, l := range t.snapshotListeners() {
		l.ScanFinished()
	}
}

func (t *Tree) notifyScanAborted() {
	for _, l := range t.snapshotListeners() {
		l.ScanAborted()
	}
}

func (t *Tree) notifyDirStarting(dir *model.DirNode) {
	for _, l := range t.snapshotListeners() {
		l.DirStarting(dir)
	}
}

func (t *Tree) notifyDirFinished(dir *model.DirNode) {
	for _, l := range t.snapshotListeners() {
		l.DirFinished(dir)
	}
}

func (t *Tree) notifySelectionChanged(node model.TreeNode) {
	for _, l := range t.snapshotListeners() {
		l.SelectionChanged(node)
	}
}

func (t *Tree) notifyProgress(line string) {
	for _, l := range t.snapshotListeners() {
		l.Progress(line)
	}
}
