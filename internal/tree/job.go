package tree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sadopc/dirtree/internal/model"
)

// scanJob reads the immediate entries of one directory. The cross-filesystem
// policy is copied from the tree at job-creation time and never re-read, so
// flipping the policy mid-scan only affects jobs created afterwards.
type scanJob struct {
	dir     *model.DirNode
	path    string
	crossFS bool
}

type jobOutcome int

const (
	outcomeSuccess jobOutcome = iota
	outcomePartialError
	outcomeFatalError
)

// runJob executes one job: list the directory, attach a node per entry, and
// return follow-up jobs for accepted subdirectories. Errors never propagate:
// a per-entry failure becomes an error-marker node, an unreadable directory
// puts the DirNode in the Error state with no children, and the job still
// counts as complete either way.
func (t *Tree) runJob(j *scanJob) []*scanJob {
	j.dir.SetState(model.ReadReading)
	t.notifyDirStarting(j.dir)

	entries, err := t.lister.ReadDir(j.path)
	if err != nil {
		t.log.Warn("directory unreadable",
			zap.String("path", j.path), zap.Error(err))
		j.dir.SetState(model.ReadError)
		t.finalizeLocal(j.dir)
		t.notifyDirFinished(j.dir)
		t.notifyProgress(fmt.Sprintf("read %s failed: %v", j.path, err))
		t.log.Debug("read job finished",
			zap.String("path", j.path),
			zap.Int("entries", 0),
			zap.Int("outcome", int(outcomeFatalError)))
		return nil
	}

	// Files go into the <Files> aggregate only when the directory also has
	// subdirectories; a flat directory keeps its files as direct children.
	hasSubDir, hasFile := false, false
	for _, e := range entries {
		if e.Err == nil && e.IsDir {
			hasSubDir = true
		} else {
			hasFile = true
		}
	}
	fileParent := j.dir
	if hasSubDir && hasFile {
		agg, created := j.dir.EnsureAggregate()
		if created {
			t.notifyChildAdded(agg)
		}
		fileParent = agg
	}

	outcome := outcomeSuccess
	var subJobs []*scanJob
	parentDev := j.dir.GetDev()

	for _, e := range entries {
		switch {
		case e.Err != nil:
			// Listed but unreadable: keep it visible as a zero-size
			// error marker and carry on with the siblings.
			node := &model.FileNode{Name: e.Name, Kind: model.KindError}
			fileParent.AddChild(node)
			t.notifyChildAdded(node)
			outcome = outcomePartialError
			t.log.Debug("entry unreadable",
				zap.String("dir", j.path), zap.String("name", e.Name), zap.Error(e.Err))

		case e.IsDir:
			crossesDevice := parentDev != 0 && e.Dev != 0 && e.Dev != parentDev
			if crossesDevice && !j.crossFS {
				// A mount point stays visible but is never descended into.
				excl := model.NewDirNode(e.Name, model.KindExcluded)
				excl.Mtime, excl.Dev, excl.Nlink = e.Mtime, e.Dev, e.Nlink
				excl.SetState(model.ReadFinished)
				j.dir.AddChild(excl)
				t.notifyChildAdded(excl)
				continue
			}
			child := model.NewDirNode(e.Name, model.KindDir)
			child.Mtime, child.Dev, child.Nlink = e.Mtime, e.Dev, e.Nlink
			j.dir.AddChild(child)
			t.notifyChildAdded(child)
			subJobs = append(subJobs, &scanJob{
				dir:     child,
				path:    t.lister.Join(j.path, e.Name),
				crossFS: t.CrossFileSystems(),
			})

		default:
			node := &model.FileNode{
				Name:  e.Name,
				Size:  e.Size,
				Mtime: e.Mtime,
				Dev:   e.Dev,
				Nlink: e.Nlink,
				Kind:  model.KindFile,
			}
			fileParent.AddChild(node)
			t.notifyChildAdded(node)
		}
	}

	j.dir.SetState(model.ReadFinished)
	t.finalizeLocal(j.dir)
	t.notifyDirFinished(j.dir)
	t.notifyProgress(fmt.Sprintf("read %s (%d entries)", j.path, len(entries)))
	t.log.Debug("read job finished",
		zap.String("path", j.path),
		zap.Int("entries", len(entries)),
		zap.Int("outcome", int(outcome)))

	return subJobs
}

// finalizeLocal cleans up a directory after its read: an aggregate that
// ended up empty is removed, and an aggregate whose directory has no other
// subdirectories left is collapsed back into direct children.
func (t *Tree) finalizeLocal(dir *model.DirNode) {
	agg := dir.Aggregate()
	if agg == nil {
		return
	}

	if agg.ChildCount() == 0 {
		t.notifyDeletingChild(agg)
		dir.RemoveChild(agg)
		t.notifyChildrenDeleted()
		return
	}

	hasSubDir := false
	for _, c := range dir.GetChildren() {
		if sub, ok := c.(*model.DirNode); ok && sub.Kind != model.KindAggregate {
			hasSubDir = true
			break
		}
	}
	if !hasSubDir {
		// Already-announced children change parents silently.
		moved := agg.ClearChildren()
		t.notifyDeletingChild(agg)
		dir.RemoveChild(agg)
		for _, c := range moved {
			dir.AddChild(c)
		}
		t.notifyChildrenDeleted()
	}
}
