package tree

import "github.com/sadopc/dirtree/internal/model"

// jobQueue is the ordered collection of pending read jobs plus the one
// currently executing. Access is guarded by the owning Tree's mutex; the
// queue itself is drained by a single worker goroutine, so no two jobs ever
// run (or mutate the tree) at the same time.
type jobQueue struct {
	pending []*scanJob
	current *scanJob
	// queued tracks which directories already have a job pending or
	// running, so the same DirNode is never read twice concurrently.
	queued map[*model.DirNode]struct{}
}

func newJobQueue() jobQueue {
	return jobQueue{queued: make(map[*model.DirNode]struct{})}
}

// add appends a job to the pending sequence. Returns false if the job's
// directory is already queued or executing.
func (q *jobQueue) add(j *scanJob) bool {
	if _, dup := q.queued[j.dir]; dup {
		return false
	}
	q.queued[j.dir] = struct{}{}
	q.pending = append(q.pending, j)
	return true
}

// pop removes the next pending job (FIFO) and marks it current.
// Returns nil when the queue is empty.
func (q *jobQueue) pop() *scanJob {
	if len(q.pending) == 0 {
		return nil
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	q.current = j
	return j
}

// finishCurrent clears the executing slot.
func (q *jobQueue) finishCurrent() {
	if q.current != nil {
		delete(q.queued, q.current.dir)
		q.current = nil
	}
}

// drain discards and returns all pending jobs.
func (q *jobQueue) drain() []*scanJob {
	dropped := q.pending
	q.pending = nil
	for _, j := range dropped {
		delete(q.queued, j.dir)
	}
	return dropped
}

// finished reports whether no work remains: nothing pending, nothing executing.
func (q *jobQueue) finished() bool {
	return len(q.pending) == 0 && q.current == nil
}
