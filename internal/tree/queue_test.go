package tree

import (
	"testing"

	"github.com/sadopc/dirtree/internal/model"
)

func job(name string) *scanJob {
	return &scanJob{dir: model.NewDirNode(name, model.KindDir), path: name}
}

func TestQueueFIFO(t *testing.T) {
	q := newJobQueue()
	a, b, c := job("a"), job("b"), job("c")
	q.add(a)
	q.add(b)
	q.add(c)

	for _, want := range []*scanJob{a, b, c} {
		got := q.pop()
		if got != want {
			t.Fatalf("pop = %v, want %v", got.path, want.path)
		}
		q.finishCurrent()
	}
	if q.pop() != nil {
		t.Error("pop on empty queue != nil")
	}
}

func TestQueueDuplicateWhileRunning(t *testing.T) {
	q := newJobQueue()
	a := job("a")
	q.add(a)
	q.pop() // a is now current

	// The same directory cannot be queued again while its job runs.
	if q.add(&scanJob{dir: a.dir, path: "a"}) {
		t.Error("duplicate of running job accepted")
	}

	q.finishCurrent()
	if !q.add(&scanJob{dir: a.dir, path: "a"}) {
		t.Error("re-add after completion rejected")
	}
}

func TestQueueDrain(t *testing.T) {
	q := newJobQueue()
	a, b := job("a"), job("b")
	q.add(a)
	q.add(b)

	dropped := q.drain()
	if len(dropped) != 2 {
		t.Fatalf("drained %d jobs, want 2", len(dropped))
	}
	if !q.finished() {
		t.Error("queue not finished after drain")
	}

	// Drained directories may be queued again.
	if !q.add(job("a")) {
		t.Error("add after drain rejected")
	}
}

func TestQueueFinished(t *testing.T) {
	q := newJobQueue()
	if !q.finished() {
		t.Error("new queue not finished")
	}
	q.add(job("a"))
	if q.finished() {
		t.Error("queue with pending job reports finished")
	}
	q.pop()
	if q.finished() {
		t.Error("queue with running job reports finished")
	}
	q.finishCurrent()
	if !q.finished() {
		t.Error("drained queue not finished")
	}
}
