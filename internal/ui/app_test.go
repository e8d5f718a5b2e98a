package ui

import (
	"path"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dirtree/internal/fsys"
	"github.com/sadopc/dirtree/internal/model"
	"github.com/sadopc/dirtree/internal/tree"
)

type stubLister struct{}

func (stubLister) ReadDir(string) ([]fsys.Entry, error) { return nil, nil }
func (stubLister) Stat(p string) (fsys.Entry, error) {
	return fsys.Entry{Name: p, IsDir: true}, nil
}
func (stubLister) Join(elem ...string) string { return path.Join(elem...) }

func testApp(t *testing.T) (*App, *tree.Tree) {
	t.Helper()
	tr := tree.New(stubLister{})

	top := model.NewDirNode("data", model.KindDir)
	top.SetState(model.ReadFinished)
	tr.Root().AddChild(top)
	sub := model.NewDirNode("sub", model.KindDir)
	sub.SetState(model.ReadFinished)
	top.AddChild(sub)
	sub.AddChild(&model.FileNode{Name: "big", Size: 100, Kind: model.KindFile})
	top.AddChild(&model.FileNode{Name: "small", Size: 10, Kind: model.KindFile})

	app := NewApp(tr, "")
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return app, tr
}

func TestInitialStateIsScanning(t *testing.T) {
	app, _ := testApp(t)
	if app.state != StateScanning {
		t.Errorf("initial state = %v, want scanning", app.state)
	}
	if !strings.Contains(app.View(), "Scanning") {
		t.Error("scanning view missing scan banner")
	}
}

func TestScanFinishedEntersBrowsing(t *testing.T) {
	app, tr := testApp(t)
	app.Update(ScanFinishedMsg{})

	if app.state != StateBrowsing {
		t.Fatalf("state = %v, want browsing", app.state)
	}
	if app.current != tr.FirstToplevel() {
		t.Error("browsing did not land on the first toplevel")
	}
	// Default sort: dirs first, then size descending.
	if len(app.items) != 2 || app.items[0].GetName() != "sub" || app.items[1].GetName() != "small" {
		names := make([]string, len(app.items))
		for i, n := range app.items {
			names[i] = n.GetName()
		}
		t.Errorf("items = %v, want [sub small]", names)
	}
}

func TestScanAbortedShowsPartialResults(t *testing.T) {
	app, _ := testApp(t)
	app.Update(ScanAbortedMsg{})

	if app.state != StateBrowsing {
		t.Errorf("state = %v, want browsing", app.state)
	}
	if app.statusMsg == "" {
		t.Error("aborted scan should leave a status note")
	}
}

func TestCursorStaysInBounds(t *testing.T) {
	app, _ := testApp(t)
	app.Update(ScanFinishedMsg{})

	app.moveCursor(-5)
	if app.cursor != 0 {
		t.Errorf("cursor = %d, want 0", app.cursor)
	}
	app.moveCursor(99)
	if app.cursor != len(app.items)-1 {
		t.Errorf("cursor = %d, want %d", app.cursor, len(app.items)-1)
	}
}

func TestCursorFollowsSelection(t *testing.T) {
	app, tr := testApp(t)
	app.Update(ScanFinishedMsg{})

	small := tr.Locate("data/small", false)
	app.Update(SelectionMsg{Node: small})
	if app.cursor != 1 {
		t.Errorf("cursor = %d, want 1 after external selection", app.cursor)
	}
}

func TestEnterAndGoBack(t *testing.T) {
	app, _ := testApp(t)
	app.Update(ScanFinishedMsg{})

	app.enterDir() // cursor 0 is "sub"
	if app.current == nil || app.current.Name != "sub" {
		t.Fatalf("current = %v, want sub", app.current)
	}
	if len(app.items) != 1 || app.items[0].GetName() != "big" {
		t.Error("sub contents not listed")
	}

	app.goBack()
	if app.current == nil || app.current.Name != "data" {
		t.Fatalf("current after back = %v, want data", app.current)
	}
	// The cursor lands back on the directory we came from.
	if app.items[app.cursor].GetName() != "sub" {
		t.Errorf("cursor on %q after back, want sub", app.items[app.cursor].GetName())
	}
}

func TestToggleSortFlipsOrder(t *testing.T) {
	app, _ := testApp(t)
	app.Update(ScanFinishedMsg{})

	app.toggleSort(model.SortBySize)
	if app.sortCfg.Order != model.SortAsc {
		t.Error("second toggle of active field should flip to ascending")
	}
	app.toggleSort(model.SortByName)
	if app.sortCfg.Field != model.SortByName || app.sortCfg.Order != model.SortDesc {
		t.Error("switching fields should reset to descending")
	}
}

func TestProgressLineShownWhileScanning(t *testing.T) {
	app, _ := testApp(t)
	app.Update(ProgressMsg("read data (2 entries)"))
	if !strings.Contains(app.View(), "read data") {
		t.Error("progress line not rendered")
	}
}

func TestBrowsingViewRenders(t *testing.T) {
	app, _ := testApp(t)
	app.Update(ScanFinishedMsg{})

	view := app.View()
	if !strings.Contains(view, "sub") {
		t.Error("view missing directory entry")
	}
	if !strings.Contains(view, "small") {
		t.Error("view missing file entry")
	}
}
