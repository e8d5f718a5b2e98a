// Package ui implements the interactive terminal browser on top of a scan
// tree. It observes the tree through a listener and renders live while the
// background scan is still filling it in.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dirtree/internal/model"
	"github.com/sadopc/dirtree/internal/tree"
)

// AppState represents the application state.
type AppState int

const (
	StateScanning AppState = iota
	StateBrowsing
)

// App is the root Bubble Tea model.
type App struct {
	tree      *tree.Tree
	cachePath string

	state  AppState
	width  int
	height int

	spin         spinner.Model
	progressLine string
	statusMsg    string

	current  *model.DirNode
	navStack []*model.DirNode
	items    []model.TreeNode
	cursor   int
	offset   int
	sortCfg  model.SortConfig

	theme Theme
	keys  KeyMap
}

// NewApp creates the UI model for an already-configured tree. cachePath is
// where the save-cache key writes to.
func NewApp(t *tree.Tree, cachePath string) *App {
	if cachePath == "" {
		cachePath = "dirtree-cache.json"
	}
	theme := DefaultTheme()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return &App{
		tree:      t,
		cachePath: cachePath,
		state:     StateScanning,
		spin:      sp,
		sortCfg:   model.DefaultSort(),
		theme:     theme,
		keys:      DefaultKeyMap(),
	}
}

// Run wires a tree, its listener bridge and the program together, starts the
// scan and blocks until the user quits. startPath may be empty when the tree
// is pre-populated (cache load), in which case no scan is started.
func Run(t *tree.Tree, startPath, cachePath string) error {
	app := NewApp(t, cachePath)
	p := tea.NewProgram(app, tea.WithAltScreen())
	t.AddListener(NewForwarder(p.Send))

	if startPath != "" {
		if err := t.StartReading(startPath); err != nil {
			return err
		}
	} else {
		app.state = StateBrowsing
		app.current = t.FirstToplevel()
		app.refreshItems()
	}

	_, err := p.Run()
	t.AbortReading()
	t.Wait()
	return err
}

func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if a.state != StateScanning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case ProgressMsg:
		a.progressLine = string(msg)
		return a, nil

	case DirFinishedMsg:
		// Totals shown in the scanning view are re-read on render; a
		// finished directory just triggers the repaint.
		return a, nil

	case ScanFinishedMsg:
		return a.enterBrowsing("")

	case ScanAbortedMsg:
		return a.enterBrowsing("scan aborted, showing partial results")

	case SelectionMsg:
		for i, item := range a.items {
			if item == msg.Node {
				a.cursor = i
				break
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) enterBrowsing(status string) (tea.Model, tea.Cmd) {
	a.state = StateBrowsing
	a.statusMsg = status
	if a.current == nil || !a.tree.Root().IsAncestorOf(a.current) {
		a.current = a.tree.FirstToplevel()
		a.navStack = nil
	}
	a.cursor = 0
	a.offset = 0
	a.refreshItems()
	return a, tea.ClearScreen
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		a.tree.AbortReading()
		return a, tea.Quit
	}

	if a.state == StateScanning {
		switch {
		case key.Matches(msg, a.keys.Quit):
			a.tree.AbortReading()
			return a, tea.Quit
		case key.Matches(msg, a.keys.Abort):
			a.tree.AbortReading()
		}
		return a, nil
	}

	a.statusMsg = ""
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Enter), key.Matches(msg, a.keys.Right):
		a.enterDir()
	case key.Matches(msg, a.keys.Left), key.Matches(msg, a.keys.Back):
		a.goBack()

	case key.Matches(msg, a.keys.SortSize):
		a.toggleSort(model.SortBySize)
	case key.Matches(msg, a.keys.SortName):
		a.toggleSort(model.SortByName)
	case key.Matches(msg, a.keys.SortItems):
		a.toggleSort(model.SortByItems)
	case key.Matches(msg, a.keys.SortMtime):
		a.toggleSort(model.SortByMtime)

	case key.Matches(msg, a.keys.Refresh):
		if a.current != nil && a.current.Kind == model.KindDir {
			if err := a.tree.Refresh(a.current); err != nil {
				a.statusMsg = fmt.Sprintf("refresh failed: %v", err)
			} else {
				a.state = StateScanning
				a.progressLine = ""
				return a, tea.Batch(tea.ClearScreen, a.spin.Tick)
			}
		}

	case key.Matches(msg, a.keys.Delete):
		a.dropSelected()

	case key.Matches(msg, a.keys.SaveCache):
		if err := a.tree.WriteCache(a.cachePath); err != nil {
			a.statusMsg = fmt.Sprintf("cache write failed: %v", err)
		} else {
			a.statusMsg = fmt.Sprintf("cache written to %s", a.cachePath)
		}
	}

	return a, nil
}

func (a *App) moveCursor(delta int) {
	a.cursor += delta
	if a.cursor >= len(a.items) {
		a.cursor = len(a.items) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	if a.cursor < len(a.items) {
		a.tree.SelectItem(a.items[a.cursor])
	}
}

func (a *App) enterDir() {
	if a.cursor >= len(a.items) {
		return
	}
	dir, ok := a.items[a.cursor].(*model.DirNode)
	if !ok || dir.Kind == model.KindExcluded {
		return
	}
	a.navStack = append(a.navStack, a.current)
	a.current = dir
	a.cursor = 0
	a.offset = 0
	a.refreshItems()
}

func (a *App) goBack() {
	if len(a.navStack) == 0 {
		return
	}
	leaving := a.current
	a.current = a.navStack[len(a.navStack)-1]
	a.navStack = a.navStack[:len(a.navStack)-1]
	a.cursor = 0
	a.offset = 0
	a.refreshItems()

	for i, item := range a.items {
		if item == model.TreeNode(leaving) {
			a.cursor = i
			break
		}
	}
}

func (a *App) toggleSort(field model.SortField) {
	if a.sortCfg.Field == field {
		if a.sortCfg.Order == model.SortDesc {
			a.sortCfg.Order = model.SortAsc
		} else {
			a.sortCfg.Order = model.SortDesc
		}
	} else {
		a.sortCfg.Field = field
		a.sortCfg.Order = model.SortDesc
	}
	a.refreshItems()
}

// dropSelected removes the node under the cursor from the tree. This is a
// view-side discard; nothing is touched on disk.
func (a *App) dropSelected() {
	if a.cursor >= len(a.items) {
		return
	}
	node := a.items[a.cursor]
	if err := a.tree.DeleteSubtree(node); err != nil {
		a.statusMsg = fmt.Sprintf("cannot drop %s: %v", node.GetName(), err)
		return
	}
	a.statusMsg = fmt.Sprintf("dropped %s from the tree", node.GetName())
	a.refreshItems()
	if a.cursor >= len(a.items) {
		a.cursor = len(a.items) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) refreshItems() {
	if a.current == nil {
		a.items = nil
		return
	}
	children := a.current.GetChildren()
	model.SortChildren(children, a.sortCfg)
	a.items = children
}
