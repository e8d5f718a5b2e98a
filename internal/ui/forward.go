package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dirtree/internal/model"
	"github.com/sadopc/dirtree/internal/tree"
)

// Messages bridged from tree notifications into the Bubble Tea loop.
type (
	// DirFinishedMsg is sent after each directory read completes.
	DirFinishedMsg struct{ Dir *model.DirNode }

	// ProgressMsg carries the advisory progress line.
	ProgressMsg string

	// ScanFinishedMsg is sent when the whole scan completes.
	ScanFinishedMsg struct{}

	// ScanAbortedMsg is sent when a scan stops on request.
	ScanAbortedMsg struct{}

	// SelectionMsg is sent on every selection change.
	SelectionMsg struct{ Node model.TreeNode }
)

// Forwarder turns tree notifications into Bubble Tea messages. Notifications
// arrive on the scan goroutine; Program.Send marshals them onto the UI loop,
// which is exactly the re-dispatch the listener contract asks for.
type Forwarder struct {
	tree.Events
	send func(tea.Msg)
}

// NewForwarder creates a listener feeding the given send function,
// typically (*tea.Program).Send.
func NewForwarder(send func(tea.Msg)) *Forwarder {
	return &Forwarder{send: send}
}

func (f *Forwarder) DirFinished(dir *model.DirNode)       { f.send(DirFinishedMsg{Dir: dir}) }
func (f *Forwarder) Progress(line string)                 { f.send(ProgressMsg(line)) }
func (f *Forwarder) ScanFinished()                        { f.send(ScanFinishedMsg{}) }
func (f *Forwarder) ScanAborted()                         { f.send(ScanAbortedMsg{}) }
func (f *Forwarder) SelectionChanged(node model.TreeNode) { f.send(SelectionMsg{Node: node}) }
