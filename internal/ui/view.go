package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/dirtree/internal/model"
	"github.com/sadopc/dirtree/internal/util"
)

const (
	sizeColWidth = 10
	barWidth     = 16
)

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	switch a.state {
	case StateScanning:
		return a.renderScanning()
	default:
		return a.renderBrowsing()
	}
}

func (a *App) renderScanning() string {
	root := a.tree.Root()
	t := root.Totals()

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(a.spin.View())
	b.WriteString(a.theme.Title.Render(" Scanning..."))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s in %s items, %s dirs\n",
		util.FormatSize(t.Size), util.FormatCount(t.Items), util.FormatCount(t.SubDirs)))
	b.WriteString("\n  ")
	b.WriteString(a.theme.Breadcrumb.Render(ansi.Truncate(a.progressLine, a.width-4, "…")))
	b.WriteString("\n\n  ")
	b.WriteString(a.theme.Breadcrumb.Render("x abort · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderBrowsing() string {
	breadcrumb := a.renderBreadcrumb()
	content := a.renderList()
	status := a.renderStatusBar()
	return breadcrumb + "\n" + content + "\n" + status
}

func (a *App) renderBreadcrumb() string {
	path := ""
	if a.current != nil {
		path = a.current.Path()
	}
	line := " " + util.ElideMiddle(path, maxInt(a.width-2, 8))
	return a.theme.Breadcrumb.Render(ansi.Truncate(line, a.width, "…"))
}

func (a *App) renderList() string {
	contentHeight := maxInt(a.height-2, 1)

	if len(a.items) == 0 {
		lines := make([]string, contentHeight)
		lines[0] = a.theme.Breadcrumb.Render("  (empty directory)")
		return strings.Join(lines, "\n")
	}

	a.ensureVisible(contentHeight)

	end := a.offset + contentHeight
	if end > len(a.items) {
		end = len(a.items)
	}

	var parentSize int64
	if a.current != nil {
		parentSize = a.current.Totals().Size
	}

	lines := make([]string, 0, contentHeight)
	for i := a.offset; i < end; i++ {
		lines = append(lines, a.renderRow(a.items[i], i == a.cursor, parentSize))
	}
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderRow(item model.TreeNode, selected bool, parentSize int64) string {
	size := item.GetSize()
	pct := util.Percent(size, parentSize)
	bar := a.theme.Bar(barWidth, pct/100.0)

	indicator := "  "
	if selected {
		indicator = a.theme.Cursor.Render(" >")
	}

	name := item.GetName()
	var nameStyled string
	switch item.GetKind() {
	case model.KindAggregate:
		nameStyled = a.theme.AggName.Render(name)
	case model.KindExcluded:
		nameStyled = a.theme.DirName.Render(name+"/") + a.theme.Breadcrumb.Render(" [other fs]")
	case model.KindError:
		nameStyled = a.theme.FileName.Render(name) + a.theme.ErrorText.Render(" !")
	case model.KindDir:
		nameStyled = a.theme.DirName.Render(name + "/")
		if dir, ok := item.(*model.DirNode); ok {
			switch dir.State() {
			case model.ReadAborted:
				nameStyled += a.theme.ErrorText.Render(" [aborted]")
			case model.ReadError:
				nameStyled += a.theme.ErrorText.Render(" [unreadable]")
			}
		}
	default:
		nameStyled = a.theme.FileName.Render(name)
	}

	pctStyled := a.theme.PercentText.Render(fmt.Sprintf("%5.1f%%", pct))
	sizeStyled := a.theme.SizeText.Width(sizeColWidth).Render(util.FormatSize(size))

	row := fmt.Sprintf("%s%s [%s] %s %s", indicator, pctStyled, bar, sizeStyled, nameStyled)
	row = ansi.Truncate(row, a.width, "…")
	if selected {
		pad := a.width - lipgloss.Width(row)
		if pad > 0 {
			row += strings.Repeat(" ", pad)
		}
		return a.theme.SelectedRow.Render(row)
	}
	return row
}

func (a *App) renderStatusBar() string {
	var t model.Totals
	if a.current != nil {
		t = a.current.Totals()
	}
	left := fmt.Sprintf(" %s · %s items · %s dirs",
		util.FormatSize(t.Size), util.FormatCount(t.Items), util.FormatCount(t.SubDirs))
	if a.statusMsg != "" {
		left += " · " + a.statusMsg
	}
	hints := "q quit · r refresh · d drop · E save · s/n/C/M sort"

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(hints) - 1
	if gap < 1 {
		line := ansi.Truncate(left, a.width, "…")
		return a.theme.StatusBar.Width(a.width).Render(line)
	}
	return a.theme.StatusBar.Width(a.width).Render(left + strings.Repeat(" ", gap) + hints + " ")
}

func (a *App) ensureVisible(contentHeight int) {
	if a.cursor < a.offset {
		a.offset = a.cursor
	}
	if a.cursor >= a.offset+contentHeight {
		a.offset = a.cursor - contentHeight + 1
	}
	if a.offset < 0 {
		a.offset = 0
	}
}
