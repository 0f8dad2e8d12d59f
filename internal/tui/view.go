package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/idelchi/dirsweep/internal/dirstat"
)

type styles struct {
	header   lipgloss.Style
	title    lipgloss.Style
	subtitle lipgloss.Style
	status   lipgloss.Style
	muted    lipgloss.Style
	accent   lipgloss.Style
	danger   lipgloss.Style
	warning  lipgloss.Style
	selected lipgloss.Style
	confirm  lipgloss.Style
	chip     lipgloss.Style
	list     lipgloss.Style
}

var ui = styles{
	header:   lipgloss.NewStyle().Padding(0, 1),
	title:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	status:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	danger:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	selected: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Bold(true),
	confirm:  lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("203")).Bold(true).Padding(0, 1),
	chip:     lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1),
	list: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1),
}

const sizeWidth = 10

func (m model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		ui.list.Render(m.listView()),
		m.statusView(),
		m.footerView(),
	)
}

func (m model) headerView() string {
	title := ui.title.Render("dirsweep")
	chips := ui.chip.Render(fmt.Sprintf("labels: %d", m.session.Catalog().Len()))

	if marked := len(m.marked); marked > 0 {
		chips += " " + ui.chip.Render(fmt.Sprintf("marked: %d", marked))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Left, title, " ", chips)

	return ui.header.Render(lipgloss.JoinVertical(lipgloss.Left, line, ui.subtitle.Render("Storage by location")))
}

// listHeight is the number of rows that fit between header and status.
func (m model) listHeight() int {
	if m.height == 0 {
		return max(len(m.rows), 1)
	}

	chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.statusView()) + lipgloss.Height(m.footerView())

	return max(m.height-chrome-2, 3)
}

func (m model) listView() string {
	if len(m.rows) == 0 {
		return ui.muted.Render("No labels sized yet")
	}

	width := max(m.width-6, 30)
	end := min(m.offset+m.listHeight(), len(m.rows))
	lines := make([]string, 0, end-m.offset)

	for i := m.offset; i < end; i++ {
		lines = append(lines, m.rowView(m.rows[i], i == m.cursor, width))
	}

	return strings.Join(lines, "\n")
}

func (m model) rowView(r row, selected bool, width int) string {
	n := r.node

	toggle := " "

	switch {
	case m.expanding[n.ID]:
		toggle = "…"
	case r.open:
		toggle = "▾"
	case n.HasChildren():
		toggle = "▸"
	}

	mark := "   "
	if n.IsRoot() {
		mark = "[ ]"
		if m.marked[n.Label] {
			mark = "[x]"
		}
	}

	name := strings.Repeat("  ", r.depth) + toggle + " " + n.DisplayName()
	if n.IsRoot() && m.session.Catalog().IsProtected(n.Label) {
		name += " (protected)"
	}

	nameWidth := max(width-sizeWidth-len(mark)-2, 10)
	name = truncate(name, nameWidth)

	line := fmt.Sprintf("%s %-*s %*s", mark, nameWidth, name, sizeWidth, dirstat.FormatSize(n.Size))

	switch {
	case selected:
		return ui.selected.Render(line)
	case n.IsRoot() && m.marked[n.Label]:
		return ui.accent.Render(line)
	default:
		return ui.status.Render(line)
	}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}

	return string(runes[:width-1]) + "…"
}

func (m model) statusView() string {
	var lines []string

	var total int64
	for _, root := range m.roots {
		total += root.Size
	}

	switch {
	case m.scanning:
		ratio := 0.0
		if m.scanTotal > 0 {
			ratio = float64(m.scanDone) / float64(m.scanTotal)
		}

		lines = append(lines,
			ui.status.Render(fmt.Sprintf("%s Scanning… %d/%d labels · %s so far",
				m.spinner.View(), m.scanDone, m.scanTotal, dirstat.FormatSize(total))),
			m.progress.ViewAs(ratio),
		)
	case m.cleaning:
		lines = append(lines, ui.status.Render(m.spinner.View()+" Cleaning…"))
	default:
		parts := []string{fmt.Sprintf("Total: %s", dirstat.FormatSize(total))}
		if m.lastScan > 0 {
			parts = append(parts, fmt.Sprintf("Scan: %s", m.lastScan.Truncate(10*time.Millisecond)))
		}

		lines = append(lines, ui.status.Render(strings.Join(parts, " · ")))
	}

	if m.err != nil {
		lines = append(lines, ui.danger.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	lines = append(lines, m.notices...)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) footerView() string {
	if m.confirm != nil {
		names := make([]string, len(m.confirm))
		for i, label := range m.confirm {
			names[i] = string(label)
		}

		return ui.confirm.Render(fmt.Sprintf("Permanently clean %s? (y/n)", strings.Join(names, ", ")))
	}

	if m.lastEvent != "" {
		return lipgloss.JoinVertical(lipgloss.Left, ui.muted.Render(m.lastEvent), m.help.View(m.keys))
	}

	return m.help.View(m.keys)
}
