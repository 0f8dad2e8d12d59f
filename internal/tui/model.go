// Package tui implements the interactive browser: labels stream in as they
// are sized, directories are expanded on demand and marked labels can be
// cleaned after confirmation.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/clean"
	"github.com/idelchi/dirsweep/internal/dirstat"
	"github.com/idelchi/dirsweep/internal/session"
	"github.com/idelchi/dirsweep/internal/tree"
)

// Run starts the browser on s and blocks until the user quits.
func Run(ctx context.Context, s *session.Session) error {
	m := newModel(ctx, s)

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}

		return fmt.Errorf("running browser: %w", err)
	}

	return nil
}

type model struct {
	session *session.Session

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	roots     []*tree.Node
	rows      []row
	open      map[string]bool
	marked    map[catalog.Label]bool
	expanding map[string]bool
	cursor    int
	offset    int

	scanning  bool
	scanID    int
	scanDone  int
	scanTotal int
	lastScan  time.Duration
	cleaning  bool
	confirm   []catalog.Label

	notices   []string
	lastEvent string
	err       error

	width  int
	height int

	baseCtx    context.Context
	baseCancel context.CancelFunc
	scanCtx    context.Context
	scanCancel context.CancelFunc
	scanStream <-chan tea.Msg
}

func newModel(ctx context.Context, s *session.Session) model {
	baseCtx, baseCancel := context.WithCancel(ctx)
	scanCtx, scanCancel := context.WithCancel(baseCtx)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = ui.accent

	return model{
		session: s,
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: sp,
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
		),
		open:       make(map[string]bool),
		marked:     make(map[catalog.Label]bool),
		expanding:  make(map[string]bool),
		scanning:   true,
		scanID:     1,
		scanTotal:  s.Catalog().Len(),
		lastEvent:  "Scanning…",
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		scanCtx:    scanCtx,
		scanCancel: scanCancel,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scanStartCmd(m.scanCtx, m.session, m.scanID))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-30, 10)
		m.scrollToCursor()
	case spinner.TickMsg:
		if m.scanning || m.cleaning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case scanStreamMsg:
		if msg.ID != m.scanID {
			break
		}

		m.scanStream = msg.Ch
		cmds = append(cmds, waitScanMsg(msg.Ch))
	case scanRootMsg:
		if msg.ID != m.scanID {
			break
		}

		m.roots = append(m.roots, msg.Root)
		m.scanDone = msg.Done
		m.scanTotal = msg.Total
		m.lastEvent = fmt.Sprintf("Sized %s: %s", msg.Root.Label, dirstat.FormatSize(msg.Root.Size))
		m.refresh()

		if m.scanStream != nil {
			cmds = append(cmds, waitScanMsg(m.scanStream))
		}
	case scanFinishedMsg:
		if msg.ID != m.scanID {
			break
		}

		m.scanning = false
		m.scanStream = nil
		m.lastScan = msg.Elapsed
		m.err = msg.Err

		if msg.Err == nil {
			m.lastEvent = fmt.Sprintf("Scan complete: %d labels", len(m.roots))
		} else {
			m.lastEvent = fmt.Sprintf("Scan interrupted: %v", msg.Err)
		}
	case expandedMsg:
		delete(m.expanding, msg.NodeID)

		if msg.Err != nil {
			m.lastEvent = fmt.Sprintf("Expand failed: %v", msg.Err)

			break
		}

		m.open[msg.NodeID] = true
		m.refresh()
	case cleanedMsg:
		m.cleaning = false
		m.marked = make(map[catalog.Label]bool)
		m.notices = notices(msg.Results)
		m.lastEvent = summary(msg.Results)

		var scanCmds []tea.Cmd
		m, scanCmds = m.startScan()
		cmds = append(cmds, scanCmds...)
	case tea.KeyMsg:
		if m.confirm != nil {
			switch msg.String() {
			case "y", "Y":
				labels := m.confirm
				m.confirm = nil
				m.cleaning = true
				m.lastEvent = fmt.Sprintf("Cleaning %d label(s)…", len(labels))
				cmds = append(cmds, m.spinner.Tick, cleanCmd(m.baseCtx, m.session, labels))
			case "n", "N", "esc":
				m.confirm = nil
				m.lastEvent = "Clean cancelled"
			}

			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.baseCancel()

			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, m.keys.Expand):
			if cmd := m.expandSelected(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case key.Matches(msg, m.keys.Collapse):
			m.collapseSelected()
		case key.Matches(msg, m.keys.Mark):
			m.toggleMark()
		case key.Matches(msg, m.keys.Clean):
			m.requestClean()
		case key.Matches(msg, m.keys.Rescan):
			if m.cleaning {
				break
			}

			var scanCmds []tea.Cmd
			m, scanCmds = m.startScan()
			m.notices = nil
			cmds = append(cmds, scanCmds...)
		}
	}

	return m, tea.Batch(cmds...)
}

// startScan cancels a running scan and begins a new one. The previous tree is
// discarded, so open directories are forgotten.
func (m model) startScan() (model, []tea.Cmd) {
	m.scanCancel()

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.scanCtx = ctx
	m.scanCancel = cancel
	m.scanID++
	m.scanning = true
	m.scanDone = 0
	m.scanStream = nil
	m.roots = nil
	m.open = make(map[string]bool)
	m.expanding = make(map[string]bool)
	m.err = nil
	m.refresh()

	return m, []tea.Cmd{m.spinner.Tick, scanStartCmd(ctx, m.session, m.scanID)}
}

// refresh rebuilds the visible rows and keeps the cursor in range.
func (m *model) refresh() {
	m.rows = flatten(m.roots, m.open)
	m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
	m.scrollToCursor()
}

func (m *model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}

	return m.rows[m.cursor], true
}

func (m *model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}

	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.scrollToCursor()
}

func (m *model) scrollToCursor() {
	height := m.listHeight()

	if m.cursor < m.offset {
		m.offset = m.cursor
	}

	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}

	m.offset = max(min(m.offset, len(m.rows)-height), 0)
}

func (m *model) expandSelected() tea.Cmd {
	r, ok := m.selected()
	if !ok || r.open {
		return nil
	}

	n := r.node

	if !n.HasChildren() {
		m.lastEvent = fmt.Sprintf("%s has nothing to expand", n.DisplayName())

		return nil
	}

	if n.Expanded() {
		m.open[n.ID] = true
		m.refresh()

		return nil
	}

	if m.expanding[n.ID] || m.cleaning {
		return nil
	}

	m.expanding[n.ID] = true
	m.lastEvent = fmt.Sprintf("Sizing %s…", n.DisplayName())

	return expandCmd(m.baseCtx, m.session, n.ID)
}

func (m *model) collapseSelected() {
	r, ok := m.selected()
	if !ok {
		return
	}

	if r.open {
		delete(m.open, r.node.ID)
		m.refresh()

		return
	}

	if parent := parentRow(m.rows, m.cursor); parent >= 0 {
		m.cursor = parent
		m.scrollToCursor()
	}
}

func (m *model) toggleMark() {
	r, ok := m.selected()
	if !ok {
		return
	}

	label := r.node.Label

	if m.marked[label] {
		delete(m.marked, label)
		m.lastEvent = fmt.Sprintf("Unmarked %s", label)
	} else {
		m.marked[label] = true
		m.lastEvent = fmt.Sprintf("Marked %s", label)
	}
}

// markedLabels returns the marked labels in catalog order.
func (m *model) markedLabels() []catalog.Label {
	var labels []catalog.Label

	for _, label := range m.session.Catalog().Labels() {
		if m.marked[label] {
			labels = append(labels, label)
		}
	}

	return labels
}

func (m *model) requestClean() {
	switch {
	case m.cleaning:
		return
	case m.scanning:
		m.lastEvent = "Wait for the scan to finish"

		return
	}

	labels := m.markedLabels()
	if len(labels) == 0 {
		m.lastEvent = "Nothing marked: press space on a label first"

		return
	}

	m.confirm = labels
}

func notices(results []clean.Result) []string {
	var out []string

	for _, result := range results {
		switch result.Kind {
		case clean.Success:
			out = append(out, ui.accent.Render(fmt.Sprintf("Cleaned %s: freed %s", result.Label, dirstat.FormatSize(result.Freed))))
		case clean.Protected:
			out = append(out, ui.warning.Render(fmt.Sprintf("Protected: %s", result.Reason)))
		case clean.Failed:
			out = append(out, ui.danger.Render(fmt.Sprintf("Failed %s: %s", result.Label, result.Reason)))
		case clean.Skipped:
			out = append(out, ui.muted.Render(fmt.Sprintf("Skipped %s: %s", result.Label, result.Reason)))
		}
	}

	return out
}

func summary(results []clean.Result) string {
	var freed int64

	cleaned, failed := 0, 0

	for _, result := range results {
		switch result.Kind {
		case clean.Success:
			cleaned++
			freed += result.Freed
		case clean.Failed:
			failed++
		}
	}

	text := fmt.Sprintf("Cleaned %d label(s), freed %s", cleaned, dirstat.FormatSize(freed))
	if failed > 0 {
		text += fmt.Sprintf(", %d failed", failed)
	}

	return text + "; rescanning…"
}
