package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/clean"
	"github.com/idelchi/dirsweep/internal/session"
	"github.com/idelchi/dirsweep/internal/tree"
)

type scanStreamMsg struct {
	ID int
	Ch <-chan tea.Msg
}

type scanRootMsg struct {
	ID    int
	Done  int
	Total int
	Root  *tree.Node
}

type scanFinishedMsg struct {
	ID      int
	Err     error
	Elapsed time.Duration
}

type expandedMsg struct {
	NodeID string
	Err    error
}

type cleanedMsg struct {
	Results []clean.Result
}

func scanStartCmd(ctx context.Context, s *session.Session, id int) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan tea.Msg)
		go runScanStream(ctx, s, id, ch)

		return scanStreamMsg{ID: id, Ch: ch}
	}
}

// runScanStream scans s and sends one message per label, then a final one.
func runScanStream(ctx context.Context, s *session.Session, id int, out chan<- tea.Msg) {
	defer close(out)

	send := func(msg tea.Msg) {
		select {
		case out <- msg:
		case <-ctx.Done():
		}
	}

	start := time.Now()

	_, err := s.Scan(ctx, func(done, total int, root *tree.Node) {
		send(scanRootMsg{ID: id, Done: done, Total: total, Root: root})
	})

	send(scanFinishedMsg{ID: id, Err: err, Elapsed: time.Since(start)})
}

func waitScanMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}

		return msg
	}
}

func expandCmd(ctx context.Context, s *session.Session, id string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Expand(ctx, id)

		return expandedMsg{NodeID: id, Err: err}
	}
}

func cleanCmd(ctx context.Context, s *session.Session, labels []catalog.Label) tea.Cmd {
	return func() tea.Msg {
		return cleanedMsg{Results: s.Clean(ctx, labels)}
	}
}
