package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Interactive reports whether stdout is a terminal capable of an interactive
// bubbletea render. CI and redirected-output runs fall back to HeadlessRender.
func Interactive(out *os.File) bool {
	if os.Getenv("NSYTE_NON_INTERACTIVE") == "true" {
		return false
	}
	if !term.IsTerminal(int(out.Fd())) {
		return false
	}
	return termenv.NewOutput(out).Profile != termenv.Ascii
}

var (
	styleUpload = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleDelete = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Summary is the tally printed after a run finishes.
type Summary struct {
	RunID      string
	Scanned    int
	Uploaded   int
	UploadFail int
	Published  int
	Deleted    int
	Unchanged  int
}

// RenderSummary writes s as a small markdown report through glamour when out is an
// interactive terminal, and as a plain line otherwise.
func RenderSummary(out *os.File, s Summary) {
	plain := fmt.Sprintf("scanned %d, uploaded %d, published %d, deleted %d, unchanged %d",
		s.Scanned, s.Uploaded, s.Published, s.Deleted, s.Unchanged)

	if !Interactive(out) {
		fmt.Fprintln(out, plain)
		return
	}

	md := fmt.Sprintf("## sync %s\n\n| metric | count |\n|---|---|\n"+
		"| scanned | %d |\n| uploaded | %d |\n| upload failures | %d |\n"+
		"| published | %d |\n| deleted | %d |\n| unchanged | %d |\n",
		s.RunID, s.Scanned, s.Uploaded, s.UploadFail, s.Published, s.Deleted, s.Unchanged)

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		fmt.Fprintln(out, plain)
		return
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		fmt.Fprintln(out, plain)
		return
	}
	fmt.Fprint(out, rendered)
}

// HeadlessRender writes every collected line to w once, no redraw, for CI logs, then
// the grouped by-relay/by-server/by-file/by-event summary.
func HeadlessRender(w io.Writer, c *Collector) {
	for _, line := range c.Snapshot() {
		suffix := ""
		if line.Count > 1 {
			suffix = fmt.Sprintf(" (x%d)", line.Count)
		}
		fmt.Fprintf(w, "[%s] %s%s\n", line.Kind, line.Content, suffix)
	}
	renderGroupedSummary(w, c)
}

func renderGroupedSummary(w io.Writer, c *Collector) {
	if relays := c.GroupByRelay(); len(relays) > 0 {
		fmt.Fprintln(w, "relays:")
		for _, r := range relays {
			fmt.Fprintf(w, "  %s accepted=%d rejected=%d\n", r.Relay, r.Accepted, r.Rejected)
		}
	}
	if servers := c.GroupByServer(); len(servers) > 0 {
		fmt.Fprintln(w, "servers:")
		for _, s := range servers {
			fmt.Fprintf(w, "  %s success=%d failure=%d\n", s.Server, s.Success, s.Failure)
		}
	}
	if files := c.GroupByFile(); len(files) > 0 {
		fmt.Fprintln(w, "files:")
		for _, f := range files {
			fmt.Fprintf(w, "  ...%s success=%d failure=%d\n", f.DigestTail, f.Success, f.Failure)
		}
	}
	if events := c.GroupByEvent(); len(events) > 0 {
		fmt.Fprintln(w, "events:")
		for _, e := range events {
			fmt.Fprintf(w, "  ...%s success=%d failure=%d\n", e.IDTail, e.Success, e.Failure)
		}
	}
}

// model is the bubbletea model driving the interactive renderer: it polls the
// Collector on a fixed tick rather than subscribing, matching the Collector's
// pull-based design.
type model struct {
	collector *Collector
	done      <-chan struct{}
	lines     []Line
	finished  bool
	spinner   spinner.Model
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// NewProgram builds a bubbletea program that renders c's snapshots until done is
// closed.
func NewProgram(c *Collector, done <-chan struct{}) *tea.Program {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleUpload
	return tea.NewProgram(model{collector: c, done: done, spinner: s})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.lines = m.collector.Snapshot()
		select {
		case <-m.done:
			m.finished = true
			return m, tea.Quit
		default:
			return m, tick()
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var out string
	if !m.finished {
		out += m.spinner.View() + " syncing\n"
	}
	for _, line := range m.lines {
		style := styleDim
		switch line.Kind {
		case KindUpload:
			style = styleUpload
		case KindError:
			style = styleError
		case KindDelete:
			style = styleDelete
		}
		suffix := ""
		if line.Count > 1 {
			suffix = fmt.Sprintf(" (x%d)", line.Count)
		}
		out += style.Render(fmt.Sprintf("[%s] %s%s", line.Kind, line.Content, suffix)) + "\n"
	}
	if m.finished {
		out += styleDim.Render("done") + "\n"
		var buf strings.Builder
		renderGroupedSummary(&buf, m.collector)
		out += styleDim.Render(buf.String())
	}
	return out
}
