package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	stepWidth      = 34
	statusWidth    = 10
	timeWidth      = 8
	minDetailWidth = 20
	// defaultWidth is assumed until the terminal reports its size.
	defaultWidth = 120
)

// Status values shown in the STATUS column.
const (
	StatusRunning = "running"
	StatusPending = "pending"
)

type stepRow struct {
	key     string
	name    string
	status  string
	detail  string
	started time.Time
	ended   time.Time
}

func (r stepRow) finished() bool {
	return r.status != "" && r.status != StatusRunning && r.status != StatusPending
}

// ProgressModel renders one row per session step with its status, elapsed
// time and the latest output line.
type ProgressModel struct {
	title   string
	rows    []stepRow
	index   map[string]int
	spinner spinner.Model
	width   int
	done    bool
	err     error
	now     func() time.Time
}

// NewProgressModel creates an empty step table.
func NewProgressModel(title string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return ProgressModel{
		title:   title,
		index:   make(map[string]int),
		spinner: s,
		width:   defaultWidth,
		now:     time.Now,
	}
}

func (m *ProgressModel) addRow(key, name string) {
	if _, ok := m.index[key]; ok {
		return
	}
	m.index[key] = len(m.rows)
	m.rows = append(m.rows, stepRow{key: key, name: name, status: StatusRunning, started: m.now()})
}

func (m *ProgressModel) updateRow(msg RowUpdateMsg) {
	i, ok := m.index[msg.Key]
	if !ok {
		return
	}
	row := &m.rows[i]
	if msg.Detail != "" {
		row.detail = msg.Detail
	}
	if msg.Status != "" {
		row.status = msg.Status
		if row.finished() && row.ended.IsZero() {
			row.ended = m.now()
		}
	}
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case AddRowMsg:
		m.addRow(msg.Key, msg.Name)
		return m, nil

	case RowUpdateMsg:
		m.updateRow(msg)
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ProgressModel) detailWidth() int {
	w := m.width - stepWidth - statusWidth - timeWidth - 6
	return max(w, minDetailWidth)
}

func cell(text string, width int) string {
	return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(text)
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(HeaderStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	detailWidth := m.detailWidth()
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cell("STEP", stepWidth), "  ",
		cell("STATUS", statusWidth), "  ",
		cell("TIME", timeWidth), "  ",
		cell("DETAIL", detailWidth))
	b.WriteString(HeaderStyle.Render(header))
	b.WriteByte('\n')

	for _, row := range m.rows {
		status := row.status
		if status == StatusRunning && !m.done {
			status = m.spinner.View() + status
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			cell(TruncateWithEllipsis(row.name, stepWidth), stepWidth), "  ",
			StatusStyle(row.status).Render(cell(status, statusWidth)), "  ",
			cell(m.elapsed(row), timeWidth), "  ",
			cell(TruncateLeft(row.detail, detailWidth), detailWidth))
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if m.err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
		return b.String()
	}
	if !m.done {
		finished, total := m.progressCounts()
		fmt.Fprintf(&b, "\n%s %d/%d steps finished\n", m.spinner.View(), finished, total)
	}
	return b.String()
}

func (m ProgressModel) elapsed(row stepRow) string {
	end := row.ended
	if end.IsZero() {
		end = m.now()
	}
	return FormatElapsed(end.Sub(row.started))
}

// progressCounts returns (finished, total).
func (m ProgressModel) progressCounts() (int, int) {
	finished := 0
	for _, row := range m.rows {
		if row.finished() {
			finished++
		}
	}
	return finished, len(m.rows)
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis keeps the head of value, marking the cut with "...".
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

// TruncateLeft keeps the tail of value, which is where log lines carry the
// interesting part.
func TruncateLeft(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[len(value)-max:]
	}
	return "..." + value[len(value)-max+3:]
}

// FormatElapsed renders a duration compactly: 850ms, 4.2s, 37s, 3m05s.
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
