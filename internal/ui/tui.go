package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadFunc fetches a fresh Snapshot, e.g. by calling a Retriever's
// GetStats over the indexed project. It is supplied by the caller so this
// package stays free of any dependency on the indexing/retrieval packages.
type LoadFunc func() (Snapshot, error)

// snapshotMsg/errMsg are the bubbletea messages the dashboard model
// reacts to.
type snapshotMsg Snapshot
type errMsg struct{ err error }

// DashboardModel is a bubbletea model that loads a Snapshot once at
// startup and lets the user trigger a reload with 'r'.
type DashboardModel struct {
	load LoadFunc

	loading  bool
	quitting bool
	err      error
	snap     Snapshot

	spinner spinner.Model
	styles  Styles
	width   int
}

// NewDashboardModel builds a DashboardModel that calls load to populate
// (and refresh) its view.
func NewDashboardModel(load LoadFunc, noColor bool) *DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &DashboardModel{
		load:    load,
		loading: true,
		spinner: s,
		styles:  GetStyles(noColor),
		width:   80,
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadCmd(m.load))
}

func loadCmd(load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		snap, err := load()
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg(snap)
	}
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.loading = true
			m.err = nil
			return m, loadCmd(m.load)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case snapshotMsg:
		m.loading = false
		m.snap = Snapshot(msg)
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	if m.loading {
		return fmt.Sprintf("%s loading project statistics...\n", m.spinner.View())
	}
	if m.err != nil {
		return m.styles.Error.Render("error: "+m.err.Error()) + "\n"
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	var sections []string
	sections = append(sections, m.renderCounts())
	if len(m.snap.LanguageBreakdown) > 0 {
		sections = append(sections, m.renderLanguages(width))
	}
	if len(m.snap.TopDependencies) > 0 {
		sections = append(sections, m.renderDependencies())
	}
	if len(m.snap.HighComplexity) > 0 {
		sections = append(sections, m.renderComplexity())
	}

	content := strings.Join(sections, "\n\n")
	title := "Index Status"
	if m.snap.ProjectName != "" {
		title = fmt.Sprintf("Index Status • %s", m.snap.ProjectName)
	}

	panel := m.styles.Panel.Width(width).Render(content)
	header := m.styles.Header.Render(title)
	footer := m.styles.Dim.Render("r to refresh · q to quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, panel, footer)
}

func (m *DashboardModel) renderCounts() string {
	lines := []string{
		fmt.Sprintf("%s  %d", m.styles.Label.Render("Files:"), m.snap.FileCount),
		fmt.Sprintf("%s %d", m.styles.Label.Render("Chunks:"), m.snap.ChunkCount),
	}
	if m.snap.ActiveBranch != "" {
		lines = append(lines, fmt.Sprintf("%s %s", m.styles.Label.Render("Branch:"), m.snap.ActiveBranch))
	}
	if m.snap.StaleFileCount > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("%d files changed since indexing", m.snap.StaleFileCount)))
	}
	return strings.Join(lines, "\n")
}

func (m *DashboardModel) renderLanguages(width int) string {
	var lines []string
	lines = append(lines, m.styles.Header.Render("Languages"))

	total := 0
	for _, count := range m.snap.LanguageBreakdown {
		total += count
	}
	if total == 0 {
		total = 1
	}

	barWidth := width - 20
	if barWidth < 10 {
		barWidth = 10
	}
	bar := progress.New(progress.WithSolidFill(ColorAccent), progress.WithWidth(barWidth), progress.WithoutPercentage())

	for _, lang := range sortedLanguages(m.snap.LanguageBreakdown) {
		count := m.snap.LanguageBreakdown[lang]
		share := float64(count) / float64(total)
		lines = append(lines, fmt.Sprintf("%-12s %s %d", lang, bar.ViewAs(share), count))
	}
	return strings.Join(lines, "\n")
}

func (m *DashboardModel) renderDependencies() string {
	lines := []string{m.styles.Header.Render("Most depended-upon")}
	for _, d := range m.snap.TopDependencies {
		lines = append(lines, fmt.Sprintf("  %-40s %d", d.Name, d.Count))
	}
	return strings.Join(lines, "\n")
}

func (m *DashboardModel) renderComplexity() string {
	lines := []string{m.styles.Header.Render("High complexity")}
	for _, c := range m.snap.HighComplexity {
		tag := ""
		if c.LooksUntested {
			tag = m.styles.Warning.Render(" (looks untested)")
		}
		lines = append(lines, fmt.Sprintf("  %s:%s complexity=%d%s", c.Filename, c.SymbolName, c.Complexity, tag))
	}
	return strings.Join(lines, "\n")
}
