package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-instrument/errors"
	"github.com/wippyai/wasm-instrument/instrument"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	importStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	unknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newExploreCommand(stdOut io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "explore --in PATH",
		Short: "Browse the named functions of a module and their callees",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplore(cmd, opts, stdOut)
		},
	}
	cmd.Flags().StringVar(&opts.in, "in", "", "path of the wasm module")
	addCommonFlags(cmd, opts)
	return cmd
}

func runExplore(cmd *cobra.Command, opts *options, stdOut io.Writer) error {
	v, err := newViper(cmd, opts)
	if err != nil {
		return err
	}
	in := v.GetString("in")
	if in == "" {
		return usageError("--in is required")
	}
	if !isTerminal(stdOut) {
		return usageError("explore needs a terminal")
	}

	p := tea.NewProgram(newExploreModel(in), tea.WithAltScreen(), tea.WithOutput(stdOut))
	final, err := p.Run()
	if err != nil {
		return errors.Wrap(errors.PhaseUsage, errors.KindIO, err, "run explorer")
	}
	if m, ok := final.(*exploreModel); ok && m.loadErr != nil {
		return m.loadErr
	}
	return nil
}

type exploreState int

const (
	stateSelectFunc exploreState = iota
	stateShowReport
)

type exploreModel struct {
	loadErr   error
	reportErr error
	module    *instrument.Module
	filename  string
	funcs     []instrument.Function
	visible   []instrument.Function
	deps      []instrument.Dependency
	filter    textinput.Model
	selected  int
	state     exploreState
}

type loadedMsg struct {
	err    error
	module *instrument.Module
}

func newExploreModel(filename string) *exploreModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"
	ti.Width = 40
	return &exploreModel{
		filename: filename,
		filter:   ti,
		state:    stateSelectFunc,
	}
}

func (m *exploreModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *exploreModel) loadModule() tea.Msg {
	mod, err := instrument.DecodeFile(m.filename)
	return loadedMsg{module: mod, err: err}
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, tea.Quit
		}
		m.module = msg.module
		m.funcs = msg.module.Functions()
		m.applyFilter()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *exploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.filter.Focused() {
		switch msg.String() {
		case "esc", "enter":
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "/":
		if m.state == stateSelectFunc {
			return m, m.filter.Focus()
		}

	case "up", "k":
		if m.state == stateSelectFunc && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateSelectFunc && m.selected < len(m.visible)-1 {
			m.selected++
		}

	case "enter":
		if m.state == stateSelectFunc && len(m.visible) > 0 {
			m.deps, m.reportErr = m.module.Report(m.visible[m.selected].Name)
			m.state = stateShowReport
		}

	case "esc":
		if m.state == stateShowReport {
			m.state = stateSelectFunc
			m.deps = nil
			m.reportErr = nil
		}
	}
	return m, nil
}

// applyFilter narrows the function list to names containing the filter text.
func (m *exploreModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for _, f := range m.funcs {
		if query == "" || strings.Contains(strings.ToLower(f.Name), query) {
			m.visible = append(m.visible, f)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *exploreModel) View() string {
	if m.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.loadErr))
	}
	if m.module == nil {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wasminstr"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for i, f := range m.visible {
			if i == m.selected {
				b.WriteString(selectedStyle.Render(fmt.Sprintf("> %d %s", f.Index, f.Name)))
			} else {
				b.WriteString("  " + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("  no matching functions"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • / filter • enter callees • q quit"))

	case stateShowReport:
		f := m.visible[m.selected]
		b.WriteString(fmt.Sprintf("Callees of %s:\n\n", funcStyle.Render(f.Name)))
		switch {
		case m.reportErr != nil:
			b.WriteString(errorStyle.Render(m.reportErr.Error()))
			b.WriteString("\n")
		case len(m.deps) == 0:
			b.WriteString(helpStyle.Render("  no direct calls"))
			b.WriteString("\n")
		}
		for _, d := range m.deps {
			name := funcStyle.Render(d.Name())
			if !d.Known {
				name = unknownStyle.Render(d.Name())
			}
			b.WriteString(fmt.Sprintf("  %4d  call %-6d %s\n", d.Position, d.Callee, name))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func (m *exploreModel) formatFunc(f instrument.Function) string {
	label := fmt.Sprintf("%d %s", f.Index, f.Name)
	if f.Imported {
		return importStyle.Render(label + " (import)")
	}
	return funcStyle.Render(label)
}
