// Package tui provides a terminal user interface for circuitpatch
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/circuitpatch/pkg/config"
	"github.com/james-see/circuitpatch/pkg/converter"
	"github.com/james-see/circuitpatch/pkg/library"
)

// Circuit-inspired color scheme (pad colors)
var (
	padPurple  = lipgloss.Color("#B45CFF")
	padCyan    = lipgloss.Color("#3DF2E0")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(padCyan).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(padCyan).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(padPurple).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(padCyan).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(padCyan).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateList State = iota
	StateFilePicker
	StateConverting
)

// Model represents the TUI model
type Model struct {
	state      State
	cursor     int
	filePicker filepicker.Model
	spinner    spinner.Model

	lib       *library.Library
	conv      *converter.Converter
	outputDir string

	status string
	err    error
	width  int
	height int
}

// processedMsg signals that a processing pass finished
type processedMsg struct {
	err error
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	summary *converter.Summary
	err     error
}

// New creates a new TUI model
func New(cfg *config.Config, logger *slog.Logger) (Model, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sink, err := converter.NewDirSink(cfg.OutputDir)
	if err != nil {
		return Model{}, err
	}

	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".syx"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(padCyan)

	return Model{
		state:      StateList,
		filePicker: fp,
		spinner:    s,
		lib:        library.New(library.WithLogger(logger)),
		conv: converter.New(sink, logger,
			converter.WithThrottle(cfg.Throttle.BatchSize, cfg.Throttle.Pause())),
		outputDir: cfg.OutputDir,
	}, nil
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc", "tab":
				m.state = StateList
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			if err := m.addFile(path); err != nil {
				m.err = err
				return m, cmd
			}
			m.status = fmt.Sprintf("Added %s", filepath.Base(path))
			return m, tea.Batch(cmd, m.process())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		if m.state == StateList {
			return m.updateList(msg)
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case processedMsg:
		m.err = msg.err
		return m, nil

	case conversionDoneMsg:
		m.state = StateList
		m.err = msg.err
		if msg.summary != nil {
			m.status = fmt.Sprintf("Converted %d patches into %s (%d skipped)",
				msg.summary.Emitted, m.outputDir, msg.summary.Skipped)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.lib.Len()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "a", "tab":
		m.state = StateFilePicker
		m.err = nil
		return m, m.filePicker.Init()
	case "c":
		if m.conv.Busy() {
			m.status = converter.ErrBusy.Error()
			return m, nil
		}
		m.state = StateConverting
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.performConversion())
	case "d":
		if n == 0 {
			return m, nil
		}
		if err := m.lib.Remove(m.cursor, 1); err != nil {
			m.err = err
		}
		if m.cursor >= m.lib.Len() && m.cursor > 0 {
			m.cursor--
		}
	case "x":
		m.lib.Clear()
		m.cursor = 0
		m.status = "Cleared file list"
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) addFile(path string) error {
	src, err := library.OpenFile(path)
	if err != nil {
		return err
	}
	_, err = m.lib.Add(src)
	return err
}

func (m Model) process() tea.Cmd {
	lib := m.lib
	return func() tea.Msg {
		return processedMsg{err: lib.Process(context.Background())}
	}
}

func (m Model) performConversion() tea.Cmd {
	lib, conv := m.lib, m.conv
	return func() tea.Msg {
		sum, err := conv.Run(context.Background(), lib)
		return conversionDoneMsg{summary: sum, err: err}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")

	switch m.state {
	case StateList:
		s.WriteString(m.viewList())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • a: add files • c: convert • d: remove • x: clear • q: quit"))

	return s.String()
}

func (m Model) viewList() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" PATCH FILES "))
	s.WriteString("\n\n")

	reports := m.lib.Reports()
	if len(reports) == 0 {
		s.WriteString(menuStyle.Render("No files yet. Press a to add .syx files."))
		s.WriteString("\n")
	}
	for i, r := range reports {
		line := fmt.Sprintf("%s  %s", r.Name, r.Summary())
		if i == m.cursor {
			s.WriteString(selectedStyle.Render("▸ " + line))
			s.WriteString("\n")
			s.WriteString(m.viewPatches(r))
		} else {
			s.WriteString(menuStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	} else if m.status != "" {
		s.WriteString(successStyle.Render("✓ " + m.status))
	}

	return boxStyle.Render(s.String())
}

// viewPatches lists the slots of the highlighted file
func (m Model) viewPatches(r library.FileReport) string {
	if len(r.Patches) <= 1 {
		return ""
	}
	var s strings.Builder
	for _, p := range r.Patches {
		var line string
		if p.Error != "" {
			line = fmt.Sprintf("%2d  %s", p.Slot, p.Error)
		} else {
			line = fmt.Sprintf("%2d  %-16s %-10s %s", p.Slot, p.Name, p.Category, p.Genre)
		}
		s.WriteString(lipgloss.NewStyle().Foreground(padPurple).PaddingLeft(4).Render(line))
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" ADD SYX FILES "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()))
		s.WriteString("\n")
	} else if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("esc: back to file list"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %d files...\n", m.spinner.View(), m.lib.Len()))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  writing to %s", m.outputDir)))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ___ ___ ___  ___ _   _ ___ _____   ___  _ _____ ___ _  _ 
  / __|_ _| _ \/ __| | | |_ _|_   _| | _ \/_\_   _/ __| || |
 | (__ | ||   / (__| |_| || |  | |   |  _/ _ \| || (__| __ |
  \___|___|_|_\\___|\___/|___| |_|   |_|/_/ \_\_| \___|_||_|
`
	return lipgloss.NewStyle().Foreground(padCyan).Render(logo)
}

// Run starts the TUI application
func Run(cfg *config.Config, logger *slog.Logger) error {
	m, err := New(cfg, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
