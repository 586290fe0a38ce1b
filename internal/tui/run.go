package tui

import (
	"fmt"
	"os"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive terminal editor and blocks until it quits
func Run(e *editor.Editor, opts Options) error {
	if !isatty() {
		return fmt.Errorf("not running in a terminal")
	}

	model := New(e, opts)
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// isatty checks if we're running in a terminal
func isatty() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
