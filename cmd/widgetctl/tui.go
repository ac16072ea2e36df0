package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pagewidgets/pagewidgets-server/internal/logger"
	"github.com/pagewidgets/pagewidgets-server/internal/markers"
)

// tuiLogger writes JSON logs to widgetctl.log next to the marker store so
// they do not draw over the terminal UI.
func tuiLogger() (*slog.Logger, func(), error) {
	dir := filepath.Dir(cfg.MarkersPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "widgetctl.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	l := logger.New(logger.Config{
		Writer: f,
		Format: "json",
		Level:  logger.ParseLevel(cfg.LogLevel),
	})
	return l.Logger, func() { _ = f.Close() }, nil
}

func openMarkers(l *slog.Logger) (markers.Store, error) {
	if cfg.Markers != markers.DriverMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.MarkersPath), 0o755); err != nil {
			return nil, err
		}
	}
	return markers.Open(cfg.Markers, cfg.MarkersPath, l)
}

func runProgram(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
