package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/arthur-debert/configbridge/pkg/types"
)

var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var (
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleBad   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleDim   = lipgloss.NewStyle().Faint(true)
)

func render(style lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return style.Render(text)
}

func classificationStyle(c types.Classification) lipgloss.Style {
	switch c {
	case types.StatusInSync:
		return styleOK
	case types.StatusDriftedProject, types.StatusDriftedSystem:
		return styleWarn
	case types.StatusConflict, types.StatusBrokenLink, types.StatusCheckFailed:
		return styleBad
	default:
		return styleDim
	}
}
