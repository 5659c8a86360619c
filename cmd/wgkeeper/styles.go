package main

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	colorRed    = "#F76C7C"
	colorYellow = "#E3D367"
	colorGreen  = "#9CD57B"
	colorBlue   = "#78CEE9"
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorYellow))
	styleKey     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	styleActive  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen))
	styleProblem = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
)
