package views

import "github.com/charmbracelet/lipgloss"

var (
	StatusThinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	StatusExecutingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	StatusDoneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	StatusErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	StatusDefaultStyle   = lipgloss.NewStyle()

	AssistantMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	ToolOutputStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingLeft(2)
	LabelStyle            = lipgloss.NewStyle().Bold(true)
	SeparatorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
