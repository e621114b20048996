package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Styles holds all lipgloss styles for text output
var Styles = struct {
	// Category styles
	Mobius lipgloss.Style
	SSEMSE lipgloss.Style
	WxCAS  lipgloss.Style

	// Component styles
	Info      lipgloss.Style
	Timestamp lipgloss.Style
	Index     lipgloss.Style
	Message   lipgloss.Style

	// Summary styles
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
}{
	Mobius: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),  // Cyan
	SSEMSE: lipgloss.NewStyle().Foreground(lipgloss.Color("142")).Bold(true), // Yellow-green
	WxCAS:  lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true), // Purple

	Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")), // Gray
	Index:     lipgloss.NewStyle().Foreground(lipgloss.Color("33")),  // Blue
	Message:   lipgloss.NewStyle(),

	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("239")),
	Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value:   lipgloss.NewStyle().Bold(true),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),  // Green
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true), // Orange
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red
}

// CategoryStyle returns the style used for a record category
func CategoryStyle(cat domain.Category) lipgloss.Style {
	switch cat {
	case domain.CategoryMobius:
		return Styles.Mobius
	case domain.CategorySSEMSE:
		return Styles.SSEMSE
	case domain.CategoryWxCAS:
		return Styles.WxCAS
	default:
		return Styles.Value
	}
}

// StopText returns styled text for why a traversal ended
func StopText(stop domain.StopReason) string {
	switch stop {
	case domain.StopDrained:
		return Styles.Success.Render("DRAINED")
	case domain.StopDepthExceeded, domain.StopCapReached:
		return Styles.Warning.Render(string(stop))
	case domain.StopCanceled:
		return Styles.Danger.Render("CANCELED")
	default:
		return Styles.Value.Render(string(stop))
	}
}
