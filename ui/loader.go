package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var loaderStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("62")).
	Padding(1, 0)

// Loader shows the shared spinner while a quote is in flight.
type Loader struct {
	spinner *spinner.Model
	visible bool
	label   string
}

// NewLoader wraps a spinner owned by the caller. The caller keeps feeding it
// TickMsgs; the loader only decides whether it is drawn.
func NewLoader(s *spinner.Model) *Loader {
	return &Loader{spinner: s, label: "Fetching a quote"}
}

func (l *Loader) Show()         { l.visible = true }
func (l *Loader) Hide()         { l.visible = false }
func (l *Loader) Visible() bool { return l.visible }

// SetLabel changes the text next to the spinner, e.g. while retrying.
func (l *Loader) SetLabel(label string) {
	l.label = label
}

func (l *Loader) String() string {
	if !l.visible {
		return ""
	}
	return loaderStyle.Render(l.spinner.View() + " " + l.label + "...")
}
