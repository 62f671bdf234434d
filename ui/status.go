package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#36CFC9"))
	linkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F7A7A")).Underline(true)
)

// StatusLine shows a transient message, optionally followed by a link.
// Terminals that support OSC 8 make the link clickable.
type StatusLine struct {
	width int
	msg   string
	link  string
}

func NewStatusLine() *StatusLine {
	return &StatusLine{}
}

func (s *StatusLine) SetSize(width int) {
	s.width = width
}

// Set replaces the message. link may be empty.
func (s *StatusLine) Set(msg, link string) {
	s.msg = msg
	s.link = link
}

func (s *StatusLine) Clear() {
	s.msg = ""
	s.link = ""
}

func (s *StatusLine) Message() string { return s.msg }
func (s *StatusLine) Link() string    { return s.link }

func (s *StatusLine) String() string {
	if s.msg == "" {
		return ""
	}
	out := statusStyle.Render(s.msg)
	if s.link != "" {
		label := s.link
		if s.width > 0 {
			label = truncate.StringWithTail(label, uint(max(s.width-len(s.msg)-4, 10)), "…")
		}
		out += "  " + termenv.Hyperlink(s.link, linkStyle.Render(label))
	}
	return out
}
