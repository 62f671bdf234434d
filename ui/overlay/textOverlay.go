package overlay

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// TextOverlay shows a block of text until any key is pressed.
type TextOverlay struct {
	content   string
	width     int
	Dismissed bool
	OnDismiss func()
}

func NewTextOverlay(content string) *TextOverlay {
	return &TextOverlay{content: content}
}

// SetWidth sets the wrap width of the content. Zero disables wrapping.
func (t *TextOverlay) SetWidth(width int) {
	t.width = width
}

// HandleKeyPress dismisses the overlay. It always returns true.
func (t *TextOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	t.Dismissed = true
	if t.OnDismiss != nil {
		t.OnDismiss()
	}
	return true
}

var textOverlayStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(1, 2)

func (t *TextOverlay) Render() string {
	content := t.content
	if t.width > 6 {
		content = wordwrap.String(content, t.width-6)
	}
	return textOverlayStyle.Render(content)
}
