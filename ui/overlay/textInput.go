package overlay

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TextInputOverlay is a single-line prompt with an Enter button.
type TextInputOverlay struct {
	textinput     textinput.Model
	Title         string
	Hint          string
	FocusIndex    int // 0 for text input, 1 for enter button
	Submitted     bool
	Canceled      bool
	OnSubmit      func()
	// Validate, if set, is run on submit. A non-nil error keeps the overlay
	// open and is shown under the input.
	Validate      func(string) error
	err           error
	width, height int
}

// NewTextInputOverlay creates a new text input overlay. charLimit <= 0 means no limit.
func NewTextInputOverlay(title, initialValue, placeholder string, charLimit int) *TextInputOverlay {
	ti := textinput.New()
	ti.SetValue(initialValue)
	ti.Focus()
	ti.Prompt = "› "
	ti.Placeholder = placeholder
	if charLimit > 0 {
		ti.CharLimit = charLimit
	} else {
		ti.CharLimit = 0
	}

	return &TextInputOverlay{
		textinput:  ti,
		Title:      title,
		FocusIndex: 0,
	}
}

func (t *TextInputOverlay) SetSize(width, height int) {
	t.textinput.Width = width - 6 // Account for padding and borders
	t.width = width
	t.height = height
}

// Init initializes the text input overlay model
func (t *TextInputOverlay) Init() tea.Cmd {
	return textinput.Blink
}

// View renders the model's view
func (t *TextInputOverlay) View() string {
	return t.Render()
}

func (t *TextInputOverlay) toggleFocus() {
	t.FocusIndex = (t.FocusIndex + 1) % 2
	if t.FocusIndex == 0 {
		t.textinput.Focus()
	} else {
		t.textinput.Blur()
	}
}

// HandleKeyPress processes a key press and updates the state accordingly.
// Returns true if the overlay should be closed.
func (t *TextInputOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab:
		t.toggleFocus()
		return false
	case tea.KeyEsc:
		t.Canceled = true
		return true
	case tea.KeyEnter:
		// Enter submits from either the input or the button.
		if t.Validate != nil {
			if err := t.Validate(t.textinput.Value()); err != nil {
				t.err = err
				return false
			}
		}
		t.err = nil
		t.Submitted = true
		if t.OnSubmit != nil {
			t.OnSubmit()
		}
		return true
	default:
		if t.FocusIndex == 0 {
			t.err = nil
			t.textinput, _ = t.textinput.Update(msg)
		}
		return false
	}
}

// GetValue returns the current value of the text input.
func (t *TextInputOverlay) GetValue() string {
	return t.textinput.Value()
}

// Err returns the validation error from the last submit attempt.
func (t *TextInputOverlay) Err() error {
	return t.err
}

// IsSubmitted returns whether the form was submitted.
func (t *TextInputOverlay) IsSubmitted() bool {
	return t.Submitted
}

// IsCanceled returns whether the form was canceled.
func (t *TextInputOverlay) IsCanceled() bool {
	return t.Canceled
}

// SetOnSubmit sets a callback function for form submission.
func (t *TextInputOverlay) SetOnSubmit(onSubmit func()) {
	t.OnSubmit = onSubmit
}

var (
	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	inputTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			MarginBottom(1)

	inputHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	inputErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	buttonStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("0"))
)

// Render renders the text input overlay.
func (t *TextInputOverlay) Render() string {
	if t.width > 0 {
		t.textinput.Width = t.width - 6
	}

	content := inputTitleStyle.Render(t.Title) + "\n"
	if t.Hint != "" {
		content += inputHintStyle.Render(t.Hint) + "\n\n"
	}
	content += t.textinput.View() + "\n"
	if t.err != nil {
		content += inputErrStyle.Render(t.err.Error())
	}
	content += "\n"

	enterButton := " Enter "
	if t.FocusIndex == 1 {
		enterButton = focusedButtonStyle.Render(enterButton)
	} else {
		enterButton = buttonStyle.Render(enterButton)
	}
	content += enterButton

	return inputBoxStyle.Render(content)
}
