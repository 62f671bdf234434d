package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smtg-ai/quotewidget/keys"
)

var keyStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#655F5F",
	Dark:  "#7F7A7A",
})

var descStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#7A7474",
	Dark:  "#9C9494",
})

var sepStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#DDDADA",
	Dark:  "#3C3C3C",
})

var actionGroupStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

var separator = " • "
var verticalSeparator = " │ "

var menuStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#7D56F4"))

// MenuState selects which options are offered.
type MenuState int

const (
	StateLoading MenuState = iota
	StateShowing
	StateFailed
)

// Menu is the row of key hints below the quote. The first group holds the
// two widget buttons.
type Menu struct {
	options       []keys.KeyName
	height, width int
	state         MenuState

	// keyDown is the key which is pressed. The default is -1.
	keyDown keys.KeyName
}

var loadingMenuOptions = []keys.KeyName{keys.KeyNewQuote, keys.KeyShare, keys.KeyHelp, keys.KeyQuit}
var defaultMenuOptions = []keys.KeyName{keys.KeyNewQuote, keys.KeyShare, keys.KeyCopy, keys.KeyQuoteKey, keys.KeyHelp, keys.KeyQuit}
var failedMenuOptions = []keys.KeyName{keys.KeyNewQuote, keys.KeyQuoteKey, keys.KeyHelp, keys.KeyQuit}

func NewMenu() *Menu {
	return &Menu{
		options: loadingMenuOptions,
		state:   StateLoading,
		keyDown: -1,
	}
}

func (m *Menu) Keydown(name keys.KeyName) {
	m.keyDown = name
}

func (m *Menu) ClearKeydown() {
	m.keyDown = -1
}

// SetState updates the menu state and options accordingly
func (m *Menu) SetState(state MenuState) {
	m.state = state
	switch state {
	case StateShowing:
		m.options = defaultMenuOptions
	case StateFailed:
		m.options = failedMenuOptions
	default:
		m.options = loadingMenuOptions
	}
}

func (m *Menu) State() MenuState {
	return m.state
}

// SetSize sets the width of the window. The menu will be centered horizontally within this width.
func (m *Menu) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Menu) String() string {
	var s strings.Builder

	// The widget buttons come first, then the system keys.
	groups := [][]keys.KeyName{{}, {}}
	for _, k := range m.options {
		if k == keys.KeyHelp || k == keys.KeyQuit {
			groups[1] = append(groups[1], k)
		} else {
			groups[0] = append(groups[0], k)
		}
	}

	for gi, group := range groups {
		for i, k := range group {
			binding := keys.GlobalkeyBindings[k]

			var (
				localActionStyle = actionGroupStyle
				localKeyStyle    = keyStyle
				localDescStyle   = descStyle
			)
			if gi == 1 {
				localActionStyle = descStyle
			}
			if m.keyDown == k {
				localActionStyle = localActionStyle.Underline(true)
				localKeyStyle = localKeyStyle.Underline(true)
				localDescStyle = localDescStyle.Underline(true)
			}

			s.WriteString(localKeyStyle.Render(binding.Help().Key))
			s.WriteString(" ")
			if gi == 0 {
				s.WriteString(localActionStyle.Render(binding.Help().Desc))
			} else {
				s.WriteString(localDescStyle.Render(binding.Help().Desc))
			}

			if i != len(group)-1 {
				s.WriteString(sepStyle.Render(separator))
			}
		}
		if gi == 0 && len(groups[1]) > 0 {
			s.WriteString(sepStyle.Render(verticalSeparator))
		}
	}

	centeredMenuText := menuStyle.Render(s.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, centeredMenuText)
}
