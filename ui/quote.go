package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

var (
	quoteTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#f1f1f1"})

	// longQuoteStyle stands in for a smaller font: no bold, dimmer color.
	longQuoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#3a3a3a", Dark: "#c8c8c8"})

	authorStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("62"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 3)
)

const (
	openQuote     = "❝ "
	maxQuoteWidth = 72
	minQuoteWidth = 20
)

// QuotePane is the quote container: the quote text and its author.
type QuotePane struct {
	width, height int
	hidden        bool

	text   string
	author string
	long   bool
}

// NewQuotePane returns a hidden, empty pane.
func NewQuotePane() *QuotePane {
	return &QuotePane{hidden: true}
}

func (q *QuotePane) SetSize(width, height int) {
	q.width = width
	q.height = height
}

// SetQuote writes the slots. author is rendered verbatim.
func (q *QuotePane) SetQuote(text, author string, long bool) {
	q.text = text
	q.author = author
	q.long = long
}

func (q *QuotePane) Text() string   { return q.text }
func (q *QuotePane) Author() string { return q.author }
func (q *QuotePane) IsLong() bool   { return q.long }

func (q *QuotePane) Show()        { q.hidden = false }
func (q *QuotePane) Hide()        { q.hidden = true }
func (q *QuotePane) Hidden() bool { return q.hidden }

// textWidth is the wrap width for the quote body.
func (q *QuotePane) textWidth() int {
	w := maxQuoteWidth
	if q.width > 0 && q.width-10 < w {
		w = q.width - 10
	}
	if q.long {
		// Long quotes get the full width so they take fewer lines.
		w += 8
		if q.width > 0 && w > q.width-10 {
			w = q.width - 10
		}
	}
	if w < minQuoteWidth {
		w = minQuoteWidth
	}
	return w
}

func (q *QuotePane) String() string {
	if q.hidden {
		return ""
	}

	style := quoteTextStyle
	if q.long {
		style = longQuoteStyle
	}
	width := q.textWidth()
	body := style.Render(wordwrap.String(openQuote+q.text, width))

	author := "— " + q.author
	// Right-align the author under the body.
	if pad := lipgloss.Width(body) - runewidth.StringWidth(author); pad > 0 {
		author = strings.Repeat(" ", pad) + author
	}

	return containerStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		body,
		"",
		authorStyle.Render(author),
	))
}
