package app

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smtg-ai/quotewidget/share"
)

// sharedMsg reports the outcome of handing a share link to an opener.
type sharedMsg struct {
	link   string
	copied bool
	err    error
}

// shareURL is the share link for the quote on display. Before the first
// successful fetch both segments are empty.
func (m *home) shareURL() string {
	return share.BuildURL(m.shareBase, m.lastQuote.Text, m.lastQuote.Author)
}

// shareQuote hands the share link to the configured opener.
func (m *home) shareQuote() tea.Cmd {
	return m.deliver(m.opener, false)
}

// copyShareLink puts the share link on the clipboard.
func (m *home) copyShareLink() tea.Cmd {
	return m.deliver(m.copier, true)
}

func (m *home) deliver(o share.Opener, copied bool) tea.Cmd {
	link := m.shareURL()
	if o == nil {
		return m.handleError(errors.New("no share target is configured"))
	}
	return func() tea.Msg {
		return sharedMsg{link: link, copied: copied, err: o.Open(link)}
	}
}

// handleShared reports the share outcome. The quote state is left alone.
func (m *home) handleShared(msg sharedMsg) tea.Cmd {
	if msg.err != nil {
		return m.handleError(msg.err)
	}
	text := "Opened share link"
	if msg.copied {
		text = "Copied share link"
	}
	return m.setStatus(text, msg.link)
}
