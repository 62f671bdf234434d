package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smtg-ai/quotewidget/keys"
	"github.com/smtg-ai/quotewidget/ui/overlay"
)

var helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)

var helpOrder = []keys.KeyName{
	keys.KeyNewQuote,
	keys.KeyShare,
	keys.KeyCopy,
	keys.KeyQuoteKey,
	keys.KeyHelp,
	keys.KeyQuit,
}

func helpText() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Random Quote"))
	b.WriteString("\n")
	b.WriteString("A new quote is fetched on start. Quotes over the length\nthreshold are shown in a compact style.\n\n")
	for _, name := range helpOrder {
		h := keys.GlobalkeyBindings[name].Help()
		fmt.Fprintf(&b, "%s %s\n", helpKeyStyle.Render(fmt.Sprintf("%-3s", h.Key)), h.Desc)
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Press any key to close."))
	return b.String()
}

func (m *home) showHelp() {
	m.textOverlay = overlay.NewTextOverlay(helpText())
	m.textOverlay.SetWidth(promptWidth(m.width))
	m.mode = tuiModeHelp
}
