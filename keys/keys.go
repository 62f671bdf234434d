package keys

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyName int

const (
	KeyNewQuote KeyName = iota
	KeyShare
	KeyCopy
	KeyQuoteKey
	KeyHelp
	KeyQuit
)

// GlobalKeyStringsMap is a global, immutable map string to keybinding.
var GlobalKeyStringsMap = map[string]KeyName{
	"n":      KeyNewQuote,
	" ":      KeyNewQuote,
	"t":      KeyShare,
	"c":      KeyCopy,
	"k":      KeyQuoteKey,
	"?":      KeyHelp,
	"q":      KeyQuit,
	"ctrl+c": KeyQuit,
}

// GlobalkeyBindings is a global, immutable map of KeyName tot keybinding.
var GlobalkeyBindings = map[KeyName]key.Binding{
	KeyNewQuote: key.NewBinding(
		key.WithKeys("n", " "),
		key.WithHelp("n", "new quote"),
	),
	KeyShare: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "share"),
	),
	KeyCopy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy link"),
	),
	KeyQuoteKey: key.NewBinding(
		key.WithKeys("k"),
		key.WithHelp("k", "quote key"),
	),
	KeyHelp: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	KeyQuit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
