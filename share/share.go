// Package share builds share-intent links for a quote and hands them to the
// browser or the clipboard.
package share

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
)

// DefaultBaseURL is the share-intent endpoint used when none is configured.
const DefaultBaseURL = "https://twitter.com/intent/tweet"

// Actions accepted by NewOpener.
const (
	ActionBrowser   = "browser"
	ActionClipboard = "clipboard"
	ActionBoth      = "both"
)

// Text joins a quote and its author the way they appear in a share.
func Text(text, author string) string {
	return text + " - " + author
}

// BuildURL returns base?text=<text> - <author> with the value encoded as a
// URL query component. Spaces are encoded as %20 so the link renders the same
// in every client.
func BuildURL(base, text, author string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	value := strings.ReplaceAll(url.QueryEscape(Text(text, author)), "+", "%20")
	return base + sep + "text=" + value
}

// Opener delivers a share link somewhere the user can act on it.
type Opener interface {
	Open(link string) error
}

// OpenerFunc adapts a function into an Opener.
type OpenerFunc func(link string) error

// Open implements Opener.
func (f OpenerFunc) Open(link string) error {
	if f == nil {
		return nil
	}
	return f(link)
}

// BrowserOpener opens the link in the default browser.
type BrowserOpener struct{}

func init() {
	// The launcher's own output would be painted over the TUI.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open implements Opener.
func (BrowserOpener) Open(link string) error {
	if err := browser.OpenURL(link); err != nil {
		return fmt.Errorf("share: open browser: %w", err)
	}
	return nil
}

// ClipboardOpener copies the link to the system clipboard.
type ClipboardOpener struct{}

// Open implements Opener.
func (ClipboardOpener) Open(link string) error {
	if clipboard.Unsupported {
		return errors.New("share: clipboard is not supported on this system")
	}
	if err := clipboard.WriteAll(link); err != nil {
		return fmt.Errorf("share: copy to clipboard: %w", err)
	}
	return nil
}

// MultiOpener tries every opener and succeeds if any of them did.
type MultiOpener []Opener

// Open implements Opener.
func (m MultiOpener) Open(link string) error {
	var errs []error
	for _, o := range m {
		if err := o.Open(link); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// NewOpener returns the opener for a configured action.
func NewOpener(action string) (Opener, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "", ActionBrowser:
		return BrowserOpener{}, nil
	case ActionClipboard:
		return ClipboardOpener{}, nil
	case ActionBoth:
		return MultiOpener{BrowserOpener{}, ClipboardOpener{}}, nil
	default:
		return nil, fmt.Errorf("share: unknown action %q", action)
	}
}
