// Package quote fetches random quotes from the forismatic API and carries the
// quote value the widget renders.
//
// The API is documented at http://api.forismatic.com/api/1.0/. Only the
// getQuote method is used, always with lang=en and format=json:
//
//	GET <relay><base>?method=getQuote&lang=en&format=json[&key=<n>]
//
// The optional relay is an intermediary that forwards the request verbatim; it
// is prefixed to the API URL as-is.
package quote

import (
	"context"
	"unicode/utf8"
)

const (
	// UnknownAuthor is displayed when the API returns an empty author.
	UnknownAuthor = "Unknown"
	// DefaultLongQuoteThreshold is the text length above which the long-quote style applies.
	DefaultLongQuoteThreshold = 120
)

// Quote is a single quote as returned by the API. It is not persisted and is
// replaced wholesale on every successful fetch.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// DisplayAuthor returns the author as it should be rendered.
func (q Quote) DisplayAuthor() string {
	if q.Author == "" {
		return UnknownAuthor
	}
	return q.Author
}

// IsLong reports whether the text is longer than threshold characters.
func (q Quote) IsLong(threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultLongQuoteThreshold
	}
	return utf8.RuneCountInString(q.Text) > threshold
}

// Displayed returns the quote with the author substituted for display.
func (q Quote) Displayed() Quote {
	return Quote{Text: q.Text, Author: q.DisplayAuthor()}
}

// Fetcher retrieves one quote.
type Fetcher interface {
	Fetch(ctx context.Context) (Quote, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context) (Quote, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context) (Quote, error) {
	return f(ctx)
}
