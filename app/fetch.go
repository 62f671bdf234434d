package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smtg-ai/quotewidget/log"
	"github.com/smtg-ai/quotewidget/quote"
	"github.com/smtg-ai/quotewidget/ui"
)

// quoteFetchedMsg carries a successful response for fetch generation gen.
type quoteFetchedMsg struct {
	gen int
	q   quote.Quote
}

// quoteFailedMsg carries a failed attempt for fetch generation gen.
type quoteFailedMsg struct {
	gen int
	err error
}

// retryMsg fires when the backoff after a failure for gen has elapsed.
type retryMsg struct {
	gen int
}

// fetchAndDisplayQuote starts a new fetch cycle with a fresh retry budget.
func (m *home) fetchAndDisplayQuote() tea.Cmd {
	m.failures = 0
	m.failErr = nil
	m.loader.SetLabel("Fetching a quote")
	return m.fetchQuote()
}

// fetchQuote switches to Loading and issues one request off the update loop.
func (m *home) fetchQuote() tea.Cmd {
	m.gen++
	m.showLoadingSpinner()

	gen, ctx, fetcher := m.gen, m.ctx, m.fetcher
	return func() tea.Msg {
		q, err := fetcher.Fetch(ctx)
		if err != nil {
			return quoteFailedMsg{gen: gen, err: err}
		}
		return quoteFetchedMsg{gen: gen, q: q}
	}
}

func (m *home) showLoadingSpinner() {
	m.state = stateLoading
	m.quotePane.Hide()
	m.loader.Show()
	m.menu.SetState(ui.StateLoading)
}

func (m *home) hideLoadingSpinner() {
	if m.loader.Visible() {
		m.loader.Hide()
	}
}

func (m *home) handleQuoteFetched(msg quoteFetchedMsg) tea.Cmd {
	if msg.gen != m.gen {
		log.DebugLog.Printf("dropping stale quote from fetch %d (current %d)", msg.gen, m.gen)
		return nil
	}

	shown := msg.q.Displayed()
	m.quotePane.SetQuote(shown.Text, shown.Author, msg.q.IsLong(m.threshold))
	m.lastQuote = shown
	m.failures = 0

	m.hideLoadingSpinner()
	m.quotePane.Show()
	m.state = stateShowing
	m.menu.SetState(ui.StateShowing)
	return nil
}

func (m *home) handleQuoteFailed(msg quoteFailedMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	// Quitting cancels the in-flight request; that is not a failure.
	if errors.Is(msg.err, context.Canceled) && m.ctx.Err() != nil {
		return nil
	}

	m.failures++
	log.WarningLog.Printf("quote fetch attempt %d failed: %v", m.failures, msg.err)

	delay, ok := m.retry.Next(m.failures)
	if !ok {
		m.failQuote(msg.err)
		return nil
	}
	if delay <= 0 {
		return m.fetchQuote()
	}

	m.loader.SetLabel(fmt.Sprintf("Retrying (%d/%d)", m.failures+1, m.retry.MaxAttempts))
	gen := m.gen
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return retryMsg{gen: gen}
	})
}

// failQuote gives up on the current cycle. Only reachable with a bounded policy.
func (m *home) failQuote(err error) {
	log.ErrorLog.Printf("giving up after %d attempts: %v", m.failures, err)
	m.failErr = err
	m.hideLoadingSpinner()
	m.quotePane.Hide()
	m.state = stateFailed
	m.menu.SetState(ui.StateFailed)
}
