package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtg-ai/quotewidget/config"
	"github.com/smtg-ai/quotewidget/keys"
	"github.com/smtg-ai/quotewidget/log"
	"github.com/smtg-ai/quotewidget/quote"
)

// TestMain runs before all tests to set up the test environment
func TestMain(m *testing.M) {
	// Initialize the logger before any tests run
	log.Initialize(false)
	lipgloss.SetColorProfile(termenv.Ascii)

	exitCode := m.Run()
	log.Close()
	os.Exit(exitCode)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]|\x1b\]8;;[^\x1b]*\x1b\\`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

type recordingOpener struct {
	links []string
	err   error
}

func (r *recordingOpener) Open(link string) error {
	r.links = append(r.links, link)
	return r.err
}

// fakeAPI serves the quote API. respond decides the outcome of the n-th call (1-based).
type fakeAPI struct {
	srv *httptest.Server

	mu      sync.Mutex
	queries []string
}

func newFakeAPI(t *testing.T, respond func(n int, w http.ResponseWriter)) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.queries = append(api.queries, r.URL.RawQuery)
		n := len(api.queries)
		api.mu.Unlock()
		respond(n, w)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) client() *quote.Client {
	return quote.NewClient(
		quote.WithRelayURL(""),
		quote.WithBaseURL(a.srv.URL+"/api/1.0/"),
	)
}

func (a *fakeAPI) Queries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.queries...)
}

func respondJSON(body string) func(int, http.ResponseWriter) {
	return func(_ int, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// dropConnection makes the client see a network error.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	conn, _, err := hj.Hijack()
	if err == nil {
		_ = conn.Close()
	}
}

func staticFetcher(q quote.Quote) quote.Fetcher {
	return quote.FetcherFunc(func(context.Context) (quote.Quote, error) { return q, nil })
}

func newTestHome(t *testing.T, f quote.Fetcher, opts ...func(*config.Config)) (*home, *recordingOpener, *recordingOpener) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Retry.JitterFactor = 0
	for _, opt := range opts {
		opt(cfg)
	}
	opener, copier := &recordingOpener{}, &recordingOpener{}
	m := newHome(context.Background(), cfg, f, opener, copier)
	t.Cleanup(m.cancel)
	return m, opener, copier
}

// run executes cmd and feeds the messages it produces back into m. Spinner
// ticks are dropped. It returns the commands the model answered with.
func run(t *testing.T, m *home, cmd tea.Cmd) []tea.Cmd {
	t.Helper()
	if cmd == nil {
		return nil
	}
	var next []tea.Cmd
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			next = append(next, run(t, m, c)...)
		}
	case quoteFetchedMsg, quoteFailedMsg, retryMsg, sharedMsg:
		if _, c := m.Update(msg); c != nil {
			next = append(next, c)
		}
	}
	return next
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press delivers a key the way the program does: a highlighted menu key is
// sent a second time before it is handled.
func press(m *home, k string) tea.Cmd {
	msg := keyMsg(k)
	_, cmd := m.handleKeyPress(msg)
	if m.keySent {
		_, cmd = m.handleKeyPress(msg)
	}
	return cmd
}

func TestStartup_SuccessfulFetch(t *testing.T) {
	api := newFakeAPI(t, respondJSON(`{"quoteText":"Be yourself.","quoteAuthor":""}`))
	m, _, _ := newTestHome(t, api.client())

	cmd := m.Init()
	assert.Equal(t, stateLoading, m.state)
	assert.True(t, m.loader.Visible())
	assert.True(t, m.quotePane.Hidden())

	assert.Empty(t, run(t, m, cmd))

	assert.Equal(t, stateShowing, m.state)
	assert.Equal(t, "Be yourself.", m.quotePane.Text())
	assert.Equal(t, "Unknown", m.quotePane.Author())
	assert.False(t, m.loader.Visible())
	assert.False(t, m.quotePane.Hidden())

	view := stripANSI(m.View())
	assert.Contains(t, view, "Be yourself.")
	assert.Contains(t, view, "Unknown")
	assert.NotContains(t, view, "Fetching a quote")
	assert.Len(t, api.Queries(), 1)
}

func TestStartup_NetworkErrorRetriesWithSameQuery(t *testing.T) {
	api := newFakeAPI(t, func(n int, w http.ResponseWriter) {
		if n == 1 {
			dropConnection(w)
			return
		}
		respondJSON(`{"quoteText":"Second time lucky.","quoteAuthor":"Anon"}`)(n, w)
	})
	m, _, _ := newTestHome(t, api.client(), func(c *config.Config) { c.Retry.Unbounded = true })

	next := run(t, m, m.Init())
	require.Len(t, next, 1, "an immediate re-fetch is issued")
	assert.Equal(t, stateLoading, m.state, "no Showing or error state in between")
	assert.True(t, m.loader.Visible())
	assert.Nil(t, m.errBox.Err())

	assert.Empty(t, run(t, m, next[0]))

	queries := api.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, queries[0], queries[1])
	assert.Equal(t, "method=getQuote&lang=en&format=json", queries[0])
	assert.Equal(t, stateShowing, m.state)
	assert.Equal(t, "Anon", m.quotePane.Author())
}

func TestLegacyRetry_NeverLeavesLoading(t *testing.T) {
	calls := 0
	f := quote.FetcherFunc(func(context.Context) (quote.Quote, error) {
		calls++
		return quote.Quote{}, errors.New("boom")
	})
	m, _, _ := newTestHome(t, f, func(c *config.Config) { c.Retry.Unbounded = true })

	cmd := m.Init()
	for i := 0; i < 20; i++ {
		next := run(t, m, cmd)
		require.Len(t, next, 1)
		assert.Equal(t, stateLoading, m.state)
		cmd = next[0]
	}
	assert.Equal(t, 20, calls)
	assert.Nil(t, m.errBox.Err())
}

func TestBoundedRetry_FailsThenRecovers(t *testing.T) {
	fail := true
	f := quote.FetcherFunc(func(context.Context) (quote.Quote, error) {
		if fail {
			return quote.Quote{}, errors.New("relay unavailable")
		}
		return quote.Quote{Text: "Back again."}, nil
	})
	m, _, _ := newTestHome(t, f, func(c *config.Config) {
		c.Retry.MaxAttempts = 3
		c.Retry.InitialInterval = time.Millisecond
		c.Retry.MaxInterval = time.Millisecond
	})

	next := run(t, m, m.Init())
	for len(next) > 0 {
		assert.Equal(t, stateLoading, m.state)
		next = run(t, m, next[0])
	}

	assert.Equal(t, stateFailed, m.state)
	assert.Equal(t, 3, m.failures)
	assert.False(t, m.loader.Visible())
	assert.True(t, m.quotePane.Hidden())
	view := stripANSI(m.View())
	assert.Contains(t, view, "after 3 attempts")
	assert.Contains(t, view, "relay unavailable")
	assert.Contains(t, view, "Press n to try again")

	fail = false
	cmd := press(m, "n")
	assert.Equal(t, stateLoading, m.state)
	assert.Equal(t, 0, m.failures)
	assert.Empty(t, run(t, m, cmd))
	assert.Equal(t, stateShowing, m.state)
	assert.Equal(t, "Back again.", m.quotePane.Text())
}

func TestNewQuote_EntersLoadingBeforeResponse(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{Text: "One.", Author: "A"}))
	run(t, m, m.Init())
	require.Equal(t, stateShowing, m.state)

	cmd := press(m, "n")
	require.NotNil(t, cmd)
	assert.Equal(t, stateLoading, m.state)
	assert.True(t, m.loader.Visible())
	assert.True(t, m.quotePane.Hidden())

	run(t, m, cmd)
	assert.Equal(t, stateShowing, m.state)
}

func TestStaleResponseIsDropped(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{}))
	m.Init()
	press(m, "n")
	require.Equal(t, 2, m.gen)

	m.Update(quoteFetchedMsg{gen: 1, q: quote.Quote{Text: "old"}})
	assert.Equal(t, stateLoading, m.state)
	assert.Empty(t, m.quotePane.Text())

	m.Update(quoteFailedMsg{gen: 1, err: errors.New("old failure")})
	assert.Equal(t, 0, m.failures)

	m.Update(quoteFetchedMsg{gen: 2, q: quote.Quote{Text: "new"}})
	assert.Equal(t, stateShowing, m.state)
	assert.Equal(t, "new", m.quotePane.Text())
}

func TestQuoteRendering(t *testing.T) {
	tests := []struct {
		name       string
		q          quote.Quote
		wantAuthor string
		wantLong   bool
	}{
		{
			name:       "empty author shows Unknown",
			q:          quote.Quote{Text: "Be yourself.", Author: ""},
			wantAuthor: "Unknown",
		},
		{
			name:       "author is shown verbatim",
			q:          quote.Quote{Text: "Be yourself.", Author: "Mark Twain"},
			wantAuthor: "Mark Twain",
		},
		{
			name:       "120 characters is not long",
			q:          quote.Quote{Text: strings.Repeat("a", 120), Author: "X"},
			wantAuthor: "X",
		},
		{
			name:       "121 characters is long",
			q:          quote.Quote{Text: strings.Repeat("a", 121), Author: "X"},
			wantAuthor: "X",
			wantLong:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestHome(t, staticFetcher(tt.q))
			run(t, m, m.Init())

			assert.Equal(t, tt.q.Text, m.quotePane.Text())
			assert.Equal(t, tt.wantAuthor, m.quotePane.Author())
			assert.Equal(t, tt.wantLong, m.quotePane.IsLong())
		})
	}
}

func TestShareQuote(t *testing.T) {
	m, opener, _ := newTestHome(t, staticFetcher(quote.Quote{Text: "Brevity is the soul of wit"}))
	run(t, m, m.Init())

	next := run(t, m, press(m, "t"))
	require.Len(t, opener.links, 1)
	assert.Len(t, next, 1, "status line is hidden later")

	u, err := url.Parse(opener.links[0])
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", u.Host)
	assert.Equal(t, "Brevity is the soul of wit - Unknown", u.Query().Get("text"))
	assert.Equal(t, stateShowing, m.state)
	assert.Equal(t, "Opened share link", m.status.Message())
	assert.Equal(t, opener.links[0], m.status.Link())
}

func TestShareQuote_BeforeFirstQuote(t *testing.T) {
	block := make(chan struct{})
	f := quote.FetcherFunc(func(ctx context.Context) (quote.Quote, error) {
		<-block
		return quote.Quote{}, ctx.Err()
	})
	m, opener, _ := newTestHome(t, f)
	defer close(block)
	m.Init()

	run(t, m, press(m, "t"))
	require.Len(t, opener.links, 1)
	assert.Equal(t, "https://twitter.com/intent/tweet?text=%20-%20", opener.links[0])
	assert.Equal(t, stateLoading, m.state)
}

func TestShareQuote_OpenerError(t *testing.T) {
	m, opener, _ := newTestHome(t, staticFetcher(quote.Quote{Text: "x", Author: "y"}))
	opener.err = errors.New("no browser")
	run(t, m, m.Init())

	next := run(t, m, press(m, "t"))
	assert.Len(t, next, 1)
	assert.EqualError(t, m.errBox.Err(), "no browser")
	assert.Equal(t, stateShowing, m.state)
	assert.Empty(t, m.status.Message())
}

func TestCopyShareLink(t *testing.T) {
	m, opener, copier := newTestHome(t, staticFetcher(quote.Quote{Text: "Stay hungry", Author: "Steve Jobs"}))
	run(t, m, m.Init())

	run(t, m, press(m, "c"))
	assert.Empty(t, opener.links)
	require.Len(t, copier.links, 1)
	assert.Equal(t, "https://twitter.com/intent/tweet?text=Stay%20hungry%20-%20Steve%20Jobs", copier.links[0])
	assert.Equal(t, "Copied share link", m.status.Message())
}

func TestStatusLineHidesOnlyItsOwnMessage(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{}))
	m.setStatus("first", "")
	m.setStatus("second", "")

	m.Update(hideStatusMsg{seq: 1})
	assert.Equal(t, "second", m.status.Message())
	m.Update(hideStatusMsg{seq: 2})
	assert.Empty(t, m.status.Message())
}

func TestPromptKey(t *testing.T) {
	api := newFakeAPI(t, respondJSON(`{"quoteText":"Keyed.","quoteAuthor":"K"}`))
	m, _, _ := newTestHome(t, api.client())
	run(t, m, m.Init())

	assert.Nil(t, press(m, "k"))
	require.Equal(t, tuiModePrompt, m.mode)
	require.NotNil(t, m.textInputOverlay)
	assert.Contains(t, stripANSI(m.View()), "Quote key")

	press(m, "4")
	press(m, "2")
	assert.Equal(t, tuiModePrompt, m.mode, "typing does not trigger menu keys")

	cmd := press(m, "enter")
	assert.Equal(t, tuiModeDefault, m.mode)
	assert.Nil(t, m.textInputOverlay)
	assert.Equal(t, stateLoading, m.state)

	run(t, m, cmd)
	queries := api.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, "method=getQuote&lang=en&format=json&key=42", queries[1])
	assert.Equal(t, stateShowing, m.state)
}

func TestPromptKey_InvalidAndCancel(t *testing.T) {
	api := newFakeAPI(t, respondJSON(`{"quoteText":"x","quoteAuthor":""}`))
	m, _, _ := newTestHome(t, api.client())
	run(t, m, m.Init())

	press(m, "k")
	press(m, "x")
	assert.Nil(t, press(m, "enter"))
	assert.Equal(t, tuiModePrompt, m.mode, "an invalid key keeps the prompt open")
	assert.ErrorIs(t, m.textInputOverlay.Err(), quote.ErrInvalidKey)

	assert.Nil(t, press(m, "esc"))
	assert.Equal(t, tuiModeDefault, m.mode)
	assert.Equal(t, stateShowing, m.state)
	assert.Len(t, api.Queries(), 1)
}

func TestPromptKey_UnkeyedFetcher(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{}))
	assert.NotNil(t, press(m, "k"))
	assert.Equal(t, tuiModeDefault, m.mode)
	assert.Error(t, m.errBox.Err())
}

func TestHelpOverlay(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{}))

	press(m, "?")
	require.Equal(t, tuiModeHelp, m.mode)
	view := stripANSI(m.View())
	assert.Contains(t, view, "new quote")
	assert.Contains(t, view, "copy link")

	assert.Nil(t, press(m, "n"), "any key only closes the help")
	assert.Equal(t, tuiModeDefault, m.mode)
	assert.Nil(t, m.textOverlay)
}

func TestQuitCancelsInFlightFetch(t *testing.T) {
	f := quote.FetcherFunc(func(ctx context.Context) (quote.Quote, error) {
		<-ctx.Done()
		return quote.Quote{}, ctx.Err()
	})
	m, _, _ := newTestHome(t, f)
	m.Init()
	fetch := m.fetchQuote()

	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)

	assert.Empty(t, run(t, m, fetch))
	assert.Equal(t, 0, m.failures)
}

func TestCtrlCQuitsFromPrompt(t *testing.T) {
	api := newFakeAPI(t, respondJSON(`{"quoteText":"x","quoteAuthor":""}`))
	m, _, _ := newTestHome(t, api.client())
	press(m, "k")
	require.Equal(t, tuiModePrompt, m.mode)

	cmd := press(m, "ctrl+c")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestMenuHighlighting(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{}))

	cmd, returnEarly := m.handleMenuHighlighting(keyMsg("t"))
	assert.True(t, returnEarly)
	assert.NotNil(t, cmd)
	assert.True(t, m.keySent)

	_, returnEarly = m.handleMenuHighlighting(keyMsg("t"))
	assert.False(t, returnEarly)
	assert.False(t, m.keySent)

	m.menu.Keydown(keys.KeyShare)
	m.Update(keyupMsg{})
	_, returnEarly = m.handleMenuHighlighting(keyMsg("z"))
	assert.False(t, returnEarly, "unbound keys are not highlighted")
}

func TestWindowResize(t *testing.T) {
	m, _, _ := newTestHome(t, staticFetcher(quote.Quote{Text: strings.Repeat("word ", 40), Author: "W"}))
	run(t, m, m.Init())
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	for _, line := range strings.Split(stripANSI(m.View()), "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 80)
	}
}
