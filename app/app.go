package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/smtg-ai/quotewidget/config"
	"github.com/smtg-ai/quotewidget/keys"
	"github.com/smtg-ai/quotewidget/log"
	"github.com/smtg-ai/quotewidget/quote"
	"github.com/smtg-ai/quotewidget/share"
	"github.com/smtg-ai/quotewidget/ui"
	"github.com/smtg-ai/quotewidget/ui/overlay"
)

// Run is the main entrypoint into the application.
func Run(ctx context.Context, cfg *config.Config, fetcher quote.Fetcher) error {
	opener, err := share.NewOpener(cfg.Share.Action)
	if err != nil {
		return err
	}
	h := newHome(ctx, cfg, fetcher, opener, share.ClipboardOpener{})
	defer h.cancel()

	p := tea.NewProgram(
		h,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err = p.Run()
	return err
}

// NewModel returns the widget model Run drives. Quitting it cancels its
// context. copier receives links for the copy key; nil disables copying.
func NewModel(ctx context.Context, cfg *config.Config, fetcher quote.Fetcher, opener, copier share.Opener) tea.Model {
	return newHome(ctx, cfg, fetcher, opener, copier)
}

// keyedFetcher is a fetcher whose quote selection can be pinned with a key.
type keyedFetcher interface {
	quote.Fetcher
	SetKey(key string) error
	Key() string
}

type home struct {
	ctx    context.Context
	cancel context.CancelFunc

	// # State

	// state is what the quote area shows
	state uiState
	// mode is the overlay that currently has the keyboard
	mode tuiMode
	// keySent is used to manage underlining menu items
	keySent bool
	// gen identifies the latest fetch. Results from older fetches are dropped.
	gen int
	// failures counts consecutive failed attempts of the current cycle
	failures int
	// failErr is the last error once the retry policy gave up
	failErr error
	// lastQuote is the quote as displayed, author substituted
	lastQuote quote.Quote
	// statusSeq lets a delayed hide skip status messages set after it
	statusSeq int

	// # Collaborators

	fetcher   quote.Fetcher
	keyed     keyedFetcher
	retry     quote.RetryPolicy
	opener    share.Opener
	copier    share.Opener
	shareBase string
	threshold int

	// # UI components

	width, height int
	// spinner is the global spinner instance. We plumb this down to where it's needed
	spinner   spinner.Model
	quotePane *ui.QuotePane
	loader    *ui.Loader
	menu      *ui.Menu
	errBox    *ui.ErrBox
	status    *ui.StatusLine
	// textInputOverlay is the quote key prompt
	textInputOverlay *overlay.TextInputOverlay
	// textOverlay is the help screen
	textOverlay *overlay.TextOverlay
}

// newHome binds every UI slot once; they are never re-bound afterwards.
func newHome(ctx context.Context, cfg *config.Config, fetcher quote.Fetcher, opener, copier share.Opener) *home {
	ctx, cancel := context.WithCancel(ctx)
	h := &home{
		ctx:       ctx,
		cancel:    cancel,
		state:     stateLoading,
		fetcher:   fetcher,
		retry:     cfg.Retry.RetryPolicy(),
		opener:    opener,
		copier:    copier,
		shareBase: cfg.Share.BaseURL,
		threshold: cfg.UI.LongQuoteThreshold,
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		quotePane: ui.NewQuotePane(),
		menu:      ui.NewMenu(),
		errBox:    ui.NewErrBox(),
		status:    ui.NewStatusLine(),
	}
	h.loader = ui.NewLoader(&h.spinner)
	if kf, ok := fetcher.(keyedFetcher); ok {
		h.keyed = kf
	}
	return h
}

// updateHandleWindowSizeEvent sets the sizes of the components.
// The components will try to render inside their bounds.
func (m *home) updateHandleWindowSizeEvent(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	m.quotePane.SetSize(msg.Width, msg.Height-6)
	m.menu.SetSize(msg.Width, 1)
	m.status.SetSize(msg.Width)
	m.errBox.SetSize(int(float32(msg.Width)*0.9), 1) // error box takes 1 row
	if m.textInputOverlay != nil {
		m.textInputOverlay.SetSize(promptWidth(msg.Width), 0)
	}
	if m.textOverlay != nil {
		m.textOverlay.SetWidth(promptWidth(msg.Width))
	}
}

func promptWidth(width int) int {
	if width <= 0 || width > 60 {
		return 50
	}
	return max(width-10, 20)
}

func (m *home) Init() tea.Cmd {
	// Upon starting, we want to start the spinner. Whenever we get a spinner.TickMsg, we
	// update the spinner, which sends a new spinner.TickMsg.
	return tea.Batch(
		m.spinner.Tick,
		m.fetchAndDisplayQuote(),
	)
}

func (m *home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case hideErrMsg:
		m.errBox.Clear()
	case hideStatusMsg:
		if msg.seq == m.statusSeq {
			m.status.Clear()
		}
	case keyupMsg:
		m.menu.ClearKeydown()
		return m, nil
	case quoteFetchedMsg:
		return m, m.handleQuoteFetched(msg)
	case quoteFailedMsg:
		return m, m.handleQuoteFailed(msg)
	case retryMsg:
		if msg.gen != m.gen || m.state != stateLoading {
			return m, nil
		}
		return m, m.fetchQuote()
	case sharedMsg:
		return m, m.handleShared(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.updateHandleWindowSizeEvent(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *home) handleQuit() (tea.Model, tea.Cmd) {
	// Aborts any request still in flight.
	m.cancel()
	return m, tea.Quit
}

func (m *home) handleMenuHighlighting(msg tea.KeyMsg) (cmd tea.Cmd, returnEarly bool) {
	// Handle menu highlighting when you press a button. We intercept it here and immediately return to
	// update the ui while re-sending the keypress. Then, on the next call to this, we actually handle the keypress.
	if m.keySent {
		m.keySent = false
		return nil, false
	}
	if m.mode == tuiModePrompt || m.mode == tuiModeHelp {
		return nil, false
	}
	name, ok := keys.GlobalKeyStringsMap[msg.String()]
	if !ok {
		return nil, false
	}

	m.keySent = true
	return tea.Batch(
		func() tea.Msg { return msg },
		m.keydownCallback(name)), true
}

func (m *home) handleKeyPress(msg tea.KeyMsg) (mod tea.Model, cmd tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.handleQuit()
	}

	cmd, returnEarly := m.handleMenuHighlighting(msg)
	if returnEarly {
		return m, cmd
	}

	switch m.mode {
	case tuiModeHelp:
		if m.textOverlay == nil || m.textOverlay.HandleKeyPress(msg) {
			m.textOverlay = nil
			m.mode = tuiModeDefault
		}
		return m, nil
	case tuiModePrompt:
		return m.handlePromptKeyPress(msg)
	}

	name, ok := keys.GlobalKeyStringsMap[msg.String()]
	if !ok {
		return m, nil
	}

	switch name {
	case keys.KeyQuit:
		return m.handleQuit()
	case keys.KeyNewQuote:
		return m, m.fetchAndDisplayQuote()
	case keys.KeyShare:
		return m, m.shareQuote()
	case keys.KeyCopy:
		return m, m.copyShareLink()
	case keys.KeyQuoteKey:
		return m, m.promptKey()
	case keys.KeyHelp:
		m.showHelp()
		return m, nil
	default:
		return m, nil
	}
}

// promptKey opens the quote key prompt.
func (m *home) promptKey() tea.Cmd {
	if m.keyed == nil {
		return m.handleError(fmt.Errorf("this quote source does not accept a key"))
	}
	m.textInputOverlay = overlay.NewTextInputOverlay("Quote key", m.keyed.Key(), "e.g. 457653", 6)
	m.textInputOverlay.Hint = "Up to six digits pick a quote. Leave empty for a random one."
	m.textInputOverlay.Validate = quote.ValidateKey
	m.textInputOverlay.SetSize(promptWidth(m.width), 0)
	m.mode = tuiModePrompt
	return nil
}

func (m *home) handlePromptKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.textInputOverlay == nil {
		m.mode = tuiModeDefault
		return m, nil
	}
	if !m.textInputOverlay.HandleKeyPress(msg) {
		return m, nil
	}

	submitted := m.textInputOverlay.IsSubmitted()
	value := m.textInputOverlay.GetValue()
	m.textInputOverlay = nil
	m.mode = tuiModeDefault
	if !submitted {
		return m, nil
	}

	if err := m.keyed.SetKey(value); err != nil {
		return m, m.handleError(err)
	}
	log.InfoLog.Printf("quote key set to %q", value)
	return m, m.fetchAndDisplayQuote()
}

type keyupMsg struct{}

// keydownCallback clears the menu option highlighting after 500ms.
func (m *home) keydownCallback(name keys.KeyName) tea.Cmd {
	m.menu.Keydown(name)
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}

		return keyupMsg{}
	}
}

// hideErrMsg implements tea.Msg and clears the error text from the screen.
type hideErrMsg struct{}

// hideStatusMsg clears the status line if nothing newer was written to it.
type hideStatusMsg struct {
	seq int
}

// handleError handles all errors which get bubbled up to the app. sets the error message. We return a callback tea.Cmd that returns a hideErrMsg message
// which clears the error message after 3 seconds.
func (m *home) handleError(err error) tea.Cmd {
	log.ErrorLog.Printf("%v", err)
	m.errBox.SetError(err)
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(3 * time.Second):
		}

		return hideErrMsg{}
	}
}

// setStatus shows msg (and link) for a few seconds.
func (m *home) setStatus(msg, link string) tea.Cmd {
	m.statusSeq++
	seq := m.statusSeq
	m.status.Set(msg, link)
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(5 * time.Second):
		}
		return hideStatusMsg{seq: seq}
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Padding(1, 2)

	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m *home) View() string {
	var content string
	switch m.state {
	case stateFailed:
		reason := ""
		if m.failErr != nil {
			reason = truncate.StringWithTail(m.failErr.Error(), uint(max(m.width-4, 40)), "…")
		}
		content = lipgloss.JoinVertical(lipgloss.Center,
			failStyle.Render(fmt.Sprintf("Couldn't fetch a quote after %d attempts.", m.failures)),
			hintStyle.Render(reason),
			hintStyle.Render("Press n to try again."),
		)
	default:
		// Only one of them is visible at a time.
		content = lipgloss.JoinVertical(lipgloss.Center,
			m.loader.String(),
			m.quotePane.String(),
		)
	}

	mainView := lipgloss.JoinVertical(
		lipgloss.Center,
		titleStyle.Render("Random Quote"),
		content,
		m.status.String(),
		m.menu.String(),
		m.errBox.String(),
	)
	if m.width > 0 && m.height > 0 {
		mainView = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, mainView)
	}

	switch m.mode {
	case tuiModePrompt:
		if m.textInputOverlay == nil {
			log.ErrorLog.Printf("text input overlay is nil")
			return mainView
		}
		return overlay.PlaceOverlay(0, 0, m.textInputOverlay.Render(), mainView, true)
	case tuiModeHelp:
		if m.textOverlay == nil {
			log.ErrorLog.Printf("text overlay is nil")
			return mainView
		}
		return overlay.PlaceOverlay(0, 0, m.textOverlay.Render(), mainView, true)
	}
	return mainView
}
