package app

// uiState is what the quote area currently shows.
type uiState int

const (
	// stateLoading shows the spinner while a fetch is in flight or being retried.
	stateLoading uiState = iota
	// stateShowing shows the last fetched quote.
	stateShowing
	// stateFailed is entered when the bounded retry policy gives up.
	stateFailed
)

func (s uiState) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case stateShowing:
		return "showing"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// tuiMode is which overlay, if any, has the keyboard.
type tuiMode int

const (
	tuiModeDefault tuiMode = iota
	// tuiModePrompt is the state when the user is entering a quote key.
	tuiModePrompt
	// tuiModeHelp is the state when the help screen is displayed.
	tuiModeHelp
)
