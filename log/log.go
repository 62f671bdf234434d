package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	DebugLog   *stdlog.Logger
	InfoLog    *stdlog.Logger
	WarningLog *stdlog.Logger
	ErrorLog   *stdlog.Logger
)

// Options configures the log file.
type Options struct {
	// Path is the log file. Defaults to quotewidget.log in the temp dir.
	Path string
	// Level is one of debug, info, warn, error.
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Prefix is prepended to every line, e.g. "serve".
	Prefix string
}

var defaultLogFileName = filepath.Join(os.TempDir(), "quotewidget.log")

var (
	mu      sync.Mutex
	logger  = charmlog.New(io.Discard)
	logFile *lumberjack.Logger
)

func init() {
	setLevelLoggers(logger)
}

// Initialize writes logs to the default file. The TUI owns stdout, so logs
// never go to the terminal.
func Initialize(verbose bool) {
	level := "info"
	if verbose {
		level = "debug"
	}
	InitializeWithOptions(Options{Level: level})
}

// InitializeWithOptions writes logs to a rotating file described by opts.
func InitializeWithOptions(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
	}
	path := opts.Path
	if path == "" {
		path = defaultLogFileName
	}
	if dir := filepath.Dir(path); dir != "" {
		_ = os.MkdirAll(dir, 0755)
	}
	logFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    withDefault(opts.MaxSizeMB, 10), // megabytes
		MaxBackups: withDefault(opts.MaxBackups, 3),
		MaxAge:     withDefault(opts.MaxAgeDays, 28), // days
		Compress:   opts.Compress,
	}

	logger = charmlog.NewWithOptions(logFile, charmlog.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		Prefix:          opts.Prefix,
		Level:           parseLevel(opts.Level),
	})
	setLevelLoggers(logger)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return
	}
	_ = logFile.Close()
	fmt.Fprintln(os.Stderr, "wrote logs to "+logFile.Filename)
	logFile = nil
	logger = charmlog.New(io.Discard)
	setLevelLoggers(logger)
}

// Logger returns the structured logger behind the level loggers.
func Logger() *charmlog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// FileName returns the path logs are written to.
func FileName() string {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		return logFile.Filename
	}
	return defaultLogFileName
}

func setLevelLoggers(l *charmlog.Logger) {
	DebugLog = l.StandardLog(charmlog.StandardLogOptions{ForceLevel: charmlog.DebugLevel})
	InfoLog = l.StandardLog(charmlog.StandardLogOptions{ForceLevel: charmlog.InfoLevel})
	WarningLog = l.StandardLog(charmlog.StandardLogOptions{ForceLevel: charmlog.WarnLevel})
	ErrorLog = l.StandardLog(charmlog.StandardLogOptions{ForceLevel: charmlog.ErrorLevel})
}

func parseLevel(level string) charmlog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
