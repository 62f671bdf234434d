package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smtg-ai/quotewidget/app"
	"github.com/smtg-ai/quotewidget/config"
	"github.com/smtg-ai/quotewidget/log"
	"github.com/smtg-ai/quotewidget/metrics"
	"github.com/smtg-ai/quotewidget/quote"
	"github.com/smtg-ai/quotewidget/share"
	"github.com/smtg-ai/quotewidget/web"
)

var (
	version = "1.0.0"

	configFlag      string
	relayFlag       string
	keyFlag         string
	legacyRetryFlag bool

	jsonFlag   bool
	printFlag  bool
	textFlag   string
	authorFlag string
	addrFlag   string

	rootCmd = &cobra.Command{
		Use:   "quotewidget",
		Short: "quotewidget - random quotes in your terminal",
		Long: "Shows a random quote from the forismatic API with a spinner while it loads,\n" +
			"and lets you share it. Without a terminal it prints one quote and exits.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return runFetch(cmd, cfg)
			}

			log.InitializeWithOptions(cfg.Log.Options())
			defer log.Close()

			client, err := newClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, client)
		},
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Print one quote and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runFetch(cmd, cfg)
		},
	}

	shareCmd = &cobra.Command{
		Use:   "share",
		Short: "Open the share link for a quote",
		Long: "Fetches a quote, or uses --text and --author, and opens its share link\n" +
			"with the configured share action. --print only prints the link.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			q := quote.Quote{Text: textFlag, Author: authorFlag}
			if textFlag == "" {
				client, err := newClient(cmd, cfg, nil)
				if err != nil {
					return err
				}
				if q, err = fetchOne(cmd.Context(), cfg, client); err != nil {
					return err
				}
			}
			shown := q.Displayed()
			link := share.BuildURL(cfg.Share.BaseURL, shown.Text, shown.Author)

			if printFlag {
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			}
			opener, err := share.NewOpener(cfg.Share.Action)
			if err != nil {
				return err
			}
			if err := opener.Open(link); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the quote widget over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flag("addr").Changed {
				cfg.Server.Addr = addrFlag
			}

			log.InitializeWithOptions(cfg.Log.Options())
			defer log.Close()

			collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			client, err := newClient(cmd, cfg, collector)
			if err != nil {
				return err
			}

			srv, err := web.New(web.Options{
				Addr:               cfg.Server.Addr,
				ReadHeaderTimeout:  cfg.Server.ReadHeaderTimeout,
				Fetcher:            client,
				Retry:              cfg.Retry.RetryPolicy(),
				FetchTimeout:       cfg.API.Timeout,
				ShareBaseURL:       cfg.Share.BaseURL,
				LongQuoteThreshold: cfg.UI.LongQuoteThreshold,
				Metrics:            collector,
				Gatherer:           prometheus.DefaultGatherer,
				Logger:             log.Logger(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", srv.Addr())
			errCh := srv.Start()
			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "Print debug info like config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			configPath := configFlag
			if configPath == "" {
				if configPath, err = config.Path(); err != nil {
					return err
				}
			}
			logPath := cfg.Log.Path
			if logPath == "" {
				logPath = log.FileName()
			}

			configJSON, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", configPath)
			fmt.Fprintf(out, "Log: %s\n", logPath)
			client, err := newClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Request: %s\n", client.RequestURL())
			fmt.Fprintf(out, "%s\n", configJSON)
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of quotewidget",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quotewidget version %s\n", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"Config file (default ~/.quotewidget/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&relayFlag, "relay", "",
		"Relay URL prefixed to the API URL; pass an empty value for direct access")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", "",
		"Numeric key (up to 6 digits) that picks the quote")
	rootCmd.PersistentFlags().BoolVar(&legacyRetryFlag, "legacy-retry", false,
		"Retry failed fetches immediately and forever instead of backing off")

	fetchCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the quote as JSON")
	shareCmd.Flags().BoolVar(&printFlag, "print", false, "Print the share link instead of opening it")
	shareCmd.Flags().StringVar(&textFlag, "text", "", "Share this text instead of fetching a quote")
	shareCmd.Flags().StringVar(&authorFlag, "author", "", "Author for --text")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from config, :8080)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the config file and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if cmd.Flag("relay").Changed {
		cfg.API.RelayURL = relayFlag
	}
	if cmd.Flag("legacy-retry").Changed {
		cfg.Retry.Unbounded = legacyRetryFlag
	}
	return cfg, nil
}

// newClient builds the quote client. rec may be nil.
func newClient(cmd *cobra.Command, cfg *config.Config, rec quote.Recorder) (*quote.Client, error) {
	opts := cfg.API.ClientOptions()
	if rec != nil {
		opts = append(opts, quote.WithRecorder(rec))
	}
	client := quote.NewClient(opts...)
	if cmd.Flag("key").Changed {
		if err := client.SetKey(keyFlag); err != nil {
			return nil, fmt.Errorf("--key %q: %w", keyFlag, err)
		}
	}
	return client, nil
}

func fetchOne(ctx context.Context, cfg *config.Config, f quote.Fetcher) (quote.Quote, error) {
	return quote.FetchWithRetry(ctx, f, cfg.Retry.RetryPolicy(), func(attempt int, err error) {
		log.WarningLog.Printf("quote fetch attempt %d failed: %v", attempt, err)
	})
}

type fetchOutput struct {
	Text     string `json:"text"`
	Author   string `json:"author"`
	Long     bool   `json:"long"`
	ShareURL string `json:"share_url"`
}

func runFetch(cmd *cobra.Command, cfg *config.Config) error {
	client, err := newClient(cmd, cfg, nil)
	if err != nil {
		return err
	}
	q, err := fetchOne(cmd.Context(), cfg, client)
	if err != nil {
		return err
	}
	shown := q.Displayed()
	w := cmd.OutOrStdout()

	if jsonFlag {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fetchOutput{
			Text:     shown.Text,
			Author:   shown.Author,
			Long:     q.IsLong(cfg.UI.LongQuoteThreshold),
			ShareURL: share.BuildURL(cfg.Share.BaseURL, shown.Text, shown.Author),
		})
	}

	width := 72
	if q.IsLong(cfg.UI.LongQuoteThreshold) {
		width = 80
	}
	fmt.Fprintln(w, wordwrap.String(shown.Text, width))
	fmt.Fprintln(w, indent.String("— "+shown.Author, 4))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
