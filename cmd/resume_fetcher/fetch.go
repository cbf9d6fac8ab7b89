package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-retriever/internal/artifact"
	"github.com/jonathan/resume-retriever/internal/browser"
	"github.com/jonathan/resume-retriever/internal/config"
	"github.com/jonathan/resume-retriever/internal/fingerprint"
	"github.com/jonathan/resume-retriever/internal/linkextract"
	"github.com/jonathan/resume-retriever/internal/mailparse"
	"github.com/jonathan/resume-retriever/internal/observability"
	"github.com/jonathan/resume-retriever/internal/scrape"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the resume linked from one or more notification emails",
	Long: `Reads each email (raw .eml or saved HTML), extracts the resume-view link, opens it in a fresh
headless browser session and saves the resume as {First}_{Last}_Resume.pdf in the output directory.

Exits non-zero when any email did not produce a file.`,
	RunE: runFetch,
}

var (
	fetchEmails            []string
	fetchOutputDir         string
	fetchDebugDir          string
	fetchFirstName         string
	fetchLastName          string
	fetchChromePath        string
	fetchHeadless          bool
	fetchConcurrency       int
	fetchLaunchesPerMinute float64
	fetchVendorHost        string
)

func init() {
	fetchCmd.Flags().StringSliceVarP(&fetchEmails, "email", "e", nil, "Email file to process (repeatable)")
	fetchCmd.Flags().StringVarP(&fetchOutputDir, "out", "o", "", "Output directory for resumes")
	fetchCmd.Flags().StringVar(&fetchDebugDir, "debug-dir", "", "Write every rendered page here for inspection")
	fetchCmd.Flags().StringVar(&fetchFirstName, "first", "", "Applicant first name (single email only)")
	fetchCmd.Flags().StringVar(&fetchLastName, "last", "", "Applicant last name (single email only)")
	fetchCmd.Flags().StringVar(&fetchChromePath, "chrome-path", "", "Chrome binary (defaults to CHROME_PATH env var)")
	fetchCmd.Flags().BoolVar(&fetchHeadless, "headless", true, "Run Chrome headless")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 0, "Parallel browser sessions")
	fetchCmd.Flags().Float64Var(&fetchLaunchesPerMinute, "launches-per-minute", 0, "Maximum browser launches per minute")
	fetchCmd.Flags().StringVar(&fetchVendorHost, "vendor-host", "", "Trusted resume link host")

	if err := fetchCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}

	rootCmd.AddCommand(fetchCmd)
}

func fetchOverrides(cmd *cobra.Command) func(cfg *config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("out") {
			cfg.OutputDir = fetchOutputDir
		}
		if cmd.Flags().Changed("debug-dir") {
			cfg.DebugDir = fetchDebugDir
		}
		if cmd.Flags().Changed("chrome-path") {
			cfg.ChromePath = fetchChromePath
		}
		if cmd.Flags().Changed("headless") {
			headless := fetchHeadless
			cfg.Headless = &headless
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = fetchConcurrency
		}
		if cmd.Flags().Changed("launches-per-minute") {
			cfg.LaunchesPerMinute = fetchLaunchesPerMinute
		}
		if cmd.Flags().Changed("vendor-host") {
			cfg.VendorHost = fetchVendorHost
		}
	}
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, fetchOverrides(cmd))
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())

	identity, err := identityFromFlags(fetchFirstName, fetchLastName, len(fetchEmails))
	if err != nil {
		return err
	}

	// Directory bootstrapping belongs to the caller of the scraper, i.e. here.
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}
	if cfg.DebugDir != "" {
		if err := os.MkdirAll(cfg.DebugDir, 0755); err != nil {
			return fmt.Errorf("failed to create debug directory %s: %w", cfg.DebugDir, err)
		}
	}

	reqs, err := readRequests(fetchEmails, identity, cfg.OutputDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := scrape.Options{
		Extractor: linkextract.NewExtractor(cfg.VendorHost),
		Profiles:  fingerprint.NewProvider(),
		OutputDir: cfg.OutputDir,
		Logger:    log,
	}
	if cfg.Verbose {
		opts.OnProgress = func(e scrape.ProgressEvent) {
			log.WithFields(logrus.Fields{"session_id": e.SessionID, "stage": e.Stage}).Debug(e.Message)
		}
	}

	database, err := openLedger(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Warn("Attempt ledger unavailable; continuing without it")
	} else if database != nil {
		defer database.Close()
		opts.Recorder = &ledger{db: database}
	}

	results := newScraper(cfg, log, opts).ScrapeAll(ctx, reqs, scrape.BatchOptions{
		Concurrency:       cfg.Concurrency,
		LaunchesPerMinute: cfg.LaunchesPerMinute,
	})

	printer := observability.NewPrinter(cmd.OutOrStdout())
	failed := 0
	for _, res := range results {
		printer.PrintResult(res)
		if !res.Succeeded() {
			failed++
		}
	}
	printer.PrintSummary(results)

	if failed > 0 {
		return fmt.Errorf("%d of %d emails did not produce a resume", failed, len(results))
	}
	return nil
}

func newScraper(cfg config.Config, log *logrus.Logger, opts scrape.Options) *scrape.Scraper {
	persister := artifact.NewPersister(log)
	launcher := browser.NewChromeLauncher(browser.ChromeOptions{
		ExecPath: cfg.ChromePath,
		Headless: cfg.IsHeadless(),
	})
	retriever := browser.NewRetriever(launcher, &browser.Options{
		NavigationTimeout: cfg.NavigationTimeoutDuration(),
		RetrievalTimeout:  cfg.RetrievalTimeoutDuration(),
		OnSnapshot:        scrape.SnapshotHook(persister, cfg.DebugDir, log),
		Logger:            log,
	})
	return scrape.New(retriever, persister, opts)
}

// identityFromFlags returns the applicant identity. Names apply to a single email only,
// since every email in a batch belongs to a different applicant.
func identityFromFlags(first, last string, emails int) (*artifact.Identity, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" && last == "" {
		return nil, nil
	}
	if emails > 1 {
		return nil, fmt.Errorf("--first/--last can only be used with a single --email")
	}
	return &artifact.Identity{FirstName: first, LastName: last}, nil
}

// readRequests loads and decodes every email file.
func readRequests(paths []string, identity *artifact.Identity, dir string) ([]scrape.Request, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one --email is required")
	}

	reqs := make([]scrape.Request, 0, len(paths))
	for _, path := range paths {
		body, err := readEmailBody(path)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, scrape.Request{
			HTML:     body,
			Identity: identity,
			Dir:      dir,
			Source:   filepath.Base(path),
		})
	}
	return reqs, nil
}

func readEmailBody(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read email file %s: %w", path, err)
	}
	msg, err := mailparse.Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse email %s: %w", path, err)
	}
	return msg.Body(), nil
}
