package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pinscraper/pkg/config"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/scraper"
	"pinscraper/pkg/ui"
)

// fetchOptions holds the flags of a download run
type fetchOptions struct {
	limit           int
	userAgent       string
	retries         int
	backoff         float64
	downloadRetries int
	downloadBackoff float64
	concurrent      int
	rateLimit       int
	noRender        bool
}

func newFetchCmd(g *globalOptions) *cobra.Command {
	f := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch <query> <output>",
		Short: "Download images for a search query",
		Long: `Resolve a search query into image URLs and save them as image_1.jpg,
image_2.jpg, ... in the output directory, in result order.`,
		Example: `  pinscraper fetch "gatti" ./cats -n 10`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args, g, f)
		},
	}
	addFetchFlags(cmd, f)
	return cmd
}

func addFetchFlags(cmd *cobra.Command, f *fetchOptions) {
	defaults := config.DefaultConfig()

	cmd.Flags().IntVarP(&f.limit, "num-images", "n", defaults.Search.Limit, "maximum number of images to download")
	cmd.Flags().StringVar(&f.userAgent, "ua", defaults.Pinterest.UserAgent, "User-Agent sent with every request")
	cmd.Flags().IntVar(&f.retries, "retries", defaults.HTTP.MaxRetries, "transport-level retries per request")
	cmd.Flags().Float64Var(&f.backoff, "backoff", defaults.HTTP.BackoffFactor, "transport-level backoff factor")
	cmd.Flags().IntVar(&f.downloadRetries, "download-retries", defaults.Download.MaxRetries, "attempts per image on 403/429")
	cmd.Flags().Float64Var(&f.downloadBackoff, "download-backoff", defaults.Download.BackoffFactor, "per-image backoff factor in seconds")
	cmd.Flags().IntVar(&f.concurrent, "concurrent", defaults.Download.ConcurrentDownloads, "number of concurrent downloads")
	cmd.Flags().IntVar(&f.rateLimit, "rate-limit", defaults.Download.RequestsPerMinute, "image requests per minute (0 = unlimited)")
	cmd.Flags().BoolVar(&f.noRender, "no-render", false, "skip the rendered page and query the search API directly")
}

// flagsFromCommand returns the config overrides for the flags set on cmd.
// Flags left at their default do not override file or environment values.
func flagsFromCommand(cmd *cobra.Command, g *globalOptions, f *fetchOptions) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("num-images") {
		flags["limit"] = f.limit
	}
	if changed("ua") {
		flags["user-agent"] = f.userAgent
	}
	if changed("retries") {
		flags["retries"] = f.retries
	}
	if changed("backoff") {
		flags["backoff"] = f.backoff
	}
	if changed("download-retries") {
		flags["download-retries"] = f.downloadRetries
	}
	if changed("download-backoff") {
		flags["download-backoff"] = f.downloadBackoff
	}
	if changed("concurrent") {
		flags["concurrent"] = f.concurrent
	}
	if changed("rate-limit") {
		flags["rate-limit"] = f.rateLimit
	}
	if f.noRender {
		flags["render"] = false
	}

	if g.logLevel != "" {
		flags["log-level"] = g.logLevel
	} else if g.quiet {
		flags["log-level"] = "error"
	}
	if g.logFormat != "" {
		flags["log-format"] = g.logFormat
	}

	return flags
}

func runFetch(cmd *cobra.Command, args []string, g *globalOptions, f *fetchOptions) error {
	query := args[0]
	printer := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), g.quiet)

	flags := flagsFromCommand(cmd, g, f)
	flags["output"] = args[1]

	cfg, err := config.Load(g.configFile, flags)
	if err != nil {
		printer.PrintError("Failed to load configuration", err)
		return &exitError{code: 1, err: err}
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		printer.PrintError("Failed to initialize logger", err)
		return &exitError{code: 1, err: err}
	}
	log.WithField("version", version).Debug("Pinterest Scraper starting")

	printer.PrintInfo("Query", query)
	printer.PrintInfo("Output", cfg.Output.Directory)

	summary, err := scraper.New(cfg, log).Run(cmd.Context(), query)
	if summary != nil && summary.Candidates > 0 {
		printSummary(printer, summary)
	}

	if cmd.Context().Err() != nil {
		printer.PrintWarning("Interrupted")
	}

	if err != nil {
		printer.PrintError("Run failed", err)
		return &exitError{code: scraper.ExitCode(err), err: err}
	}

	printer.PrintSuccess(fmt.Sprintf("Downloaded %d/%d files.", summary.Downloaded, summary.Candidates))
	return nil
}

func printSummary(p *ui.Printer, s *scraper.Summary) {
	p.PrintPanel("Summary", []ui.Row{
		{Label: "Query", Value: s.Query},
		{Label: "Source", Value: string(s.Source)},
		{Label: "Candidates", Value: strconv.Itoa(s.Candidates)},
		{Label: "Downloaded", Value: strconv.Itoa(s.Downloaded)},
		{Label: "Failed", Value: strconv.Itoa(s.Failed)},
		{Label: "Size", Value: ui.FormatBytes(s.Bytes)},
		{Label: "Duration", Value: ui.FormatDuration(s.Duration)},
	})

	for _, r := range s.Results {
		if !r.Success && r.Err != nil {
			p.PrintDim(fmt.Sprintf("  #%d %s: %v", r.Job.Index, r.Job.URL, r.Err))
		}
	}
}
