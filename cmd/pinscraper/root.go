package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	quiet      bool
}

// exitError carries a process exit status out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Execute runs the command line and returns the process exit status
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	// flag and argument errors
	fmt.Fprintf(stderr, "Error: %v\n", err)
	fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.CommandPath())
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{}
	f := &fetchOptions{}

	root := &cobra.Command{
		Use:   "pinscraper <query> <output>",
		Short: "Search Pinterest and download the matching images",
		Long: `Pinterest Scraper resolves a search query into image URLs and downloads them.

Image URLs are read from the page state embedded in the rendered search page.
When the page yields nothing the internal search API is queried instead.

Exit status:
  0  at least one image was saved
  1  candidates were found but none could be saved, or a setup error occurred
  2  nothing to download`,
		Example: `  # Download up to 20 images into ./cats
  pinscraper "gatti" ./cats

  # Ten images, skipping the rendered page
  pinscraper "red cats" ./out -n 10 --no-render

  # Four workers at 30 requests per minute
  pinscraper "red cats" ./out --concurrent 4 --rate-limit 30`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args, g, f)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file (default is .pinscraper.yaml or ~/.config/pinscraper/config.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (console, json)")
	root.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "suppress all output except errors")

	addFetchFlags(root, f)

	root.SetVersionTemplate(`Pinterest Scraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newFetchCmd(g))
	root.AddCommand(newConfigCmd(g))

	return root
}
