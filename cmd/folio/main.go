// Package main is the entry point for the folio editor core.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/folioedit/folio/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Surface install-needed signals on the console while no UI is
	// attached.
	go func() {
		for n := range application.InstallPrompts() {
			fmt.Fprintf(os.Stderr, "extension %s (%s) would provide language support for %s; install it with the extensions UI\n",
				n.ExtensionName, n.ExtensionID, n.FilePath)
		}
	}()

	// Serve until asked to stop.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	if err := application.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.Workspace, "workspace", "", "Workspace/project directory")
	flag.StringVar(&opts.Workspace, "w", "", "Workspace/project directory (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.DisableSession, "no-session", false, "Do not persist or restore the workspace session")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Folio - editor core\n\n")
		fmt.Fprintf(os.Stderr, "Usage: folio [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  folio                  Start with an empty buffer\n")
		fmt.Fprintf(os.Stderr, "  folio file.go          Open a file\n")
		fmt.Fprintf(os.Stderr, "  folio -w ./project     Open a workspace\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("folio %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.LogLevel != "" {
		switch opts.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
			os.Exit(1)
		}
	}

	// Remaining arguments are files to open.
	opts.Files = flag.Args()

	// Default the workspace to the first file's directory.
	if opts.Workspace == "" && len(opts.Files) > 0 {
		if abs, err := filepath.Abs(opts.Files[0]); err == nil {
			opts.Workspace = filepath.Dir(abs)
		}
	}

	return opts
}
