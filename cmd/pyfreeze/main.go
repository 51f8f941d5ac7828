package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	project   string
	logLevel  string
	logFormat string
	noColor   bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(stderr, err)
		return errors.ExitCode(err)
	}
	return errors.ExitSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "pyfreeze",
		Short: "Build standalone executables from Python projects",
		Long: `pyfreeze turns a Python project into a standalone executable.

It copies the project's sources into a scratch directory, lets the
backend preprocess them, compiles them with Nuitka and publishes the
result together with its resources into dist/, plus a zip archive.

Project metadata (name, version, author, license) is read from
pyproject.toml. Build settings live in pyfreeze.json or pyfreeze.hcl.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				errors.DisableColors()
			}
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.project, "project", "C", "", "Project directory (default: nearest directory with a pyfreeze config)")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		buildCmd(&g),
		metadataCmd(&g),
		initCmd(&g),
		versionCmd(),
	)
	return rootCmd
}

// newLogger creates the slog logger selected by the global flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.New("E100").
			WithField("log-level", level).
			WithSuggestion("Use one of debug, info, warn, error")
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, errors.New("E100").
		WithField("log-format", format).
		WithSuggestion("Use text or json")
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
