package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pyfreeze/internal/backend"
	"github.com/vango-dev/pyfreeze/internal/build"
	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/ctxlog"
	"github.com/vango-dev/pyfreeze/internal/errors"
	"github.com/vango-dev/pyfreeze/internal/format"
	"github.com/vango-dev/pyfreeze/internal/publish"
	"github.com/vango-dev/pyfreeze/internal/telemetry"
)

// buildFlags are the command-line overrides of the build command.
type buildFlags struct {
	dist        string
	archivePath string
	noArchive   bool
	buildDir    string
	timeout     time.Duration
	python      string
	consoleMode string
	publish     bool
	bucket      string
	metricsFile string
}

func buildCmd(g *globalFlags) *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the standalone executable",
		Long: `Build the project's standalone executable.

This command:
  • Validates pyfreeze.json and reads pyproject.toml
  • Copies the sources into a scratch directory
  • Compiles them with Nuitka
  • Publishes the executable and its resources into the dist directory
  • Creates the zip archive and optionally uploads it to S3

A failed build leaves the previous dist directory and archive untouched.

Examples:
  pyfreeze build
  pyfreeze build --dist=out/app --no-archive
  pyfreeze build --timeout=30m --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.OutOrStdout(), cmd.ErrOrStderr(), g, f)
		},
	}

	cmd.Flags().StringVarP(&f.dist, "dist", "o", "", "Dist directory (default from config)")
	cmd.Flags().StringVar(&f.archivePath, "archive", "", "Archive path (default from config)")
	cmd.Flags().BoolVar(&f.noArchive, "no-archive", false, "Skip the zip archive")
	cmd.Flags().StringVar(&f.buildDir, "build-dir", "", "Parent of the scratch directory (default: system temp)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Abort compilation after this duration")
	cmd.Flags().StringVar(&f.python, "python", "", "Python interpreter with Nuitka installed")
	cmd.Flags().StringVar(&f.consoleMode, "console-mode", "", "Nuitka console mode (disable, attach, force, hide)")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Upload the archive to the configured S3 bucket")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "S3 bucket for --publish (default from config)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write build metrics to this file in Prometheus text format")

	return cmd
}

// loadConfig loads the configuration selected by the global flags.
func loadConfig(g *globalFlags) (*config.Config, error) {
	if g.project != "" {
		return config.Load(g.project)
	}
	return config.LoadFromWorkingDir()
}

// applyOverrides applies command-line overrides to cfg. Paths given on the
// command line are relative to the working directory, not the project root.
func applyOverrides(cfg *config.Config, f buildFlags) error {
	paths := []struct {
		flag string
		dst  *string
	}{
		{f.dist, &cfg.DistDir},
		{f.archivePath, &cfg.OutputArchive},
		{f.buildDir, &cfg.BuildDir},
	}
	for _, p := range paths {
		if p.flag == "" {
			continue
		}
		abs, err := filepath.Abs(p.flag)
		if err != nil {
			return errors.New("E100").WithPath(p.flag).Wrap(err)
		}
		*p.dst = abs
	}
	if f.noArchive {
		cfg.Archive = false
	}
	if f.timeout > 0 {
		cfg.CompileTimeout = f.timeout.String()
	}
	if f.python != "" {
		cfg.Nuitka.Python = f.python
	}
	if f.consoleMode != "" {
		cfg.Nuitka.ConsoleMode = f.consoleMode
	}
	if f.bucket != "" {
		cfg.Publish.Bucket = f.bucket
	}
	return nil
}

func runBuild(stdout, stderr io.Writer, g *globalFlags, f buildFlags) error {
	logger, err := newLogger(stderr, g.logLevel, g.logFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, f); err != nil {
		return err
	}
	if f.publish && !cfg.Archive {
		return errors.New("E100").
			WithField("archive", "false").
			WithDetail("--publish needs the zip archive")
	}

	registry := prometheus.NewRegistry()
	recorder := telemetry.New(telemetry.WithRegistry(registry))

	fmt.Fprintf(stdout, "  Building %s...\n\n", cfg.ExeStem)

	builder := build.New(cfg, backend.NewNuitka(cfg.Nuitka), build.Options{
		Logger:   logger,
		Recorder: recorder,
		OnProgress: func(step string) {
			info(stdout, step)
		},
	})

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	result, buildErr := builder.Run(ctx)

	if f.metricsFile != "" {
		if err := telemetry.WriteTextfile(f.metricsFile, registry); err != nil {
			warn(stdout, "Could not write metrics to %s: %v", f.metricsFile, err)
		}
	}
	if buildErr != nil {
		return buildErr
	}

	// Print results
	fmt.Fprintln(stdout)
	success(stdout, "Build complete in %s", result.Duration.Round(time.Millisecond))
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  Output:")
	fmt.Fprintf(stdout, "    %s/  (%s, %d resources)\n", result.DistDir, format.Bytes(result.Size), result.Resources)
	if result.Executable != "" {
		fmt.Fprintf(stdout, "    └── %s\n", result.Executable)
	}
	if result.Archive != "" {
		fmt.Fprintf(stdout, "    %s  (%s)\n", result.Archive, format.Bytes(result.ArchiveSize))
	}
	fmt.Fprintln(stdout)

	if !f.publish {
		return nil
	}

	ctx = ctxlog.WithLogger(ctx, logger.With("build_id", result.BuildID))
	up, err := publish.NewFromEnv(ctx, cfg.Publish)
	if err != nil {
		return err
	}
	obj, err := up.Upload(ctx, result.Archive, map[string]string{
		"build-id": result.BuildID,
		"project":  result.Metadata.Name,
		"version":  result.Metadata.Version,
	})
	if err != nil {
		return err
	}
	success(stdout, "Uploaded %s (%s)", obj.URI(), format.SIBytes(obj.Size))
	return nil
}
