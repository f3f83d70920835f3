package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mailprofiler/config"
	"mailprofiler/internal/bootstrap"
	"mailprofiler/pkg/logger"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 30 * time.Second

// version is stamped by the build.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "mailprofiler",
		Short:         "Build correspondent profiles from email archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(), newServeCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// Commands
// =============================================================================

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the profiling pipeline and export the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := initLogger(cfg)

			deps, cleanup, err := bootstrap.NewDependencies(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			result, ingest, err := deps.RunBatch(ctx)
			if err != nil {
				return err
			}
			if err := deps.WriteOutputs(result); err != nil {
				return err
			}

			log.Info().
				Str("run_id", result.RunID).
				Int("files", ingest.Files).
				Int("parsed", ingest.Parsed).
				Int("skipped", ingest.Skipped).
				Int("profiles", result.Stats.Profiles).
				Dur("elapsed", time.Since(start)).
				Msg("analysis complete")
			return nil
		},
	}

	cmd.Flags().String("in", "", "directory of .eml files to analyze")
	cmd.Flags().String("mbox", "", "mbox archive to analyze")
	cmd.Flags().String("csv", "", "CSV output path")
	cmd.Flags().String("json", "", "JSON output path")
	cmd.Flags().Int("workers", 0, "extraction worker count (default: CPU count)")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Analyze the archive, then serve the results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := initLogger(cfg)

			deps, cleanup, err := bootstrap.NewDependencies(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Signals cancel the batch until it completes, then hand over to
			// server shutdown.
			runCtx, stopBatch := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			result, ingest, err := deps.RunBatch(runCtx)
			stopBatch()
			if err != nil {
				return err
			}

			app := bootstrap.NewAPI(cfg, deps, result, ingest)

			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
				<-sigChan

				log.Info().Dur("timeout", shutdownTimeout).Msg("shutting down")

				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				done := make(chan error, 1)
				go func() { done <- app.Shutdown() }()

				select {
				case err := <-done:
					if err != nil {
						log.Error().Err(err).Msg("shutdown error")
					}
				case <-ctx.Done():
					log.Warn().Msg("shutdown timed out, forcing exit")
				}
			}()

			addr := ":" + cfg.Port
			if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
				addr = f.Value.String()
			}
			log.Info().
				Str("addr", addr).
				Str("run_id", result.RunID).
				Int("profiles", len(result.Profiles)).
				Msg("serving results")
			return app.Listen(addr)
		},
	}

	cmd.Flags().String("in", "", "directory of .eml files to analyze")
	cmd.Flags().String("mbox", "", "mbox archive to analyze")
	cmd.Flags().String("addr", "", "listen address (default: \":$PORT\")")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mailprofiler", version)
		},
	}
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads .env and the environment, then overlays any flags set on
// the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	overlay := map[string]*string{
		"in":   &cfg.InputDir,
		"mbox": &cfg.MboxPath,
		"csv":  &cfg.CSVPath,
		"json": &cfg.JSONPath,
	}
	for name, dest := range overlay {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dest = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
			cfg.Workers = n
		}
	}

	return cfg, nil
}

func initLogger(cfg *config.Config) zerolog.Logger {
	return logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cfg.IsDevelopment(),
	})
}
