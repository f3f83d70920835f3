package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"mailprofiler/adapter/in/mailbox"
	"mailprofiler/adapter/out/export"
	"mailprofiler/core/domain"
	"mailprofiler/core/service/pipeline"
	"mailprofiler/pkg/apperr"
	"mailprofiler/pkg/logger"
)

// RunBatch ingests the configured inputs and runs the pipeline over them.
// Directory and mbox inputs combine into one batch when both are set.
func (d *Dependencies) RunBatch(ctx context.Context) (*pipeline.RunResult, *mailbox.Stats, error) {
	cfg := d.Config
	if cfg.InputDir == "" && cfg.MboxPath == "" {
		return nil, nil, apperr.ConfigError("INPUT_DIR", "no input configured: set INPUT_DIR or MBOX_PATH")
	}

	var messages []*domain.RawMessage
	total := &mailbox.Stats{}

	if cfg.InputDir != "" {
		msgs, stats, err := d.Loader.LoadDir(cfg.InputDir)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msgs...)
		total.Files += stats.Files
		total.Parsed += stats.Parsed
		total.Skipped += stats.Skipped
	}

	if cfg.MboxPath != "" {
		msgs, stats, err := d.Loader.LoadMbox(cfg.MboxPath)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msgs...)
		total.Files += stats.Files
		total.Parsed += stats.Parsed
		total.Skipped += stats.Skipped
	}

	result, err := d.Pipeline.Run(ctx, messages)
	if err != nil {
		return nil, nil, err
	}
	return result, total, nil
}

// WriteOutputs writes the configured export files for a completed run.
func (d *Dependencies) WriteOutputs(result *pipeline.RunResult) error {
	log := logger.Component("export")

	if d.Config.CSVPath != "" {
		err := writeFileWith(d.Config.CSVPath, func(w io.Writer) error {
			return export.WriteCSV(w, result.Profiles)
		})
		if err != nil {
			return err
		}
		log.Info().
			Str("path", d.Config.CSVPath).
			Int("profiles", len(result.Profiles)).
			Msg("csv written")
	}

	if d.Config.JSONPath != "" {
		err := writeFileWith(d.Config.JSONPath, func(w io.Writer) error {
			return export.WriteJSON(w, result)
		})
		if err != nil {
			return err
		}
		log.Info().Str("path", d.Config.JSONPath).Msg("json written")
	}

	return nil
}

func writeFileWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
