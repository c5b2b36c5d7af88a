package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/menta2k/pairset"
	"github.com/menta2k/pairset/internal/config"
	"github.com/menta2k/pairset/pkg/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		saveConfig string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "pairset --input_dir DIR --output_dir DIR --action colorize|trace",
		Short: "Build paired image datasets for image-to-image training",
		Long: `pairset turns a directory of images into (source, target) pairs.

The target is derived from each source by a content transform. Pairs can be
augmented with aligned random crops, split into train/test folders, and
written side by side or as separate _x/_y files.

Options are layered: defaults, then --config (JSON), then .env and
PAIRSET_* environment variables, then flags.`,
		Version:       pairset.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}

	fs := cmd.Flags()
	fs.SortFlags = false
	flagged := config.RegisterFlags(fs)
	fs.StringVar(&configPath, "config", "", "JSON config file (see --save-config)")
	fs.StringVar(&saveConfig, "save-config", "", "write the effective configuration to this file and exit")
	fs.BoolVar(&debug, "debug", false, "verbose text logging")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		logger := initLogger(debug, cmd.ErrOrStderr())

		base, err := config.Load(configPath)
		if err != nil {
			logger.WithError(err).Error("Failed to load configuration")
			return err
		}
		cfg := config.Overlay(cmd.Flags(), base, flagged)

		if saveConfig != "" {
			if err := cfg.SaveToFile(saveConfig); err != nil {
				logger.WithError(err).Error("Failed to save configuration")
				return err
			}
			logger.WithField("path", saveConfig).Info("Configuration saved")
			return nil
		}

		if err := cfg.Validate(); err != nil {
			logger.WithError(err).Error("Invalid configuration")
			fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, *cfg, logger)
	}

	return cmd
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"version":    pairset.Version,
		"debug_mode": logger.IsLevelEnabled(logrus.DebugLevel),
	}).Info("Starting pairset")

	driver, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to set up pipeline")
		return err
	}

	report, err := driver.Run(ctx)
	if err != nil {
		logger.WithError(err).Error("Dataset build aborted")
		return err
	}

	for _, f := range report.Failures {
		logger.WithField("file", f.File).WithError(f.Err).Warn("Skipped input")
	}
	if report.Cancelled {
		logger.Warn("Interrupted before all images were processed")
	}
	logger.WithFields(logrus.Fields{
		"succeeded": report.Succeeded,
		"failed":    len(report.Failures),
		"items":     report.Items,
		"manifest":  report.ManifestPath,
	}).Info("Done")
	return nil
}

// initLogger initializes the logger with appropriate level.
// Logs go to the error stream so per-image failures are visible there.
func initLogger(debugMode bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
