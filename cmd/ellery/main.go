// ellery cross-calibrates overlapping records of a quasi-periodic signal
// onto a common scale and reports the posterior calibration factors.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amunozj/ellery/internal/collector"
	"github.com/amunozj/ellery/internal/config"
	"github.com/amunozj/ellery/internal/dataset"
	"github.com/amunozj/ellery/internal/inference"
	"github.com/amunozj/ellery/internal/logging"
	"github.com/amunozj/ellery/internal/model"
	"github.com/amunozj/ellery/internal/synthetic"
	"github.com/amunozj/ellery/pkg/calib"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ellery",
		Short:         "cross-calibration of multi-record quasi-periodic signals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "fit the calibration model and report posterior scales",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(runCmd.Flags())
	root.AddCommand(runCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root.SetContext(ctx)
	cobra.OnFinalize(stop)
	return root
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	records, err := loadRecords(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	logger.Info("records loaded",
		zap.String("source", cfg.Source),
		zap.Int("count", len(records)))

	calibrator, err := calib.New(cfg.Period, calib.Options{
		Q:      cfg.Q,
		Priors: model.DefaultPriors(),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := calibrator.Ingest(records...); err != nil {
		return fmt.Errorf("failed to ingest records: %w", err)
	}

	sampler := &inference.ImportanceSampler{}
	res, err := calibrator.Fit(ctx, sampler, inference.Config{
		Chains: cfg.Chains,
		Warmup: cfg.Warmup,
		Draws:  cfg.Draws,
		Seed:   cfg.Seed,
	})
	if err != nil {
		return err
	}

	logger.Info("calibration finished",
		zap.Float64("s0", res.S0),
		zap.Float64("mu", res.Mu),
		zap.Float64("noiseScale", res.NoiseScale))
	for i, name := range res.RecordNames {
		fmt.Printf("%-24s scale=%.4f +/- %.4f\n", name, res.Scales[i], res.ScaleStdDev[i])
	}
	return nil
}

func loadRecords(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]dataset.Record, error) {
	switch cfg.Source {
	case config.SourceSynthetic:
		_, records, err := synthetic.Generate(synthetic.DefaultConfig(), cfg.Seed)
		return records, err
	case config.SourceFile:
		return config.LoadRecords(cfg.RecordFile)
	case config.SourcePrometheus:
		col, err := collector.New(cfg.PromURL, logger)
		if err != nil {
			return nil, err
		}
		end := time.Now()
		pc := collector.DefaultConfig()
		pc.URL = cfg.PromURL
		pc.Query = cfg.PromQuery
		pc.InstanceLabel = cfg.PromInstanceLabel
		pc.Start = end.Add(-cfg.PromWindow)
		pc.End = end
		pc.Step = cfg.PromStep
		return col.FetchRecords(ctx, pc)
	default:
		return nil, fmt.Errorf("unknown record source %q", cfg.Source)
	}
}
