// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ocr-demarcator/internal/api"
	"ocr-demarcator/internal/artifacts"
	"ocr-demarcator/internal/config"
	"ocr-demarcator/internal/ingest"
	"ocr-demarcator/internal/ledger"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/ocr"
	"ocr-demarcator/internal/queue"
	"ocr-demarcator/internal/worker"

	"github.com/spf13/cobra"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process demarcation requests from the input queue",
		Long: `Polls the input queue in batches of queue.batch_size, processes each
request and publishes the rows to the classification queue. Stops cleanly on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(cmd, opts)
			if err != nil {
				return err
			}
			observer, err := newObserver(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(runContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(cfg, observer)
			if err != nil {
				return err
			}
			defer p.Close()

			if once {
				n, err := p.runner.RunOnce(ctx)
				if err != nil {
					return err
				}
				stats := p.runner.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "received %d, succeeded %d, failed %d\n", n, stats.Succeeded, stats.Failed)
				return nil
			}
			return p.runner.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "process a single batch and exit")
	return cmd
}

// pipeline is everything `run` needs, built from configuration.
type pipeline struct {
	input  *queue.SpoolQueue
	output *queue.SpoolQueue
	ledger *ledger.Ledger
	runner *worker.Runner
}

func buildPipeline(cfg *config.Config, observer *observability.StandardObserver) (*pipeline, error) {
	input, err := queue.NewSpoolQueue(cfg.Queue.Dir, cfg.Queue.Input, cfg.Queue.VisibilityTimeout, observer)
	if err != nil {
		return nil, fmt.Errorf("input queue: %w", err)
	}
	output, err := queue.NewSpoolQueue(cfg.Queue.Dir, cfg.Queue.Output, cfg.Queue.VisibilityTimeout, observer)
	if err != nil {
		return nil, fmt.Errorf("output queue: %w", err)
	}

	led, err := ledger.Open(cfg.Ledger.Path, cfg.Ledger.Enabled)
	if err != nil {
		return nil, err
	}

	extractor, err := ocr.New(cfg.OCR.Mode, ocr.OptionsFromConfig(cfg.OCR), nil, observer)
	if err != nil {
		led.Close()
		return nil, err
	}

	var service worker.DocumentService
	if !cfg.API.Skip {
		service = api.NewClient(cfg, observer)
	}

	processor, err := worker.NewProcessor(worker.Options{
		Fetcher:   ingest.NewFetcher(cfg.OCR.FetchTimeout, observer),
		Extractor: extractor,
		API:       service,
		Output:    output,
		Store:     artifacts.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.Enabled, observer),
		Ledger:    led,
		SkipAPI:   cfg.API.Skip,
		SplitPDF:  cfg.Artifacts.SplitPDF,
		Observer:  observer,
	})
	if err != nil {
		led.Close()
		return nil, err
	}

	return &pipeline{
		input:  input,
		output: output,
		ledger: led,
		runner: worker.NewRunner(input, processor, cfg.Queue.BatchSize, cfg.Queue.IdleWait, observer),
	}, nil
}

// Close releases the queues and the ledger.
func (p *pipeline) Close() {
	p.input.Close()
	p.output.Close()
	p.ledger.Close()
}

// runContext returns ctx or Background when a command runs outside Execute.
func runContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
