// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ocr-demarcator/internal/queue"
	"ocr-demarcator/internal/web"

	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var listen string
	var noIntake bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demarcation HTTP API",
		Long: `Serves /health, /api/formats, /api/demarcate and /api/messages. Requests
posted to /api/messages are validated and placed on the input queue for
"demarcator run" to pick up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(cmd, opts)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			observer, err := newObserver(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var intake web.Intake
			if !noIntake {
				input, err := queue.NewSpoolQueue(cfg.Queue.Dir, cfg.Queue.Input, cfg.Queue.VisibilityTimeout, observer)
				if err != nil {
					return fmt.Errorf("input queue: %w", err)
				}
				defer input.Close()
				intake = input
			}

			server := web.NewServer(cfg.Server, intake, observer)
			addr, err := server.Listen()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "listening on http://%s\n", addr)

			ctx, stop := signal.NotifyContext(runContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override server.listen")
	cmd.Flags().BoolVar(&noIntake, "no-intake", false, "disable /api/messages")
	return cmd
}
