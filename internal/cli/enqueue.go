// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ocr-demarcator/internal/ingest"
	"ocr-demarcator/internal/queue"

	"github.com/spf13/cobra"
)

func newEnqueueCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <message.json>...",
		Short: "Validate request files and place them on the input queue",
		Long: `Each file holds one request, as JSON or base64-encoded JSON. Use "-" to
read a single request from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, opts)
			if err != nil {
				return err
			}
			observer, err := newObserver(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			input, err := queue.NewSpoolQueue(cfg.Queue.Dir, cfg.Queue.Input, cfg.Queue.VisibilityTimeout, observer)
			if err != nil {
				return fmt.Errorf("input queue: %w", err)
			}
			defer input.Close()

			for _, arg := range args {
				body, err := readMessageFile(cmd, arg)
				if err != nil {
					return err
				}
				msg, err := ingest.DecodeMessage(body)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				warnings, err := msg.Validate()
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				if len(warnings) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s is missing %s\n", arg, strings.Join(warnings, ", "))
				}
				if err := input.Send(runContext(cmd.Context()), body); err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s (upload %s, %d rule(s)) on %s\n", arg, msg.UploadID(), len(msg.Identifiers), input.Name())
			}
			return nil
		},
	}
}

func readMessageFile(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
