// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cli wires the demarcator commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"ocr-demarcator/internal/config"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/version"

	// Import formatters to register them
	_ "ocr-demarcator/internal/formatters/csv"
	_ "ocr-demarcator/internal/formatters/json"
	_ "ocr-demarcator/internal/formatters/text"
	_ "ocr-demarcator/internal/formatters/xlsx"
	_ "ocr-demarcator/internal/formatters/xml"
	_ "ocr-demarcator/internal/formatters/yaml"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	logLevel   string
	noColor    bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "demarcator",
		Short: "Split OCR'd PDF uploads into sub-documents",
		Long: `demarcator reads demarcation requests from a queue, extracts the text of
every page of the referenced PDF, applies the request's identifier rules to
find where each sub-document starts and ends, and delivers the resulting
rows to the document service and the classification queue.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			color.NoColor = opts.noColor || !isTerminal(os.Stdout)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "configuration file (default: search demarcator.yaml, config.yaml, ~/.config/demarcator)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (off, info, debug)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCommand(opts),
		newDemarcateCommand(opts),
		newServeCommand(opts),
		newEnqueueCommand(opts),
		newFormatsCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfiguration loads the configuration file. An explicitly named file
// must load; otherwise a broken discovered file falls back to defaults with
// a warning.
func loadConfiguration(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	var cfg *config.Config
	if opts.configFile != "" {
		loaded, err := config.LoadConfig(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		configPath := config.FindConfigFile()
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Error loading config file: %v\n", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Using default configuration\n")
			loaded = config.LoadConfigOrDefault("")
		}
		cfg = loaded
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
		if err := config.ValidateConfig(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newObserver builds the observer for the configured level, logging to w.
func newObserver(cfg *config.Config, w io.Writer) (*observability.StandardObserver, error) {
	level, err := observability.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return observability.NewObserver(level, w), nil
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
