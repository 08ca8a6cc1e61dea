// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ocr-demarcator/internal/artifacts"
	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
	"ocr-demarcator/internal/ocr"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type demarcateOptions struct {
	pdfPath   string
	pagesPath string
	rulesPath string
	format    string
	output    string
	splitDir  string
	mode      string
	verbose   bool
}

func newDemarcateCommand(opts *globalOptions) *cobra.Command {
	d := &demarcateOptions{}

	cmd := &cobra.Command{
		Use:   "demarcate",
		Short: "Demarcate a local PDF or page-text file",
		Example: `  demarcator demarcate --pdf loan.pdf --rules rules.yaml
  demarcator demarcate --pages pages.json --rules rules.json --format csv --output rows.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemarcate(cmd, opts, d)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&d.pdfPath, "pdf", "", "PDF to extract page text from")
	flags.StringVar(&d.pagesPath, "pages", "", "JSON or YAML list of page texts, page 1 first")
	flags.StringVar(&d.rulesPath, "rules", "", "JSON or YAML rules: a list, or an object with Identifiers")
	flags.StringVarP(&d.format, "format", "f", "text", "output format ("+strings.Join(formatters.List(), ", ")+")")
	flags.StringVarP(&d.output, "output", "o", "", "write output to this file instead of stdout")
	flags.StringVar(&d.splitDir, "split-dir", "", "write one PDF per demarcated row into this directory (requires --pdf)")
	flags.StringVar(&d.mode, "mode", "", "override ocr.mode (auto, text, tesseract)")
	flags.BoolVarP(&d.verbose, "verbose", "v", false, "include unmatched reasons and unclaimed pages")
	_ = cmd.MarkFlagRequired("rules")
	cmd.MarkFlagsMutuallyExclusive("pdf", "pages")
	cmd.MarkFlagsOneRequired("pdf", "pages")

	return cmd
}

func runDemarcate(cmd *cobra.Command, opts *globalOptions, d *demarcateOptions) error {
	if d.splitDir != "" && d.pdfPath == "" {
		return errors.New("--split-dir needs --pdf")
	}
	info := formatters.GetFormatInfo(d.format)
	if info.Name == "" {
		return fmt.Errorf("unsupported format '%s'. Available formats: %s", d.format, strings.Join(formatters.List(), ", "))
	}
	if info.Binary && d.output == "" && isTerminal(os.Stdout) {
		return fmt.Errorf("%s output is binary; use --output", d.format)
	}

	rules, err := loadRules(d.rulesPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfiguration(cmd, opts)
	if err != nil {
		return err
	}
	observer, err := newObserver(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var pages []string
	if d.pdfPath != "" {
		mode := cfg.OCR.Mode
		if d.mode != "" {
			mode = d.mode
		}
		extractor, err := ocr.New(mode, ocr.OptionsFromConfig(cfg.OCR), nil, observer)
		if err != nil {
			return err
		}
		pages, err = extractor.ExtractPages(runContext(cmd.Context()), d.pdfPath)
		if err != nil {
			return fmt.Errorf("extract %s: %w", d.pdfPath, err)
		}
	} else {
		pages, err = loadPages(d.pagesPath)
		if err != nil {
			return err
		}
	}

	report := demarcation.DemarcateReport(pages, rules)

	content, err := formatters.Export(d.format, report, formatters.FormatterOptions{
		NoColor: opts.noColor || d.output != "",
		Verbose: d.verbose,
	})
	if err != nil {
		return err
	}

	if d.output != "" {
		if err := os.WriteFile(d.output, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", d.output, err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), content)
		if !strings.HasSuffix(content, "\n") && !info.Binary {
			fmt.Fprintln(cmd.OutOrStdout())
		}
	}

	if d.splitDir != "" {
		store := artifacts.NewStore(d.splitDir, true, observer)
		written, err := store.SplitPDF(d.pdfPath, d.splitDir, report.Rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d sub-document PDF(s) to %s\n", len(written), d.splitDir)
	}
	return nil
}

// loadRules reads a rule list, or an object carrying one under Identifiers
// (a queue message body works as-is).
func loadRules(path string) ([]demarcation.Rule, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var rules []demarcation.Rule
	if err := yaml.Unmarshal(data, &rules); err == nil {
		return rules, nil
	}

	var wrapped struct {
		Identifiers []demarcation.Rule `yaml:"Identifiers"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if wrapped.Identifiers == nil {
		return nil, fmt.Errorf("parse rules %s: expected a list or an object with Identifiers", path)
	}
	return wrapped.Identifiers, nil
}

// loadPages reads a list of page texts.
func loadPages(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	var pages []string
	if err := yaml.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("parse pages %s: %w", path, err)
	}
	return pages, nil
}
