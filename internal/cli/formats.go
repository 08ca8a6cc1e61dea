// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"text/tabwriter"

	"ocr-demarcator/internal/formatters"

	"github.com/spf13/cobra"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEXTENSION\tDESCRIPTION")
			for _, info := range formatters.GetSupportedFormats() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Extension, info.Description)
			}
			return w.Flush()
		},
	}
}
