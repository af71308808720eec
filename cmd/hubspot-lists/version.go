package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/hubspot-lists-client/pkg/version"
)

func newVersionCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()

			switch output {
			case "json":
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal version info: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case "text":
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")

	return cmd
}
