package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant/internal/domain"
)

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the research domains accepted by --domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, d := range domain.Suggestions() {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}
