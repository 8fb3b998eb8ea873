// Package main is the entry point for the pubsearch CLI, which runs the
// publication search pipeline from the command line.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant/internal/config"
	"github.com/helixir/research-assistant/internal/observability"
)

// rootCmd is the base command for the pubsearch CLI.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pubsearch",
		Short: "Search arXiv, Google Scholar and PubMed for publications",
		Long: `pubsearch queries arXiv, Google Scholar and PubMed concurrently, ranks the
merged candidates against the query and domain, and prints the best matches.

Configuration is read from config.yaml and RESEARCH_* environment variables,
the same way the server reads it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "log source activity to stderr")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newDomainsCmd())
	return root
}

// loadRuntime loads configuration and builds a stderr logger for a command.
func loadRuntime(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: cfg.Logging.TimeFormat,
	})
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
