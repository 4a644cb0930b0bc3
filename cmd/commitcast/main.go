// Command commitcast runs the local commit broadcast daemon and a reference
// consumer for its sockets.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Strob0t/commitcast/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "commitcast",
		Short:         "Broadcast committed objects and transactions to local observers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "path to the YAML config file")

	root.AddCommand(newServeCmd(&configPath), newTailCmd(&configPath))
	return root
}
