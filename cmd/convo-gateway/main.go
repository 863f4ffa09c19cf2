// ABOUTME: Entry point for convo-gateway webhook ingestion server
// ABOUTME: Defines the cobra command tree and config path resolution

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/convo-gateway/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

// configFlag holds the persistent --config value
var configFlag string

// getConfigPath returns the path to the gateway config file.
// Priority: --config > CONVO_CONFIG env var > XDG_CONFIG_HOME/convo/gateway.yaml > ~/.config/convo/gateway.yaml
func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if envPath := os.Getenv("CONVO_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "convo", "gateway.yaml")
}

// loadConfig loads the config file resolved by getConfigPath.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "convo-gateway",
		Short: "Webhook ingestion and query service for conversations",
		Long: `convo-gateway receives conversation lifecycle webhooks from an external
messaging provider, stores conversations and their messages, and serves
them back over a JSON query API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default: $CONVO_CONFIG or ~/.config/convo/gateway.yaml)")

	root.AddCommand(
		newServeCmd(),
		newHealthCmd(),
		newStatsCmd(),
		newTokenCmd(),
		newPurgeCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "convo-gateway %s\n", version)
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
