// ABOUTME: serve command that starts the gateway HTTP server
// ABOUTME: Prints the startup banner and runs until SIGINT/SIGTERM

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/convo-gateway/internal/gateway"
	"github.com/2389/convo-gateway/internal/logging"
)

const banner = `
                                                  _
  ___ ___  _ ____   _____         __ _  __ _| |_ _____      ____ _ _   _
 / __/ _ \| '_ \ \ / / _ \ _____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| (_| (_) | | | \ V / (_) |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 \___\___/|_| |_|\_/ \___/       \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                                 |___/                             |___/
`

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Setup(cfg.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s ", cfg.Database.Path)
	gray.Printf("(%s)\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Auth:      ")
	if cfg.Auth.JWTSecret != "" {
		fmt.Println("bearer token on close")
	} else {
		yellow.Println("disabled")
	}
	fmt.Println()

	logger.Info("starting convo-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"database", cfg.Database.Path,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(cmd.Context())
}
