// ABOUTME: health and stats commands that query a running gateway over HTTP
// ABOUTME: Both read server.http_addr from the config file

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/convo-gateway/internal/gateway"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// baseURL turns a listen address into a URL a local client can reach.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}

func getURL(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			status, _, err := getURL(cmd.Context(), baseURL(cfg.Server.HTTPAddr)+"/health/ready")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			if status != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d", status)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show conversation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			status, body, err := getURL(cmd.Context(), baseURL(cfg.Server.HTTPAddr)+"/stats/")
			if err != nil {
				return fmt.Errorf("fetching stats: %w", err)
			}
			if status != http.StatusOK {
				return fmt.Errorf("fetching stats: status %d: %s", status, strings.TrimSpace(string(body)))
			}

			var stats gateway.StatsResponse
			if err := json.Unmarshal(body, &stats); err != nil {
				return fmt.Errorf("decoding stats: %w", err)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func printStats(w io.Writer, s gateway.StatsResponse) {
	label := color.New(color.FgHiBlack)
	rows := []struct {
		name  string
		value int
	}{
		{"total", s.TotalConversations},
		{"open", s.OpenConversations},
		{"closed", s.ClosedConversations},
		{"with messages", s.ConversationsWithMessages},
	}
	for _, r := range rows {
		label.Fprintf(w, "%-14s", r.name)
		fmt.Fprintf(w, "%d\n", r.value)
	}
}
