package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	statsServer string
	statsReset  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics from a running server",
	Long: `Fetches cache and search statistics from a running emojitools server
(see the serve command). Defaults to the server address in config.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsServer, "server", "", "server base URL (default from config)")
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "reset the counters after reading them")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	base := statsServer
	if base == "" {
		base = "http://" + cfg.Server.Addr()
	}
	client := &http.Client{Timeout: 10 * time.Second}

	body, err := fetch(cmd.Context(), client, http.MethodGet, base+"/api/v1/cache/stats")
	if err != nil {
		return fmt.Errorf("fetching stats from %s: %w", base, err)
	}
	cmd.Println(string(body))

	if statsReset {
		if _, err := fetch(cmd.Context(), client, http.MethodPost, base+"/api/v1/stats/reset"); err != nil {
			return fmt.Errorf("resetting stats: %w", err)
		}
		cmd.Println("Counters reset.")
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, method, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Server.AdminKey != "" {
		req.Header.Set("X-Admin-Key", cfg.Server.AdminKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}
	return body, nil
}
