package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"courier/internal/history"
	"courier/internal/metrics"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, backend reachability, and counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("config:")
			fmt.Printf("  base url:      %s\n", cfg.General.BaseURL)
			fmt.Printf("  default agent: %s\n", cfg.General.DefaultAgent)
			fmt.Printf("  transport:     %s\n", cfg.Stream.Transport)
			fmt.Printf("  history:       %v (%s)\n", cfg.History.Enabled, cfg.History.DBPath)

			fmt.Printf("backend:         %s\n", probeBackend(cfg.General.BaseURL))

			fmt.Println("counters:")
			if !cfg.History.Enabled {
				fmt.Println("  (history disabled, counters are not recorded)")
				return nil
			}
			snap, err := loadCounters(cmd.Context(), cfg.History.DBPath)
			if err != nil {
				fmt.Println("  (unavailable: " + err.Error() + ")")
				return nil
			}
			for _, line := range strings.Split(strings.TrimRight(snap.String(), "\n"), "\n") {
				fmt.Println("  " + line)
			}
			return nil
		},
	}
}

// loadCounters reads the counter totals accumulated by past runs.
func loadCounters(ctx context.Context, dbPath string) (metrics.Snapshot, error) {
	store, err := history.NewStore(dbPath, logger)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	defer store.Close()

	counts, err := store.Counters(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	return metrics.SnapshotFromCounts(counts), nil
}

// probeBackend checks whether the submission endpoint answers at all. Any
// HTTP response counts as reachable; only connection failures do not.
func probeBackend(baseURL string) string {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/request-handler/submit/")
	if err != nil {
		return "unreachable (" + err.Error() + ")"
	}
	resp.Body.Close()
	return fmt.Sprintf("reachable (%d)", resp.StatusCode)
}
