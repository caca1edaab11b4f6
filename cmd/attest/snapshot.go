package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	var (
		fromFlag string
		toFlag   string
		window   time.Duration
		label    string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Reduce an inspection history window into a metrics snapshot and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			to := time.Now().UTC()
			if toFlag != "" {
				if to, err = time.Parse(time.RFC3339, toFlag); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}
			from := to.Add(-window)
			if fromFlag != "" {
				if from, err = time.Parse(time.RFC3339, fromFlag); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}

			_, _, snapService, err := historyServices(cfg, logger, nil)
			if err != nil {
				return err
			}

			snap, err := snapService.Snapshot(context.Background(), from, to, label)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "window start (RFC3339); overrides --window")
	cmd.Flags().StringVar(&toFlag, "to", "", "window end (RFC3339); defaults to now")
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "window length ending at --to")
	cmd.Flags().StringVar(&label, "label", "", "restrict to records carrying this label")
	return cmd
}
