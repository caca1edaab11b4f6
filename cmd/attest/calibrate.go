package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCalibrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate",
		Short: "Fit a calibration model over the stored held-out batch and print it",
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

			_, calService, _, err := historyServices(cfg, logger, nil)
			if err != nil {
				return err
			}

			model, err := calService.Fit(context.Background())
			if err != nil {
				return err
			}
			logger.Info("calibration fit complete",
				zap.Float64("ece", model.ECE),
				zap.Float64("temperature", model.Temperature),
				zap.Bool("is_calibrated", model.IsCalibrated))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(model)
		},
	}
}
