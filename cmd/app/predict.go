package main

import (
	"encoding/json"
	"fmt"

	"LearnCast/internal/di"
	"LearnCast/internal/domain/models"
	"LearnCast/internal/usecase"
	"LearnCast/pkg/config"

	"github.com/spf13/cobra"
)

func newPredictCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		user      string
		timeframe string
		flags     = models.AllFlags()
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Compute one prediction against the configured store and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			uc, cleanup, err := di.InitializePredictor(cfg)
			if err != nil {
				return fmt.Errorf("predictor initialization failed: %w", err)
			}
			defer cleanup()

			res, err := uc.Predict(cmd.Context(), usecase.PredictParams{
				UserID:    user,
				Timeframe: timeframe,
				Flags:     flags,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(models.NewPredictionResponse(res))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&user, "user", "u", "", "learner id")
	f.StringVarP(&timeframe, "timeframe", "t", "30d", "prediction horizon: 7d, 30d, 90d, 1y or a day count")
	f.BoolVar(&flags.Skills, "skills", true, "include skill trajectories")
	f.BoolVar(&flags.Courses, "courses", true, "include course completion")
	f.BoolVar(&flags.Mastery, "mastery", true, "include mastery estimates")
	f.BoolVar(&flags.Recommendations, "recommendations", true, "include recommendations")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
