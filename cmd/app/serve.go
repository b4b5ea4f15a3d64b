package main

import (
	"fmt"

	"LearnCast/internal/di"
	"LearnCast/pkg/config"

	"github.com/spf13/cobra"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the prediction API and the activity consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			// Blocks until signal.
			return app.Run(cmd.Context())
		},
	}
}
