package main

import (
	"LearnCast/pkg/config"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "learncast",
		Short:         "Learning-outcome prediction engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.yaml", "config file path")

	load := func() (*config.Config, error) {
		return config.LoadWithEnv(cfgFile)
	}
	root.AddCommand(newServeCmd(load), newPredictCmd(load))
	return root
}
