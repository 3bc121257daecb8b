package main

import (
	"github.com/spf13/cobra"

	"admission-gateway/internal/server"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Admission gateway for an image-generation inference backend",
		Long: `Admission gateway for an image-generation inference backend.

Every request passes through request tracking, per-client rate limiting
(minute, hour and burst windows) and a bounded concurrency gate with a FIFO
queue before it reaches the backend.

Configuration comes from defaults, an optional YAML file (--config) and
GATEWAY_* environment variables, in that order of precedence.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newStatsCmd(),
		newConfigCmd(opts),
	)
	return cmd
}
