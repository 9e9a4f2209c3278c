package main

import (
	"github.com/spf13/cobra"

	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/logger"
)

type rootOptions struct {
	configFolder string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "caster",
		Short:        "Compose and publish casts from the command line",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFolder, "config_folder", "config", "path to folder with configs")

	cmd.AddCommand(newPostCmd(opts), newPreviewsCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFolder)
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)
	return cfg, nil
}
