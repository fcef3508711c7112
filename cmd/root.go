package cmd

import (
	"github.com/spf13/cobra"
	"transcode-notifier/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "transcode-notifier",
		Short: "track Elastic Transcoder jobs from SNS notifications",
	}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(migrate(config))
	rootCmd.AddCommand(submit(config))
	return rootCmd
}
