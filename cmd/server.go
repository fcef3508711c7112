package cmd

import (
	"github.com/spf13/cobra"
	"transcode-notifier/config"
	server2 "transcode-notifier/server"
)

func server(config *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "start http server and the transcode request consumer",
		Run: func(cmd *cobra.Command, args []string) {
			if port != "" {
				config.Server.HttpPort = port
			}
			server2.RunHttp(config)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "override server.port")

	return cmd
}
