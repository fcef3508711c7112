package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"transcode-notifier/config"
	server2 "transcode-notifier/server"
)

func migrate(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the jobs table",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(cmd.OutOrStdout()).With().Timestamp().Logger()
			ctx := logger.WithContext(cmd.Context())

			repo, err := server2.NewRepository(config)
			if err != nil {
				return err
			}
			if err := repo.AutoMigrate(ctx); err != nil {
				return err
			}

			logger.Info().Str("driver", config.Database.Driver).Msg("migration finished")
			return nil
		},
	}
}
