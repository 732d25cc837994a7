package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taules/taules/internal/infra/server"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run taules setup",
	Long:  "Prepares the configured storage backend. Installs index templates for Elasticsearch, runs schema migrations for Postgres; the embedded backends need nothing.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.RunSetup(context.Background(), &appConfig); err != nil {
			log.Fatal().Err(err).Msg("Setup failed")
		}
		log.Info().Msg("Setup complete.")
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
