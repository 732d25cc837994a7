package server

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/taules/taules/internal/infra/elasticsearch/index"
	"github.com/taules/taules/internal/infra/postgres"
)

// Setup abstracts away:
//
// 1. Setting up the environment the storage backend needs
// 2. Checking that things are set up
//
// What that means depends on the backend: index templates for Elasticsearch,
// schema migrations for Postgres, nothing at all for the embedded backends.
type Setup interface {

	// Check returns an error if all the necessary setup is not complete
	Check(ctx context.Context) error

	// RunIfNeeded attempts to run the subroutines necessary, no more no less
	RunIfNeeded(ctx context.Context) error
}

type esSetup struct {
	templates index.TemplatesSetup
}

func (s esSetup) Check(ctx context.Context) error {
	return s.templates.Check(ctx)
}

func (s esSetup) RunIfNeeded(ctx context.Context) error {
	if err := s.templates.Check(ctx); err != nil {
		if _, notInstalled := err.(index.TemplatesNotInstalled); !notInstalled {
			return err
		}
		log.Info().Msg("Setting up index templates")
		if err := s.templates.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to install index templates")
			return err
		}
	}
	log.Info().Msg("Setup complete")
	return nil
}

type postgresSetup struct {
	repo *postgres.Repo
}

func (s postgresSetup) Check(ctx context.Context) error {
	return s.repo.Check(ctx)
}

func (s postgresSetup) RunIfNeeded(ctx context.Context) error {
	// goose tracks applied migrations itself, so this is naturally incremental
	log.Info().Msg("Running schema migrations")
	if err := s.repo.RunMigrations(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to run schema migrations")
		return err
	}
	log.Info().Msg("Setup complete")
	return nil
}

type noopSetup struct{}

func (s noopSetup) Check(ctx context.Context) error { return nil }

func (s noopSetup) RunIfNeeded(ctx context.Context) error { return nil }
