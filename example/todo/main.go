// A small end-to-end tour of the client against a locally running server:
// create, list, conditional update with conflict recovery, soft delete and
// undelete.
//
// Start a server with a soft-delete table named todoitem (the example
// config serves one), then:
//
//	go run ./example/todo --address localhost:8080
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taules/taules/client"
)

var (
	address     string
	table       string
	bearerToken string

	rootCmd = &cobra.Command{
		Use:   "todo",
		Short: "Tour the taules client",
		Long:  `Runs a small create/list/update/delete tour against a running server`,
		Run: func(cmd *cobra.Command, args []string) {
			conf := client.Config{Address: address, Timeout: 10 * time.Second}
			if bearerToken != "" {
				conf.BearerToken = &bearerToken
			}
			if err := run(client.New(conf).Table(table)); err != nil {
				log.Fatal().Err(err).Msg("Tour failed")
			}
		},
	}
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	rootCmd.PersistentFlags().StringVar(&address, "address", "localhost:8080", "host:port of the server")
	rootCmd.PersistentFlags().StringVar(&table, "table", "todoitem", "table to use; must be configured with soft_delete")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "bearer token, for servers with auth configured")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run(todos *client.Table) error {
	ctx := context.Background()

	milk, err := todos.Insert(ctx, client.Record{"id": "milk", "title": "get milk", "done": false})
	if err != nil {
		var conflict *client.ConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		// id taken from an earlier run; keep going with the stored one
		milk = conflict.Current
		log.Info().Str("version", milk.Version()).Msg("Record already there, reusing it")
	} else {
		log.Info().Str("id", milk.ID()).Str("version", milk.Version()).Msg("Created")
	}

	// let the server pick the id
	oats, err := todos.Insert(ctx, client.Record{"title": "get oats", "done": false})
	if err != nil {
		return err
	}
	log.Info().Str("id", oats.ID()).Msg("Created with a generated id")

	open, err := todos.ListAll(ctx, client.Query{Filter: "done eq false", OrderBy: "title"})
	if err != nil {
		return err
	}
	log.Info().Int("open", len(open)).Msg("Listed open todos")

	// conditional update with the version we hold
	milk["done"] = true
	updated, err := todos.Update(ctx, milk, milk.Version())
	if err != nil {
		return err
	}
	log.Info().Str("version", updated.Version()).Msg("Marked done")

	// the version in milk is now stale; show the recovery dance
	milk["title"] = "get milk and eggs"
	if _, err := todos.Update(ctx, milk, milk.Version()); err != nil {
		var conflict *client.ConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		log.Info().
			Str("current_version", conflict.Current.Version()).
			Msg("Stale write rejected, retrying against the current record")
		current := conflict.Current
		current["title"] = "get milk and eggs"
		if updated, err = todos.Update(ctx, current, current.Version()); err != nil {
			return err
		}
	}

	if err := todos.Delete(ctx, updated.ID(), updated.Version()); err != nil {
		return err
	}
	log.Info().Msg("Soft-deleted")

	// gone from the default listing, still there when asked for
	withDeleted, err := todos.ListAll(ctx, client.Query{IncludeDeleted: true})
	if err != nil {
		return err
	}
	log.Info().Int("with_deleted", len(withDeleted)).Msg("Listed including soft-deleted")

	resurrected, err := todos.Undelete(ctx, updated.ID(), "")
	if err != nil {
		return err
	}
	log.Info().Str("id", resurrected.ID()).Bool("deleted", resurrected.Deleted()).Msg("Resurrected")

	// clean up the generated-id record
	if err := todos.Delete(ctx, oats.ID(), ""); err != nil {
		return err
	}
	log.Info().Msg("Done")
	return nil
}
