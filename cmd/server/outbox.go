package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ezeatin-backend/internal/database"
	"ezeatin-backend/internal/finalize"
	"ezeatin-backend/internal/repository"

	"github.com/spf13/cobra"
)

func newOutboxCmd() *cobra.Command {
	outbox := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect the local profile outbox",
	}
	outbox.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Submit queued profiles to MongoDB once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.OutboxPath == "" {
				return errors.New("OUTBOX_PATH is not set")
			}
			if cfg.MongoURI == "" {
				return errors.New("MONGODB_URI is required")
			}

			if err := database.Connect(cfg.MongoURI, cfg.DBName, log); err != nil {
				return fmt.Errorf("connect to MongoDB: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			defer database.Disconnect(context.Background())

			box, err := finalize.OpenOutbox(cfg.OutboxPath, log)
			if err != nil {
				return err
			}
			defer box.Close()

			userRepo := repository.NewUserRepo()
			primary := finalize.NewProfileFinalizer(repository.NewProfileRepo(), userRepo, newNotifier(cfg, log), log)
			defer primary.Wait()

			n, err := box.Replay(ctx, primary)
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d profile(s)\n", n)
			return err
		},
	})
	return outbox
}
