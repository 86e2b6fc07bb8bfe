package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/railmadad/backend/internal/config"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/seed"
	"github.com/railmadad/backend/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		file        string
		databaseURL string
		dryRun      bool
		migrate     bool
	)
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load complaint categories, field staff and admins into the database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				With().Timestamp().Str("service", "railmadad-seed").Logger()

			data, err := loadFile(file)
			if err != nil {
				return err
			}
			if databaseURL == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				databaseURL = cfg.DatabaseURL
			}
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			store, err := db.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer store.Close()
			if migrate {
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			s := &seed.Seeder{
				Categories: service.NewCategoryService(store, service.NewValidator()),
				Users:      store,
				Logger:     logger,
				DryRun:     dryRun,
			}
			rep, err := s.Apply(ctx, data)
			if err != nil {
				return err
			}
			logger.Info().
				Bool("dry_run", dryRun).
				Int("categories_created", rep.CategoriesCreated).
				Int("categories_skipped", rep.CategoriesSkipped).
				Int("users_created", rep.UsersCreated).
				Int("users_skipped", rep.UsersSkipped).
				Msg("seed finished")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file (defaults to the built-in data set)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres URL (defaults to DATABASE_URL)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before seeding")
	return cmd
}

func loadFile(path string) (seed.File, error) {
	if path == "" {
		return seed.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed.File{}, fmt.Errorf("read seed file: %w", err)
	}
	return seed.Parse(raw)
}
