package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gatepass/internal/config"
	"gatepass/internal/db"
	"gatepass/internal/repository"
	"gatepass/internal/seed"
	"gatepass/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file   string
		dryRun bool
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load hostel users from a YAML or TOML seed file",
		Long: `Load hostel users from a YAML or TOML seed file.

Users are upserted by id, so running the command again updates names, roles
and passwords without creating duplicates. Gate passes are never touched.`,
		Example: `  seed --file config/seed.example.yaml
  seed --file users.toml --dry-run`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))

			if file == "" {
				file = cfg.SeedFile
			}
			if file == "" {
				return fmt.Errorf("no seed file: pass --file or set SEED_FILE")
			}

			f, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			if dryRun {
				for _, u := range f.Users {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-9s %s\n", u.ID, u.Role, u.Name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d users valid, nothing written\n", len(f.Users))
				return nil
			}

			users, err := f.Accounts(0)
			if err != nil {
				return err
			}

			gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)
			if err := db.Migrate(gormDB, reset); err != nil {
				return err
			}

			svc := service.NewUserService(repository.NewUserRepository(gormDB), nil, logger)
			n, err := svc.Seed(context.Background(), users)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users from %s\n", n, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (.yaml, .yml or .toml); defaults to SEED_FILE")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file and list users without writing")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate all tables first")
	return cmd
}
