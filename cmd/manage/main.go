package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/geocoder89/rentdesk/internal/config"
	"github.com/geocoder89/rentdesk/internal/db"
	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/observability"
	"github.com/geocoder89/rentdesk/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "manage",
		Short:        "rentdesk maintenance commands",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(newMigrateCmd(&timeout), newCreateSuperuserCmd(&timeout))

	return root
}

func newMigrateCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), *timeout, func(ctx context.Context, pool *pgxpool.Pool) error {
				if err := db.EnsureSchema(ctx, pool); err != nil {
					return err
				}
				cmd.Println("schema is up to date")
				return nil
			})
		},
	}
}

func newCreateSuperuserCmd(timeout *time.Duration) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an active staff superuser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(password) < 5 {
				return errors.New("password must be at least 5 characters")
			}

			return withPool(cmd.Context(), *timeout, func(ctx context.Context, pool *pgxpool.Pool) error {
				if err := db.EnsureSchema(ctx, pool); err != nil {
					return err
				}

				created, err := db.EnsureSuperuser(ctx, postgres.NewUsersRepo(pool, nil), email, password)
				if err != nil {
					return err
				}
				if !created {
					return fmt.Errorf("user %s already exists", user.NormalizeEmail(email))
				}

				cmd.Printf("superuser %s created\n", user.NormalizeEmail(email))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "superuser email")
	cmd.Flags().StringVar(&password, "password", "", "superuser password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func withPool(parent context.Context, timeout time.Duration, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("database unavailable", "err", err)
		return err
	}
	defer pool.Close()

	return fn(ctx, pool)
}
