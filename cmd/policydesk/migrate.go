package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/policydesk/internal/store"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx, *envFile, nil)
			if err != nil {
				return err
			}
			defer d.close(context.WithoutCancel(ctx))

			if err := store.Migrate(ctx, d.pool, d.cfg.DB.MigrationsTable, d.log); err != nil {
				return err
			}
			d.log.InfoContext(ctx, "migrations applied")
			return nil
		},
	}
}
