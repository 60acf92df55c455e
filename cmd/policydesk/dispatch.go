package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/policydesk/pkg/db"
	"github.com/dmitrymomot/policydesk/pkg/health"
)

func newDispatchCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run one reminder cycle now and print its report",
		Long: "Runs a single delivery cycle outside the schedule. Settings changes " +
			"made meanwhile do not reschedule anything since no scheduler runs in this process.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx, *envFile, nil)
			if err != nil {
				return err
			}
			defer d.close(context.WithoutCancel(ctx))

			if _, err := health.Run(ctx, health.Checks{"postgres": db.Healthcheck(d.pool)}); err != nil {
				return err
			}

			report, runErr := d.dispatcher().RunCycle(ctx)

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return runErr
		},
	}
}
