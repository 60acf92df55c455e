package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/policydesk/internal/httpapi"
	"github.com/dmitrymomot/policydesk/internal/scheduler"
	"github.com/dmitrymomot/policydesk/internal/settings"
	"github.com/dmitrymomot/policydesk/internal/store"
	"github.com/dmitrymomot/policydesk/pkg/db"
)

func newServeCmd(envFile *string) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and the settings API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *envFile, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	return cmd
}

func serve(ctx context.Context, envFile string, skipMigrate bool) error {
	var sched *scheduler.Scheduler
	d, err := bootstrap(ctx, envFile, func() time.Time { return sched.NextRun() })
	if err != nil {
		return err
	}
	defer d.close(context.WithoutCancel(ctx))

	if !skipMigrate {
		if err := store.Migrate(ctx, d.pool, d.cfg.DB.MigrationsTable, d.log); err != nil {
			return err
		}
	}

	// The scheduler location and the first hour come from the stored settings;
	// later changes to either arrive through Reschedule.
	op, err := d.store.OperatorConfig(ctx)
	if err != nil {
		d.log.WarnContext(ctx, "failed to load operator config, using defaults", slog.Any("error", err))
	}
	loc, err := settings.ResolveLocation(op, d.cfg.Mail)
	if err != nil {
		d.log.WarnContext(ctx, "invalid timezone, scheduling in UTC", slog.Any("error", err))
	}

	dispatcher := d.dispatcher()
	sched = scheduler.New(
		func(ctx context.Context) error {
			_, err := dispatcher.RunCycle(ctx)
			return err
		},
		scheduler.WithLogger(d.log),
		scheduler.WithLocation(loc),
	)
	if err := sched.Start(ctx, settings.ResolveSendHour(op)); err != nil {
		return err
	}

	srv := httpapi.New(d.store, sched, d.transport, d.cfg.Mail,
		httpapi.WithLogger(d.log),
		httpapi.WithMetrics(d.metrics),
		httpapi.WithReadinessCheck("postgres", db.Healthcheck(d.pool)),
		httpapi.WithReadinessCheck("scheduler", sched.Healthcheck()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpapi.Serve(gctx, httpapi.ServeConfig{
			Addr:            d.cfg.HTTP.Addr,
			ReadTimeout:     d.cfg.HTTP.ReadTimeout,
			WriteTimeout:    d.cfg.HTTP.WriteTimeout,
			ShutdownTimeout: d.cfg.HTTP.ShutdownTimeout,
		}, srv.Handler(), d.log)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), d.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		// a cycle in flight finishes and commits before the pool closes
		return sched.Stop(stopCtx)
	})

	return g.Wait()
}
