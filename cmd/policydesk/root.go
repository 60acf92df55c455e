package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/policydesk/internal/config"
	"github.com/dmitrymomot/policydesk/internal/dispatch"
	"github.com/dmitrymomot/policydesk/internal/metrics"
	"github.com/dmitrymomot/policydesk/internal/store"
	"github.com/dmitrymomot/policydesk/pkg/db"
	"github.com/dmitrymomot/policydesk/pkg/logger"
	"github.com/dmitrymomot/policydesk/pkg/mailer"
	"github.com/dmitrymomot/policydesk/pkg/mailer/smtp"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "policydesk",
		Short:         "Daily e-mail reminders for the policydesk CRM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment is parsed")

	root.AddCommand(
		newServeCmd(&envFile),
		newMigrateCmd(&envFile),
		newDispatchCmd(&envFile),
		newTestEmailCmd(&envFile),
	)
	return root
}

// deps are the components every command shares.
type deps struct {
	cfg       *config.Config
	log       *slog.Logger
	pool      *pgxpool.Pool
	store     *store.Store
	metrics   *metrics.Collector
	transport *mailer.Transport
}

// bootstrap loads configuration, connects to the database and builds the
// mail transport. nextRun feeds the next-run gauge and may be nil.
func bootstrap(ctx context.Context, envFile string, nextRun func() time.Time) (*deps, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithSentry(cfg.Sentry, cfg.Level(),
		logger.CycleIDExtractor(),
		logger.RequestIDExtractor(),
	).With(slog.String("env", cfg.AppEnv))

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	collector := metrics.New(nextRun)
	transport := mailer.NewTransport(
		smtp.Factory(smtp.WithLocalName(config.Hostname())),
		mailer.WithTransportLogger(log),
		mailer.WithObserver(collector.ObserveSend),
	)

	return &deps{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		store:     store.New(pool),
		metrics:   collector,
		transport: transport,
	}, nil
}

func (d *deps) dispatcher() *dispatch.Dispatcher {
	return dispatch.New(d.store, d.store, d.transport, d.cfg.Mail,
		dispatch.WithLogger(d.log),
		dispatch.WithRecipientMode(d.cfg.Mode()),
		dispatch.WithCycleObserver(d.metrics.ObserveCycle),
	)
}

func (d *deps) close(ctx context.Context) {
	d.pool.Close()
	logger.Flush(ctx)
}
