// Package db provides PostgreSQL utilities built on pgx.
//
// It wraps [github.com/jackc/pgx/v5/pgxpool] with startup retries, a health
// check, goose migrations ([github.com/pressly/goose/v3]) and a scoped
// transaction helper.
//
// # Configuration
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 5)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 1)
//	DATABASE_HEALTHCHECK_PERIOD - Health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//
// # Transactions
//
// [WithTx] guarantees release of the transaction on every exit path:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "UPDATE reminders SET delivered = true WHERE id = ANY($1)", ids)
//		return err
//	})
//
// # Migrations
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err := db.Migrate(ctx, pool, migrations, "migrations", "schema_migrations", logger)
package db
