// Package store persists clients, policies, reminders and the operator's
// settings record in PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/policydesk/internal/crm"
	"github.com/dmitrymomot/policydesk/internal/settings"
	"github.com/dmitrymomot/policydesk/pkg/db"
)

// DefaultListLimit caps ListReminders when no positive limit is given.
const DefaultListLimit = 100

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	db.TxBeginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed reminder repository.
type Store struct {
	db DB
}

// New creates a Store on top of a pool.
func New(pool DB) *Store {
	return &Store{db: pool}
}

const reminderColumns = `
	r.id, r.client_id, r.policy_id, r.due_at, r.content, r.delivered,
	c.id, c.first_name, c.last_name, c.email, c.phone, c.address,
	p.id, p.client_id, p.policy_number, p.product, p.start_date, p.end_date, p.premium::text, p.status
FROM reminders r
LEFT JOIN clients c ON c.id = r.client_id
LEFT JOIN policies p ON p.id = r.policy_id AND p.client_id = r.client_id`

const findDueQuery = `SELECT` + reminderColumns + `
WHERE r.delivered = false AND r.due_at <= $1
ORDER BY r.due_at ASC, r.id ASC`

const listRemindersQuery = `SELECT` + reminderColumns + `
ORDER BY r.due_at DESC, r.id DESC
LIMIT $1`

// FindDue returns undelivered reminders due at or before now, oldest first.
// now is a naive local timestamp (see crm.Naive). Reminders with equal due
// times come back in insertion order.
func (s *Store) FindDue(ctx context.Context, now time.Time) ([]crm.Reminder, error) {
	rows, err := s.db.Query(ctx, findDueQuery, now)
	if err != nil {
		return nil, errors.Join(ErrFindDue, err)
	}
	reminders, err := collectReminders(rows)
	if err != nil {
		return nil, errors.Join(ErrFindDue, err)
	}
	return reminders, nil
}

// ListReminders returns the most recent reminders by due date, newest first.
func (s *Store) ListReminders(ctx context.Context, limit int) ([]crm.Reminder, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx, listRemindersQuery, limit)
	if err != nil {
		return nil, errors.Join(ErrListReminders, err)
	}
	reminders, err := collectReminders(rows)
	if err != nil {
		return nil, errors.Join(ErrListReminders, err)
	}
	return reminders, nil
}

// MarkDelivered flips delivered to true for ids in one transaction and
// returns the number of rows changed. Ids that no longer exist or are
// already delivered are skipped.
func (s *Store) MarkDelivered(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var affected int64
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE reminders SET delivered = true WHERE id = ANY($1) AND delivered = false`,
			ids,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, errors.Join(ErrMarkDelivered, err)
	}
	return affected, nil
}

const operatorConfigColumns = `id, notification_email, send_hour, timezone, mail_server, mail_port,
	mail_use_tls, mail_username, mail_password, updated_at`

// OperatorConfig returns the operator's settings record, or nil when none
// has been saved yet.
func (s *Store) OperatorConfig(ctx context.Context) (*settings.OperatorConfig, error) {
	row := s.db.QueryRow(ctx, `SELECT `+operatorConfigColumns+` FROM operator_configs ORDER BY id LIMIT 1`)

	var cfg settings.OperatorConfig
	err := row.Scan(
		&cfg.ID, &cfg.NotificationEmail, &cfg.SendHour, &cfg.Timezone, &cfg.MailServer,
		&cfg.MailPort, &cfg.MailUseTLS, &cfg.MailUsername, &cfg.MailPassword, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrLoadOperatorConfig, err)
	}
	return &cfg, nil
}

// SaveOperatorConfig creates or replaces the singleton settings record.
// cfg.ID and cfg.UpdatedAt are set from the stored row.
func (s *Store) SaveOperatorConfig(ctx context.Context, cfg *settings.OperatorConfig) error {
	if cfg == nil {
		return ErrNilOperatorConfig
	}

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM operator_configs ORDER BY id LIMIT 1 FOR UPDATE`).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return tx.QueryRow(ctx, `
				INSERT INTO operator_configs (notification_email, send_hour, timezone, mail_server,
					mail_port, mail_use_tls, mail_username, mail_password)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, updated_at`,
				cfg.NotificationEmail, cfg.SendHour, cfg.Timezone, cfg.MailServer,
				cfg.MailPort, cfg.MailUseTLS, cfg.MailUsername, cfg.MailPassword,
			).Scan(&cfg.ID, &cfg.UpdatedAt)
		case err != nil:
			return err
		}

		return tx.QueryRow(ctx, `
			UPDATE operator_configs SET
				notification_email = $2, send_hour = $3, timezone = $4, mail_server = $5,
				mail_port = $6, mail_use_tls = $7, mail_username = $8, mail_password = $9,
				updated_at = now()
			WHERE id = $1
			RETURNING id, updated_at`,
			id, cfg.NotificationEmail, cfg.SendHour, cfg.Timezone, cfg.MailServer,
			cfg.MailPort, cfg.MailUseTLS, cfg.MailUsername, cfg.MailPassword,
		).Scan(&cfg.ID, &cfg.UpdatedAt)
	})
	if err != nil {
		return errors.Join(ErrSaveOperatorConfig, err)
	}
	return nil
}

// reminderRow mirrors reminderColumns; joined columns are nullable.
type reminderRow struct {
	dueAt     time.Time
	policyID  *int64
	content   string
	id        int64
	clientID  int64
	delivered bool

	cID        *int64
	cFirstName *string
	cLastName  *string
	cEmail     *string
	cPhone     *string
	cAddress   *string

	pID        *int64
	pClientID  *int64
	pNumber    *string
	pProduct   *string
	pStartDate *time.Time
	pEndDate   *time.Time
	pPremium   *string
	pStatus    *string
}

func collectReminders(rows pgx.Rows) ([]crm.Reminder, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (crm.Reminder, error) {
		var r reminderRow
		err := row.Scan(
			&r.id, &r.clientID, &r.policyID, &r.dueAt, &r.content, &r.delivered,
			&r.cID, &r.cFirstName, &r.cLastName, &r.cEmail, &r.cPhone, &r.cAddress,
			&r.pID, &r.pClientID, &r.pNumber, &r.pProduct, &r.pStartDate, &r.pEndDate, &r.pPremium, &r.pStatus,
		)
		if err != nil {
			return crm.Reminder{}, err
		}
		return r.toReminder(), nil
	})
}

func (r reminderRow) toReminder() crm.Reminder {
	rem := crm.Reminder{
		ID:        r.id,
		ClientID:  r.clientID,
		PolicyID:  r.policyID,
		DueAt:     naiveUTC(r.dueAt),
		Content:   r.content,
		Delivered: r.delivered,
	}
	if r.cID != nil {
		rem.Client = &crm.Client{
			ID:        *r.cID,
			FirstName: deref(r.cFirstName),
			LastName:  deref(r.cLastName),
			Email:     deref(r.cEmail),
			Phone:     deref(r.cPhone),
			Address:   deref(r.cAddress),
		}
	}
	if r.pID != nil {
		rem.Policy = &crm.Policy{
			ID:        *r.pID,
			ClientID:  deref(r.pClientID),
			Number:    deref(r.pNumber),
			Product:   deref(r.pProduct),
			StartDate: r.pStartDate,
			EndDate:   r.pEndDate,
			Premium:   deref(r.pPremium),
			Status:    deref(r.pStatus),
		}
	}
	return rem
}

// naiveUTC keeps the wall clock of a TIMESTAMP column and pins it to UTC.
func naiveUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
