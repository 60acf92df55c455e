package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/policydesk/internal/config"
	"github.com/dmitrymomot/policydesk/internal/dispatch"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_CONN_URL", "postgres://localhost:5432/policydesk")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 587, cfg.Mail.MailPort)
	assert.True(t, cfg.Mail.MailUseTLS)
	assert.Equal(t, "UTC", cfg.Mail.Timezone)
	assert.Equal(t, dispatch.RecipientOperator, cfg.Mode())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, slog.LevelWarn, cfg.Sentry.MinLevel)
	assert.Equal(t, "schema_migrations", cfg.DB.MigrationsTable)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DATABASE_CONN_URL=postgres://db/policydesk\nMAIL_SERVER=smtp.office.test\nMAIL_PORT=2525\nRECIPIENT_MODE=client\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MAIL_PORT", "465") // process environment wins over the file
	t.Setenv("MAIL_SERVER", "")
	t.Setenv("RECIPIENT_MODE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_CONN_URL", "")
	for _, k := range []string{"MAIL_SERVER", "RECIPIENT_MODE", "LOG_LEVEL", "DATABASE_CONN_URL"} {
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := config.Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "smtp.office.test", cfg.Mail.MailServer)
	assert.Equal(t, 465, cfg.Mail.MailPort)
	assert.Equal(t, dispatch.RecipientClient, cfg.Mode())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_CONN_URL", "")
		require.NoError(t, os.Unsetenv("DATABASE_CONN_URL"))

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrParse)
	})

	t.Run("bad recipient mode", func(t *testing.T) {
		t.Setenv("DATABASE_CONN_URL", "postgres://localhost/policydesk")
		t.Setenv("RECIPIENT_MODE", "everyone")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalid)
		require.ErrorIs(t, err, dispatch.ErrInvalidMode)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("DATABASE_CONN_URL", "postgres://localhost/policydesk")
		t.Setenv("LOG_LEVEL", "loud")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalid)
	})
}
