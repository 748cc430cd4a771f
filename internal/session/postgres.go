package session

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrations holds the schema for PostgresBackend, applied by core/database.RunMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// PostgresBackend stores each session as a JSONB row in the sessions table.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an open connection pool.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Name() string { return "postgres" }

const upsertSession = `
INSERT INTO sessions (user_id, data, last_activity, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id) DO UPDATE
SET data = EXCLUDED.data, last_activity = EXCLUDED.last_activity, updated_at = now()`

func (b *PostgresBackend) Save(ctx context.Context, sess *Session) error {
	data, err := Marshal(sess)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, upsertSession, sess.UserID, string(data), sess.LastActivity); err != nil {
		return fmt.Errorf("session: upsert %s: %w", sess.UserID, err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, userID string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("session: delete %s: %w", userID, err)
	}
	return nil
}

type sessionRow struct {
	UserID string `db:"user_id"`
	Data   []byte `db:"data"`
}

func (b *PostgresBackend) LoadAll(ctx context.Context) ([]Session, error) {
	var rows []sessionRow
	if err := b.db.SelectContext(ctx, &rows, `SELECT user_id, data FROM sessions`); err != nil {
		return nil, fmt.Errorf("session: select: %w", err)
	}
	out := make([]Session, 0, len(rows))
	for _, row := range rows {
		sess, err := Unmarshal(row.Data)
		if err != nil {
			logSkipped(ctx, b.Name(), row.UserID, err)
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}
