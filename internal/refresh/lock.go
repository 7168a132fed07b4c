package refresh

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/dbx"
)

// Locker scopes the read-modify-write of one athlete's tokens. fn receives
// the repository it must use for that unit of work.
type Locker interface {
	WithLock(ctx context.Context, athleteID int64, fn func(ctx context.Context, repo athletes.Repository) error) error
}

// LocalLocker adds no cross-process exclusion; the conditional token write
// still prevents a lost update.
type LocalLocker struct {
	repo athletes.Repository
}

func NewLocalLocker(repo athletes.Repository) *LocalLocker {
	return &LocalLocker{repo: repo}
}

func (l *LocalLocker) WithLock(ctx context.Context, athleteID int64, fn func(ctx context.Context, repo athletes.Repository) error) error {
	return fn(ctx, l.repo)
}

// PostgresLocker serializes refreshes with a transaction-scoped advisory lock
// keyed by athlete id. The refresh reads and writes through the same
// transaction, so the lock and the update share one connection.
type PostgresLocker struct {
	db *sql.DB
}

func NewPostgresLocker(db *sql.DB) *PostgresLocker {
	return &PostgresLocker{db: db}
}

func (l *PostgresLocker) WithLock(ctx context.Context, athleteID int64, fn func(ctx context.Context, repo athletes.Repository) error) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, athleteID); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(ctx, athletes.NewPostgresRepository(tx))
	})
}
