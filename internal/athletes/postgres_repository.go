package athletes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/dbx"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, a *models.Athlete) (*models.Athlete, error) {
	query :=
		`INSERT INTO athlete (athlete_id, first_name, last_name, access_token, refresh_token, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (athlete_id) DO UPDATE SET
		   first_name = EXCLUDED.first_name,
		   last_name = EXCLUDED.last_name,
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   expires_at = EXCLUDED.expires_at,
		   updated_at = now()
		 RETURNING created_at, updated_at
		 `

	out := *a
	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.FirstName, a.LastName, a.AccessToken, a.RefreshToken, a.ExpiresAt.UTC()).
		Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Athlete, error) {
	query :=
		`SELECT athlete_id, first_name, last_name, access_token, refresh_token, expires_at, created_at, updated_at
		 FROM athlete
		 WHERE athlete_id = $1
		 `

	a := &models.Athlete{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, nil, "athlete %d", id)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// UpdateTokens is a compare-and-swap on expires_at; all three token columns change in one statement.
func (r *PostgresRepository) UpdateTokens(ctx context.Context, id int64, prevExpiresAt time.Time, next models.TokenSet) (bool, error) {
	query :=
		`UPDATE athlete
		 SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = now()
		 WHERE athlete_id = $1 AND expires_at = $5
		 `

	res, err := r.db.ExecContext(ctx, query, id, next.AccessToken, next.RefreshToken, next.ExpiresAt.UTC(), prevExpiresAt.UTC())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) LogQuery(ctx context.Context, q models.QueryLog) error {
	query :=
		`INSERT INTO queries (athlete_id, query_time, start_date, end_date)
		 VALUES ($1, $2, $3, $4)
		 `

	if _, err := r.db.ExecContext(ctx, query, q.AthleteID, q.QueryTime.UTC(), q.StartDate.UTC(), q.EndDate.UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
