package athletes

import (
	"context"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/models"
)

// Repository defines persistence operations for athlete token records.
type Repository interface {
	// Upsert creates the record or replaces its tokens and name.
	Upsert(ctx context.Context, a *models.Athlete) (*models.Athlete, error)
	// Get returns apperrors.ErrNotFound when the athlete is unknown.
	Get(ctx context.Context, id int64) (*models.Athlete, error)
	// UpdateTokens writes next only if the stored expiry still equals prevExpiresAt.
	// It reports whether the write was applied.
	UpdateTokens(ctx context.Context, id int64, prevExpiresAt time.Time, next models.TokenSet) (bool, error)
	// LogQuery appends an audit row.
	LogQuery(ctx context.Context, q models.QueryLog) error
}
