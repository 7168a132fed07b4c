package athletes

import (
	"context"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
)

// Profile is the identity part of a login.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
}

// Service encapsulates athlete-related business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// RecordLogin creates the athlete on first login or replaces its tokens and name.
func (s *Service) RecordLogin(ctx context.Context, p Profile, t models.TokenSet) (*models.Athlete, error) {
	if p.ID == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrAuthExchange, nil, "profile has no athlete id")
	}
	if t.AccessToken == "" || t.RefreshToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrAuthExchange, nil, "incomplete token grant for athlete %d", p.ID)
	}
	a := &models.Athlete{
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt.UTC(),
	}
	return s.repo.Upsert(ctx, a)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Athlete, error) {
	return s.repo.Get(ctx, id)
}

// LogQuery appends the audit row for an activity fetch over [start, end).
func (s *Service) LogQuery(ctx context.Context, athleteID int64, start, end time.Time) error {
	return s.repo.LogQuery(ctx, models.QueryLog{
		AthleteID: athleteID,
		QueryTime: s.now().UTC(),
		StartDate: start.UTC(),
		EndDate:   end.UTC(),
	})
}
