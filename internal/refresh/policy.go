// Package refresh keeps stored Strava access tokens usable. A token whose
// expiry is at or before now is exchanged once via its refresh token; the
// new pair is persisted with a conditional write so concurrent refreshers
// for the same athlete converge on a single stored credential.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/harry-lons/runsum-be-nonorg/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for a new credential set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error)
}

// Policy decides when to refresh and performs the refresh.
type Policy struct {
	repo      athletes.Repository
	refresher Refresher
	locker    Locker
	group     singleflight.Group
	now       func() time.Time
}

// NewPolicy builds a policy. A nil locker means in-process collapsing only.
func NewPolicy(repo athletes.Repository, r Refresher, l Locker) *Policy {
	if l == nil {
		l = NewLocalLocker(repo)
	}
	return &Policy{repo: repo, refresher: r, locker: l, now: time.Now}
}

// NeedsRefresh reports whether the stored access token must not be used at now.
func NeedsRefresh(a *models.Athlete, now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// Ensure returns the athlete with an access token valid at the time of the call.
func (p *Policy) Ensure(ctx context.Context, athleteID int64) (*models.Athlete, error) {
	a, err := p.repo.Get(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	if !NeedsRefresh(a, p.now()) {
		return a, nil
	}

	// Followers share the leader's result; the leader must not be cut short by
	// one caller going away, the upstream client timeout bounds it instead.
	v, err, _ := p.group.Do(strconv.FormatInt(athleteID, 10), func() (interface{}, error) {
		return p.refresh(context.WithoutCancel(ctx), athleteID)
	})
	if err != nil {
		return nil, err
	}
	out := *(v.(*models.Athlete))
	return &out, nil
}

func (p *Policy) refresh(ctx context.Context, athleteID int64) (*models.Athlete, error) {
	var out *models.Athlete
	err := p.locker.WithLock(ctx, athleteID, func(ctx context.Context, repo athletes.Repository) error {
		cur, err := repo.Get(ctx, athleteID)
		if err != nil {
			return err
		}
		// someone else refreshed while we waited for the lock
		if !NeedsRefresh(cur, p.now()) {
			metrics.TokenRefreshes.WithLabelValues("reused").Inc()
			out = cur
			return nil
		}
		if cur.RefreshToken == "" {
			metrics.TokenRefreshes.WithLabelValues("failed").Inc()
			return apperrors.ErrNoRefreshToken
		}

		prev := cur.Tokens()
		next, err := p.refresher.Refresh(ctx, prev.RefreshToken)
		if err == nil && next.AccessToken == "" {
			err = errors.New("empty access token in refresh response")
		}
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("failed").Inc()
			logger.Warnf("token refresh failed for athlete %d: %v", athleteID, err)
			if !errors.Is(err, apperrors.ErrTokenRefresh) {
				err = apperrors.Wrapf(apperrors.ErrTokenRefresh, err, "athlete %d", athleteID)
			}
			return err
		}
		if next.RefreshToken == "" {
			next.RefreshToken = prev.RefreshToken
		}

		applied, err := repo.UpdateTokens(ctx, athleteID, prev.ExpiresAt, next)
		if err != nil {
			return fmt.Errorf("persist refreshed tokens: %w", err)
		}
		if !applied {
			// lost the conditional write: adopt what the winner stored
			metrics.TokenRefreshes.WithLabelValues("superseded").Inc()
			winner, err := repo.Get(ctx, athleteID)
			if err != nil {
				return err
			}
			out = winner
			return nil
		}

		metrics.TokenRefreshes.WithLabelValues("refreshed").Inc()
		logger.Debugf("refreshed access token for athlete %d (expires %s)", athleteID, next.ExpiresAt.Format(time.RFC3339))
		updated := *cur
		updated.AccessToken = next.AccessToken
		updated.RefreshToken = next.RefreshToken
		updated.ExpiresAt = next.ExpiresAt
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
