package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mr "github.com/alicebob/miniredis/v2"
	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	// rotate hands out a distinct refresh token per call when set
	rotate bool
	expiry time.Time
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return models.TokenSet{}, f.err
	}
	set := models.TokenSet{AccessToken: fmt.Sprintf("AT-%d", n), ExpiresAt: f.expiry}
	if f.rotate {
		set.RefreshToken = fmt.Sprintf("RT-%d", n)
	}
	return set, nil
}

func seed(t *testing.T, repo athletes.Repository, expiresAt time.Time) {
	t.Helper()
	_, err := repo.Upsert(context.Background(), &models.Athlete{
		ID: 42, FirstName: "Ann", LastName: "Lee",
		AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, NeedsRefresh(&models.Athlete{ExpiresAt: now.Add(-time.Second)}, now))
	assert.True(t, NeedsRefresh(&models.Athlete{ExpiresAt: now}, now), "expiry equal to now is expired")
	assert.False(t, NeedsRefresh(&models.Athlete{ExpiresAt: now.Add(time.Second)}, now))
}

func TestEnsure_FreshTokenNotRefreshed(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(time.Hour))
	r := &fakeRefresher{expiry: time.Now().Add(6 * time.Hour)}
	p := NewPolicy(repo, r, nil)

	a, err := p.Ensure(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "AT1", a.AccessToken)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestEnsure_ExpiredTokenRefreshedAndPersisted(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	exp := time.Now().Add(6 * time.Hour).UTC().Truncate(time.Second)
	r := &fakeRefresher{expiry: exp, rotate: true}
	p := NewPolicy(repo, r, nil)

	a, err := p.Ensure(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "AT-1", a.AccessToken)
	assert.Equal(t, "RT-1", a.RefreshToken)
	assert.True(t, exp.Equal(a.ExpiresAt))

	stored, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "AT-1", stored.AccessToken)
	assert.Equal(t, "RT-1", stored.RefreshToken)
	assert.True(t, exp.Equal(stored.ExpiresAt))
	assert.Equal(t, "Ann", stored.FirstName)
}

func TestEnsure_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	r := &fakeRefresher{expiry: time.Now().Add(time.Hour)}
	p := NewPolicy(repo, r, nil)

	_, err := p.Ensure(context.Background(), 42)
	require.NoError(t, err)
	stored, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "RT1", stored.RefreshToken)
}

func TestEnsure_FailureLeavesStoreUntouched(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	old := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	seed(t, repo, old)
	r := &fakeRefresher{err: errors.New("upstream 401")}
	p := NewPolicy(repo, r, nil)

	_, err := p.Ensure(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTokenRefresh)
	assert.Equal(t, int32(1), r.calls.Load())

	stored, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "AT1", stored.AccessToken)
	assert.Equal(t, "RT1", stored.RefreshToken)
	assert.True(t, old.Equal(stored.ExpiresAt))
}

func TestEnsure_EmptyAccessTokenIsFailure(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	p := NewPolicy(repo, refresherFunc(func(ctx context.Context, rt string) (models.TokenSet, error) {
		return models.TokenSet{ExpiresAt: time.Now().Add(time.Hour)}, nil
	}), nil)

	_, err := p.Ensure(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrTokenRefresh)
	stored, _ := repo.Get(context.Background(), 42)
	assert.Equal(t, "AT1", stored.AccessToken)
}

func TestEnsure_NoRefreshToken(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	_, err := repo.Upsert(context.Background(), &models.Athlete{ID: 42, AccessToken: "AT1", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	r := &fakeRefresher{}
	p := NewPolicy(repo, r, nil)

	_, err = p.Ensure(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRefresh)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestEnsure_UnknownAthlete(t *testing.T) {
	p := NewPolicy(athletes.NewMemoryRepository(), &fakeRefresher{}, nil)
	_, err := p.Ensure(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEnsure_ConcurrentCallersRefreshOnce(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	r := &fakeRefresher{expiry: time.Now().Add(time.Hour), delay: 50 * time.Millisecond, rotate: true}
	p := NewPolicy(repo, r, nil)

	const n = 20
	var wg sync.WaitGroup
	tokens := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := p.Ensure(context.Background(), 42)
			errs[i] = err
			if a != nil {
				tokens[i] = a.AccessToken
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "AT-1", tokens[i])
	}
	stored, _ := repo.Get(context.Background(), 42)
	assert.Equal(t, "RT-1", stored.RefreshToken)
}

func TestEnsure_CallerCancelDoesNotAbortSharedRefresh(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	r := &fakeRefresher{expiry: time.Now().Add(time.Hour), delay: 30 * time.Millisecond}
	p := NewPolicy(repo, r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a, err := p.Ensure(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "AT-1", a.AccessToken)
}

func TestEnsure_SharedRedisLockAcrossInstances(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	r := &fakeRefresher{expiry: time.Now().Add(time.Hour), delay: 30 * time.Millisecond, rotate: true}

	// two instances: separate singleflight groups, one lock namespace
	p1 := NewPolicy(repo, r, NewRedisLocker(client, repo, "", 5*time.Second))
	p2 := NewPolicy(repo, r, NewRedisLocker(client, repo, "", 5*time.Second))

	var wg sync.WaitGroup
	var a1, a2 *models.Athlete
	var e1, e2 error
	wg.Add(2)
	go func() { defer wg.Done(); a1, e1 = p1.Ensure(context.Background(), 42) }()
	go func() { defer wg.Done(); a2, e2 = p2.Ensure(context.Background(), 42) }()
	wg.Wait()

	require.NoError(t, e1)
	require.NoError(t, e2)
	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, a1.AccessToken, a2.AccessToken)
}

func TestEnsure_ConditionalWriteWithoutLock(t *testing.T) {
	repo := athletes.NewMemoryRepository()
	seed(t, repo, time.Now().Add(-time.Minute))
	r := &fakeRefresher{delay: 30 * time.Millisecond, rotate: true}
	r.expiry = time.Now().Add(time.Hour)

	p1 := NewPolicy(repo, r, nil)
	p2 := NewPolicy(repo, r, nil)

	var wg sync.WaitGroup
	var a1, a2 *models.Athlete
	var e1, e2 error
	wg.Add(2)
	go func() { defer wg.Done(); a1, e1 = p1.Ensure(context.Background(), 42) }()
	go func() { defer wg.Done(); a2, e2 = p2.Ensure(context.Background(), 42) }()
	wg.Wait()

	require.NoError(t, e1)
	require.NoError(t, e2)
	stored, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	// whichever call lost the conditional write adopts the stored pair
	assert.Equal(t, stored.AccessToken, a1.AccessToken)
	assert.Equal(t, stored.AccessToken, a2.AccessToken)
	assert.Equal(t, stored.RefreshToken, a1.RefreshToken)
}

func TestPostgresLocker_AdvisoryLockInTx(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	old := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	cols := []string{"athlete_id", "first_name", "last_name", "access_token", "refresh_token", "expires_at", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT\s+pg_advisory_xact_lock\(\$1\)`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT\s+athlete_id,.*FROM\s+athlete\s+WHERE\s+athlete_id\s*=\s*\$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(42), "Ann", "Lee", "AT1", "RT1", old, old, old))
	mock.ExpectExec(`UPDATE\s+athlete\s+SET\s+access_token`).
		WithArgs(int64(42), "AT-1", "RT1", exp, old).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := athletes.NewMemoryRepository()
	p := NewPolicy(repo, &fakeRefresher{expiry: exp}, NewPostgresLocker(db))
	// bypass the fast path: the record read inside the lock is what matters
	a, err := p.refresh(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "AT-1", a.AccessToken)
	assert.True(t, exp.Equal(a.ExpiresAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLocker_RollsBackOnRefreshFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	old := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"athlete_id", "first_name", "last_name", "access_token", "refresh_token", "expires_at", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM\s+athlete`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(42), "Ann", "Lee", "AT1", "RT1", old, old, old))
	mock.ExpectRollback()

	p := NewPolicy(athletes.NewMemoryRepository(), &fakeRefresher{err: errors.New("boom")}, NewPostgresLocker(db))
	_, err = p.refresh(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrTokenRefresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

type refresherFunc func(ctx context.Context, refreshToken string) (models.TokenSet, error)

func (f refresherFunc) Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error) {
	return f(ctx, refreshToken)
}
