// Package activities pages through an athlete's upstream activity list and
// normalizes the records for clients.
package activities

import (
	"context"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/harry-lons/runsum-be-nonorg/pkg/metrics"
)

// DefaultPageSize is the largest page the upstream list endpoint serves.
const DefaultPageSize = 200

// Lister fetches one page of activities.
type Lister interface {
	ListActivities(ctx context.Context, accessToken string, q strava.ListQuery) ([]strava.SummaryActivity, error)
}

// Window is the half-open interval [After, Before) of activity start times.
type Window struct {
	After  time.Time
	Before time.Time
}

// Fetcher runs the pagination loop.
type Fetcher struct {
	lister   Lister
	pageSize int
}

func NewFetcher(l Lister, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{lister: l, pageSize: pageSize}
}

// FetchAll requests pages startPage, startPage+1, ... until one comes back
// empty and returns the concatenation in upstream order. Any page error
// aborts the whole fetch: the caller gets nil and an ErrUpstreamFetch.
func (f *Fetcher) FetchAll(ctx context.Context, accessToken string, w Window, startPage int) ([]Activity, error) {
	if startPage < 1 {
		startPage = 1
	}
	var out []Activity
	for page := startPage; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrUpstreamFetch, err, "page %d", page)
		}
		items, err := f.lister.ListActivities(ctx, accessToken, strava.ListQuery{
			After:   w.After,
			Before:  w.Before,
			Page:    page,
			PerPage: f.pageSize,
		})
		if err != nil {
			logger.Warnf("activity page %d failed after %d records: %v", page, len(out), err)
			return nil, apperrors.Wrapf(apperrors.ErrUpstreamFetch, err, "page %d", page)
		}
		metrics.ActivityPages.Inc()
		if len(items) == 0 {
			break
		}
		for i := range items {
			out = append(out, Normalize(&items[i]))
		}
	}
	if out == nil {
		out = []Activity{}
	}
	return out, nil
}
