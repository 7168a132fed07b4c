// Command activities prints a stored athlete's recent activities as JSON
// lines, refreshing the upstream token first when it has expired. It reads
// the same environment as the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/activities"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/refresh"
	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/spf13/pflag"
)

type options struct {
	AthleteID int64
	Days      int
	Limit     int
}

func parseOptions(args []string) (options, error) {
	opts := options{Days: 30, Limit: 10}
	fs := pflag.NewFlagSet("activities", pflag.ContinueOnError)
	fs.Int64VarP(&opts.AthleteID, "athlete-id", "a", 0, "stored athlete id (required)")
	fs.IntVarP(&opts.Days, "days", "d", opts.Days, "look back this many days")
	fs.IntVarP(&opts.Limit, "limit", "n", opts.Limit, "print at most this many activities (0 = all)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.AthleteID <= 0 {
		return opts, fmt.Errorf("--athlete-id is required")
	}
	if opts.Days <= 0 {
		return opts, fmt.Errorf("--days must be positive")
	}
	if opts.Limit < 0 {
		return opts, fmt.Errorf("--limit must not be negative")
	}
	return opts, nil
}

// recent ensures a usable token and fetches the last opts.Days days.
func recent(ctx context.Context, p *refresh.Policy, f *activities.Fetcher, opts options, now time.Time) ([]activities.Activity, error) {
	a, err := p.Ensure(ctx, opts.AthleteID)
	if err != nil {
		return nil, err
	}
	w := activities.Window{After: now.AddDate(0, 0, -opts.Days), Before: now}
	return f.FetchAll(ctx, a.AccessToken, w, 1)
}

func printLines(out io.Writer, items []activities.Activity, limit int) error {
	enc := json.NewEncoder(out)
	for i := range items {
		if limit > 0 && i >= limit {
			break
		}
		if err := enc.Encode(items[i]); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Server.LogLevel)

	backend, err := athletes.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close(context.Background())

	client := strava.NewClient(cfg.Strava)
	oauth := strava.NewOAuth(cfg.Strava, client.HTTPClient())
	var locker refresh.Locker
	if backend.SQL != nil {
		locker = refresh.NewPostgresLocker(backend.SQL)
	}
	policy := refresh.NewPolicy(backend.Repo, oauth, locker)

	items, err := recent(ctx, policy, activities.NewFetcher(client, cfg.Strava.PageSize), opts, time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Infof("fetched %d activities for athlete %d", len(items), opts.AthleteID)
	return printLines(out, items, opts.Limit)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "activities:", err)
		os.Exit(1)
	}
}
