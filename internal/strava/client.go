package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/pkg/metrics"
)

const maxErrorBody = 512

// Client calls the Strava REST API with a caller-supplied access token.
// The embedded http.Client carries the configured upstream timeout.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.StravaConfig) *Client {
	return &Client{baseURL: cfg.APIURL, http: &http.Client{Timeout: cfg.Timeout}}
}

// HTTPClient returns the timeout-bounded client, shared with the OAuth exchanger.
func (c *Client) HTTPClient() *http.Client { return c.http }

// GetAthlete returns the profile of the token's owner.
func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	var a Athlete
	if err := c.getJSON(ctx, "get_athlete", "/athlete", accessToken, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActivities returns one page of the athlete's activities.
func (c *Client) ListActivities(ctx context.Context, accessToken string, q ListQuery) ([]SummaryActivity, error) {
	params := url.Values{}
	params.Set("after", strconv.FormatInt(q.After.Unix(), 10))
	params.Set("before", strconv.FormatInt(q.Before.Unix(), 10))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))

	var out []SummaryActivity
	if err := c.getJSON(ctx, "list_activities", "/athlete/activities", accessToken, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path, accessToken string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("strava %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "decode_error").Inc()
		return fmt.Errorf("strava %s: decode: %w", endpoint, err)
	}
	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
