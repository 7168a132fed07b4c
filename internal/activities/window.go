package activities

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
)

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseInstant accepts unix seconds or an ISO-8601 timestamp. Timestamps
// without an offset are read as UTC.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// ParseWindow validates the after/before/page triple of an activities query.
func ParseWindow(after, before, page string) (Window, int, error) {
	if after == "" || before == "" || page == "" {
		return Window{}, 0, apperrors.Validation("after, before and page are required")
	}
	a, err := ParseInstant(after)
	if err != nil {
		return Window{}, 0, apperrors.Validation("invalid after")
	}
	b, err := ParseInstant(before)
	if err != nil {
		return Window{}, 0, apperrors.Validation("invalid before")
	}
	if !b.After(a) {
		return Window{}, 0, apperrors.Validation("before must be later than after")
	}
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		return Window{}, 0, apperrors.Validation("page must be a positive integer")
	}
	return Window{After: a, Before: b}, p, nil
}
