package activities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamRun = `{
	"id": 9001, "name": "Morning Run", "type": "Run", "sport_type": "Run",
	"start_date": "2024-05-01T06:30:00Z", "start_date_local": "2024-05-01T08:30:00Z",
	"timezone": "(GMT+01:00) Europe/Berlin",
	"distance": 10012.5, "moving_time": 2950, "elapsed_time": 3100,
	"total_elevation_gain": 88.2, "elev_high": 120.4, "elev_low": 40.1,
	"average_speed": 3.39, "max_speed": 5.1,
	"has_heartrate": true, "average_heartrate": 151.2, "max_heartrate": 178,
	"kudos_count": 4, "achievement_count": 2, "workout_type": 0,
	"gear_id": "g123", "trainer": false, "commute": false, "manual": false, "private": true,
	"map": {"id": "a9001", "summary_polyline": "abc~xyz"},
	"athlete": {"id": 42}, "upload_id": 5555, "segment_efforts": []
}`

func TestNormalize_FieldMapping(t *testing.T) {
	var s strava.SummaryActivity
	require.NoError(t, json.Unmarshal([]byte(upstreamRun), &s))

	a := Normalize(&s)
	assert.Equal(t, int64(9001), a.ID)
	assert.Equal(t, "Morning Run", a.Name)
	assert.Equal(t, time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC), a.StartDate)
	assert.Equal(t, time.Date(2024, 5, 1, 7, 21, 40, 0, time.UTC), a.EndDate)
	assert.Equal(t, "2024-05-01T08:30:00Z", a.StartDateLocal)
	assert.Equal(t, 3100, a.ElapsedTime)
	assert.Equal(t, 2950, a.MovingTime)
	assert.InDelta(t, 10012.5, a.Distance, 1e-9)
	require.NotNil(t, a.AverageHeartrate)
	assert.InDelta(t, 151.2, *a.AverageHeartrate, 1e-9)
	require.NotNil(t, a.WorkoutType)
	assert.Equal(t, 0, *a.WorkoutType)
	assert.Equal(t, "abc~xyz", a.SummaryPolyline)
	assert.True(t, a.Private)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "2024-05-01T06:30:00Z", m["start_date"])
	assert.Equal(t, "2024-05-01T07:21:40Z", m["end_date"])
	assert.NotContains(t, m, "athlete")
	assert.NotContains(t, m, "upload_id")
	assert.NotContains(t, m, "segment_efforts")
	assert.NotContains(t, m, "map")
}

func TestNormalize_HeartrateOnlyWhenRecorded(t *testing.T) {
	hr := 140.0
	a := Normalize(&strava.SummaryActivity{ID: 1, HasHeartrate: false, AverageHeartrate: &hr, MaxHeartrate: &hr})
	assert.Nil(t, a.AverageHeartrate)
	assert.Nil(t, a.MaxHeartrate)
}

func TestParseInstant(t *testing.T) {
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"1714521600", "2024-05-01T00:00:00Z", "2024-05-01T02:00:00+02:00", "2024-05-01T00:00:00", "2024-05-01"} {
		got, err := ParseInstant(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}
	_, err := ParseInstant("yesterday")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	w, p, err := ParseWindow("2024-05-01", "2024-06-01", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, p)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), w.Before)

	cases := map[string][3]string{
		"missing after":  {"", "2024-06-01", "1"},
		"missing before": {"2024-05-01", "", "1"},
		"missing page":   {"2024-05-01", "2024-06-01", ""},
		"bad page":       {"2024-05-01", "2024-06-01", "zero"},
		"page zero":      {"2024-05-01", "2024-06-01", "0"},
		"bad after":      {"soon", "2024-06-01", "1"},
		"inverted":       {"2024-06-01", "2024-05-01", "1"},
	}
	for name, c := range cases {
		_, _, err := ParseWindow(c[0], c[1], c[2])
		assert.ErrorIs(t, err, apperrors.ErrValidation, name)
	}
}
