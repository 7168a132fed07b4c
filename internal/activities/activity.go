package activities

import (
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
)

// Activity is the normalized record returned to clients. Units follow
// upstream: metres, seconds, metres per second.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     string    `json:"start_date_local"`
	EndDate            time.Time `json:"end_date"`
	Timezone           string    `json:"timezone"`
	ElapsedTime        int       `json:"elapsed_time"`
	MovingTime         int       `json:"moving_time"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	ElevHigh           *float64  `json:"elev_high,omitempty"`
	ElevLow            *float64  `json:"elev_low,omitempty"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   *float64  `json:"average_heartrate,omitempty"`
	MaxHeartrate       *float64  `json:"max_heartrate,omitempty"`
	AverageCadence     *float64  `json:"average_cadence,omitempty"`
	AverageWatts       *float64  `json:"average_watts,omitempty"`
	Kilojoules         *float64  `json:"kilojoules,omitempty"`
	SufferScore        *float64  `json:"suffer_score,omitempty"`
	KudosCount         int       `json:"kudos_count"`
	AchievementCount   int       `json:"achievement_count"`
	WorkoutType        *int      `json:"workout_type,omitempty"`
	GearID             string    `json:"gear_id,omitempty"`
	Trainer            bool      `json:"trainer"`
	Commute            bool      `json:"commute"`
	Manual             bool      `json:"manual"`
	Private            bool      `json:"private"`
	SummaryPolyline    string    `json:"summary_polyline,omitempty"`
}

// Normalize maps one upstream record field by field. Fields not listed here
// are dropped.
func Normalize(s *strava.SummaryActivity) Activity {
	start := s.StartDate.UTC()
	a := Activity{
		ID:                 s.ID,
		Name:               s.Name,
		Type:               s.Type,
		SportType:          s.SportType,
		StartDate:          start,
		StartDateLocal:     s.StartDateLocal,
		EndDate:            start.Add(time.Duration(s.ElapsedTime) * time.Second),
		Timezone:           s.Timezone,
		ElapsedTime:        s.ElapsedTime,
		MovingTime:         s.MovingTime,
		Distance:           s.Distance,
		TotalElevationGain: s.TotalElevationGain,
		ElevHigh:           s.ElevHigh,
		ElevLow:            s.ElevLow,
		AverageSpeed:       s.AverageSpeed,
		MaxSpeed:           s.MaxSpeed,
		AverageCadence:     s.AverageCadence,
		AverageWatts:       s.AverageWatts,
		Kilojoules:         s.Kilojoules,
		SufferScore:        s.SufferScore,
		KudosCount:         s.KudosCount,
		AchievementCount:   s.AchievementCount,
		WorkoutType:        s.WorkoutType,
		GearID:             s.GearID,
		Trainer:            s.Trainer,
		Commute:            s.Commute,
		Manual:             s.Manual,
		Private:            s.Private,
		SummaryPolyline:    s.Map.SummaryPolyline,
	}
	if s.HasHeartrate {
		a.AverageHeartrate = s.AverageHeartrate
		a.MaxHeartrate = s.MaxHeartrate
	}
	return a
}
