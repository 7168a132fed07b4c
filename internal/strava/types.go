package strava

import (
	"fmt"
	"time"
)

// Athlete is the subset of the authenticated athlete profile the service uses.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// PolylineMap is the map object embedded in summary activities.
type PolylineMap struct {
	ID              string `json:"id"`
	SummaryPolyline string `json:"summary_polyline"`
}

// SummaryActivity mirrors the upstream list-activities item.
type SummaryActivity struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Type               string      `json:"type"`
	SportType          string      `json:"sport_type"`
	StartDate          time.Time   `json:"start_date"`
	StartDateLocal     string      `json:"start_date_local"`
	Timezone           string      `json:"timezone"`
	Distance           float64     `json:"distance"`
	MovingTime         int         `json:"moving_time"`
	ElapsedTime        int         `json:"elapsed_time"`
	TotalElevationGain float64     `json:"total_elevation_gain"`
	ElevHigh           *float64    `json:"elev_high"`
	ElevLow            *float64    `json:"elev_low"`
	AverageSpeed       float64     `json:"average_speed"`
	MaxSpeed           float64     `json:"max_speed"`
	HasHeartrate       bool        `json:"has_heartrate"`
	AverageHeartrate   *float64    `json:"average_heartrate"`
	MaxHeartrate       *float64    `json:"max_heartrate"`
	AverageCadence     *float64    `json:"average_cadence"`
	AverageWatts       *float64    `json:"average_watts"`
	Kilojoules         *float64    `json:"kilojoules"`
	SufferScore        *float64    `json:"suffer_score"`
	KudosCount         int         `json:"kudos_count"`
	AchievementCount   int         `json:"achievement_count"`
	WorkoutType        *int        `json:"workout_type"`
	GearID             string      `json:"gear_id"`
	Trainer            bool        `json:"trainer"`
	Commute            bool        `json:"commute"`
	Manual             bool        `json:"manual"`
	Private            bool        `json:"private"`
	Map                PolylineMap `json:"map"`
}

// ListQuery selects one page of activities in [After, Before).
type ListQuery struct {
	After   time.Time
	Before  time.Time
	Page    int
	PerPage int
}

// APIError is a non-2xx upstream response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
