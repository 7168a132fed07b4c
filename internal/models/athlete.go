package models

import "time"

// Athlete is the stored token record for one Strava athlete.
// AccessToken and ExpiresAt always describe the same credential.
type Athlete struct {
	ID           int64     `bson:"athlete_id" json:"id"`
	FirstName    string    `bson:"first_name" json:"first_name"`
	LastName     string    `bson:"last_name" json:"last_name"`
	AccessToken  string    `bson:"access_token" json:"-"`
	RefreshToken string    `bson:"refresh_token" json:"-"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// TokenSet is the credential triple written by a login or a refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Tokens returns the record's current credentials.
func (a *Athlete) Tokens() TokenSet {
	return TokenSet{AccessToken: a.AccessToken, RefreshToken: a.RefreshToken, ExpiresAt: a.ExpiresAt}
}

// QueryLog is one audit row per activity-fetch request.
type QueryLog struct {
	AthleteID int64     `bson:"athlete_id" json:"athlete_id"`
	QueryTime time.Time `bson:"query_time" json:"query_time"`
	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   time.Time `bson:"end_date" json:"end_date"`
}
