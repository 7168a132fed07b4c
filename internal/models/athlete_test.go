package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAthleteTokens(t *testing.T) {
	exp := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a := &Athlete{ID: 42, FirstName: "Ann", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: exp}

	assert.Equal(t, TokenSet{AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: exp}, a.Tokens())
}
