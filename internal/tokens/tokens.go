package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
)

const issuerName = "runsum"

// Claims is the session credential payload. CSRF is echoed back by the
// client in a header on state-changing requests.
type Claims struct {
	jwt.RegisteredClaims
	AthleteID int64  `json:"athlete_id"`
	FirstName string `json:"first_name"`
	CSRF      string `json:"csrf"`
}

// Issuer signs and verifies session credentials with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg *config.Config) *Issuer {
	ttl := cfg.JWT.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(cfg.JWT.Secret), ttl: ttl, now: time.Now}
}

// TTL is the validity window of issued credentials.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue creates a signed credential for the athlete.
func (i *Issuer) Issue(athleteID int64, firstName string) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   strconv.FormatInt(athleteID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AthleteID: athleteID,
		FirstName: firstName,
		CSRF:      uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm, issuer and expiry. Every failure wraps apperrors.ErrSession.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, apperrors.Wrapf(apperrors.ErrSession, nil, "missing session credential")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrSession, err, "session expired")
		}
		return nil, apperrors.Wrapf(apperrors.ErrSession, err, "invalid session credential")
	}
	if claims.AthleteID == 0 || claims.Subject != strconv.FormatInt(claims.AthleteID, 10) {
		return nil, apperrors.Wrapf(apperrors.ErrSession, nil, "session subject mismatch")
	}
	return claims, nil
}
