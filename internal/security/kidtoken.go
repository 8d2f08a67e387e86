package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pointsmill/internal/models"
)

// ErrInvalidKidToken is returned for expired, malformed, or mis-signed tokens
var ErrInvalidKidToken = errors.New("invalid kid token")

// kidClaims carries the kid session payload. The token is signed so it
// cannot be forged, but its contents are otherwise trusted at face value:
// there is no per-request PIN re-check. That trust boundary is deliberate
// for household use.
type kidClaims struct {
	jwt.RegisteredClaims
	KidID    int64  `json:"kid_id"`
	FamilyID int64  `json:"family_id"`
	Name     string `json:"name"`
}

// SignKidToken issues a signed token for a kid's self-service session
func SignKidToken(secret string, session models.KidSession, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := kidClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		KidID:    session.KidID,
		FamilyID: session.FamilyID,
		Name:     session.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign kid token: %w", err)
	}
	return signed, nil
}

// ParseKidToken verifies a kid session token and returns its payload
func ParseKidToken(secret, tokenString string) (*models.KidSession, error) {
	claims := &kidClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidKidToken
	}

	return &models.KidSession{
		KidID:    claims.KidID,
		FamilyID: claims.FamilyID,
		Name:     claims.Name,
	}, nil
}
