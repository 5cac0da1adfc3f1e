package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/platform/ids"
)

// Issued is a signed bearer token together with its session id.
type Issued struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenIssuer signs HS256 tokens after a successful login. The token subject
// is the actor id and the jti is the session id that keys the facility
// selection.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenIssuer(key []byte, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, issuer: issuer, audience: audience, ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(actorID uuid.UUID) (*Issued, error) {
	if len(i.key) == 0 {
		return nil, fmt.Errorf("token signing key is not configured")
	}
	now := i.now()
	sid := ids.NewAt(now)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			ID:        sid,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Issued{Token: signed, SessionID: sid, ExpiresAt: now.Add(i.ttl)}, nil
}
