package http

import (
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTicketTTL is the default session ticket lifetime.
	DefaultTicketTTL = time.Hour

	ticketAudience = "walletd:session"
)

// ErrInvalidSigningMethod is returned when a ticket is not signed with ES256.
var ErrInvalidSigningMethod = errors.New("unexpected signing method")

// TicketIssuer issues and verifies the short-lived tickets that bind HTTP
// callers to the connected account. The signing key lives only for the
// process lifetime, so tickets die with the session they protect.
type TicketIssuer struct {
	key *ecdsa.PrivateKey
	ttl time.Duration
}

// NewTicketIssuer creates an issuer. A non-positive ttl falls back to
// DefaultTicketTTL.
func NewTicketIssuer(key *ecdsa.PrivateKey, ttl time.Duration) *TicketIssuer {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &TicketIssuer{key: key, ttl: ttl}
}

// Issue creates a ticket whose subject is the connected address.
func (t *TicketIssuer) Issue(address string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   address,
		Audience:  jwt.ClaimStrings{ticketAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(t.key)
}

// Verify parses a ticket and returns its subject address.
func (t *TicketIssuer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodES256 {
			return nil, ErrInvalidSigningMethod
		}
		return &t.key.PublicKey, nil
	}, jwt.WithAudience(ticketAudience), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("invalid ticket subject")
	}
	return claims.Subject, nil
}
