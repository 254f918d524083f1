package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingVerifierSigningKey = errors.New("actor verifier: signing key required")
	ErrMissingVerifierIssuer     = errors.New("actor verifier: issuer required")
	ErrMissingActorToken         = errors.New("actor verifier: token required")
	ErrInvalidActorToken         = errors.New("actor verifier: invalid token")
	ErrExpiredActorToken         = errors.New("actor verifier: token expired")
	ErrMissingActorSubject       = errors.New("actor verifier: account required")
)

// ActorVerifierConfig describes how to validate actor tokens.
type ActorVerifierConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	Clock         func() time.Time
}

// ActorVerifier validates HS256 actor tokens and yields the account they name.
type ActorVerifier struct {
	signingSecret []byte
	issuer        string
	audience      string
	clock         func() time.Time
}

// NewActorVerifier constructs a verifier with the provided configuration.
func NewActorVerifier(cfg ActorVerifierConfig) (*ActorVerifier, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingVerifierSigningKey
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingVerifierIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = DefaultAudience
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ActorVerifier{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		audience:      audience,
		clock:         clock,
	}, nil
}

// VerifyActor validates tokenString and returns the account it was issued for.
func (v *ActorVerifier) VerifyActor(tokenString string) (social.AccountID, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return "", ErrMissingActorToken
	}

	claims := &ActorClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidActorToken, t.Method.Alg())
			}
			return v.signingSecret, nil
		},
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredActorToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidActorToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return "", ErrInvalidActorToken
	}
	account := strings.TrimSpace(claims.Account)
	if account == "" || claims.Subject != account {
		return "", ErrMissingActorSubject
	}
	return social.AccountID(account), nil
}
