package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/F3Joule/subsocial-v2/internal/validation"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL = 60 * time.Minute
	// DefaultAudience is the audience stamped on actor tokens.
	DefaultAudience = "subsocial-ledger"
)

var (
	errMissingSigningSecret = errors.New("signing secret must be provided")
	errMissingIssuer        = errors.New("issuer must be provided")
	errNonPositiveTTL       = errors.New("token ttl must be positive")

	ErrInvalidActorAccount = errors.New("token issuer: account id is not a valid username")
)

// ActorClaims is the JWT payload naming the account an operation runs as.
type ActorClaims struct {
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures the actor token issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	Clock         func() time.Time
	Validator     validation.Validator
}

// TokenIssuer signs HS256 actor tokens for valid account ids.
type TokenIssuer struct {
	config    TokenIssuerConfig
	clock     func() time.Time
	validator validation.Validator
}

// NewTokenIssuer constructs a TokenIssuer. An empty audience defaults to
// DefaultAudience and a zero TTL to one hour.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, errMissingIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = DefaultAudience
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	if ttl < 0 {
		return nil, errNonPositiveTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	validator := cfg.Validator
	if validator == (validation.Validator{}) {
		validator = validation.NewValidator(validation.DefaultLimits())
	}
	return &TokenIssuer{
		config: TokenIssuerConfig{
			SigningSecret: append([]byte(nil), cfg.SigningSecret...),
			Issuer:        issuer,
			Audience:      audience,
			TokenTTL:      ttl,
			Clock:         clock,
		},
		clock:     clock,
		validator: validator,
	}, nil
}

// IssueActorToken produces a signed JWT for account and its expiry time.
func (i *TokenIssuer) IssueActorToken(_ context.Context, account social.AccountID) (string, time.Time, error) {
	if _, err := i.validator.Username(string(account)); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrInvalidActorAccount, err)
	}
	username := string(account)

	now := i.clock().UTC()
	expiresAt := now.Add(i.config.TokenTTL).UTC()

	claims := ActorClaims{
		Account: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    i.config.Issuer,
			Audience:  []string{i.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.SigningSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verifier returns an ActorVerifier accepting the tokens this issuer signs.
func (i *TokenIssuer) Verifier() *ActorVerifier {
	return &ActorVerifier{
		signingSecret: i.config.SigningSecret,
		issuer:        i.config.Issuer,
		audience:      i.config.Audience,
		clock:         i.clock,
	}
}
