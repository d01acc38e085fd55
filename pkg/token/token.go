package token

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAudience is the audience GoTrue puts on user access tokens.
	DefaultAudience = "authenticated"
	defaultLeeway   = 30 * time.Second
	defaultTTL      = time.Hour
)

// Claims are the access token claims used by the dashboard and functions.
type Claims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Verifier validates HS256 access tokens signed with the project secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// VerifierOption configures a Verifier.
type VerifierOption func(*verifierConfig)

type verifierConfig struct {
	audience string
	leeway   time.Duration
}

// WithAudience requires the aud claim to contain aud. Empty disables the check.
func WithAudience(aud string) VerifierOption {
	return func(c *verifierConfig) { c.audience = aud }
}

// WithLeeway sets the clock skew tolerance.
func WithLeeway(d time.Duration) VerifierOption {
	return func(c *verifierConfig) { c.leeway = d }
}

// NewVerifier creates a Verifier for secret.
func NewVerifier(secret string, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	cfg := &verifierConfig{audience: DefaultAudience, leeway: defaultLeeway}
	for _, opt := range opts {
		opt(cfg)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(cfg.leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.audience))
	}
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(parserOpts...)}, nil
}

// Verify parses raw and returns its claims. Every failure wraps ErrInvalidToken.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return claims, nil
}

// Signer issues HS256 access tokens.
type Signer struct {
	secret   []byte
	ttl      time.Duration
	audience string
	issuer   string
	now      func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithTTL sets the token lifetime.
func WithTTL(d time.Duration) SignerOption {
	return func(s *Signer) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithIssuer sets the iss claim.
func WithIssuer(iss string) SignerOption {
	return func(s *Signer) { s.issuer = iss }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner creates a Signer for secret.
func NewSigner(secret string, opts ...SignerOption) (*Signer, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	s := &Signer{secret: []byte(secret), ttl: defaultTTL, audience: DefaultAudience, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign issues a token for the user and returns it with its expiry.
func (s *Signer) Sign(userID, email string, metadata map[string]any) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:        email,
		Role:         DefaultAudience,
		UserMetadata: metadata,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return raw, exp, nil
}

// FromRequest extracts the bearer token from the Authorization header.
func FromRequest(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", ErrMissingToken
	}
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(raw), nil
}
