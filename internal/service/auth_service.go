package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"polgen/internal/config"
	"polgen/internal/domain"
)

// Token scopes for the HTTP API.
const (
	ScopeBatchesRead  = "batches:read"
	ScopeBatchesWrite = "batches:write"
)

// DefaultScopes are granted when a token is issued without explicit scopes.
var DefaultScopes = []string{ScopeBatchesRead, ScopeBatchesWrite}

const tokenAudience = "polgen-api"

// Claims represents the JWT claims of a service token.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// TokenInput describes a service token to mint.
type TokenInput struct {
	Subject string
	Scopes  []string
	TTL     time.Duration
}

// IssuedToken is a signed service token.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService issues and validates HS256 service tokens for the API.
type AuthService interface {
	IssueToken(input TokenInput) (*IssuedToken, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	cfg config.JWTConfig
	now func() time.Time
}

// NewAuthService creates a new AuthService implementation.
func NewAuthService(cfg config.JWTConfig) AuthService {
	return &authService{cfg: cfg, now: time.Now}
}

func (s *authService) IssueToken(input TokenInput) (*IssuedToken, error) {
	if s.cfg.Secret == "" {
		return nil, errors.New("service.authService.IssueToken: jwt secret is not configured")
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, fmt.Errorf("service.authService.IssueToken: subject is required: %w", domain.ErrInvalidInput)
	}
	scopes := input.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.cfg.TokenExpiry
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := s.now()
	expiry := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
		Scopes: scopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &IssuedToken{Token: signed, ExpiresAt: expiry}, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	if s.cfg.Secret == "" {
		return nil, domain.ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithAudience(tokenAudience),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
