// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth validates Heimdall-issued JWT tokens and extracts the
// requesting principal.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// Default configuration for the JWT validator.
const (
	defaultJWKSURL  = "http://heimdall:4457/.well-known/jwks"
	defaultAudience = "lfx-v2-scheduling-service"

	jwksCacheTTL = 5 * time.Minute
)

// IJWTAuth is the interface for parsing a principal out of a bearer token.
type IJWTAuth interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
}

// JWTAuthConfig configures the JWT validator.
type JWTAuthConfig struct {
	// JWKSURL is the Heimdall JWKS endpoint used to fetch signing keys.
	JWKSURL string
	// Audience is the expected audience claim.
	Audience string
	// MockLocalPrincipal, when set, bypasses token validation entirely
	// and returns this principal. Local development only.
	MockLocalPrincipal string
}

// JWTAuth validates Heimdall tokens against the JWKS endpoint.
type JWTAuth struct {
	config    JWTAuthConfig
	validator *validator.Validator
}

// HeimdallClaims are the custom claims Heimdall puts in its tokens.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
}

// Validate checks that the claims carry a principal.
func (c *HeimdallClaims) Validate(_ context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// NewJWTAuth creates a new JWT validator against the configured JWKS
// endpoint.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}

	issuerURL, err := url.Parse(config.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL %q: %w", config.JWKSURL, err)
	}

	provider := jwks.NewCachingProvider(issuerURL, jwksCacheTTL)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.PS256,
		issuerURL.String(),
		[]string{config.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &HeimdallClaims{}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("setting up JWT validator: %w", err)
	}

	return &JWTAuth{
		config:    config,
		validator: jwtValidator,
	}, nil
}

// ParsePrincipal validates the bearer token and returns the principal it
// carries.
func (a *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if a.config.MockLocalPrincipal != "" {
		logger.WarnContext(ctx, "using mock principal, skipping token validation",
			"principal", a.config.MockLocalPrincipal)
		return a.config.MockLocalPrincipal, nil
	}

	if a.validator == nil {
		return "", errors.New("JWT validator is not set up")
	}

	parsed, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.DebugContext(ctx, "token validation failed", "error", err)
		return "", fmt.Errorf("invalid token: %w", err)
	}

	validated, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return "", errors.New("unexpected validated claims type")
	}

	claims, ok := validated.CustomClaims.(*HeimdallClaims)
	if !ok || claims.Principal == "" {
		return "", errors.New("token carries no principal")
	}

	return claims.Principal, nil
}

// MockJWTAuth implements IJWTAuth for testing.
type MockJWTAuth struct {
	Principal string
	Err       error
}

// ParsePrincipal returns the configured principal or error.
func (m *MockJWTAuth) ParsePrincipal(_ context.Context, _ string, _ *slog.Logger) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Principal, nil
}
