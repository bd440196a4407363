// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"os"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/email"
)

// setupJWTAuth configures JWT authentication for the service
func setupJWTAuth() (*auth.JWTAuth, error) {
	jwtAuthConfig := auth.JWTAuthConfig{
		JWKSURL:            os.Getenv("JWKS_URL"),
		Audience:           os.Getenv("JWT_AUDIENCE"),
		MockLocalPrincipal: os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL"),
	}
	return auth.NewJWTAuth(jwtAuthConfig)
}

// setupEmailService configures the email sender. Without an SMTP host the
// no-op sender is used and meetings are scheduled without notifications.
func setupEmailService(env environment) (domain.EmailService, error) {
	if env.SMTP.Host == "" {
		slog.Info("SMTP_HOST not set, emails are disabled")
		return email.NewNoOpService(), nil
	}

	return email.NewSMTPService(env.SMTP)
}
