// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/akamensky/base58"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/constants"
)

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// MaxMeetingDuration is the longest meeting the service will schedule.
	MaxMeetingDuration time.Duration
	// PastScheduleGrace is how far in the past a meeting's start time may
	// be at creation. Zero means meetings must start now or later.
	PastScheduleGrace time.Duration
	// SkipEmails disables invitation and cancellation emails - only meant
	// for local development.
	SkipEmails bool
}

// NewServiceConfig returns a config with the default scheduling rules.
func NewServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxMeetingDuration: constants.DefaultMaxMeetingDuration,
		PastScheduleGrace:  constants.DefaultPastScheduleGrace,
	}
}

// principalFromContext returns the authenticated principal stored on the
// context by the request handlers, or the empty string.
func principalFromContext(ctx context.Context) string {
	if principal, ok := ctx.Value(constants.PrincipalContextID).(string); ok {
		return principal
	}
	return ""
}

// generateJoinCode returns a short base58 share code for a new meeting.
func generateJoinCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read on supported platforms does not fail; fall back to
		// an empty code rather than aborting the create.
		return ""
	}
	return base58.Encode(buf)
}

// resolveActiveUsers looks up the given user UIDs in the user directory,
// in parallel, and returns their records in the same order. A UID that does
// not resolve to an active user fails the whole resolution with
// ErrInvalidParticipant.
func resolveActiveUsers(ctx context.Context, directory domain.UserDirectory, userUIDs []string) ([]*models.User, error) {
	users := make([]*models.User, len(userUIDs))

	pool := concurrent.NewWorkerPool(constants.ConflictLookupBatchSize)
	lookups := make([]func() error, len(userUIDs))
	for i, userUID := range userUIDs {
		lookups[i] = func() error {
			user, err := directory.LookupUser(ctx, userUID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					slog.WarnContext(ctx, "participant not found in user directory", "user_uid", userUID)
					return domain.ErrInvalidParticipant
				}
				slog.ErrorContext(ctx, "error looking up user", "user_uid", userUID, logging.ErrKey, err)
				return err
			}
			if !user.Active {
				slog.WarnContext(ctx, "participant is not an active user", "user_uid", userUID)
				return domain.ErrInvalidParticipant
			}
			users[i] = user
			return nil
		}
	}

	if err := pool.Run(ctx, lookups...); err != nil {
		return nil, err
	}

	return users, nil
}

// sendInvitationEmails sends a meeting invitation to each resolved user that
// has an email address. Failures are logged, not returned: the meeting is
// already persisted and a missed email must not fail the request.
func sendInvitationEmails(ctx context.Context, sender domain.EmailService, meeting *models.Meeting, organizerName string, users []*models.User) {
	sendEmails(ctx, users, func(user *models.User) error {
		return sender.SendParticipantInvitation(ctx, domain.EmailInvitation{
			RecipientEmail: user.Email,
			RecipientName:  user.Name,
			MeetingUID:     meeting.UID,
			MeetingTitle:   meeting.Title,
			StartTime:      meeting.StartTime,
			EndTime:        meeting.EndTime,
			Description:    meeting.Description,
			Location:       meeting.Location,
			MeetingLink:    meeting.MeetingLink,
			JoinCode:       meeting.JoinCode,
			OrganizerName:  organizerName,
		})
	})
}

// sendCancellationEmails notifies each resolved user that they no longer
// have this meeting on their schedule. Failures are logged, not returned.
func sendCancellationEmails(ctx context.Context, sender domain.EmailService, meeting *models.Meeting, reason string, users []*models.User) {
	sendEmails(ctx, users, func(user *models.User) error {
		return sender.SendParticipantCancellation(ctx, domain.EmailCancellation{
			RecipientEmail: user.Email,
			RecipientName:  user.Name,
			MeetingTitle:   meeting.Title,
			StartTime:      meeting.StartTime,
			EndTime:        meeting.EndTime,
			Description:    meeting.Description,
			Reason:         reason,
		})
	})
}

func sendEmails(ctx context.Context, users []*models.User, send func(*models.User) error) {
	pool := concurrent.NewWorkerPool(constants.ConflictLookupBatchSize)

	sends := make([]func() error, 0, len(users))
	for _, user := range users {
		if user == nil || user.Email == "" {
			continue
		}
		sends = append(sends, func() error {
			return send(user)
		})
	}

	for _, err := range pool.RunAll(ctx, sends...) {
		if err != nil {
			slog.ErrorContext(ctx, "failed to send email", logging.ErrKey, err)
		}
	}
}
