// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
)

// ParticipantService implements roster mutations on existing meetings:
// assigning and removing participants.
type ParticipantService struct {
	Config            ServiceConfig
	MeetingRepository domain.MeetingRepository
	MessageBuilder    domain.MessageBuilder
	UserDirectory     domain.UserDirectory
	EmailService      domain.EmailService
	participantLocks  *concurrent.KeyedMutex
}

// NewParticipantService creates a new ParticipantService. The participant
// locks must be shared with the MeetingService so that roster changes and
// meeting mutations touching the same users serialize.
func NewParticipantService(
	meetingRepository domain.MeetingRepository,
	messageBuilder domain.MessageBuilder,
	userDirectory domain.UserDirectory,
	emailService domain.EmailService,
	participantLocks *concurrent.KeyedMutex,
	config ServiceConfig,
) *ParticipantService {
	return &ParticipantService{
		Config:            config,
		MeetingRepository: meetingRepository,
		MessageBuilder:    messageBuilder,
		UserDirectory:     userDirectory,
		EmailService:      emailService,
		participantLocks:  participantLocks,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *ParticipantService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.MessageBuilder != nil &&
		s.UserDirectory != nil &&
		s.EmailService != nil &&
		s.participantLocks != nil
}

// getMeetingForRosterChange loads a meeting with its revision and checks
// that the requester is its organizer and that the meeting still accepts
// roster changes.
func (s *ParticipantService) getMeetingForRosterChange(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	meeting, revision, err := s.MeetingRepository.GetMeetingWithRevision(ctx, meetingUID)
	if err != nil {
		if errors.Is(err, domain.ErrMeetingNotFound) {
			slog.WarnContext(ctx, "meeting not found", logging.ErrKey, err)
			return nil, 0, domain.ErrMeetingNotFound
		}
		slog.ErrorContext(ctx, "error getting meeting from store", logging.ErrKey, err)
		return nil, 0, domain.ErrInternal
	}

	if !meeting.IsOrganizer(principalFromContext(ctx)) {
		slog.WarnContext(ctx, "requester is not the meeting organizer",
			"organizer", meeting.Organizer,
			"requester", principalFromContext(ctx),
		)
		return nil, 0, domain.ErrNotOrganizer
	}

	if !meeting.Status.IsMutable() || !meeting.Status.CountsForConflicts() {
		slog.WarnContext(ctx, "meeting roster is not modifiable", "status", meeting.Status)
		return nil, 0, domain.ErrMeetingImmutable
	}

	return meeting, revision, nil
}

func (s *ParticipantService) persistRoster(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	if err := s.MeetingRepository.UpdateMeeting(ctx, meeting, revision); err != nil {
		if errors.Is(err, domain.ErrRevisionMismatch) {
			slog.WarnContext(ctx, "meeting was modified concurrently", logging.ErrKey, err)
			return domain.ErrRevisionMismatch
		}
		slog.ErrorContext(ctx, "error updating meeting roster in store", logging.ErrKey, err)
		return domain.ErrInternal
	}

	// Use WorkerPool for concurrent NATS message sending
	pool := concurrent.NewWorkerPool(2)

	messages := []func() error{
		func() error {
			return s.MessageBuilder.SendIndexMeeting(ctx, models.ActionUpdated, *meeting)
		},
		func() error {
			return s.MessageBuilder.SendUpdateAccessMeeting(ctx, models.MeetingAccessMessage{
				UID:          meeting.UID,
				Organizer:    meeting.Organizer,
				Participants: meeting.Participants,
			})
		},
	}

	if err := pool.Run(ctx, messages...); err != nil {
		slog.ErrorContext(ctx, "failed to send NATS messages for roster change", logging.ErrKey, err)
		return domain.ErrInternal
	}

	return nil
}

// AssignParticipants adds users to a meeting's roster. Conflict detection is
// scoped to the users actually being added: existing participants are not
// re-checked, so a roster addition can never be blocked by the meeting's own
// standing conflicts.
func (s *ParticipantService) AssignParticipants(ctx context.Context, req *models.AssignParticipantsRequest) (*models.MeetingResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req == nil || req.MeetingUID == "" {
		slog.WarnContext(ctx, "meeting UID is required")
		return nil, domain.ErrValidationFailed
	}
	if len(req.UserUIDs) == 0 {
		slog.WarnContext(ctx, "at least one user UID is required")
		return nil, domain.ErrValidationFailed
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.MeetingUID))

	meeting, revision, err := s.getMeetingForRosterChange(ctx, req.MeetingUID)
	if err != nil {
		return nil, err
	}

	// The whole requested set must resolve to active users, including UIDs
	// that turn out to already be on the roster.
	requested := models.EffectiveParticipants("", req.UserUIDs)
	users, err := resolveActiveUsers(ctx, s.UserDirectory, requested)
	if err != nil {
		return nil, err
	}

	toAdd := slices.DeleteFunc(requested, meeting.HasParticipant)
	if len(toAdd) == 0 {
		slog.WarnContext(ctx, "all requested users are already participants")
		return nil, domain.ErrNoParticipantsToAdd
	}
	ctx = logging.AppendCtx(ctx, slog.Any("user_uids", toAdd))

	invited := slices.DeleteFunc(slices.Clone(users), func(user *models.User) bool {
		return user == nil || !slices.Contains(toAdd, user.UID)
	})

	unlock := s.participantLocks.LockAll(toAdd)
	defer unlock()

	conflicts, err := s.MeetingRepository.FindConflicts(ctx, toAdd, meeting.StartTime, meeting.EndTime, meeting.UID)
	if err != nil {
		slog.ErrorContext(ctx, "error checking scheduling conflicts", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}
	if len(conflicts) > 0 && !req.AllowConflicts {
		slog.WarnContext(ctx, "new participants conflict with existing schedules", "conflict_count", len(conflicts))
		return nil, &domain.SchedulingConflictError{Conflicts: conflicts}
	}

	meeting.Participants = models.EffectiveParticipants(meeting.Organizer, append(meeting.Participants, toAdd...))

	if err := s.persistRoster(ctx, meeting, revision); err != nil {
		return nil, err
	}

	if !s.Config.SkipEmails {
		sendInvitationEmails(ctx, s.EmailService, meeting, meeting.Organizer, invited)
	}

	slog.DebugContext(ctx, "returning meeting with assigned participants", "meeting", meeting)

	return &models.MeetingResponse{Meeting: meeting, Conflicts: conflicts}, nil
}

// RemoveParticipants takes users off a meeting's roster. The organizer can
// never be removed from their own meeting.
func (s *ParticipantService) RemoveParticipants(ctx context.Context, req *models.RemoveParticipantsRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req == nil || req.MeetingUID == "" {
		slog.WarnContext(ctx, "meeting UID is required")
		return nil, domain.ErrValidationFailed
	}
	if len(req.UserUIDs) == 0 {
		slog.WarnContext(ctx, "at least one user UID is required")
		return nil, domain.ErrValidationFailed
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.MeetingUID))

	meeting, revision, err := s.getMeetingForRosterChange(ctx, req.MeetingUID)
	if err != nil {
		return nil, err
	}

	if slices.Contains(req.UserUIDs, meeting.Organizer) {
		slog.WarnContext(ctx, "the organizer cannot be removed", "organizer", meeting.Organizer)
		return nil, domain.ErrForbiddenRemoval
	}

	toRemove := meeting.ParticipantsIntersecting(req.UserUIDs)
	if len(toRemove) == 0 {
		slog.WarnContext(ctx, "none of the requested users are participants")
		return nil, domain.ErrNoParticipantsToRemove
	}
	ctx = logging.AppendCtx(ctx, slog.Any("user_uids", toRemove))

	meeting.Participants = slices.DeleteFunc(slices.Clone(meeting.Participants), func(uid string) bool {
		return slices.Contains(toRemove, uid)
	})

	if err := s.persistRoster(ctx, meeting, revision); err != nil {
		return nil, err
	}

	if !s.Config.SkipEmails {
		users, err := resolveActiveUsers(ctx, s.UserDirectory, toRemove)
		if err != nil {
			slog.WarnContext(ctx, "could not resolve removed participants for emails", logging.ErrKey, err)
		} else {
			sendCancellationEmails(ctx, s.EmailService, meeting, "You have been removed from the meeting.", users)
		}
	}

	slog.DebugContext(ctx, "returning meeting with removed participants", "meeting", meeting)

	return meeting, nil
}
