// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/utils"
)

// MeetingService implements the meeting lifecycle operations: create, update,
// cancel, delete, get, list, and ad-hoc conflict checks.
type MeetingService struct {
	Config            ServiceConfig
	MeetingRepository domain.MeetingRepository
	MessageBuilder    domain.MessageBuilder
	UserDirectory     domain.UserDirectory
	EmailService      domain.EmailService
	// participantLocks serializes mutations that touch the same users'
	// schedules, closing the window between a conflict check and the
	// write it guards.
	participantLocks *concurrent.KeyedMutex
}

// NewMeetingService creates a new MeetingService. The participant locks must
// be the same instance given to every other service that mutates schedules,
// otherwise concurrent mutations of one user's schedule would not serialize.
func NewMeetingService(
	meetingRepository domain.MeetingRepository,
	messageBuilder domain.MessageBuilder,
	userDirectory domain.UserDirectory,
	emailService domain.EmailService,
	participantLocks *concurrent.KeyedMutex,
	config ServiceConfig,
) *MeetingService {
	return &MeetingService{
		Config:            config,
		MeetingRepository: meetingRepository,
		MessageBuilder:    messageBuilder,
		UserDirectory:     userDirectory,
		EmailService:      emailService,
		participantLocks:  participantLocks,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *MeetingService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.MessageBuilder != nil &&
		s.UserDirectory != nil &&
		s.EmailService != nil &&
		s.participantLocks != nil
}

func (s *MeetingService) validateCreateMeetingRequest(ctx context.Context, req *models.CreateMeetingRequest) error {
	if req == nil {
		slog.WarnContext(ctx, "create meeting payload is required")
		return domain.ErrValidationFailed
	}
	if req.Title == "" {
		slog.WarnContext(ctx, "meeting title is required")
		return domain.NewValidationError("meeting title is required")
	}
	if req.Organizer == "" {
		slog.WarnContext(ctx, "meeting organizer is required")
		return domain.NewValidationError("meeting organizer is required")
	}
	return s.validateTimeRange(ctx, req.StartTime, req.EndTime, true)
}

// validateTimeRange enforces the scheduling rules on a meeting's time range.
// The past-start rule only applies at creation and when a meeting is moved,
// which is when checkPast is set.
func (s *MeetingService) validateTimeRange(ctx context.Context, start, end time.Time, checkPast bool) error {
	if !end.After(start) {
		slog.WarnContext(ctx, "meeting end time must be after start time",
			"start_time", start,
			"end_time", end,
		)
		return domain.ErrInvalidTimeRange
	}
	if checkPast && start.Before(time.Now().UTC().Add(-s.Config.PastScheduleGrace)) {
		slog.WarnContext(ctx, "meeting start time is in the past", "start_time", start)
		return domain.ErrPastSchedule
	}
	if s.Config.MaxMeetingDuration > 0 && end.Sub(start) > s.Config.MaxMeetingDuration {
		slog.WarnContext(ctx, "meeting duration exceeds the maximum",
			"duration", end.Sub(start),
			"max_duration", s.Config.MaxMeetingDuration,
		)
		return domain.ErrDurationExceeded
	}
	return nil
}

// CreateMeeting schedules a new meeting for the organizer and participants
// in the request. Unless the request allows conflicts, any overlap with the
// roster's existing schedules rejects the create; either way the detected
// conflicts are returned so the caller can surface them.
func (s *MeetingService) CreateMeeting(ctx context.Context, req *models.CreateMeetingRequest) (*models.MeetingResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req != nil {
		req.Organizer = utils.CoalesceString(req.Organizer, principalFromContext(ctx))
	}

	if err := s.validateCreateMeetingRequest(ctx, req); err != nil {
		return nil, err
	}

	participants := models.EffectiveParticipants(req.Organizer, req.Participants)
	ctx = logging.AppendCtx(ctx, slog.String("organizer", req.Organizer))

	users, err := resolveActiveUsers(ctx, s.UserDirectory, participants)
	if err != nil {
		return nil, err
	}

	// Hold the advisory locks for every affected user so that the
	// conflict check and the write below are one atomic step with
	// respect to other mutations touching these schedules.
	unlock := s.participantLocks.LockAll(participants)
	defer unlock()

	conflicts, err := s.MeetingRepository.FindConflicts(ctx, participants, req.StartTime, req.EndTime, "")
	if err != nil {
		slog.ErrorContext(ctx, "error checking scheduling conflicts", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}
	if len(conflicts) > 0 && !req.AllowConflicts {
		slog.WarnContext(ctx, "meeting conflicts with existing schedules", "conflict_count", len(conflicts))
		return nil, &domain.SchedulingConflictError{Conflicts: conflicts}
	}

	now := time.Now().UTC()
	meeting := &models.Meeting{
		UID:          uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		MeetingLink:  req.MeetingLink,
		Organizer:    req.Organizer,
		Participants: participants,
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Status:       models.MeetingStatusScheduled,
		JoinCode:     generateJoinCode(),
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	if err := s.MeetingRepository.CreateMeeting(ctx, meeting); err != nil {
		slog.ErrorContext(ctx, "error creating meeting", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}

	// Use WorkerPool for concurrent NATS message sending
	pool := concurrent.NewWorkerPool(2)

	messages := []func() error{
		func() error {
			return s.MessageBuilder.SendIndexMeeting(ctx, models.ActionCreated, *meeting)
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
		slog.ErrorContext(ctx, "failed to send NATS messages for created meeting", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}

	if !s.Config.SkipEmails {
		sendInvitationEmails(ctx, s.EmailService, meeting, s.organizerName(meeting.Organizer, users), users)
	}

	slog.DebugContext(ctx, "returning created meeting", "meeting", meeting)

	return &models.MeetingResponse{Meeting: meeting, Conflicts: conflicts}, nil
}

// organizerName returns the display name for the organizer from an already
// resolved user set, falling back to the organizer's UID.
func (s *MeetingService) organizerName(organizerUID string, users []*models.User) string {
	for _, user := range users {
		if user != nil && user.UID == organizerUID {
			return utils.CoalesceString(user.Name, user.Username, user.UID)
		}
	}
	return organizerUID
}

// getMeetingForMutation loads a meeting with its revision and checks that
// the requester is its organizer.
func (s *MeetingService) getMeetingForMutation(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
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

	return meeting, revision, nil
}

// UpdateMeeting applies a partial update to a meeting's metadata, time range,
// roster, or status. Any change that alters who is busy when re-runs conflict
// detection over the resulting roster, excluding the meeting itself.
func (s *MeetingService) UpdateMeeting(ctx context.Context, req *models.UpdateMeetingRequest) (*models.MeetingResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req == nil || req.UID == "" {
		slog.WarnContext(ctx, "meeting UID is required")
		return nil, domain.ErrValidationFailed
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.UID))

	meeting, revision, err := s.getMeetingForMutation(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("etag", strconv.FormatUint(revision, 10)))

	if !meeting.Status.IsMutable() {
		slog.WarnContext(ctx, "meeting is not modifiable", "status", meeting.Status)
		return nil, domain.ErrMeetingImmutable
	}

	if req.Title != nil {
		if *req.Title == "" {
			slog.WarnContext(ctx, "meeting title cannot be cleared")
			return nil, domain.NewValidationError("meeting title is required")
		}
		meeting.Title = *req.Title
	}
	if req.Description != nil {
		meeting.Description = *req.Description
	}
	if req.Location != nil {
		meeting.Location = *req.Location
	}
	if req.MeetingLink != nil {
		meeting.MeetingLink = *req.MeetingLink
	}
	if req.Status != nil && !req.Status.IsValid() {
		slog.WarnContext(ctx, "invalid meeting status", "status", *req.Status)
		return nil, domain.NewValidationError("invalid meeting status")
	}

	newStart := utils.CoalesceTime(utils.TimeValue(req.StartTime), meeting.StartTime).UTC()
	newEnd := utils.CoalesceTime(utils.TimeValue(req.EndTime), meeting.EndTime).UTC()

	newParticipants := meeting.Participants
	rosterChange := false
	if req.Participants != nil {
		newParticipants = models.EffectiveParticipants(meeting.Organizer, *req.Participants)
		rosterChange = !slices.Equal(newParticipants, meeting.Participants)
	}

	// Re-activating a cancelled meeting puts its roster back into conflict
	// detection, so it re-checks like a time change.
	reactivation := req.Status != nil && req.Status.CountsForConflicts() && !meeting.Status.CountsForConflicts()

	var conflicts []models.Conflict
	if req.HasTimeChange() || rosterChange || reactivation {
		if err := s.validateTimeRange(ctx, newStart, newEnd, req.StartTime != nil); err != nil {
			return nil, err
		}
		if rosterChange {
			if _, err := resolveActiveUsers(ctx, s.UserDirectory, newParticipants); err != nil {
				return nil, err
			}
		}

		// Lock the union of the old and new rosters: both sets of schedules
		// are about to change.
		locked := models.EffectiveParticipants("", append(slices.Clone(meeting.Participants), newParticipants...))
		unlock := s.participantLocks.LockAll(locked)
		defer unlock()

		conflicts, err = s.MeetingRepository.FindConflicts(ctx, newParticipants, newStart, newEnd, meeting.UID)
		if err != nil {
			slog.ErrorContext(ctx, "error checking scheduling conflicts", logging.ErrKey, err)
			return nil, domain.ErrInternal
		}
		if len(conflicts) > 0 && !req.AllowConflicts {
			slog.WarnContext(ctx, "meeting change conflicts with existing schedules", "conflict_count", len(conflicts))
			return nil, &domain.SchedulingConflictError{Conflicts: conflicts}
		}

		meeting.StartTime = newStart
		meeting.EndTime = newEnd
		meeting.Participants = newParticipants
	}

	if req.Status != nil {
		// The repository reconciles the schedule index when the status
		// change makes the meeting stop or resume counting for conflicts.
		meeting.Status = *req.Status
	}

	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	if err := s.MeetingRepository.UpdateMeeting(ctx, meeting, revision); err != nil {
		if errors.Is(err, domain.ErrRevisionMismatch) {
			slog.WarnContext(ctx, "meeting was modified concurrently", logging.ErrKey, err)
			return nil, domain.ErrRevisionMismatch
		}
		slog.ErrorContext(ctx, "error updating meeting in store", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}

	if err := s.sendMeetingUpdatedMessages(ctx, meeting); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "returning updated meeting", "meeting", meeting)

	return &models.MeetingResponse{Meeting: meeting, Conflicts: conflicts}, nil
}

func (s *MeetingService) sendMeetingUpdatedMessages(ctx context.Context, meeting *models.Meeting) error {
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
		slog.ErrorContext(ctx, "failed to send NATS messages for updated meeting", logging.ErrKey, err)
		return domain.ErrInternal
	}

	return nil
}

// CancelMeeting marks a meeting cancelled. Cancelled meetings stop blocking
// other meetings and their participants are notified. Cancelling an already
// cancelled meeting is a no-op.
func (s *MeetingService) CancelMeeting(ctx context.Context, req *models.CancelMeetingRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req == nil || req.UID == "" {
		slog.WarnContext(ctx, "meeting UID is required")
		return nil, domain.ErrValidationFailed
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.UID))

	meeting, revision, err := s.getMeetingForMutation(ctx, req.UID)
	if err != nil {
		return nil, err
	}

	if meeting.Status == models.MeetingStatusCancelled {
		slog.DebugContext(ctx, "meeting is already cancelled")
		return meeting, nil
	}
	if !meeting.Status.IsMutable() {
		slog.WarnContext(ctx, "meeting is not modifiable", "status", meeting.Status)
		return nil, domain.ErrMeetingImmutable
	}

	now := time.Now().UTC()
	meeting.Status = models.MeetingStatusCancelled
	meeting.UpdatedAt = &now

	// The repository clears the roster's schedule-index entries when a
	// meeting stops counting for conflicts.
	if err := s.MeetingRepository.UpdateMeeting(ctx, meeting, revision); err != nil {
		if errors.Is(err, domain.ErrRevisionMismatch) {
			slog.WarnContext(ctx, "meeting was modified concurrently", logging.ErrKey, err)
			return nil, domain.ErrRevisionMismatch
		}
		slog.ErrorContext(ctx, "error cancelling meeting in store", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}

	if err := s.sendMeetingUpdatedMessages(ctx, meeting); err != nil {
		return nil, err
	}

	if !s.Config.SkipEmails {
		users, err := resolveActiveUsers(ctx, s.UserDirectory, meeting.Participants)
		if err != nil {
			// The cancellation is already persisted; a failed lookup
			// only costs the notification emails.
			slog.WarnContext(ctx, "could not resolve participants for cancellation emails", logging.ErrKey, err)
		} else {
			sendCancellationEmails(ctx, s.EmailService, meeting, "The meeting has been cancelled by the organizer.", users)
		}
	}

	return meeting, nil
}

// DeleteMeeting removes a meeting and all of its schedule-index entries.
func (s *MeetingService) DeleteMeeting(ctx context.Context, req *models.DeleteMeetingRequest) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.ErrServiceUnavailable
	}

	if req == nil || req.UID == "" {
		slog.WarnContext(ctx, "meeting UID is required")
		return domain.ErrValidationFailed
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.UID))

	_, revision, err := s.getMeetingForMutation(ctx, req.UID)
	if err != nil {
		return err
	}

	if err := s.MeetingRepository.DeleteMeeting(ctx, req.UID, revision); err != nil {
		if errors.Is(err, domain.ErrRevisionMismatch) {
			slog.WarnContext(ctx, "meeting was modified concurrently", logging.ErrKey, err)
			return domain.ErrRevisionMismatch
		}
		slog.ErrorContext(ctx, "error deleting meeting from store", logging.ErrKey, err)
		return domain.ErrInternal
	}

	// Use WorkerPool for concurrent NATS message sending
	pool := concurrent.NewWorkerPool(2)

	messages := []func() error{
		func() error {
			return s.MessageBuilder.SendDeleteIndexMeeting(ctx, req.UID)
		},
		func() error {
			return s.MessageBuilder.SendDeleteAllAccessMeeting(ctx, req.UID)
		},
	}

	if err := pool.Run(ctx, messages...); err != nil {
		slog.ErrorContext(ctx, "failed to send NATS messages for deleted meeting", logging.ErrKey, err)
		return domain.ErrInternal
	}

	slog.DebugContext(ctx, "deleted meeting")

	return nil
}

// GetMeeting returns a meeting and its revision for optimistic concurrency.
func (s *MeetingService) GetMeeting(ctx context.Context, req *models.GetMeetingRequest) (*models.Meeting, string, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, "", domain.ErrServiceUnavailable
	}

	if req == nil || req.UID == "" {
		slog.WarnContext(ctx, "meeting UID is required")
		return nil, "", domain.ErrValidationFailed
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.UID))

	meeting, revision, err := s.MeetingRepository.GetMeetingWithRevision(ctx, req.UID)
	if err != nil {
		if errors.Is(err, domain.ErrMeetingNotFound) {
			slog.WarnContext(ctx, "meeting not found", logging.ErrKey, err)
			return nil, "", domain.ErrMeetingNotFound
		}
		slog.ErrorContext(ctx, "error getting meeting from store", logging.ErrKey, err)
		return nil, "", domain.ErrInternal
	}

	revisionStr := strconv.FormatUint(revision, 10)

	slog.DebugContext(ctx, "returning meeting", "meeting", meeting, "revision", revisionStr)

	return meeting, revisionStr, nil
}

// ListMeetings returns meetings, optionally scoped to one participant's
// schedule and filtered by status.
func (s *MeetingService) ListMeetings(ctx context.Context, req *models.ListMeetingsRequest) ([]*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req == nil {
		req = &models.ListMeetingsRequest{}
	}
	if req.Status != "" && !req.Status.IsValid() {
		slog.WarnContext(ctx, "invalid meeting status filter", "status", req.Status)
		return nil, domain.NewValidationError("invalid meeting status filter")
	}

	var meetings []*models.Meeting
	var err error
	if req.ParticipantUID != "" {
		ctx = logging.AppendCtx(ctx, slog.String("participant_uid", req.ParticipantUID))
		meetings, err = s.MeetingRepository.ListMeetingsByParticipant(ctx, req.ParticipantUID)
	} else {
		meetings, err = s.MeetingRepository.ListAllMeetings(ctx)
	}
	if err != nil {
		slog.ErrorContext(ctx, "error listing meetings", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}

	if req.Status != "" {
		meetings = slices.DeleteFunc(meetings, func(m *models.Meeting) bool {
			return m.Status != req.Status
		})
	}

	slog.DebugContext(ctx, "returning meetings", "count", len(meetings))

	return meetings, nil
}

// CheckConflicts answers which of the given users are busy during the given
// time range, without mutating anything.
func (s *MeetingService) CheckConflicts(ctx context.Context, req *models.ConflictCheckRequest) (*models.ConflictCheckResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if req == nil || len(req.UserUIDs) == 0 {
		slog.WarnContext(ctx, "at least one user UID is required")
		return nil, domain.ErrValidationFailed
	}
	if !req.EndTime.After(req.StartTime) {
		slog.WarnContext(ctx, "conflict check end time must be after start time")
		return nil, domain.ErrInvalidTimeRange
	}

	conflicts, err := s.MeetingRepository.FindConflicts(ctx, req.UserUIDs, req.StartTime, req.EndTime, req.ExcludeMeetingUID)
	if err != nil {
		slog.ErrorContext(ctx, "error checking scheduling conflicts", logging.ErrKey, err)
		return nil, domain.ErrInternal
	}

	slog.DebugContext(ctx, "returning conflict check results", "conflict_count", len(conflicts))

	return &models.ConflictCheckResponse{Conflicts: conflicts}, nil
}
