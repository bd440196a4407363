// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/constants"
)

// NatsMeetingRepository is the NATS KV store repository for meetings. It
// keeps the authoritative meeting bucket and the derived per-participant
// schedule index in step: index entries are written before the meeting
// record so a conflict query can never miss a committed meeting, and every
// index hit is re-verified against the meeting record before it is reported.
type NatsMeetingRepository struct {
	meetings  *NatsBaseRepository[models.Meeting]
	schedules *NatsScheduleIndex
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(meetings INatsKeyValue, schedules INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		meetings:  NewNatsBaseRepository[models.Meeting](meetings, "meeting"),
		schedules: NewNatsScheduleIndex(schedules),
	}
}

// IsReady checks if the repository is ready for use
func (s *NatsMeetingRepository) IsReady() bool {
	return s.meetings.IsReady() && s.schedules.IsReady()
}

// GetMeeting retrieves a meeting by UID.
func (s *NatsMeetingRepository) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	meeting, _, err := s.GetMeetingWithRevision(ctx, meetingUID)
	return meeting, err
}

// GetMeetingWithRevision retrieves a meeting and the KV revision needed for
// optimistic-concurrency writes.
func (s *NatsMeetingRepository) GetMeetingWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	meeting, revision, err := s.meetings.GetWithRevision(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, 0, domain.ErrMeetingNotFound
		}
		return nil, 0, err
	}
	return meeting, revision, nil
}

// MeetingExists checks whether a meeting record is stored.
func (s *NatsMeetingRepository) MeetingExists(ctx context.Context, meetingUID string) (bool, error) {
	return s.meetings.Exists(ctx, meetingUID)
}

// CreateMeeting stores a new meeting. The schedule index entries for every
// participant are written first so the meeting is conflict-visible no later
// than it is readable.
func (s *NatsMeetingRepository) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	if err := s.indexParticipants(ctx, meeting, meeting.Participants); err != nil {
		return err
	}

	return s.meetings.Create(ctx, meeting.UID, meeting)
}

// UpdateMeeting replaces a meeting record under revision CAS and reconciles
// the schedule index with the new time range and roster. New and retained
// participants are indexed before the record is swapped; entries for removed
// participants are dropped after, so there is no window in which a committed
// participant is missing from the index.
func (s *NatsMeetingRepository) UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	existing, err := s.GetMeeting(ctx, meeting.UID)
	if err != nil {
		return err
	}

	if meeting.Status.CountsForConflicts() {
		if err := s.indexParticipants(ctx, meeting, meeting.Participants); err != nil {
			return err
		}
	}

	if err := s.meetings.Update(ctx, meeting.UID, meeting, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return domain.ErrRevisionMismatch
		}
		return err
	}

	// Drop index entries that no longer apply: removed participants, or
	// the whole roster when the meeting stopped counting for conflicts.
	var stale []string
	if !meeting.Status.CountsForConflicts() {
		stale = existing.Participants
	} else {
		for _, uid := range existing.Participants {
			if !meeting.HasParticipant(uid) {
				stale = append(stale, uid)
			}
		}
	}
	s.unindexParticipants(ctx, meeting.UID, stale)

	return nil
}

// DeleteMeeting removes a meeting record under revision CAS, then cleans up
// its schedule index entries. Entries that outlive the record are filtered
// out by readers, so cleanup failures degrade queries without corrupting
// them.
func (s *NatsMeetingRepository) DeleteMeeting(ctx context.Context, meetingUID string, revision uint64) error {
	existing, err := s.GetMeeting(ctx, meetingUID)
	if err != nil {
		return err
	}

	if err := s.meetings.Delete(ctx, meetingUID, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return domain.ErrRevisionMismatch
		}
		return err
	}

	s.unindexParticipants(ctx, meetingUID, existing.Participants)

	return nil
}

// ListAllMeetings lists every stored meeting.
func (s *NatsMeetingRepository) ListAllMeetings(ctx context.Context) ([]*models.Meeting, error) {
	entities, err := s.meetings.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []*models.Meeting{}
	}
	return entities, nil
}

// ListMeetingsByParticipant lists the meetings a user is committed to, in
// start-time order. The schedule index supplies the candidates; each one is
// re-verified against the meeting record.
func (s *NatsMeetingRepository) ListMeetingsByParticipant(ctx context.Context, userUID string) ([]*models.Meeting, error) {
	entries, err := s.schedules.GetEntries(ctx, userUID)
	if err != nil {
		return nil, err
	}

	meetings := []*models.Meeting{}
	for _, entry := range entries {
		meeting, err := s.GetMeeting(ctx, entry.MeetingUID)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				// Stale index entry for a deleted meeting.
				continue
			}
			return nil, err
		}
		if !meeting.HasParticipant(userUID) {
			continue
		}
		meetings = append(meetings, meeting)
	}

	slices.SortFunc(meetings, func(a, b *models.Meeting) int {
		return a.StartTime.Compare(b.StartTime)
	})

	return meetings, nil
}

// FindConflicts reports every non-cancelled meeting that overlaps
// [start, end) for any of the given users, excluding excludeMeetingUID.
// The schedule index narrows the search to the queried users' own
// commitments; candidates are then verified against the meeting record, so
// stale index entries are filtered rather than reported.
func (s *NatsMeetingRepository) FindConflicts(ctx context.Context, userUIDs []string, start, end time.Time, excludeMeetingUID string) ([]models.Conflict, error) {
	if !s.IsReady() {
		return nil, domain.ErrServiceUnavailable
	}

	// Phase one: collect candidate meeting UIDs from the queried users'
	// schedules, in parallel per user.
	var (
		mu         sync.Mutex
		candidates = make(map[string]struct{})
	)

	pool := concurrent.NewWorkerPool(constants.ConflictLookupBatchSize)
	functions := make([]func() error, 0, len(userUIDs))
	for _, userUID := range userUIDs {
		functions = append(functions, func() error {
			entries, err := s.schedules.GetEntries(ctx, userUID)
			if err != nil {
				return fmt.Errorf("reading schedule for user %s: %w", userUID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, entry := range entries {
				if entry.MeetingUID == excludeMeetingUID {
					continue
				}
				if !entry.Overlaps(start, end) {
					continue
				}
				candidates[entry.MeetingUID] = struct{}{}
			}
			return nil
		})
	}
	if err := pool.Run(ctx, functions...); err != nil {
		return nil, err
	}

	// Phase two: verify each candidate against the authoritative meeting
	// record and attribute it to the queried users it involves.
	candidateUIDs := make([]string, 0, len(candidates))
	for uid := range candidates {
		candidateUIDs = append(candidateUIDs, uid)
	}
	slices.Sort(candidateUIDs)

	conflicts := []models.Conflict{}
	for _, meetingUID := range candidateUIDs {
		meeting, err := s.GetMeeting(ctx, meetingUID)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			return nil, err
		}
		if !meeting.Status.CountsForConflicts() {
			continue
		}
		if !meeting.Overlaps(start, end) {
			continue
		}
		involved := meeting.ParticipantsIntersecting(userUIDs)
		if len(involved) == 0 {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Meeting:  meeting,
			UserUIDs: involved,
		})
	}

	return conflicts, nil
}

// indexParticipants writes the meeting's schedule entry onto each of the
// given users' schedules.
func (s *NatsMeetingRepository) indexParticipants(ctx context.Context, meeting *models.Meeting, userUIDs []string) error {
	entry := models.ScheduleEntry{
		MeetingUID: meeting.UID,
		StartTime:  meeting.StartTime,
		EndTime:    meeting.EndTime,
	}

	for _, userUID := range userUIDs {
		if err := s.schedules.UpsertEntry(ctx, userUID, entry); err != nil {
			return fmt.Errorf("indexing schedule for user %s: %w", userUID, err)
		}
	}

	return nil
}

// unindexParticipants drops the meeting's schedule entry from the given
// users' schedules. Failures are logged, not returned: leftover entries are
// false positives that readers filter out.
func (s *NatsMeetingRepository) unindexParticipants(ctx context.Context, meetingUID string, userUIDs []string) {
	for _, userUID := range userUIDs {
		if err := s.schedules.RemoveEntry(ctx, userUID, meetingUID); err != nil {
			slog.WarnContext(ctx, "failed to remove stale schedule entry",
				logging.ErrKey, err, "user_uid", userUID, "meeting_uid", meetingUID)
		}
	}
}
