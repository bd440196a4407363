// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
)

func newTestParticipantService(m serviceMocks) *ParticipantService {
	config := NewServiceConfig()
	config.SkipEmails = true
	return NewParticipantService(m.repo, m.builder, m.directory, m.email, concurrent.NewKeyedMutex(), config)
}

func rosterMeeting(status models.MeetingStatus, start, end time.Time) *models.Meeting {
	return &models.Meeting{
		UID:          "meeting-1",
		Title:        "Planning",
		Organizer:    "alice",
		Participants: []string{"alice", "bob"},
		StartTime:    start,
		EndTime:      end,
		Status:       status,
	}
}

func TestAssignParticipants(t *testing.T) {
	start, end := futureRange(t)

	t.Run("adds new participants with a delta-scoped conflict check", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		expectActiveUsers(m, "bob", "carol", "dave")
		// Only the users being added are checked, and never against
		// this meeting itself.
		m.repo.On("FindConflicts", mock.Anything, []string{"carol", "dave"}, start, end, "meeting-1").
			Return([]models.Conflict{}, nil)
		m.repo.On("UpdateMeeting", mock.Anything, mock.MatchedBy(func(meeting *models.Meeting) bool {
			return assert.ObjectsAreEqual([]string{"alice", "bob", "carol", "dave"}, meeting.Participants)
		}), uint64(3)).Return(nil)
		m.builder.On("SendIndexMeeting", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)
		m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"dave", "carol", "bob"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, resp.Meeting.Participants)

		m.assertExpectations(t)
	})

	t.Run("rejects when every user is already on the roster", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		expectActiveUsers(m, "alice", "bob")

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"bob", "alice"},
		})
		require.ErrorIs(t, err, domain.ErrNoParticipantsToAdd)
	})

	t.Run("rejects an unknown user even when they are already on the roster", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		expectActiveUsers(m, "carol")
		m.directory.On("LookupUser", mock.Anything, "bob").Return(nil, domain.ErrUserNotFound)

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"bob", "carol"},
		})
		require.ErrorIs(t, err, domain.ErrInvalidParticipant)

		m.repo.AssertNotCalled(t, "FindConflicts", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("conflicting addition is rejected with the colliding meetings", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		busy := &models.Meeting{UID: "other", StartTime: start, EndTime: end, Status: models.MeetingStatusScheduled}
		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		expectActiveUsers(m, "carol")
		m.repo.On("FindConflicts", mock.Anything, []string{"carol"}, start, end, "meeting-1").
			Return([]models.Conflict{{Meeting: busy, UserUIDs: []string{"carol"}}}, nil)

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"carol"},
		})
		var conflictErr *domain.SchedulingConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []string{"carol"}, conflictErr.Conflicts[0].UserUIDs)

		m.repo.AssertNotCalled(t, "UpdateMeeting", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("allows conflicts when requested", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		busy := &models.Meeting{UID: "other", StartTime: start, EndTime: end, Status: models.MeetingStatusScheduled}
		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		expectActiveUsers(m, "carol")
		m.repo.On("FindConflicts", mock.Anything, []string{"carol"}, start, end, "meeting-1").
			Return([]models.Conflict{{Meeting: busy, UserUIDs: []string{"carol"}}}, nil)
		m.repo.On("UpdateMeeting", mock.Anything, mock.Anything, uint64(3)).Return(nil)
		m.builder.On("SendIndexMeeting", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)
		m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID:     "meeting-1",
			UserUIDs:       []string{"carol"},
			AllowConflicts: true,
		})
		require.NoError(t, err)
		require.Len(t, resp.Conflicts, 1)

		m.assertExpectations(t)
	})

	t.Run("rejects an unknown user", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		m.directory.On("LookupUser", mock.Anything, "nobody").Return(nil, domain.ErrUserNotFound)

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"nobody"},
		})
		require.ErrorIs(t, err, domain.ErrInvalidParticipant)
	})

	t.Run("cancelled meeting does not accept roster changes", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusCancelled, start, end), uint64(3), nil)

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"carol"},
		})
		require.ErrorIs(t, err, domain.ErrMeetingImmutable)
	})

	t.Run("non-organizer is forbidden", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)

		_, err := svc.AssignParticipants(ctxWithPrincipal("bob"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"carol"},
		})
		require.ErrorIs(t, err, domain.ErrNotOrganizer)
	})

	t.Run("sends invitations to the new participants only", func(t *testing.T) {
		m := newServiceMocks()
		config := NewServiceConfig()
		svc := NewParticipantService(m.repo, m.builder, m.directory, m.email, concurrent.NewKeyedMutex(), config)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)
		expectActiveUsers(m, "carol")
		m.repo.On("FindConflicts", mock.Anything, []string{"carol"}, start, end, "meeting-1").
			Return([]models.Conflict{}, nil)
		m.repo.On("UpdateMeeting", mock.Anything, mock.Anything, uint64(3)).Return(nil)
		m.builder.On("SendIndexMeeting", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)
		m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)
		m.email.On("SendParticipantInvitation", mock.Anything, mock.MatchedBy(func(inv domain.EmailInvitation) bool {
			return inv.RecipientEmail == "carol@example.org"
		})).Return(nil).Once()

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"carol"},
		})
		require.NoError(t, err)

		m.assertExpectations(t)
	})

	t.Run("missing user UIDs", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		_, err := svc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
		})
		require.ErrorIs(t, err, domain.ErrValidationFailed)
	})
}

func TestRemoveParticipants(t *testing.T) {
	start, end := futureRange(t)

	t.Run("removes participants from the roster", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(5), nil)
		m.repo.On("UpdateMeeting", mock.Anything, mock.MatchedBy(func(meeting *models.Meeting) bool {
			return assert.ObjectsAreEqual([]string{"alice"}, meeting.Participants)
		}), uint64(5)).Return(nil)
		m.builder.On("SendIndexMeeting", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)
		m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)

		meeting, err := svc.RemoveParticipants(ctxWithPrincipal("alice"), &models.RemoveParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"bob"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, meeting.Participants)

		m.assertExpectations(t)
	})

	t.Run("the organizer cannot be removed", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(5), nil)

		_, err := svc.RemoveParticipants(ctxWithPrincipal("alice"), &models.RemoveParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"alice", "bob"},
		})
		require.ErrorIs(t, err, domain.ErrForbiddenRemoval)
		assert.Equal(t, domain.ErrorTypeForbidden, domain.GetErrorType(err))

		m.repo.AssertNotCalled(t, "UpdateMeeting", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects when no listed user is a participant", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(5), nil)

		_, err := svc.RemoveParticipants(ctxWithPrincipal("alice"), &models.RemoveParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"carol"},
		})
		require.ErrorIs(t, err, domain.ErrNoParticipantsToRemove)
	})

	t.Run("sends cancellation emails to the removed users", func(t *testing.T) {
		m := newServiceMocks()
		config := NewServiceConfig()
		svc := NewParticipantService(m.repo, m.builder, m.directory, m.email, concurrent.NewKeyedMutex(), config)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(5), nil)
		m.repo.On("UpdateMeeting", mock.Anything, mock.Anything, uint64(5)).Return(nil)
		m.builder.On("SendIndexMeeting", mock.Anything, models.ActionUpdated, mock.Anything).Return(nil)
		m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)
		expectActiveUsers(m, "bob")
		m.email.On("SendParticipantCancellation", mock.Anything, mock.MatchedBy(func(c domain.EmailCancellation) bool {
			return c.RecipientEmail == "bob@example.org"
		})).Return(nil).Once()

		_, err := svc.RemoveParticipants(ctxWithPrincipal("alice"), &models.RemoveParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"bob"},
		})
		require.NoError(t, err)

		m.assertExpectations(t)
	})

	t.Run("meeting not found", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestParticipantService(m)

		m.repo.On("GetMeetingWithRevision", mock.Anything, "missing").
			Return(nil, uint64(0), domain.ErrMeetingNotFound)

		_, err := svc.RemoveParticipants(ctxWithPrincipal("alice"), &models.RemoveParticipantsRequest{
			MeetingUID: "missing",
			UserUIDs:   []string{"bob"},
		})
		require.ErrorIs(t, err, domain.ErrMeetingNotFound)
	})
}

// A meeting create and a roster change that touch the same user must not run
// their conflict checks concurrently: with a shared lock space, the second
// mutation sees the first one's write.
func TestMutationsAcrossServicesSerializePerUser(t *testing.T) {
	start, end := futureRange(t)

	m := newServiceMocks()
	config := NewServiceConfig()
	config.SkipEmails = true
	locks := concurrent.NewKeyedMutex()
	meetingSvc := NewMeetingService(m.repo, m.builder, m.directory, m.email, locks, config)
	participantSvc := NewParticipantService(m.repo, m.builder, m.directory, m.email, locks, config)

	expectActiveUsers(m, "alice", "carol")
	m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
		Return(rosterMeeting(models.MeetingStatusScheduled, start, end), uint64(3), nil)

	var inFlight, maxInFlight atomic.Int32
	m.repo.On("FindConflicts", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
		}).
		Return([]models.Conflict{}, nil)
	m.repo.On("CreateMeeting", mock.Anything, mock.Anything).Return(nil)
	m.repo.On("UpdateMeeting", mock.Anything, mock.Anything, uint64(3)).Return(nil)
	m.builder.On("SendIndexMeeting", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := meetingSvc.CreateMeeting(ctxWithPrincipal("alice"), &models.CreateMeetingRequest{
			Title:        "Sync",
			Organizer:    "alice",
			Participants: []string{"carol"},
			StartTime:    start,
			EndTime:      end,
		})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := participantSvc.AssignParticipants(ctxWithPrincipal("alice"), &models.AssignParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"carol"},
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(),
		"conflict checks over the same user's schedule overlapped")
}
