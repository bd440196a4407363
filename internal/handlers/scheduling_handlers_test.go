// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/constants"
)

type handlerMocks struct {
	repo      *mocks.MockMeetingRepository
	builder   *mocks.MockMessageBuilder
	directory *mocks.MockUserDirectory
	email     *mocks.MockEmailService
	auth      *auth.MockJWTAuth
}

func newTestHandler() (*SchedulingHandler, handlerMocks) {
	m := handlerMocks{
		repo:      &mocks.MockMeetingRepository{},
		builder:   &mocks.MockMessageBuilder{},
		directory: &mocks.MockUserDirectory{},
		email:     &mocks.MockEmailService{},
		auth:      &auth.MockJWTAuth{Principal: "alice"},
	}

	config := service.NewServiceConfig()
	config.SkipEmails = true

	locks := concurrent.NewKeyedMutex()
	handler := NewSchedulingHandler(
		service.NewMeetingService(m.repo, m.builder, m.directory, m.email, locks, config),
		service.NewParticipantService(m.repo, m.builder, m.directory, m.email, locks, config),
		m.auth,
	)
	return handler, m
}

// newRequestMessage builds a mock request/reply message and returns the
// channel-free captured response via the returned pointer.
func newRequestMessage(t *testing.T, subject string, payload any) (*mocks.MockMessage, *models.OperationResponse) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	response := &models.OperationResponse{}
	msg := &mocks.MockMessage{}
	msg.On("Subject").Return(subject)
	msg.On("Data").Return(data).Maybe()
	msg.On("Header", constants.AuthorizationHeader).Return("Bearer token").Maybe()
	msg.On("HasReply").Return(true)
	msg.On("Respond", mock.Anything).Run(func(args mock.Arguments) {
		require.NoError(t, json.Unmarshal(args.Get(0).([]byte), response))
	}).Return(nil)

	return msg, response
}

func TestHandleMessage(t *testing.T) {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	t.Run("meeting create round trip", func(t *testing.T) {
		handler, m := newTestHandler()

		m.directory.On("LookupUser", mock.Anything, "alice").
			Return(&models.User{UID: "alice", Email: "alice@example.org", Active: true}, nil)
		m.repo.On("FindConflicts", mock.Anything, []string{"alice"}, start, end, "").
			Return([]models.Conflict{}, nil)
		m.repo.On("CreateMeeting", mock.Anything, mock.Anything).Return(nil)
		m.builder.On("SendIndexMeeting", mock.Anything, models.ActionCreated, mock.Anything).Return(nil)
		m.builder.On("SendUpdateAccessMeeting", mock.Anything, mock.Anything).Return(nil)

		msg, response := newRequestMessage(t, models.MeetingCreateSubject, models.CreateMeetingRequest{
			Title:     "Kickoff",
			StartTime: start,
			EndTime:   end,
		})

		handler.HandleMessage(context.Background(), msg)

		assert.True(t, response.Success)
		assert.Empty(t, response.Error)
		require.NotNil(t, response.Data)

		// The organizer defaults to the authenticated principal.
		var meetingResp models.MeetingResponse
		raw, err := json.Marshal(response.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &meetingResp))
		assert.Equal(t, "alice", meetingResp.Meeting.Organizer)
	})

	t.Run("scheduling conflict carries the colliding meetings", func(t *testing.T) {
		handler, m := newTestHandler()

		busy := &models.Meeting{UID: "existing", StartTime: start, EndTime: end, Status: models.MeetingStatusScheduled}
		m.directory.On("LookupUser", mock.Anything, "alice").
			Return(&models.User{UID: "alice", Active: true}, nil)
		m.repo.On("FindConflicts", mock.Anything, []string{"alice"}, start, end, "").
			Return([]models.Conflict{{Meeting: busy, UserUIDs: []string{"alice"}}}, nil)

		msg, response := newRequestMessage(t, models.MeetingCreateSubject, models.CreateMeetingRequest{
			Title:     "Kickoff",
			StartTime: start,
			EndTime:   end,
		})

		handler.HandleMessage(context.Background(), msg)

		assert.False(t, response.Success)
		assert.Equal(t, "conflict", response.ErrorType)
		require.NotNil(t, response.Data)
	})

	t.Run("meeting get returns the revision", func(t *testing.T) {
		handler, m := newTestHandler()

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1"}, uint64(42), nil)

		msg, response := newRequestMessage(t, models.MeetingGetSubject, models.GetMeetingRequest{UID: "meeting-1"})

		handler.HandleMessage(context.Background(), msg)

		assert.True(t, response.Success)
		assert.Equal(t, "42", response.Revision)
	})

	t.Run("not found maps to the not_found error type", func(t *testing.T) {
		handler, m := newTestHandler()

		m.repo.On("GetMeetingWithRevision", mock.Anything, "missing").
			Return(nil, uint64(0), domain.ErrMeetingNotFound)

		msg, response := newRequestMessage(t, models.MeetingGetSubject, models.GetMeetingRequest{UID: "missing"})

		handler.HandleMessage(context.Background(), msg)

		assert.False(t, response.Success)
		assert.Equal(t, "not_found", response.ErrorType)
	})

	t.Run("invalid token is rejected before dispatch", func(t *testing.T) {
		handler, m := newTestHandler()
		m.auth.Err = errors.New("token expired")

		msg, response := newRequestMessage(t, models.MeetingGetSubject, models.GetMeetingRequest{UID: "meeting-1"})

		handler.HandleMessage(context.Background(), msg)

		assert.False(t, response.Success)
		assert.Equal(t, "forbidden", response.ErrorType)
		m.repo.AssertNotCalled(t, "GetMeetingWithRevision", mock.Anything, mock.Anything)
	})

	t.Run("malformed payload maps to a validation error", func(t *testing.T) {
		handler, _ := newTestHandler()

		response := &models.OperationResponse{}
		msg := &mocks.MockMessage{}
		msg.On("Subject").Return(models.MeetingCreateSubject)
		msg.On("Data").Return([]byte("{not json"))
		msg.On("Header", constants.AuthorizationHeader).Return("Bearer token")
		msg.On("HasReply").Return(true)
		msg.On("Respond", mock.Anything).Run(func(args mock.Arguments) {
			require.NoError(t, json.Unmarshal(args.Get(0).([]byte), response))
		}).Return(nil)

		handler.HandleMessage(context.Background(), msg)

		assert.False(t, response.Success)
		assert.Equal(t, "validation", response.ErrorType)
	})

	t.Run("unknown subject", func(t *testing.T) {
		handler, _ := newTestHandler()

		msg, response := newRequestMessage(t, "lfx.scheduling-api.unknown", nil)

		handler.HandleMessage(context.Background(), msg)

		assert.False(t, response.Success)
		assert.Equal(t, "validation", response.ErrorType)
	})

	t.Run("participant remove forbidden for non-organizer principals", func(t *testing.T) {
		handler, m := newTestHandler()
		m.auth.Principal = "mallory"

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(&models.Meeting{
				UID:          "meeting-1",
				Organizer:    "alice",
				Participants: []string{"alice", "bob"},
				Status:       models.MeetingStatusScheduled,
			}, uint64(3), nil)

		msg, response := newRequestMessage(t, models.ParticipantRemoveSubject, models.RemoveParticipantsRequest{
			MeetingUID: "meeting-1",
			UserUIDs:   []string{"bob"},
		})

		handler.HandleMessage(context.Background(), msg)

		assert.False(t, response.Success)
		assert.Equal(t, "forbidden", response.ErrorType)
	})

	t.Run("message without a reply subject is not responded to", func(t *testing.T) {
		handler, m := newTestHandler()

		m.repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1"}, uint64(1), nil)

		data, err := json.Marshal(models.GetMeetingRequest{UID: "meeting-1"})
		require.NoError(t, err)

		msg := &mocks.MockMessage{}
		msg.On("Subject").Return(models.MeetingGetSubject)
		msg.On("Data").Return(data)
		msg.On("Header", constants.AuthorizationHeader).Return("Bearer token")
		msg.On("HasReply").Return(false)

		handler.HandleMessage(context.Background(), msg)

		msg.AssertNotCalled(t, "Respond", mock.Anything)
	})
}

func TestHandlerReady(t *testing.T) {
	handler, _ := newTestHandler()
	assert.True(t, handler.HandlerReady())

	notReady := NewSchedulingHandler(&service.MeetingService{}, &service.ParticipantService{}, nil)
	assert.False(t, notReady.HandlerReady())
}
