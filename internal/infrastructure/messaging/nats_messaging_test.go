// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/constants"
)

// capturingNatsConn records everything published through it.
type capturingNatsConn struct {
	connected    bool
	publishError error
	subjects     []string
	payloads     [][]byte
}

func (c *capturingNatsConn) IsConnected() bool {
	return c.connected
}

func (c *capturingNatsConn) Publish(subject string, data []byte) error {
	if c.publishError != nil {
		return c.publishError
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func testIndexableMeeting() models.Meeting {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return models.Meeting{
		UID:          "meeting-1",
		Title:        "Weekly Standup",
		Organizer:    "user-1",
		Participants: []string{"user-1", "user-2"},
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		Status:       models.MeetingStatusScheduled,
	}
}

func TestMessageBuilderSendIndexMeeting(t *testing.T) {
	conn := &capturingNatsConn{connected: true}
	builder := NewMessageBuilder(conn)

	ctx := context.WithValue(context.Background(), constants.AuthorizationContextID, "Bearer token-123")
	ctx = context.WithValue(ctx, constants.PrincipalContextID, "user-1")

	err := builder.SendIndexMeeting(ctx, models.ActionCreated, testIndexableMeeting())
	require.NoError(t, err)

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, models.IndexMeetingSubject, conn.subjects[0])

	var message models.MeetingIndexerMessage
	require.NoError(t, json.Unmarshal(conn.payloads[0], &message))
	assert.Equal(t, models.ActionCreated, message.Action)
	assert.Equal(t, "Bearer token-123", message.Headers[constants.AuthorizationHeader])
	assert.Equal(t, "user-1", message.Headers[constants.XOnBehalfOfHeader])
	assert.Contains(t, message.Tags, "meeting_uid:meeting-1")
	assert.Contains(t, message.Tags, "organizer:user-1")
	assert.Contains(t, message.Tags, "participant:user-2")

	// The payload must be a plain JSON object for the indexer.
	data, ok := message.Data.(map[string]any)
	require.True(t, ok, "indexer payload should decode as a map")
	assert.Equal(t, "meeting-1", data["uid"])
}

func TestMessageBuilderSendIndexMeetingFallbackAuth(t *testing.T) {
	conn := &capturingNatsConn{connected: true}
	builder := NewMessageBuilder(conn)

	err := builder.SendIndexMeeting(context.Background(), models.ActionUpdated, testIndexableMeeting())
	require.NoError(t, err)

	var message models.MeetingIndexerMessage
	require.NoError(t, json.Unmarshal(conn.payloads[0], &message))
	assert.Equal(t, "Bearer scheduling-service", message.Headers[constants.AuthorizationHeader])
}

func TestMessageBuilderSendDeleteIndexMeeting(t *testing.T) {
	conn := &capturingNatsConn{connected: true}
	builder := NewMessageBuilder(conn)

	err := builder.SendDeleteIndexMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)

	var message models.MeetingIndexerMessage
	require.NoError(t, json.Unmarshal(conn.payloads[0], &message))
	assert.Equal(t, models.ActionDeleted, message.Action)
	assert.Equal(t, "meeting-1", message.Data)
}

func TestMessageBuilderSendUpdateAccessMeeting(t *testing.T) {
	conn := &capturingNatsConn{connected: true}
	builder := NewMessageBuilder(conn)

	err := builder.SendUpdateAccessMeeting(context.Background(), models.MeetingAccessMessage{
		UID:          "meeting-1",
		Organizer:    "user-1",
		Participants: []string{"user-1", "user-2"},
	})
	require.NoError(t, err)

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, models.UpdateAccessMeetingSubject, conn.subjects[0])

	var message models.MeetingAccessMessage
	require.NoError(t, json.Unmarshal(conn.payloads[0], &message))
	assert.Equal(t, "meeting-1", message.UID)
	assert.Equal(t, []string{"user-1", "user-2"}, message.Participants)
}

func TestMessageBuilderSendDeleteAllAccessMeeting(t *testing.T) {
	conn := &capturingNatsConn{connected: true}
	builder := NewMessageBuilder(conn)

	err := builder.SendDeleteAllAccessMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, models.DeleteAllAccessMeetingSubject, conn.subjects[0])
	assert.Equal(t, []byte("meeting-1"), conn.payloads[0])
}

func TestMessageBuilderPublishError(t *testing.T) {
	conn := &capturingNatsConn{connected: true, publishError: errors.New("publish failed")}
	builder := NewMessageBuilder(conn)

	err := builder.SendDeleteAllAccessMeeting(context.Background(), "meeting-1")
	assert.Error(t, err)
}
