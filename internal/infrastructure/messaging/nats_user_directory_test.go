// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
)

// stubRequestConn replies to every request with a canned message.
type stubRequestConn struct {
	connected    bool
	reply        []byte
	requestError error
	lastSubject  string
	lastRequest  []byte
}

func (c *stubRequestConn) IsConnected() bool {
	return c.connected
}

func (c *stubRequestConn) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	c.lastSubject = subj
	c.lastRequest = data
	if c.requestError != nil {
		return nil, c.requestError
	}
	return &nats.Msg{Data: c.reply}, nil
}

func TestNatsUserDirectoryLookupUser(t *testing.T) {
	reply, err := json.Marshal(userLookupResponse{
		User: &models.User{
			UID:      "user-1",
			Username: "jdoe",
			Email:    "jdoe@example.org",
			Name:     "J. Doe",
			Active:   true,
		},
	})
	require.NoError(t, err)

	conn := &stubRequestConn{connected: true, reply: reply}
	directory := NewNatsUserDirectory(conn)

	user, err := directory.LookupUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UID)
	assert.True(t, user.Active)

	assert.Equal(t, models.UserLookupSubject, conn.lastSubject)

	var request userLookupRequest
	require.NoError(t, json.Unmarshal(conn.lastRequest, &request))
	assert.Equal(t, "user-1", request.UserUID)
}

func TestNatsUserDirectoryLookupUserNotFound(t *testing.T) {
	reply, err := json.Marshal(userLookupResponse{Error: "no such user"})
	require.NoError(t, err)

	conn := &stubRequestConn{connected: true, reply: reply}
	directory := NewNatsUserDirectory(conn)

	_, err = directory.LookupUser(context.Background(), "user-404")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestNatsUserDirectoryLookupUserRequestError(t *testing.T) {
	conn := &stubRequestConn{connected: true, requestError: errors.New("timeout")}
	directory := NewNatsUserDirectory(conn)

	_, err := directory.LookupUser(context.Background(), "user-1")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestNatsUserDirectoryNotReady(t *testing.T) {
	directory := NewNatsUserDirectory(&stubRequestConn{connected: false})

	_, err := directory.LookupUser(context.Background(), "user-1")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
