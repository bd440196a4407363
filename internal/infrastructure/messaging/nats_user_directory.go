// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
)

// userLookupTimeout caps how long a directory lookup may block when the
// caller's context has no earlier deadline.
const userLookupTimeout = 5 * time.Second

// INatsRequestConn is the NATS request/reply interface needed for the user
// directory client. It matches nats.Conn and allows for mocking in tests.
type INatsRequestConn interface {
	IsConnected() bool
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// userLookupRequest is the request payload for the user directory service.
type userLookupRequest struct {
	UserUID string `json:"user_uid"`
}

// userLookupResponse is the reply payload from the user directory service.
type userLookupResponse struct {
	User  *models.User `json:"user,omitempty"`
	Error string       `json:"error,omitempty"`
}

// NatsUserDirectory resolves user UIDs by querying the platform's user
// service over NATS request/reply.
type NatsUserDirectory struct {
	NatsConn INatsRequestConn
}

// NewNatsUserDirectory creates a new user directory client.
func NewNatsUserDirectory(natsConn INatsRequestConn) *NatsUserDirectory {
	return &NatsUserDirectory{
		NatsConn: natsConn,
	}
}

// IsReady checks if the directory client is ready for use
func (d *NatsUserDirectory) IsReady() bool {
	return d.NatsConn != nil && d.NatsConn.IsConnected()
}

// LookupUser returns the directory record for the given user UID. A UID the
// directory does not know yields ErrUserNotFound.
func (d *NatsUserDirectory) LookupUser(ctx context.Context, userUID string) (*models.User, error) {
	if !d.IsReady() {
		return nil, domain.ErrServiceUnavailable
	}

	payload, err := json.Marshal(userLookupRequest{UserUID: userUID})
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal user lookup request", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, userLookupTimeout)
		defer cancel()
	}

	msg, err := d.NatsConn.RequestWithContext(ctx, models.UserLookupSubject, payload)
	if err != nil {
		slog.ErrorContext(ctx, "error querying user directory", logging.ErrKey, err, "user_uid", userUID)
		return nil, domain.NewUnavailableError("user directory is unavailable", err)
	}

	var response userLookupResponse
	if err := json.Unmarshal(msg.Data, &response); err != nil {
		slog.ErrorContext(ctx, "error unmarshaling user directory response", logging.ErrKey, err, "user_uid", userUID)
		return nil, domain.NewInternalError("failed to unmarshal user lookup response", err)
	}

	if response.User == nil {
		if response.Error != "" {
			slog.DebugContext(ctx, "user directory lookup failed", "user_uid", userUID, "directory_error", response.Error)
		}
		return nil, domain.ErrUserNotFound
	}

	return response.User, nil
}
