// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	// Header returns the value of a message header, or the empty string
	// when the header is absent.
	Header(name string) string
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// MeetingIndexSender handles indexing operations for meetings.
type MeetingIndexSender interface {
	SendIndexMeeting(ctx context.Context, action models.MessageAction, data models.Meeting) error
	SendDeleteIndexMeeting(ctx context.Context, data string) error
}

// MeetingAccessSender handles access control operations for meetings.
type MeetingAccessSender interface {
	SendUpdateAccessMeeting(ctx context.Context, data models.MeetingAccessMessage) error
	SendDeleteAllAccessMeeting(ctx context.Context, data string) error
}

// UserDirectory resolves user UIDs against the platform's user service.
type UserDirectory interface {
	// LookupUser returns the directory record for the given user UID, or
	// ErrUserNotFound when the UID does not resolve.
	LookupUser(ctx context.Context, userUID string) (*models.User, error)
}

// MessageBuilder is the main interface that composes all messaging capabilities.
type MessageBuilder interface {
	MeetingIndexSender
	MeetingAccessSender
}
