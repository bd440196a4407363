// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	SendParticipantInvitation(ctx context.Context, invitation EmailInvitation) error
	SendParticipantCancellation(ctx context.Context, cancellation EmailCancellation) error
}

// EmailInvitation contains the data needed to send a meeting invitation email
type EmailInvitation struct {
	RecipientEmail string
	RecipientName  string
	MeetingUID     string
	MeetingTitle   string
	StartTime      time.Time
	EndTime        time.Time
	Description    string
	Location       string
	MeetingLink    string
	JoinCode       string
	OrganizerName  string
	ICSAttachment  *EmailAttachment // ICS calendar attachment
}

// EmailCancellation contains the data needed to send a meeting cancellation email
type EmailCancellation struct {
	RecipientEmail string
	RecipientName  string
	MeetingTitle   string
	StartTime      time.Time
	EndTime        time.Time
	Description    string
	Reason         string // Optional reason for cancellation
}

// EmailAttachment represents a file attachment for an email
type EmailAttachment struct {
	Filename    string // Name of the attachment file
	ContentType string // MIME type of the attachment
	Content     string // Base64 encoded content
}
