// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package email sends meeting invitation and cancellation emails over SMTP
// with ICS calendar attachments.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
)

// SMTPService implements the EmailService interface using SMTP
type SMTPService struct {
	config    SMTPConfig
	templates Templates
	ics       MeetingICSGenerator
}

// SMTPConfig holds the SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string // Optional for authenticated SMTP
	Password string // Optional for authenticated SMTP
}

// NewSMTPService creates a new SMTP email service
func NewSMTPService(config SMTPConfig) (*SMTPService, error) {
	templates, err := loadMeetingTemplates()
	if err != nil {
		return nil, err
	}

	return &SMTPService{
		config:    config,
		templates: templates,
		ics:       NewICSGenerator(),
	}, nil
}

// SendParticipantInvitation sends an invitation email to a meeting participant
func (s *SMTPService) SendParticipantInvitation(ctx context.Context, invitation domain.EmailInvitation) error {
	ctx = logging.AppendCtx(ctx, slog.String("recipient_email", invitation.RecipientEmail))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_title", invitation.MeetingTitle))

	if invitation.ICSAttachment == nil {
		ics, err := s.ics.GenerateMeetingInvitationICS(ICSMeetingParams{
			MeetingUID:     invitation.MeetingUID,
			MeetingTitle:   invitation.MeetingTitle,
			Description:    invitation.Description,
			Location:       invitation.Location,
			MeetingLink:    invitation.MeetingLink,
			StartTime:      invitation.StartTime,
			EndTime:        invitation.EndTime,
			OrganizerName:  invitation.OrganizerName,
			RecipientEmail: invitation.RecipientEmail,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate invitation ICS", logging.ErrKey, err)
			return fmt.Errorf("failed to generate invitation ICS: %w", err)
		}
		invitation.ICSAttachment = &domain.EmailAttachment{
			Filename:    "invite.ics",
			ContentType: "text/calendar; method=REQUEST",
			Content:     encodeAttachmentContent(ics),
		}
	}

	// Generate email content from templates
	htmlContent, err := renderTemplate(s.templates.Meeting.Invitation.HTML, invitation)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render HTML template", logging.ErrKey, err)
		return fmt.Errorf("failed to render HTML template: %w", err)
	}

	textContent, err := renderTemplate(s.templates.Meeting.Invitation.Text, invitation)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render text template", logging.ErrKey, err)
		return fmt.Errorf("failed to render text template: %w", err)
	}

	// Build and send the email
	subject := fmt.Sprintf("Invitation: %s", invitation.MeetingTitle)
	message := buildEmailMessage(invitation.RecipientEmail, subject, htmlContent, textContent, invitation.ICSAttachment, s.config)
	err = sendEmailMessage(invitation.RecipientEmail, message, s.config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send invitation email", logging.ErrKey, err)
		return err
	}

	slog.InfoContext(ctx, "invitation email sent successfully")
	return nil
}

// SendParticipantCancellation sends a cancellation email to a meeting participant
func (s *SMTPService) SendParticipantCancellation(ctx context.Context, cancellation domain.EmailCancellation) error {
	ctx = logging.AppendCtx(ctx, slog.String("recipient_email", cancellation.RecipientEmail))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_title", cancellation.MeetingTitle))

	// Generate email content from templates
	htmlContent, err := renderTemplate(s.templates.Meeting.Cancellation.HTML, cancellation)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render cancellation HTML template", logging.ErrKey, err)
		return fmt.Errorf("failed to render cancellation HTML template: %w", err)
	}

	textContent, err := renderTemplate(s.templates.Meeting.Cancellation.Text, cancellation)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render cancellation text template", logging.ErrKey, err)
		return fmt.Errorf("failed to render cancellation text template: %w", err)
	}

	// Build and send the email
	subject := fmt.Sprintf("Meeting Cancellation: %s", cancellation.MeetingTitle)
	message := buildEmailMessage(cancellation.RecipientEmail, subject, htmlContent, textContent, nil, s.config)
	err = sendEmailMessage(cancellation.RecipientEmail, message, s.config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send cancellation email", logging.ErrKey, err)
		return err
	}

	slog.InfoContext(ctx, "cancellation email sent successfully")
	return nil
}
