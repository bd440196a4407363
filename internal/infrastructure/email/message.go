// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package email

import (
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
)

// buildEmailMessage builds the complete email message with headers and multipart content
func buildEmailMessage(recipient, subject, htmlContent, textContent string, attachment *domain.EmailAttachment, config SMTPConfig) string {
	mixedBoundary := "===============mixed7340272628110584=="
	altBoundary := "===============alt1234567890123456789=="

	var message strings.Builder

	// Email headers
	message.WriteString(fmt.Sprintf("From: %s\r\n", config.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", recipient))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixedBoundary))
	message.WriteString("\r\n")

	// Alternative part holding the text and HTML bodies
	message.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
	message.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", altBoundary))
	message.WriteString("\r\n")

	// Plain text part
	message.WriteString(fmt.Sprintf("--%s\r\n", altBoundary))
	message.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	message.WriteString("\r\n")
	message.WriteString(textContent)
	message.WriteString("\r\n")

	// HTML part
	message.WriteString(fmt.Sprintf("--%s\r\n", altBoundary))
	message.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	message.WriteString("\r\n")
	message.WriteString(htmlContent)
	message.WriteString("\r\n")

	message.WriteString(fmt.Sprintf("--%s--\r\n", altBoundary))

	// Attachment part
	if attachment != nil {
		message.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		message.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", attachment.ContentType, attachment.Filename))
		message.WriteString("Content-Transfer-Encoding: base64\r\n")
		message.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", attachment.Filename))
		message.WriteString("\r\n")
		message.WriteString(wrapBase64(attachment.Content))
		message.WriteString("\r\n")
	}

	// End boundary
	message.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))

	return message.String()
}

// wrapBase64 wraps base64 content at 76 characters per RFC 2045.
func wrapBase64(content string) string {
	const lineLength = 76
	var wrapped strings.Builder
	for len(content) > lineLength {
		wrapped.WriteString(content[:lineLength])
		wrapped.WriteString("\r\n")
		content = content[lineLength:]
	}
	wrapped.WriteString(content)
	return wrapped.String()
}

// encodeAttachmentContent base64-encodes raw attachment bytes.
func encodeAttachmentContent(content string) string {
	return base64.StdEncoding.EncodeToString([]byte(content))
}

// sendEmailMessage sends a pre-built email message via SMTP
func sendEmailMessage(recipient, message string, config SMTPConfig) error {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	err := smtp.SendMail(addr, auth, config.From, []string{recipient}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
