// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package email

import (
	"fmt"
	"strings"
	"time"
)

// ICS constants for consistent values across all generated ICS files
const (
	ICSProdID         = "-//Linux Foundation//LFX Scheduling Service//EN"
	ICALVersion       = "2.0"
	ICALScale         = "GREGORIAN"
	ICALMaxLineLength = 75 // this is arbitrarily set to 75 characters to avoid long lines
)

// UTF-8 byte masks for line folding safety
const (
	UTF8TwoBitMask         = 0xC0 // Mask to isolate first two bits (11000000)
	UTF8ContinuationPrefix = 0x80 // UTF-8 continuation byte prefix (10000000)
)

// MeetingICSGenerator is the interface for generating ICS calendar files
type MeetingICSGenerator interface {
	GenerateMeetingInvitationICS(params ICSMeetingParams) (string, error)
	GenerateMeetingCancellationICS(params ICSMeetingParams) (string, error)
}

// ICSGenerator generates ICS (iCalendar) files for meeting invitations
type ICSGenerator struct{}

// NewICSGenerator creates a new ICS generator
func NewICSGenerator() *ICSGenerator {
	return &ICSGenerator{}
}

// Ensure [ICSGenerator] implements [MeetingICSGenerator]
var _ MeetingICSGenerator = (*ICSGenerator)(nil)

// ICSMeetingParams contains the information needed to generate an ICS file
// for a meeting invitation or cancellation.
type ICSMeetingParams struct {
	MeetingUID     string // Unique meeting identifier for consistent ICS UID
	MeetingTitle   string
	Description    string
	Location       string
	MeetingLink    string
	StartTime      time.Time
	EndTime        time.Time
	OrganizerName  string
	OrganizerEmail string
	RecipientEmail string
	Sequence       int // ICS sequence number for calendar updates
}

// GenerateMeetingInvitationICS generates an ICS file content for a meeting invitation
func (g *ICSGenerator) GenerateMeetingInvitationICS(params ICSMeetingParams) (string, error) {
	return g.generate(params, "REQUEST", "CONFIRMED")
}

// GenerateMeetingCancellationICS generates an ICS file that cancels a
// previously sent invitation. Calendar clients match on the event UID.
func (g *ICSGenerator) GenerateMeetingCancellationICS(params ICSMeetingParams) (string, error) {
	return g.generate(params, "CANCEL", "CANCELLED")
}

func (g *ICSGenerator) generate(params ICSMeetingParams, method, status string) (string, error) {
	if params.MeetingUID == "" {
		return "", fmt.Errorf("meeting UID is required for ICS generation")
	}
	if params.EndTime.Before(params.StartTime) {
		return "", fmt.Errorf("ICS event end time precedes its start time")
	}

	dtstamp := time.Now().UTC().Format("20060102T150405Z")
	dtstart := params.StartTime.UTC().Format("20060102T150405Z")
	dtend := params.EndTime.UTC().Format("20060102T150405Z")

	var ics strings.Builder

	// Calendar header
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString(fmt.Sprintf("VERSION:%s\r\n", ICALVersion))
	ics.WriteString(fmt.Sprintf("PRODID:%s\r\n", ICSProdID))
	ics.WriteString(fmt.Sprintf("CALSCALE:%s\r\n", ICALScale))
	ics.WriteString(fmt.Sprintf("METHOD:%s\r\n", method))

	// Event
	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(foldLine(fmt.Sprintf("UID:%s", params.MeetingUID)))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", dtstamp))
	ics.WriteString(fmt.Sprintf("SEQUENCE:%d\r\n", params.Sequence))
	if params.OrganizerEmail != "" {
		organizer := fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s", params.OrganizerName, params.OrganizerEmail)
		ics.WriteString(foldLine(organizer))
	}
	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", dtstart))
	ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", dtend))
	ics.WriteString(foldLine(fmt.Sprintf("SUMMARY:%s", escapeICSText(params.MeetingTitle))))
	if params.Description != "" {
		ics.WriteString(foldLine(fmt.Sprintf("DESCRIPTION:%s", escapeICSText(params.Description))))
	}
	if params.Location != "" {
		ics.WriteString(foldLine(fmt.Sprintf("LOCATION:%s", escapeICSText(params.Location))))
	}
	if params.MeetingLink != "" {
		ics.WriteString(foldLine(fmt.Sprintf("URL:%s", params.MeetingLink)))
	}
	if params.RecipientEmail != "" {
		attendee := fmt.Sprintf("ATTENDEE;ROLE=REQ-PARTICIPANT;RSVP=TRUE:mailto:%s", params.RecipientEmail)
		ics.WriteString(foldLine(attendee))
	}
	ics.WriteString(fmt.Sprintf("STATUS:%s\r\n", status))
	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String(), nil
}

// escapeICSText escapes special characters per RFC 5545.
func escapeICSText(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return replacer.Replace(text)
}

// foldLine folds a content line at ICALMaxLineLength octets per RFC 5545,
// taking care not to split a multi-byte UTF-8 sequence.
func foldLine(line string) string {
	if len(line) <= ICALMaxLineLength {
		return line + "\r\n"
	}

	var folded strings.Builder
	remaining := line
	limit := ICALMaxLineLength
	for len(remaining) > limit {
		cut := limit
		// Back up while the cut point lands inside a UTF-8 sequence.
		for cut > 0 && remaining[cut]&UTF8TwoBitMask == UTF8ContinuationPrefix {
			cut--
		}
		folded.WriteString(remaining[:cut])
		folded.WriteString("\r\n ")
		remaining = remaining[cut:]
		// Continuation lines start with a space, which counts against
		// the length limit.
		limit = ICALMaxLineLength - 1
	}
	folded.WriteString(remaining)
	folded.WriteString("\r\n")
	return folded.String()
}
