// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"slices"
	"time"
)

// MeetingStatus is the closed set of lifecycle states for a meeting.
type MeetingStatus string

// Meeting statuses.
const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusOngoing   MeetingStatus = "ongoing"
	MeetingStatusCompleted MeetingStatus = "completed"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// IsValid reports whether the status is one of the known values.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusOngoing, MeetingStatusCompleted, MeetingStatusCancelled:
		return true
	}
	return false
}

// CountsForConflicts reports whether meetings in this status participate in
// conflict detection. Cancelled meetings never block other meetings.
func (s MeetingStatus) CountsForConflicts() bool {
	return s != MeetingStatusCancelled
}

// IsMutable reports whether a meeting in this status accepts updates.
// Completed meetings are read-only.
func (s MeetingStatus) IsMutable() bool {
	return s != MeetingStatusCompleted
}

// Meeting is the key-value store representation of a meeting.
type Meeting struct {
	UID          string        `json:"uid"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Location     string        `json:"location,omitempty"`
	MeetingLink  string        `json:"meeting_link,omitempty"`
	Organizer    string        `json:"organizer"`
	Participants []string      `json:"participants"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       MeetingStatus `json:"status"`
	JoinCode     string        `json:"join_code,omitempty"`
	CreatedAt    *time.Time    `json:"created_at,omitempty"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
}

// Duration returns the length of the meeting.
func (m *Meeting) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// HasParticipant reports whether the given user UID is on the roster.
func (m *Meeting) HasParticipant(userUID string) bool {
	return slices.Contains(m.Participants, userUID)
}

// IsOrganizer reports whether the given user UID owns the meeting.
func (m *Meeting) IsOrganizer(userUID string) bool {
	return m.Organizer != "" && m.Organizer == userUID
}

// Overlaps reports whether the meeting's time range intersects the half-open
// interval [start, end).
func (m *Meeting) Overlaps(start, end time.Time) bool {
	return Overlaps(m.StartTime, m.EndTime, start, end)
}

// ParticipantsIntersecting returns the subset of the given user UIDs that
// are on the meeting's roster, preserving the roster's sorted order.
func (m *Meeting) ParticipantsIntersecting(userUIDs []string) []string {
	intersection := []string{}
	for _, uid := range m.Participants {
		if slices.Contains(userUIDs, uid) {
			intersection = append(intersection, uid)
		}
	}
	return intersection
}

// Tags generates a list of tags for the meeting used by the indexer
// service to search meetings.
func (m *Meeting) Tags() []string {
	if m == nil {
		return nil
	}

	tags := []string{}

	if m.UID != "" {
		tags = append(tags, m.UID, "meeting_uid:"+m.UID)
	}
	if m.Title != "" {
		tags = append(tags, m.Title)
	}
	if m.Organizer != "" {
		tags = append(tags, "organizer:"+m.Organizer)
	}
	for _, participant := range m.Participants {
		tags = append(tags, "participant:"+participant)
	}

	return tags
}

// EffectiveParticipants returns the deduplicated, sorted union of the
// organizer and the requested participant UIDs. This is the roster stored on
// a meeting and the scope used for conflict checking at create and update
// time: the organizer is always a member, whether or not the caller listed
// them.
func EffectiveParticipants(organizerUID string, participantUIDs []string) []string {
	set := make([]string, 0, len(participantUIDs)+1)
	if organizerUID != "" {
		set = append(set, organizerUID)
	}
	set = append(set, participantUIDs...)
	slices.Sort(set)
	return slices.Compact(set)
}
