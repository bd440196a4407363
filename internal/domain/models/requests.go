// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// CreateMeetingRequest is the payload for creating a meeting.
type CreateMeetingRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	MeetingLink  string    `json:"meeting_link,omitempty"`
	Organizer    string    `json:"organizer"`
	Participants []string  `json:"participants,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	// AllowConflicts skips scheduling conflict enforcement when true. The
	// conflicts are still computed and returned in the response so the
	// caller can surface them.
	AllowConflicts bool `json:"allow_conflicts,omitempty"`
}

// UpdateMeetingRequest is the payload for updating a meeting. Nil fields are
// left unchanged. Changing the time range, the roster, or re-activating a
// cancelled meeting re-runs conflict detection over the resulting roster.
type UpdateMeetingRequest struct {
	UID         string  `json:"uid"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	MeetingLink *string `json:"meeting_link,omitempty"`
	// Participants replaces the roster with the given user UIDs; the
	// organizer stays a member regardless of the list's contents.
	Participants   *[]string      `json:"participants,omitempty"`
	StartTime      *time.Time     `json:"start_time,omitempty"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	Status         *MeetingStatus `json:"status,omitempty"`
	AllowConflicts bool           `json:"allow_conflicts,omitempty"`
}

// HasTimeChange reports whether the update touches the meeting's time range.
func (r *UpdateMeetingRequest) HasTimeChange() bool {
	return r.StartTime != nil || r.EndTime != nil
}

// GetMeetingRequest is the payload for fetching a single meeting.
type GetMeetingRequest struct {
	UID string `json:"uid"`
}

// ListMeetingsRequest is the payload for listing meetings, optionally
// filtered to a participant's schedule or a status.
type ListMeetingsRequest struct {
	ParticipantUID string        `json:"participant_uid,omitempty"`
	Status         MeetingStatus `json:"status,omitempty"`
}

// CancelMeetingRequest is the payload for cancelling a meeting.
type CancelMeetingRequest struct {
	UID string `json:"uid"`
}

// DeleteMeetingRequest is the payload for deleting a meeting.
type DeleteMeetingRequest struct {
	UID string `json:"uid"`
}

// AssignParticipantsRequest is the payload for adding users to a meeting's
// roster. Conflict detection runs only over the users being added.
type AssignParticipantsRequest struct {
	MeetingUID     string   `json:"meeting_uid"`
	UserUIDs       []string `json:"user_uids"`
	AllowConflicts bool     `json:"allow_conflicts,omitempty"`
}

// RemoveParticipantsRequest is the payload for removing users from a
// meeting's roster. The organizer cannot be removed.
type RemoveParticipantsRequest struct {
	MeetingUID string   `json:"meeting_uid"`
	UserUIDs   []string `json:"user_uids"`
}

// ConflictCheckRequest is the payload for an ad-hoc conflict query: which of
// the given users are busy during [StartTime, EndTime)?
type ConflictCheckRequest struct {
	UserUIDs  []string  `json:"user_uids"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	// ExcludeMeetingUID omits one meeting from the results, used when
	// re-checking a meeting's own time change against its roster.
	ExcludeMeetingUID string `json:"exclude_meeting_uid,omitempty"`
}

// MeetingResponse is the reply payload for operations that return a meeting.
// Conflicts is populated when conflict detection ran and found overlaps,
// whether or not they were allowed.
type MeetingResponse struct {
	Meeting   *Meeting   `json:"meeting,omitempty"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// ConflictCheckResponse is the reply payload for ad-hoc conflict queries.
type ConflictCheckResponse struct {
	Conflicts []Conflict `json:"conflicts"`
}
