// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// NATS subjects that the scheduling service sends messages about.
const (
	// IndexMeetingSubject is the subject for the meeting indexing.
	// The subject is of the form: lfx.index.meeting
	IndexMeetingSubject = "lfx.index.meeting"

	// UpdateAccessMeetingSubject is the subject for the meeting access control updates.
	// The subject is of the form: lfx.update_access.meeting
	UpdateAccessMeetingSubject = "lfx.update_access.meeting"

	// DeleteAllAccessMeetingSubject is the subject for the meeting access control deletion.
	// The subject is of the form: lfx.delete_all_access.meeting
	DeleteAllAccessMeetingSubject = "lfx.delete_all_access.meeting"
)

// NATS wildcard subjects that the scheduling service handles messages about.
const (
	// SchedulingAPIQueue is the queue group name for the scheduling API.
	// The subject is of the form: lfx.scheduling-api.queue
	SchedulingAPIQueue = "lfx.scheduling-api.queue"
)

// NATS specific subjects that the scheduling service handles messages about.
const (
	// MeetingCreateSubject is the subject for creating a meeting.
	// The subject is of the form: lfx.scheduling-api.meeting_create
	MeetingCreateSubject = "lfx.scheduling-api.meeting_create"

	// MeetingUpdateSubject is the subject for updating a meeting.
	// The subject is of the form: lfx.scheduling-api.meeting_update
	MeetingUpdateSubject = "lfx.scheduling-api.meeting_update"

	// MeetingCancelSubject is the subject for cancelling a meeting.
	// The subject is of the form: lfx.scheduling-api.meeting_cancel
	MeetingCancelSubject = "lfx.scheduling-api.meeting_cancel"

	// MeetingDeleteSubject is the subject for deleting a meeting.
	// The subject is of the form: lfx.scheduling-api.meeting_delete
	MeetingDeleteSubject = "lfx.scheduling-api.meeting_delete"

	// MeetingGetSubject is the subject for fetching a single meeting.
	// The subject is of the form: lfx.scheduling-api.meeting_get
	MeetingGetSubject = "lfx.scheduling-api.meeting_get"

	// MeetingListSubject is the subject for listing meetings.
	// The subject is of the form: lfx.scheduling-api.meeting_list
	MeetingListSubject = "lfx.scheduling-api.meeting_list"

	// ParticipantAssignSubject is the subject for assigning participants to a meeting.
	// The subject is of the form: lfx.scheduling-api.participant_assign
	ParticipantAssignSubject = "lfx.scheduling-api.participant_assign"

	// ParticipantRemoveSubject is the subject for removing participants from a meeting.
	// The subject is of the form: lfx.scheduling-api.participant_remove
	ParticipantRemoveSubject = "lfx.scheduling-api.participant_remove"

	// ConflictCheckSubject is the subject for ad-hoc conflict queries.
	// The subject is of the form: lfx.scheduling-api.conflict_check
	ConflictCheckSubject = "lfx.scheduling-api.conflict_check"
)

// NATS subjects for services that the scheduling service queries.
const (
	// UserLookupSubject is the subject for looking up users in the user directory.
	// The subject is of the form: lfx.users-api.user_lookup
	UserLookupSubject = "lfx.users-api.user_lookup"
)

// MessageAction is a type for the action of a meeting message.
type MessageAction string

// MessageAction constants for the action of a meeting message.
const (
	// ActionCreated is the action for a resource creation message.
	ActionCreated MessageAction = "created"
	// ActionUpdated is the action for a resource update message.
	ActionUpdated MessageAction = "updated"
	// ActionDeleted is the action for a resource deletion message.
	ActionDeleted MessageAction = "deleted"
)

// MeetingIndexerMessage is a NATS message schema for sending messages related to meetings CRUD operations.
type MeetingIndexerMessage struct {
	Action  MessageAction     `json:"action"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data"`
	// Tags is a list of tags to be set on the indexed resource for search.
	Tags []string `json:"tags"`
}

// MeetingAccessMessage is the schema for the data in the message sent to the fga-sync service.
// These are the fields that the fga-sync service needs in order to update the OpenFGA permissions.
type MeetingAccessMessage struct {
	UID          string   `json:"uid"`
	Organizer    string   `json:"organizer"`
	Participants []string `json:"participants"`
}

// OperationResponse is the reply envelope for every scheduling API
// request/reply subject. ErrorType carries the error category wire name so
// callers can dispatch without parsing the message.
type OperationResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	// Revision is the meeting's KV revision, set on single-meeting reads
	// for optimistic concurrency.
	Revision string `json:"revision,omitempty"`
	Data     any    `json:"data,omitempty"`
}
