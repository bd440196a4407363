// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
)

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation  ErrorType = iota // Input validation errors (400 Bad Request)
	ErrorTypeNotFound                     // Resource not found errors (404 Not Found)
	ErrorTypeConflict                     // Resource conflict errors (409 Conflict)
	ErrorTypeForbidden                    // Disallowed operations (403 Forbidden)
	ErrorTypeInternal                     // Internal server errors (500 Internal Server Error)
	ErrorTypeUnavailable                  // Service unavailable errors (503 Service Unavailable)
)

// String returns the wire name of the error type, used in responses so
// callers can dispatch on the category without parsing messages.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeForbidden:
		return "forbidden"
	case ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewForbiddenError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeForbidden, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

// Sentinel errors shared across services and repositories. Each carries its
// semantic type so handlers can map it to a response category with
// GetErrorType alone.
var (
	// ErrMeetingNotFound is returned when a meeting UID does not resolve
	// to a stored meeting.
	ErrMeetingNotFound = NewNotFoundError("meeting not found")

	// ErrUserNotFound is returned when a referenced user UID does not
	// exist in the user directory.
	ErrUserNotFound = NewNotFoundError("user not found")

	// ErrInvalidTimeRange is returned when a meeting's end time is not
	// strictly after its start time.
	ErrInvalidTimeRange = NewValidationError("end time must be after start time")

	// ErrPastSchedule is returned when a meeting is created or moved to
	// start in the past.
	ErrPastSchedule = NewValidationError("meeting cannot be scheduled in the past")

	// ErrDurationExceeded is returned when a meeting is longer than the
	// configured maximum duration.
	ErrDurationExceeded = NewValidationError("meeting duration exceeds the maximum allowed")

	// ErrInvalidParticipant is returned when a referenced user is not an
	// active directory user.
	ErrInvalidParticipant = NewValidationError("participant is not a valid active user")

	// ErrForbiddenRemoval is returned when a removal would take the
	// organizer off their own meeting.
	ErrForbiddenRemoval = NewForbiddenError("the organizer cannot be removed from a meeting")

	// ErrNotOrganizer is returned when a mutation is requested by someone
	// other than the meeting's organizer.
	ErrNotOrganizer = NewForbiddenError("only the organizer can modify the meeting")

	// ErrNoParticipantsToRemove is returned when a removal names no users that are
	// actually on the roster.
	ErrNoParticipantsToRemove = NewValidationError("none of the listed users are participants of the meeting")

	// ErrNoParticipantsToAdd is returned when an assignment names only
	// users already on the roster.
	ErrNoParticipantsToAdd = NewValidationError("all listed users are already participants of the meeting")

	// ErrMeetingImmutable is returned when an update targets a meeting
	// whose status no longer accepts changes.
	ErrMeetingImmutable = NewValidationError("meeting is not in a modifiable state")

	// ErrRevisionMismatch is returned when a compare-and-swap write loses
	// to a concurrent update. Callers should re-read and retry.
	ErrRevisionMismatch = NewConflictError("meeting was modified concurrently")

	// ErrMarshal and ErrUnmarshal wrap codec failures in the storage
	// layer.
	ErrMarshal   = NewInternalError("failed to marshal data")
	ErrUnmarshal = NewInternalError("failed to unmarshal data")

	// ErrServiceUnavailable is returned when required infrastructure is
	// not ready to serve requests.
	ErrServiceUnavailable = NewUnavailableError("service is unavailable")

	// ErrValidationFailed is a generic validation failure for malformed
	// requests that have no more specific sentinel.
	ErrValidationFailed = NewValidationError("validation failed")

	// ErrInternal is a generic internal failure.
	ErrInternal = NewInternalError("internal error")
)

// SchedulingConflictError is returned when a create, time update, or
// participant assignment collides with existing commitments and the caller
// did not allow conflicts. It carries the full conflict set so handlers can
// return it to the caller.
type SchedulingConflictError struct {
	Conflicts []models.Conflict
}

func (e *SchedulingConflictError) Error() string {
	uids := make([]string, 0, len(e.Conflicts))
	for _, conflict := range e.Conflicts {
		if conflict.Meeting != nil {
			uids = append(uids, conflict.Meeting.UID)
		}
	}
	return fmt.Sprintf("scheduling conflict with %d meeting(s): %s", len(e.Conflicts), strings.Join(uids, ", "))
}

// As allows GetErrorType to classify scheduling conflicts without a
// dedicated case at each call site.
func (e *SchedulingConflictError) As(target any) bool {
	if domainErr, ok := target.(**DomainError); ok {
		*domainErr = &DomainError{Type: ErrorTypeConflict, Message: e.Error()}
		return true
	}
	return false
}
