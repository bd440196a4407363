// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Scheduling rule defaults. Both values are business rules that can be
// overridden through the environment (see cmd/scheduling-api/config.go).
const (
	// DefaultMaxMeetingDuration is the maximum length of a single meeting.
	DefaultMaxMeetingDuration = 8 * time.Hour

	// DefaultPastScheduleGrace is how far in the past a meeting start time
	// is tolerated before creation is rejected. A small grace absorbs clock
	// skew between the request layer and this service.
	DefaultPastScheduleGrace = 0 * time.Second
)

// ConflictLookupBatchSize is the number of candidate meetings loaded
// concurrently when materializing a conflict query result.
const ConflictLookupBatchSize = 10
