// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ScheduleEntry is one meeting commitment recorded in a participant's
// schedule index. Entries are stored msgpack-encoded in the schedule KV
// bucket, keyed by participant UID, so that conflict queries only touch the
// schedules of the users being checked rather than scanning every meeting.
//
// The index is written before the meeting record and is allowed to run
// slightly ahead of or behind it: readers re-verify each candidate against
// the authoritative meeting record, so a stale entry can only produce a
// filtered-out false positive, never a missed conflict.
type ScheduleEntry struct {
	MeetingUID string    `msgpack:"meeting_uid"`
	StartTime  time.Time `msgpack:"start_time"`
	EndTime    time.Time `msgpack:"end_time"`
}

// Overlaps reports whether the entry intersects the half-open interval
// [start, end).
func (e ScheduleEntry) Overlaps(start, end time.Time) bool {
	return Overlaps(e.StartTime, e.EndTime, start, end)
}
