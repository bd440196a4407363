// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
)

func TestNatsScheduleIndexGetEntriesEmpty(t *testing.T) {
	index := NewNatsScheduleIndex(newMockNatsKeyValue())

	entries, err := index.GetEntries(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNatsScheduleIndexUpsertAndGet(t *testing.T) {
	index := NewNatsScheduleIndex(newMockNatsKeyValue())
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	entry := models.ScheduleEntry{MeetingUID: "meeting-1", StartTime: start, EndTime: start.Add(time.Hour)}
	require.NoError(t, index.UpsertEntry(ctx, "user-1", entry))

	entries, err := index.GetEntries(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "meeting-1", entries[0].MeetingUID)
	assert.True(t, entries[0].StartTime.Equal(start))
}

func TestNatsScheduleIndexUpsertReplacesByMeetingUID(t *testing.T) {
	index := NewNatsScheduleIndex(newMockNatsKeyValue())
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, index.UpsertEntry(ctx, "user-1", models.ScheduleEntry{
		MeetingUID: "meeting-1", StartTime: start, EndTime: start.Add(time.Hour),
	}))

	// Moving the meeting rewrites the entry rather than adding another.
	moved := start.Add(2 * time.Hour)
	require.NoError(t, index.UpsertEntry(ctx, "user-1", models.ScheduleEntry{
		MeetingUID: "meeting-1", StartTime: moved, EndTime: moved.Add(time.Hour),
	}))

	entries, err := index.GetEntries(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].StartTime.Equal(moved))
}

func TestNatsScheduleIndexRemoveEntry(t *testing.T) {
	index := NewNatsScheduleIndex(newMockNatsKeyValue())
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, index.UpsertEntry(ctx, "user-1", models.ScheduleEntry{
		MeetingUID: "meeting-1", StartTime: start, EndTime: start.Add(time.Hour),
	}))
	require.NoError(t, index.UpsertEntry(ctx, "user-1", models.ScheduleEntry{
		MeetingUID: "meeting-2", StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour),
	}))

	require.NoError(t, index.RemoveEntry(ctx, "user-1", "meeting-1"))

	entries, err := index.GetEntries(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "meeting-2", entries[0].MeetingUID)
}

func TestNatsScheduleIndexRemoveMissingEntryIsNoOp(t *testing.T) {
	index := NewNatsScheduleIndex(newMockNatsKeyValue())

	assert.NoError(t, index.RemoveEntry(context.Background(), "user-1", "meeting-404"))
}

func TestNatsScheduleIndexNotReady(t *testing.T) {
	index := NewNatsScheduleIndex(nil)
	ctx := context.Background()

	_, err := index.GetEntries(ctx, "user-1")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))

	err = index.UpsertEntry(ctx, "user-1", models.ScheduleEntry{MeetingUID: "meeting-1"})
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
