// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
)

// casRetries is how many times an index write retries after losing a
// compare-and-swap race before giving up.
const casRetries = 5

// NatsScheduleIndex maintains the per-participant schedule index: one KV key
// per user UID, whose value is the msgpack-encoded list of that user's
// meeting commitments. The index exists so conflict queries read only the
// schedules of the users being checked.
//
// Entries are written before the meeting record they describe, so the index
// may momentarily reference meetings that are not (or no longer) stored.
// Readers must re-verify candidates against the meeting record.
type NatsScheduleIndex struct {
	Schedules INatsKeyValue
}

// NewNatsScheduleIndex creates a new schedule index over the given KV bucket.
func NewNatsScheduleIndex(schedules INatsKeyValue) *NatsScheduleIndex {
	return &NatsScheduleIndex{
		Schedules: schedules,
	}
}

// IsReady checks if the index is ready for use
func (s *NatsScheduleIndex) IsReady() bool {
	return s.Schedules != nil
}

// GetEntries returns the schedule entries for one user. A user with no
// schedule yet yields an empty slice, not an error.
func (s *NatsScheduleIndex) GetEntries(ctx context.Context, userUID string) ([]models.ScheduleEntry, error) {
	entries, _, err := s.getEntriesWithRevision(ctx, userUID)
	return entries, err
}

func (s *NatsScheduleIndex) getEntriesWithRevision(ctx context.Context, userUID string) ([]models.ScheduleEntry, uint64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "get"),
			attribute.String("db.nats.key", userUID),
			attribute.String("db.nats.entity", "schedule"),
		),
	)
	defer span.End()

	if !s.IsReady() {
		err := domain.NewUnavailableError("schedule index is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	entry, err := s.Schedules.Get(ctx, userUID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			span.SetStatus(codes.Ok, "")
			return []models.ScheduleEntry{}, 0, nil
		}
		slog.ErrorContext(ctx, "error getting schedule from NATS KV",
			logging.ErrKey, err, "user_uid", userUID)
		err = domain.NewInternalError("failed to retrieve schedule from store", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	var entries []models.ScheduleEntry
	if err := msgpack.Unmarshal(entry.Value(), &entries); err != nil {
		slog.ErrorContext(ctx, "error unmarshaling schedule",
			logging.ErrKey, err, "user_uid", userUID)
		err = domain.NewInternalError("failed to unmarshal schedule data", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("db.nats.entries_count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, entry.Revision(), nil
}

// UpsertEntry records or refreshes one meeting commitment on a user's
// schedule, retrying on compare-and-swap races with concurrent writers to
// the same user.
func (s *NatsScheduleIndex) UpsertEntry(ctx context.Context, userUID string, entry models.ScheduleEntry) error {
	return s.mutateEntries(ctx, userUID, func(entries []models.ScheduleEntry) []models.ScheduleEntry {
		for i := range entries {
			if entries[i].MeetingUID == entry.MeetingUID {
				entries[i] = entry
				return entries
			}
		}
		return append(entries, entry)
	})
}

// RemoveEntry drops one meeting commitment from a user's schedule. Removing
// an entry that is not present is a no-op.
func (s *NatsScheduleIndex) RemoveEntry(ctx context.Context, userUID string, meetingUID string) error {
	return s.mutateEntries(ctx, userUID, func(entries []models.ScheduleEntry) []models.ScheduleEntry {
		filtered := entries[:0]
		for _, e := range entries {
			if e.MeetingUID != meetingUID {
				filtered = append(filtered, e)
			}
		}
		return filtered
	})
}

// mutateEntries applies a read-modify-write to one user's schedule under
// revision CAS, retrying when a concurrent writer wins the race.
func (s *NatsScheduleIndex) mutateEntries(ctx context.Context, userUID string, mutate func([]models.ScheduleEntry) []models.ScheduleEntry) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.update",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "update"),
			attribute.String("db.nats.key", userUID),
			attribute.String("db.nats.entity", "schedule"),
		),
	)
	defer span.End()

	if !s.IsReady() {
		err := domain.NewUnavailableError("schedule index is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		entries, revision, err := s.getEntriesWithRevision(ctx, userUID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		data, err := msgpack.Marshal(mutate(entries))
		if err != nil {
			slog.ErrorContext(ctx, "error marshaling schedule",
				logging.ErrKey, err, "user_uid", userUID)
			err = domain.NewInternalError("failed to marshal schedule data", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		if revision == 0 {
			// No schedule for this user yet. Create fails if another
			// writer beat us to the first write.
			_, err = s.Schedules.Create(ctx, userUID, data)
		} else {
			_, err = s.Schedules.Update(ctx, userUID, data, revision)
		}
		if err == nil {
			span.SetAttributes(attribute.Int("db.nats.cas_attempts", attempt+1))
			span.SetStatus(codes.Ok, "")
			return nil
		}

		lastErr = err
		if errors.Is(err, jetstream.ErrKeyExists) || strings.Contains(err.Error(), "wrong last sequence") {
			continue
		}

		slog.ErrorContext(ctx, "error updating schedule in NATS KV",
			logging.ErrKey, err, "user_uid", userUID, "revision", revision)
		err = domain.NewInternalError("failed to update schedule in store", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err := domain.NewConflictError("schedule is being modified concurrently", lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "conflict")
	return err
}
