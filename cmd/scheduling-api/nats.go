// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
)

// gracefulShutdownSeconds should be set longer than the NATS
// request-response timeouts used by the handlers.
const gracefulShutdownSeconds = 25

// setupNATS connects to NATS with reconnection handling. A permanently
// closed connection signals the done channel so the process can exit.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).InfoContext(ctx, "NATS connection established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).ErrorContext(ctx, "async NATS error inside subscription")
			} else {
				slog.With(logging.ErrKey, err).ErrorContext(ctx, "async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			slog.With(logging.ErrKey, conn.LastError()).WarnContext(ctx, "NATS connection closed")
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	gracefulCloseWG.Add(1)
	return natsConn, nil
}

// getKeyValueStores fetches (creating on first run) the JetStream KV buckets
// backing the meeting repository.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (jetstream.KeyValue, jetstream.KeyValue, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, nil, err
	}

	meetingsKV, err := ensureKeyValueBucket(ctx, js, store.KVStoreNameMeetings)
	if err != nil {
		return nil, nil, err
	}

	schedulesKV, err := ensureKeyValueBucket(ctx, js, store.KVStoreNameSchedules)
	if err != nil {
		return nil, nil, err
	}

	return meetingsKV, schedulesKV, nil
}

func ensureKeyValueBucket(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if err == nil {
		return kv, nil
	}
	if errors.Is(err, jetstream.ErrBucketExists) {
		return js.KeyValue(ctx, bucket)
	}
	return nil, err
}

// createNatsSubcriptions subscribes the handler to every scheduling API
// subject under a shared queue group.
func createNatsSubcriptions(ctx context.Context, handler domain.MessageHandler, natsConn *nats.Conn) error {
	subjects := []string{
		models.MeetingCreateSubject,
		models.MeetingUpdateSubject,
		models.MeetingCancelSubject,
		models.MeetingDeleteSubject,
		models.MeetingGetSubject,
		models.MeetingListSubject,
		models.ParticipantAssignSubject,
		models.ParticipantRemoveSubject,
		models.ConflictCheckSubject,
	}

	for _, subject := range subjects {
		_, err := natsConn.QueueSubscribe(subject, models.SchedulingAPIQueue, func(msg *nats.Msg) {
			handler.HandleMessage(ctx, messaging.NewNatsMessage(msg))
		})
		if err != nil {
			slog.With(logging.ErrKey, err, "subject", subject).ErrorContext(ctx, "error subscribing to NATS subject")
			return err
		}
		slog.With("subject", subject, "queue", models.SchedulingAPIQueue).DebugContext(ctx, "subscribed to NATS subject")
	}

	return nil
}

// gracefulShutdown drains the NATS connection, stops the HTTP server, and
// flushes the telemetry pipelines.
func gracefulShutdown(
	ctx context.Context,
	httpServer *http.Server,
	natsConn *nats.Conn,
	otelShutdown func(context.Context) error,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
) {
	slog.InfoContext(ctx, "shutting down scheduling service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.With(logging.ErrKey, err).ErrorContext(ctx, "error shutting down http server")
	}
	gracefulCloseWG.Done()

	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).ErrorContext(ctx, "error draining NATS connection")
		}
		gracefulCloseWG.Done()
	}

	cancel()
	gracefulCloseWG.Wait()

	if err := otelShutdown(shutdownCtx); err != nil {
		slog.With(logging.ErrKey, err).ErrorContext(ctx, "error shutting down OpenTelemetry SDK")
	}
}
