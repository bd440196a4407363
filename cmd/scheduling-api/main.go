// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the scheduling service API that schedules meetings with
// conflict detection and handles the scheduling NATS subjects.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/utils"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry SDK")
		os.Exit(1)
	}

	// Set up the JWT validator used to authenticate scheduling API messages.
	jwtAuth, err := setupJWTAuth()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		os.Exit(1)
	}

	// Initialize email service (independent of NATS)
	emailService, err := setupEmailService(env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up email service")
		return
	}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	meetingsKV, schedulesKV, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// Initialize services
	serviceConfig := service.NewServiceConfig()
	serviceConfig.MaxMeetingDuration = env.MaxMeetingDuration
	serviceConfig.PastScheduleGrace = env.PastScheduleGrace
	serviceConfig.SkipEmails = env.SkipEmails

	meetingRepository := store.NewNatsMeetingRepository(meetingsKV, schedulesKV)
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	userDirectory := messaging.NewNatsUserDirectory(natsConn)

	// One lock space for every service that mutates schedules, so a conflict
	// check in one service cannot race a write in another.
	participantLocks := concurrent.NewKeyedMutex()

	meetingService := service.NewMeetingService(
		meetingRepository,
		messageBuilder,
		userDirectory,
		emailService,
		participantLocks,
		serviceConfig,
	)
	participantService := service.NewParticipantService(
		meetingRepository,
		messageBuilder,
		userDirectory,
		emailService,
		participantLocks,
		serviceConfig,
	)

	// Initialize handlers
	schedulingHandler := handlers.NewSchedulingHandler(
		meetingService,
		participantService,
		jwtAuth,
	)

	httpServer := setupHTTPServer(flags, schedulingHandler, &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	err = createNatsSubcriptions(ctx, schedulingHandler, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(ctx, httpServer, natsConn, otelShutdown, &gracefulCloseWG, cancel)
}
