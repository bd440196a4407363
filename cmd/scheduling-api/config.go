// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/email"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/constants"
)

// flags are the command line flags for the scheduling service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the scheduling service.
type environment struct {
	Port               string
	NatsURL            string
	MaxMeetingDuration time.Duration
	PastScheduleGrace  time.Duration
	SkipEmails         bool
	SMTP               email.SMTPConfig
}

// parseFlags parses command line flags for the scheduling service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the scheduling service
func parseEnv() environment {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://lfx-platform-nats.lfx.svc.cluster.local:4222"
	}

	return environment{
		Port:               port,
		NatsURL:            natsURL,
		MaxMeetingDuration: parseDurationEnv("MAX_MEETING_DURATION", constants.DefaultMaxMeetingDuration),
		PastScheduleGrace:  parseDurationEnv("PAST_SCHEDULE_GRACE", constants.DefaultPastScheduleGrace),
		SkipEmails:         os.Getenv("SKIP_EMAILS") == "true",
		SMTP:               parseSMTPConfig(),
	}
}

// parseDurationEnv parses a duration environment variable, falling back to
// the default when unset or invalid.
func parseDurationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	duration, err := time.ParseDuration(raw)
	if err != nil || duration < 0 {
		slog.With(logging.ErrKey, err, "env", name, "value", raw).Error("invalid duration, using default")
		return fallback
	}
	return duration
}

// parseSMTPConfig parses SMTP configuration from environment variables. An
// empty host means emails are disabled and the no-op sender is used.
func parseSMTPConfig() email.SMTPConfig {
	port := 587
	if rawPort := os.Getenv("SMTP_PORT"); rawPort != "" {
		parsed, err := strconv.Atoi(rawPort)
		if err != nil {
			slog.With(logging.ErrKey, err, "value", rawPort).Error("invalid SMTP_PORT, using default")
		} else {
			port = parsed
		}
	}

	return email.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		From:     os.Getenv("SMTP_FROM"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
}
