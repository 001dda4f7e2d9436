package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/a-mestre/hilvan/libs/config"
	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/libs/httpx"
	"github.com/a-mestre/hilvan/libs/kafkax"
	otelx "github.com/a-mestre/hilvan/libs/otel"
	"github.com/a-mestre/hilvan/libs/runtime"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/consumer"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/email"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/inbox"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/jobs"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/outbox"
)

func parseReminderOffsets(raw string, logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour}
	}
	return offsets
}

func main() {
	service := config.String("SERVICE_NAME", "reminder-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	jobRepo := jobs.NewRepository()
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	sender := email.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", ""),
	)
	jobWorker := jobs.NewWorker(pool, jobRepo, outboxRepo, sender, logger, jobs.WorkerConfig{
		Interval:  5 * time.Second,
		BatchSize: 50,
		Backoff:   time.Duration(config.Int("REMINDER_BACKOFF_SECONDS", 60)) * time.Second,
	})
	go jobWorker.Run(ctx)

	offsets := parseReminderOffsets(config.String("REMINDER_OFFSETS_MINUTES", "1440,60"), logger)

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "reminder-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "studio.appointment.created.v1"),
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, ev consumer.AppointmentCreated) error {
		if ev.ClientEmail == "" {
			logger.Info("client has no email, skipping reminders", "appointment_id", ev.AppointmentID)
			return nil
		}
		startTime, err := time.Parse(time.RFC3339, ev.StartTime)
		if err != nil {
			logger.Error("invalid start_time", "err", err)
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		now := time.Now()
		for _, offset := range offsets {
			remindAt := startTime.Add(-offset)
			if remindAt.Before(now) {
				// Short-notice bookings get no reminder for offsets already past.
				continue
			}
			if err := jobRepo.Insert(ctx, tx, jobs.Job{
				IdempotencyKey: ev.AppointmentID + "|" + remindAt.UTC().Format(time.RFC3339),
				AppointmentID:  ev.AppointmentID,
				OwnerID:        ev.OwnerID,
				Recipient:      ev.ClientEmail,
				ClientName:     ev.ClientName,
				Title:          ev.Title,
				StartTime:      startTime,
				RemindAt:       remindAt,
			}); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "reminder")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
