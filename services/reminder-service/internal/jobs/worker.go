package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/a-mestre/hilvan/libs/db"
	otelx "github.com/a-mestre/hilvan/libs/otel"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/email"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/outbox"
)

// Worker drains due reminder jobs, sends the email and records the outcome.
// Failed sends are retried with a fixed backoff until max_attempts.
type Worker struct {
	pool      *db.Pool
	repo      *Repository
	outbox    *outbox.Repository
	sender    email.Sender
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	backoff   time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository, sender email.Sender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Minute
	}
	return &Worker{
		pool:      pool,
		repo:      repo,
		outbox:    outboxRepo,
		sender:    sender,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	jobs, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return tx.Commit(ctx)
	}

	var processed []int64
	for _, job := range jobs {
		jobCtx := otelx.ContextWithTraceContext(ctx, job.Traceparent, job.Tracestate)

		sendErr := w.send(job)
		if sendErr != nil {
			attempts := job.Attempts + 1
			w.logger.Warn("reminder send failed",
				"appointment_id", job.AppointmentID, "attempt", attempts, "err", sendErr)
			if err := w.repo.MarkFailed(jobCtx, tx, job.ID, attempts, job.MaxAttempts, time.Now().Add(w.backoff), sendErr.Error()); err != nil {
				return err
			}
			if attempts >= job.MaxAttempts {
				if err := w.recordOutcome(jobCtx, tx, job, outbox.TopicReminderFailed, sendErr.Error()); err != nil {
					return err
				}
			}
			continue
		}

		processed = append(processed, job.ID)
		if err := w.recordOutcome(jobCtx, tx, job, outbox.TopicReminderSent, ""); err != nil {
			return err
		}
	}

	if err := w.repo.MarkProcessed(ctx, tx, processed); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (w *Worker) send(job Job) error {
	if job.Recipient == "" {
		return fmt.Errorf("no recipient on file")
	}
	msg := email.Reminder{
		ClientName: job.ClientName,
		Title:      job.Title,
		StartTime:  job.StartTime,
	}
	return w.sender.Send(job.Recipient, msg.Subject(), msg.Body())
}

func (w *Worker) recordOutcome(ctx context.Context, tx pgx.Tx, job Job, topic string, sendError string) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": job.AppointmentID,
		"owner_id":       job.OwnerID,
		"recipient":      job.Recipient,
		"remind_at":      job.RemindAt.UTC().Format(time.RFC3339),
		"error":          sendError,
	})
	if err != nil {
		return err
	}
	return w.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "reminder_job",
		AggregateID:   job.AppointmentID,
		EventType:     topic,
		Payload:       payload,
	})
}
