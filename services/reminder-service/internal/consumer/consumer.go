package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/a-mestre/hilvan/libs/kafkax"
	"github.com/a-mestre/hilvan/services/reminder-service/internal/inbox"
)

// AppointmentCreated is the booking event this service subscribes to. The
// client contact rides along so no call back into the studio API is needed.
type AppointmentCreated struct {
	AppointmentID string `json:"appointment_id"`
	OwnerID       string `json:"owner_id"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	Title         string `json:"title"`
	StartTime     string `json:"start_time"`
}

type Handler func(ctx context.Context, ev AppointmentCreated) error

type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	inbox   *inbox.Repository
	handler Handler
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inboxRepo,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
		ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)

		meta := kafkax.ExtractEventMeta(msg)

		ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox record failed", "err", err)
			span.RecordError(err)
			span.End()
			continue
		}
		if !ok {
			c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			span.End()
			continue
		}

		ev, err := parseEvent(msg.Value)
		if err != nil {
			// Malformed events are dropped; the inbox row keeps them from
			// being retried forever.
			c.logger.Error("malformed appointment event", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			span.End()
			continue
		}

		if err := c.handler(ctxSpan, ev); err != nil {
			c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			span.End()
			continue
		}
		span.End()
	}
}

func parseEvent(value []byte) (AppointmentCreated, error) {
	var ev AppointmentCreated
	if err := json.Unmarshal(value, &ev); err != nil {
		return AppointmentCreated{}, err
	}
	if ev.AppointmentID == "" || ev.StartTime == "" {
		return AppointmentCreated{}, errors.New("missing appointment fields")
	}
	return ev, nil
}
