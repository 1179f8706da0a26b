package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store"
)

type MessageKind string

const (
	MessageEvent    MessageKind = "event"
	MessageReminder MessageKind = "reminder"
)

type Message struct {
	Kind  MessageKind
	Event domain.BookingEvent
}

// Sink delivers a message to people (email, push, chat). Delivery channels
// live outside this service.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With(slog.String("component", "notify.sink"))}
}

func (s *LogSink) Deliver(ctx context.Context, msg Message) error {
	s.log.InfoContext(ctx, "notification delivered",
		slog.String("kind", string(msg.Kind)),
		slog.String("event_type", string(msg.Event.Type)),
		slog.String("booking_id", msg.Event.BookingID.String()),
		slog.String("provider_id", msg.Event.ProviderID),
		slog.String("requester_id", msg.Event.RequesterID),
	)
	return nil
}

type bookingReader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type Worker struct {
	sink     Sink
	bookings bookingReader
	log      *slog.Logger
}

func NewWorker(sink Sink, bookings bookingReader, log *slog.Logger) *Worker {
	return &Worker{
		sink:     sink,
		bookings: bookings,
		log:      log.With(slog.String("component", "notify.worker")),
	}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeBookingEvent, w.HandleBookingEvent)
	mux.HandleFunc(TypeBookingReminder, w.HandleReminder)
}

func (w *Worker) HandleBookingEvent(ctx context.Context, t *asynq.Task) error {
	var ev domain.BookingEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		w.log.Error("invalid booking event payload", slog.Any("err", err))
		return fmt.Errorf("decode booking event: %v: %w", err, asynq.SkipRetry)
	}
	return w.sink.Deliver(ctx, Message{Kind: MessageEvent, Event: ev})
}

// HandleReminder delivers a reminder only for bookings that are still
// scheduled and have not been reminded yet.
func (w *Worker) HandleReminder(ctx context.Context, t *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.BookingID == uuid.Nil {
		w.log.Error("invalid reminder payload", slog.Any("err", err))
		return fmt.Errorf("decode reminder: %w", asynq.SkipRetry)
	}
	log := w.log.With(slog.String("booking_id", p.BookingID.String()))

	b, err := w.bookings.GetBooking(ctx, p.BookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("reminder for unknown booking dropped")
			return nil
		}
		return err
	}
	if b.Status != domain.StatusScheduled || b.ReminderSent {
		log.Info("reminder skipped", slog.String("status", string(b.Status)), slog.Bool("reminder_sent", b.ReminderSent))
		return nil
	}

	ev := domain.NewBookingEvent(domain.EventBookingCreated, b, b.CreatedAt)
	if err := w.sink.Deliver(ctx, Message{Kind: MessageReminder, Event: ev}); err != nil {
		return err
	}
	if _, err := w.bookings.MarkReminderSent(ctx, b.ID); err != nil {
		return err
	}
	log.Info("reminder delivered")
	return nil
}

type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

func RedisOpt(cfg WorkerConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// RunWorker processes notification tasks until ctx is cancelled.
func RunWorker(ctx context.Context, cfg WorkerConfig, w *Worker) error {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueNotifications: 1,
		},
	})

	mux := asynq.NewServeMux()
	w.Register(mux)

	if err := srv.Start(mux); err != nil {
		return err
	}
	w.log.Info("notification worker started", slog.Int("concurrency", concurrency))
	<-ctx.Done()
	srv.Shutdown()
	w.log.Info("notification worker stopped")
	return nil
}
