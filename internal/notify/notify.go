// Package notify hands booking lifecycle events to the notification sink.
// Publishing never blocks or fails the operation that produced the event.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/observability/metrics"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.BookingEvent) error
}

// Dispatcher publishes events on a detached goroutine with its own deadline.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.BookingMetrics

	wg sync.WaitGroup
}

func NewDispatcher(pub Publisher, timeout time.Duration, log *slog.Logger, m *metrics.BookingMetrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		pub:     pub,
		timeout: timeout,
		log:     log.With(slog.String("component", "notify.dispatcher")),
		metrics: m,
	}
}

// Dispatch returns immediately. The caller's cancellation does not reach the
// publish; only the dispatcher timeout does.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.BookingEvent) {
	if d == nil || d.pub == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.pub.Publish(ctx, ev); err != nil {
			d.metrics.ObserveNotification(string(ev.Type), "failed")
			d.log.Warn("booking event publish failed",
				slog.String("event_type", string(ev.Type)),
				slog.String("booking_id", ev.BookingID.String()),
				slog.Any("err", err),
			)
			return
		}
		d.metrics.ObserveNotification(string(ev.Type), "published")
	}()
}

// Wait blocks until in-flight publishes finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// LogPublisher records events in the service log. It is the sink used when
// no queue is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(slog.String("component", "notify.log"))}
}

func (p *LogPublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	p.log.InfoContext(ctx, "booking event",
		slog.String("event_type", string(ev.Type)),
		slog.String("booking_id", ev.BookingID.String()),
		slog.String("provider_id", ev.ProviderID),
		slog.String("requester_id", ev.RequesterID),
		slog.Time("start_at", ev.StartAt),
		slog.String("status", string(ev.Status)),
	)
	return nil
}
