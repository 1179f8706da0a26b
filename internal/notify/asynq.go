package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"consultbook/backend/internal/domain"
)

const (
	TypeBookingEvent    = "booking:event"
	TypeBookingReminder = "booking:reminder"

	QueueNotifications = "notifications"
)

type ReminderPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqPublisher enqueues every event for delivery and, for new bookings,
// schedules a reminder ahead of the start time.
type AsynqPublisher struct {
	client       enqueuer
	reminderLead time.Duration
	now          func() time.Time
}

func NewAsynqPublisher(client *asynq.Client, reminderLead time.Duration) *AsynqPublisher {
	return &AsynqPublisher{client: client, reminderLead: reminderLead, now: time.Now}
}

func (p *AsynqPublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx,
		asynq.NewTask(TypeBookingEvent, payload),
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}

	if ev.Type != domain.EventBookingCreated || p.reminderLead <= 0 {
		return nil
	}
	fireAt := ev.StartAt.Add(-p.reminderLead)
	if !fireAt.After(p.now()) {
		return nil
	}

	reminder, err := json.Marshal(ReminderPayload{BookingID: ev.BookingID})
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx,
		asynq.NewTask(TypeBookingReminder, reminder),
		asynq.Queue(QueueNotifications),
		asynq.ProcessAt(fireAt),
		asynq.TaskID("reminder:"+ev.BookingID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
