package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store"
)

const (
	pgExclusionViolation = "23P01"

	bookingsNoOverlap = "bookings_no_overlap"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type providerTx struct {
	tx bun.Tx
}

func (r *BookingRepo) InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx store.ProviderTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, providerTx{tx: tx})
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID).Exec(ctx)
	return err
}

func (r *BookingRepo) DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
	var out domain.DaySchedule
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		s, err := loadDaySchedule(ctx, tx, providerID, day)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return domain.DaySchedule{}, err
	}
	return out, nil
}

func loadDaySchedule(ctx context.Context, db bun.IDB, providerID string, day time.Time) (domain.DaySchedule, error) {
	out := domain.DaySchedule{Date: day}

	err := db.NewSelect().
		Model(&out.Rules).
		Where("provider_id = ?", providerID).
		Where("day_of_week = ?", int(day.Weekday())).
		Where("active").
		OrderExpr("start_minute ASC").
		Scan(ctx)
	if err != nil {
		return domain.DaySchedule{}, err
	}

	err = db.NewSelect().
		Model(&out.Exceptions).
		Where("provider_id = ?", providerID).
		Where("date = ?", domain.CivilDate(day).Format(time.DateOnly)).
		Scan(ctx)
	if err != nil {
		return domain.DaySchedule{}, err
	}

	err = db.NewSelect().
		Model(&out.Bookings).
		Where("provider_id = ?", providerID).
		Where("status <> ?", domain.StatusCancelled).
		Where("start_at < ?", day.AddDate(0, 0, 1)).
		Where("end_at > ?", day).
		OrderExpr("start_at ASC").
		Scan(ctx)
	if err != nil {
		return domain.DaySchedule{}, err
	}

	return out, nil
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().Model(&b).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) ListBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().Model(&rows)
	if f.ProviderID != "" {
		q = q.Where("provider_id = ?", f.ProviderID)
	}
	if f.RequesterID != "" {
		q = q.Where("requester_id = ?", f.RequesterID)
	}
	if f.ParticipantID != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("provider_id = ?", f.ParticipantID).WhereOr("requester_id = ?", f.ParticipantID)
		})
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(f.Statuses))
	}
	if !f.WindowStart.IsZero() {
		q = q.Where("start_at >= ?", f.WindowStart)
	}
	if !f.WindowEnd.IsZero() {
		q = q.Where("start_at < ?", f.WindowEnd)
	}
	if f.OnlyUnrated {
		q = q.Where("rating IS NULL")
	}
	if f.Ascending {
		q = q.OrderExpr("start_at ASC")
	} else {
		q = q.OrderExpr("start_at DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ProviderStats(ctx context.Context, providerID string) (store.ProviderStats, error) {
	var (
		completed int
		rated     int
		avg       sql.NullFloat64
	)
	err := r.db.NewSelect().
		Model((*domain.Booking)(nil)).
		ColumnExpr("count(*)").
		ColumnExpr("count(rating)").
		ColumnExpr("avg(rating)::float8").
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.StatusCompleted).
		Scan(ctx, &completed, &rated, &avg)
	if err != nil {
		return store.ProviderStats{}, err
	}

	out := store.ProviderStats{ProviderID: providerID, Completed: completed, Rated: rated}
	if avg.Valid {
		v := avg.Float64
		out.AverageRating = &v
	}
	return out, nil
}

type statusCount struct {
	Status domain.BookingStatus `bun:"status"`
	Count  int                  `bun:"count"`
}

func (r *BookingRepo) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	var rows []statusCount
	err := r.db.NewSelect().
		Model((*domain.Booking)(nil)).
		Column("status").
		ColumnExpr("count(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make(map[domain.BookingStatus]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *BookingRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("reminder_sent = TRUE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", domain.StatusScheduled).
		Where("reminder_sent = FALSE").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *BookingRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r providerTx) DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
	return loadDaySchedule(ctx, r.tx, providerID, day)
}

// InsertBooking relies on bookings_no_overlap for the final overlap guard.
// A replayed id is resolved against the stored row instead of failing.
func (r providerTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := r.tx.NewInsert().Model(&m).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == bookingsNoOverlap {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected > 0 {
		return m, nil
	}

	var existing domain.Booking
	err = r.tx.NewSelect().
		Model(&existing).
		Where("id = ?", m.ID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	if !sameBookingRequest(existing, b) {
		return domain.Booking{}, store.ErrIdempotencyConflict
	}
	return existing, nil
}

// sameBookingRequest reports whether a replayed create matches the stored row.
func sameBookingRequest(existing, req domain.Booking) bool {
	return existing.ProviderID == req.ProviderID &&
		existing.RequesterID == req.RequesterID &&
		existing.StartAt.Equal(req.StartAt) &&
		existing.DurationMinutes == req.DurationMinutes &&
		existing.Notes == req.Notes
}

func (r providerTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().Model(&b).Where("id = ?", id).For("UPDATE").Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r providerTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	res, err := r.tx.NewUpdate().
		Model(&b).
		Column("status", "notes", "rating", "feedback", "completed_at", "cancelled_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}
