// Package memory is an in-process store. Each provider's calendar has its own
// mutex, so transactions for one provider run one at a time while different
// providers proceed in parallel.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store"
)

type Store struct {
	mu         sync.RWMutex
	rules      map[uuid.UUID]domain.WeeklyRule
	exceptions map[uuid.UUID]domain.Exception
	bookings   map[uuid.UUID]domain.Booking

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

var (
	_ store.BookingRepository  = (*Store)(nil)
	_ store.ScheduleRepository = (*Store)(nil)
	_ store.Pinger             = (*Store)(nil)
)

func New() *Store {
	return &Store{
		rules:      make(map[uuid.UUID]domain.WeeklyRule),
		exceptions: make(map[uuid.UUID]domain.Exception),
		bookings:   make(map[uuid.UUID]domain.Booking),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *Store) providerLock(providerID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[providerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[providerID] = l
	}
	return l
}

func (s *Store) InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx store.ProviderTx) error) error {
	l := s.providerLock(providerID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &providerTx{s: s, staged: make(map[uuid.UUID]domain.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

func (s *Store) DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.daySchedule(providerID, day, nil), nil
}

// daySchedule must be called with s.mu held. staged overlays uncommitted writes.
func (s *Store) daySchedule(providerID string, day time.Time, staged map[uuid.UUID]domain.Booking) domain.DaySchedule {
	out := domain.DaySchedule{Date: day}

	for _, r := range s.rules {
		if r.ProviderID == providerID && r.Active && r.DayOfWeek == day.Weekday() {
			out.Rules = append(out.Rules, r)
		}
	}
	sort.Slice(out.Rules, func(i, j int) bool { return out.Rules[i].StartTime < out.Rules[j].StartTime })

	for _, e := range s.exceptions {
		if e.ProviderID == providerID && domain.SameDate(e.Date, day) {
			out.Exceptions = append(out.Exceptions, e)
		}
	}

	dayEnd := day.AddDate(0, 0, 1)
	for _, b := range mergeBookings(s.bookings, staged) {
		if b.ProviderID == providerID && b.Status.Occupies() && b.Overlaps(day, dayEnd) {
			out.Bookings = append(out.Bookings, b)
		}
	}
	sort.Slice(out.Bookings, func(i, j int) bool { return out.Bookings[i].StartAt.Before(out.Bookings[j].StartAt) })

	return out
}

func mergeBookings(committed, staged map[uuid.UUID]domain.Booking) map[uuid.UUID]domain.Booking {
	if len(staged) == 0 {
		return committed
	}
	out := make(map[uuid.UUID]domain.Booking, len(committed)+len(staged))
	for id, b := range committed {
		out[id] = b
	}
	for id, b := range staged {
		out[id] = b
	}
	return out
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var statuses map[domain.BookingStatus]bool
	if len(f.Statuses) > 0 {
		statuses = make(map[domain.BookingStatus]bool, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses[st] = true
		}
	}

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		switch {
		case f.ProviderID != "" && b.ProviderID != f.ProviderID:
			continue
		case f.RequesterID != "" && b.RequesterID != f.RequesterID:
			continue
		case f.ParticipantID != "" && !b.IsParticipant(f.ParticipantID):
			continue
		case statuses != nil && !statuses[b.Status]:
			continue
		case !f.WindowStart.IsZero() && b.StartAt.Before(f.WindowStart):
			continue
		case !f.WindowEnd.IsZero() && !b.StartAt.Before(f.WindowEnd):
			continue
		case f.OnlyUnrated && b.Rating != nil:
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].StartAt.After(out[j].StartAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ProviderStats(ctx context.Context, providerID string) (store.ProviderStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := store.ProviderStats{ProviderID: providerID}
	sum := 0
	for _, b := range s.bookings {
		if b.ProviderID != providerID || b.Status != domain.StatusCompleted {
			continue
		}
		out.Completed++
		if b.Rating != nil {
			out.Rated++
			sum += *b.Rating
		}
	}
	if out.Rated > 0 {
		avg := float64(sum) / float64(out.Rated)
		out.AverageRating = &avg
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.BookingStatus]int)
	for _, b := range s.bookings {
		out[b.Status]++
	}
	return out, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.Status != domain.StatusScheduled || b.ReminderSent {
		return false, nil
	}
	b.ReminderSent = true
	b.UpdatedAt = time.Now().UTC()
	s.bookings[id] = b
	return true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateRule(ctx context.Context, rule domain.WeeklyRule) (domain.WeeklyRule, error) {
	if rule.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.WeeklyRule{}, err
		}
		rule.ID = id
	}
	now := time.Now().UTC()
	rule.CreatedAt, rule.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return rule, nil
}

func (s *Store) ListRules(ctx context.Context, providerID string) ([]domain.WeeklyRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WeeklyRule, 0)
	for _, r := range s.rules {
		if r.ProviderID == providerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *Store) SetRuleActive(ctx context.Context, providerID string, ruleID uuid.UUID, active bool) (domain.WeeklyRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[ruleID]
	if !ok || r.ProviderID != providerID {
		return domain.WeeklyRule{}, store.ErrNotFound
	}
	r.Active = active
	r.UpdatedAt = time.Now().UTC()
	s.rules[ruleID] = r
	return r, nil
}

func (s *Store) CreateException(ctx context.Context, ex domain.Exception) (domain.Exception, error) {
	if ex.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Exception{}, err
		}
		ex.ID = id
	}
	ex.Date = domain.CivilDate(ex.Date)
	ex.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions[ex.ID] = ex
	return ex, nil
}

func (s *Store) ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]domain.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := domain.CivilDate(from), domain.CivilDate(to)
	out := make([]domain.Exception, 0)
	for _, e := range s.exceptions {
		if e.ProviderID != providerID || e.Date.Before(lo) || e.Date.After(hi) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type providerTx struct {
	s      *Store
	staged map[uuid.UUID]domain.Booking
}

func (t *providerTx) DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.daySchedule(providerID, day, t.staged), nil
}

func (t *providerTx) lookup(id uuid.UUID) (domain.Booking, bool) {
	if b, ok := t.staged[id]; ok {
		return b, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[id]
	return b, ok
}

func (t *providerTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.ID != uuid.Nil {
		if existing, ok := t.lookup(b.ID); ok {
			if existing.ProviderID != b.ProviderID ||
				existing.RequesterID != b.RequesterID ||
				!existing.StartAt.Equal(b.StartAt) ||
				existing.DurationMinutes != b.DurationMinutes ||
				existing.Notes != b.Notes {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		}
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, err
		}
		b.ID = id
	}

	t.s.mu.RLock()
	all := mergeBookings(t.s.bookings, t.staged)
	for _, other := range all {
		if other.ProviderID == b.ProviderID && other.Status.Occupies() && other.Overlaps(b.StartAt, b.End()) {
			t.s.mu.RUnlock()
			return domain.Booking{}, store.ErrConflict
		}
	}
	t.s.mu.RUnlock()

	now := time.Now().UTC()
	b.EndAt = b.End()
	b.CreatedAt, b.UpdatedAt = now, now
	t.staged[b.ID] = b
	return b, nil
}

func (t *providerTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, ok := t.lookup(id)
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (t *providerTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if _, ok := t.lookup(b.ID); !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	t.staged[b.ID] = b
	return b, nil
}
