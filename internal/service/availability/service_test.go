package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"consultbook/backend/internal/directory"
	"consultbook/backend/internal/domain"
)

type fakeDays struct {
	dayScheduleFn func(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error)
}

func (f *fakeDays) DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
	if f.dayScheduleFn == nil {
		panic("DaySchedule not configured")
	}
	return f.dayScheduleFn(ctx, providerID, day)
}

type fakeCache struct {
	getFn func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error)
	putFn func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration, slots []time.Time) error
}

func (f *fakeCache) Get(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, providerID, day, slotLength)
}

func (f *fakeCache) Put(ctx context.Context, providerID string, day time.Time, slotLength time.Duration, slots []time.Time) error {
	if f.putFn == nil {
		panic("Put not configured")
	}
	return f.putFn(ctx, providerID, day, slotLength, slots)
}

var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func testDirectory() *directory.Static {
	return directory.NewStatic(
		directory.User{ID: "p1", Role: domain.RoleConsultant},
		directory.User{ID: "m1", Role: domain.RoleMember},
	)
}

func morningSchedule(day time.Time, bookings ...domain.Booking) domain.DaySchedule {
	return domain.DaySchedule{
		Date: day,
		Rules: []domain.WeeklyRule{{
			ProviderID: "p1",
			DayOfWeek:  time.Monday,
			StartTime:  domain.NewClock(9, 0),
			EndTime:    domain.NewClock(12, 0),
			Active:     true,
		}},
		Bookings: bookings,
	}
}

func newService(repo dayReader, cache slotCache) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, testDirectory(), cache, nil, Config{Location: time.UTC, DefaultDuration: time.Hour}, log)
}

func clocks(slots []time.Time) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Format("15:04")
	}
	return out
}

func TestFreeSlotsReadsSnapshotAndFillsCache(t *testing.T) {
	booked := domain.Booking{ProviderID: "p1", StartAt: monday.Add(10 * time.Hour), DurationMinutes: 60, Status: domain.StatusScheduled}
	var gotDay time.Time
	repo := &fakeDays{dayScheduleFn: func(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
		gotDay = day
		return morningSchedule(day, booked), nil
	}}
	var put []time.Time
	cache := &fakeCache{
		getFn: func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error) {
			return nil, false, nil
		},
		putFn: func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration, slots []time.Time) error {
			put = slots
			return nil
		},
	}

	slots, err := newService(repo, cache).FreeSlots(context.Background(), "p1", monday.Add(15*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if !gotDay.Equal(monday) {
		t.Fatalf("snapshot day = %v, want %v", gotDay, monday)
	}
	got := clocks(slots)
	want := []string{"09:00", "11:00"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	if len(put) != 2 {
		t.Fatalf("cached %d slots, want 2", len(put))
	}
}

func TestFreeSlotsServesCacheHit(t *testing.T) {
	cached := []time.Time{monday.Add(9 * time.Hour)}
	cache := &fakeCache{
		getFn: func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error) {
			return cached, true, nil
		},
	}

	slots, err := newService(&fakeDays{}, cache).FreeSlots(context.Background(), "p1", monday, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if len(slots) != 1 || !slots[0].Equal(cached[0]) {
		t.Fatalf("slots = %v, want %v", slots, cached)
	}
}

func TestFreeSlotsFallsBackWhenCacheFails(t *testing.T) {
	repo := &fakeDays{dayScheduleFn: func(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
		return morningSchedule(day), nil
	}}
	cache := &fakeCache{
		getFn: func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error) {
			return nil, false, errors.New("redis down")
		},
		putFn: func(ctx context.Context, providerID string, day time.Time, slotLength time.Duration, slots []time.Time) error {
			return errors.New("redis down")
		},
	}

	slots, err := newService(repo, cache).FreeSlots(context.Background(), "p1", monday, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("slots = %v, want three", clocks(slots))
	}
}

func TestFreeSlotsWithoutCache(t *testing.T) {
	repo := &fakeDays{dayScheduleFn: func(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
		return morningSchedule(day), nil
	}}
	slots, err := newService(repo, nil).FreeSlots(context.Background(), "p1", monday, 0)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("default slot length gave %v, want three hourly slots", clocks(slots))
	}
}

func TestIsAvailable(t *testing.T) {
	booked := domain.Booking{ProviderID: "p1", StartAt: monday.Add(10 * time.Hour), DurationMinutes: 90, Status: domain.StatusScheduled}
	repo := &fakeDays{dayScheduleFn: func(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
		return morningSchedule(day, booked), nil
	}}
	svc := newService(repo, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		at   time.Time
		d    time.Duration
		want bool
	}{
		{name: "free hour", at: monday.Add(9 * time.Hour), d: time.Hour, want: true},
		{name: "overlaps long booking", at: monday.Add(11 * time.Hour), d: 30 * time.Minute, want: false},
		{name: "after booking ends", at: monday.Add(11*time.Hour + 30*time.Minute), d: 30 * time.Minute, want: true},
		{name: "past rule end", at: monday.Add(11*time.Hour + 30*time.Minute), d: time.Hour, want: false},
		{name: "outside rule", at: monday.Add(8 * time.Hour), d: 0, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.IsAvailable(ctx, "p1", tc.at, tc.d)
			if err != nil {
				t.Fatalf("IsAvailable error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsAvailable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRejectsBadInput(t *testing.T) {
	svc := newService(&fakeDays{}, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want domain.ErrorKind
	}{
		{name: "blank provider", call: func() error { _, err := svc.FreeSlots(ctx, " ", monday, time.Hour); return err }, want: domain.KindValidation},
		{name: "sub-minute slot", call: func() error { _, err := svc.FreeSlots(ctx, "p1", monday, 30*time.Second); return err }, want: domain.KindValidation},
		{name: "fractional slot", call: func() error { _, err := svc.FreeSlots(ctx, "p1", monday, 90*time.Second); return err }, want: domain.KindValidation},
		{name: "negative duration", call: func() error { _, err := svc.IsAvailable(ctx, "p1", monday, -time.Hour); return err }, want: domain.KindValidation},
		{name: "zero instant", call: func() error { _, err := svc.IsAvailable(ctx, "p1", time.Time{}, time.Hour); return err }, want: domain.KindValidation},
		{name: "unknown provider", call: func() error { _, err := svc.FreeSlots(ctx, "ghost", monday, time.Hour); return err }, want: domain.KindNotFound},
		{name: "member is not a provider", call: func() error { _, err := svc.IsAvailable(ctx, "m1", monday, time.Hour); return err }, want: domain.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.KindOf(tc.call()); got != tc.want {
				t.Fatalf("kind = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStoreFailureIsInfrastructure(t *testing.T) {
	repo := &fakeDays{dayScheduleFn: func(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error) {
		return domain.DaySchedule{}, errors.New("connection refused")
	}}
	_, err := newService(repo, nil).IsAvailable(context.Background(), "p1", monday.Add(9*time.Hour), time.Hour)
	if !errors.Is(err, domain.ErrInfrastructure) {
		t.Fatalf("err = %v, want infrastructure", err)
	}
}
