package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"consultbook/backend/internal/auth"
	"consultbook/backend/internal/directory"
	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store/memory"
)

type fakeInvalidator struct {
	days      []string
	providers []string
}

func (f *fakeInvalidator) InvalidateDay(ctx context.Context, providerID string, day time.Time) error {
	f.days = append(f.days, providerID+"@"+day.Format(time.DateOnly))
	return nil
}

func (f *fakeInvalidator) InvalidateProvider(ctx context.Context, providerID string) error {
	f.providers = append(f.providers, providerID)
	return nil
}

var (
	consultant = auth.Identity{UserID: "c1", Role: domain.RoleConsultant}
	member     = auth.Identity{UserID: "m1", Role: domain.RoleMember}
	admin      = auth.Identity{UserID: "a1", Role: domain.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeInvalidator) {
	t.Helper()
	repo := memory.New()
	dir := directory.NewStatic(
		directory.User{ID: "c1", Role: domain.RoleConsultant},
		directory.User{ID: "c2", Role: domain.RoleConsultant},
		directory.User{ID: "m1", Role: domain.RoleMember},
		directory.User{ID: "a1", Role: domain.RoleAdmin},
	)
	inv := &fakeInvalidator{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, dir, inv, time.UTC, log), repo, inv
}

func TestCreateWeeklyRule(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	rule, err := svc.CreateWeeklyRule(ctx, consultant, CreateRuleInput{
		ProviderID: "c1",
		DayOfWeek:  time.Monday,
		StartTime:  domain.NewClock(9, 0),
		EndTime:    domain.NewClock(12, 0),
	})
	if err != nil {
		t.Fatalf("CreateWeeklyRule error: %v", err)
	}
	if rule.ID == uuid.Nil || !rule.Active {
		t.Fatalf("rule = %+v, want id and active", rule)
	}
	if len(inv.providers) != 1 || inv.providers[0] != "c1" {
		t.Fatalf("invalidated providers = %v", inv.providers)
	}
}

func TestCreateWeeklyRuleRejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	valid := CreateRuleInput{ProviderID: "c1", DayOfWeek: time.Monday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(12, 0)}

	cases := []struct {
		name  string
		actor auth.Identity
		in    CreateRuleInput
		want  domain.ErrorKind
	}{
		{name: "other consultant", actor: auth.Identity{UserID: "c2", Role: domain.RoleConsultant}, in: valid, want: domain.KindUnauthorized},
		{name: "member", actor: member, in: valid, want: domain.KindUnauthorized},
		{name: "inverted window", actor: consultant, in: CreateRuleInput{ProviderID: "c1", DayOfWeek: time.Monday, StartTime: domain.NewClock(12, 0), EndTime: domain.NewClock(9, 0)}, want: domain.KindValidation},
		{name: "provider is not a consultant", actor: admin, in: CreateRuleInput{ProviderID: "m1", DayOfWeek: time.Monday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(12, 0)}, want: domain.KindNotFound},
		{name: "unknown provider", actor: admin, in: CreateRuleInput{ProviderID: "ghost", DayOfWeek: time.Monday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(12, 0)}, want: domain.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateWeeklyRule(ctx, tc.actor, tc.in)
			if domain.KindOf(err) != tc.want {
				t.Fatalf("kind = %v (err %v), want %v", domain.KindOf(err), err, tc.want)
			}
		})
	}
}

func TestAdminMayWriteForProvider(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateWeeklyRule(context.Background(), admin, CreateRuleInput{
		ProviderID: "c1", DayOfWeek: time.Friday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(10, 0),
	})
	if err != nil {
		t.Fatalf("admin CreateWeeklyRule error: %v", err)
	}
}

func TestSetWeeklyRuleActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	rule, err := svc.CreateWeeklyRule(ctx, consultant, CreateRuleInput{ProviderID: "c1", DayOfWeek: time.Monday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(12, 0)})
	if err != nil {
		t.Fatalf("CreateWeeklyRule error: %v", err)
	}

	off, err := svc.SetWeeklyRuleActive(ctx, consultant, "c1", rule.ID, false)
	if err != nil || off.Active {
		t.Fatalf("SetWeeklyRuleActive = %+v, %v", off, err)
	}

	rules, err := svc.ListWeeklyRules(ctx, "c1")
	if err != nil || len(rules) != 1 || rules[0].Active {
		t.Fatalf("ListWeeklyRules = %+v, %v; want one inactive rule", rules, err)
	}

	_, err = svc.SetWeeklyRuleActive(ctx, consultant, "c1", uuid.MustParse("00000000-0000-0000-0000-0000000000ff"), true)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown rule err = %v, want not found", err)
	}
}

func TestListWeeklyRulesOrdered(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, in := range []CreateRuleInput{
		{ProviderID: "c1", DayOfWeek: time.Wednesday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(10, 0)},
		{ProviderID: "c1", DayOfWeek: time.Monday, StartTime: domain.NewClock(14, 0), EndTime: domain.NewClock(15, 0)},
		{ProviderID: "c1", DayOfWeek: time.Monday, StartTime: domain.NewClock(9, 0), EndTime: domain.NewClock(10, 0)},
	} {
		if _, err := svc.CreateWeeklyRule(ctx, consultant, in); err != nil {
			t.Fatalf("CreateWeeklyRule error: %v", err)
		}
	}

	rules, err := svc.ListWeeklyRules(ctx, "c1")
	if err != nil {
		t.Fatalf("ListWeeklyRules error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("len(rules) = %d, want 3", len(rules))
	}
	if rules[0].DayOfWeek != time.Monday || rules[0].StartTime != domain.NewClock(9, 0) ||
		rules[1].StartTime != domain.NewClock(14, 0) || rules[2].DayOfWeek != time.Wednesday {
		t.Fatalf("rules not ordered: %+v", rules)
	}

	if _, err := svc.ListWeeklyRules(ctx, " "); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("empty provider kind = %v, want validation", domain.KindOf(err))
	}
}

func TestAddExceptionInvalidatesDay(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()
	start, end := domain.NewClock(10, 0), domain.NewClock(11, 0)

	ex, err := svc.AddException(ctx, consultant, AddExceptionInput{
		ProviderID: "c1",
		Date:       time.Date(2026, 1, 5, 15, 0, 0, 0, time.FixedZone("X", -5*3600)),
		Kind:       domain.ExceptionBusy,
		StartTime:  &start,
		EndTime:    &end,
		Reason:     " dentist ",
	})
	if err != nil {
		t.Fatalf("AddException error: %v", err)
	}
	if ex.Date.Format(time.DateOnly) != "2026-01-05" || ex.Reason != "dentist" {
		t.Fatalf("exception = %+v", ex)
	}
	if len(inv.days) != 1 || inv.days[0] != "c1@2026-01-05" {
		t.Fatalf("invalidated days = %v", inv.days)
	}

	list, err := svc.ListExceptions(ctx, "c1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil || len(list) != 1 {
		t.Fatalf("ListExceptions = %v, %v", list, err)
	}
}

func TestAddExceptionRejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	if _, err := svc.AddException(ctx, consultant, AddExceptionInput{ProviderID: "c1", Date: day, Kind: domain.ExceptionBusy}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("busy without times kind = %v", domain.KindOf(err))
	}
	if _, err := svc.AddException(ctx, member, AddExceptionInput{ProviderID: "c1", Date: day, Kind: domain.ExceptionUnavailable}); domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("member kind = %v", domain.KindOf(err))
	}
	if _, err := svc.ListExceptions(ctx, "c1", day, day.AddDate(0, 0, -1)); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("inverted range kind = %v", domain.KindOf(err))
	}
}

func TestSeedDefaultAvailability(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rules, err := svc.SeedDefaultAvailability(ctx, "c1")
	if err != nil {
		t.Fatalf("SeedDefaultAvailability error: %v", err)
	}
	if len(rules) != 10 {
		t.Fatalf("seeded %d rules, want 10", len(rules))
	}
	for _, r := range rules {
		if r.DayOfWeek == time.Saturday || r.DayOfWeek == time.Sunday {
			t.Fatalf("weekend rule seeded: %+v", r)
		}
	}

	again, err := svc.SeedDefaultAvailability(ctx, "c1")
	if err != nil || len(again) != 10 {
		t.Fatalf("second seed = %d rules, %v; want existing 10", len(again), err)
	}

	if _, err := svc.SeedDefaultAvailability(ctx, "m1"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("seed for member kind = %v, want not found", domain.KindOf(err))
	}
}
