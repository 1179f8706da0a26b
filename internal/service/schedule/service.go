// Package schedule manages a provider's weekly rules and dated exceptions.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"consultbook/backend/internal/auth"
	"consultbook/backend/internal/directory"
	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store"
)

const maxExceptionRange = 366 * 24 * time.Hour

type slotInvalidator interface {
	InvalidateDay(ctx context.Context, providerID string, day time.Time) error
	InvalidateProvider(ctx context.Context, providerID string) error
}

type Service struct {
	repo  store.ScheduleRepository
	dir   directory.Directory
	cache slotInvalidator
	loc   *time.Location
	log   *slog.Logger
}

func NewService(repo store.ScheduleRepository, dir directory.Directory, cache slotInvalidator, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:  repo,
		dir:   dir,
		cache: cache,
		loc:   loc,
		log:   log.With(slog.String("component", "service.schedule")),
	}
}

// DefaultWindows is the availability seeded for a new provider on every
// weekday from Monday to Friday.
var DefaultWindows = [][2]domain.Clock{
	{domain.NewClock(9, 0), domain.NewClock(12, 0)},
	{domain.NewClock(13, 30), domain.NewClock(17, 0)},
}

type CreateRuleInput struct {
	ProviderID string
	DayOfWeek  time.Weekday
	StartTime  domain.Clock
	EndTime    domain.Clock
}

func (s *Service) CreateWeeklyRule(ctx context.Context, actor auth.Identity, in CreateRuleInput) (domain.WeeklyRule, error) {
	rule := domain.WeeklyRule{
		ProviderID: strings.TrimSpace(in.ProviderID),
		DayOfWeek:  in.DayOfWeek,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Active:     true,
	}
	if err := rule.Validate(); err != nil {
		return domain.WeeklyRule{}, err
	}
	if err := s.authorizeProviderWrite(ctx, actor, rule.ProviderID); err != nil {
		return domain.WeeklyRule{}, err
	}

	out, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return domain.WeeklyRule{}, domain.Infrastructure(err)
	}
	s.invalidateProvider(ctx, rule.ProviderID)
	s.log.Info("weekly rule created",
		slog.String("provider_id", out.ProviderID),
		slog.Int("day_of_week", int(out.DayOfWeek)),
		slog.String("start", out.StartTime.String()),
		slog.String("end", out.EndTime.String()),
	)
	return out, nil
}

// ListWeeklyRules returns every rule of the provider, active or not, ordered
// by weekday then start time.
func (s *Service) ListWeeklyRules(ctx context.Context, providerID string) ([]domain.WeeklyRule, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Validation("provider_id is required")
	}
	rules, err := s.repo.ListRules(ctx, providerID)
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	return rules, nil
}

// SetWeeklyRuleActive toggles a rule. Rules are never deleted.
func (s *Service) SetWeeklyRuleActive(ctx context.Context, actor auth.Identity, providerID string, ruleID uuid.UUID, active bool) (domain.WeeklyRule, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return domain.WeeklyRule{}, domain.Validation("provider_id is required")
	}
	if ruleID == uuid.Nil {
		return domain.WeeklyRule{}, domain.Validation("rule_id is required")
	}
	if err := s.authorizeProviderWrite(ctx, actor, providerID); err != nil {
		return domain.WeeklyRule{}, err
	}

	rule, err := s.repo.SetRuleActive(ctx, providerID, ruleID, active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.WeeklyRule{}, domain.NotFound("weekly rule not found")
		}
		return domain.WeeklyRule{}, domain.Infrastructure(err)
	}
	s.invalidateProvider(ctx, providerID)
	return rule, nil
}

type AddExceptionInput struct {
	ProviderID string
	// Date is read as a calendar date; its clock and location are ignored.
	Date      time.Time
	Kind      domain.ExceptionKind
	StartTime *domain.Clock
	EndTime   *domain.Clock
	Reason    string
}

func (s *Service) AddException(ctx context.Context, actor auth.Identity, in AddExceptionInput) (domain.Exception, error) {
	ex := domain.Exception{
		ProviderID: strings.TrimSpace(in.ProviderID),
		Kind:       in.Kind,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Reason:     strings.TrimSpace(in.Reason),
	}
	if !in.Date.IsZero() {
		ex.Date = domain.CivilDate(in.Date)
	}
	if err := ex.Validate(); err != nil {
		return domain.Exception{}, err
	}
	if len(ex.Reason) > 500 {
		return domain.Exception{}, domain.Validation("reason too long")
	}
	if err := s.authorizeProviderWrite(ctx, actor, ex.ProviderID); err != nil {
		return domain.Exception{}, err
	}

	out, err := s.repo.CreateException(ctx, ex)
	if err != nil {
		return domain.Exception{}, domain.Infrastructure(err)
	}
	y, m, d := ex.Date.Date()
	s.invalidateDay(ctx, ex.ProviderID, time.Date(y, m, d, 0, 0, 0, 0, s.loc))
	s.log.Info("availability exception added",
		slog.String("provider_id", out.ProviderID),
		slog.String("date", out.Date.Format(time.DateOnly)),
		slog.String("kind", string(out.Kind)),
	)
	return out, nil
}

// ListExceptions returns exceptions dated from..to inclusive.
func (s *Service) ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]domain.Exception, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Validation("provider_id is required")
	}
	lo, hi := domain.CivilDate(from), domain.CivilDate(to)
	if hi.Before(lo) {
		return nil, domain.Validation("to must not be before from")
	}
	if hi.Sub(lo) > maxExceptionRange {
		return nil, domain.Validation("date range too long")
	}
	out, err := s.repo.ListExceptions(ctx, providerID, lo, hi)
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	return out, nil
}

// SeedDefaultAvailability gives a provider without any rules the default
// Monday to Friday schedule. Providers that already have rules are left alone.
func (s *Service) SeedDefaultAvailability(ctx context.Context, providerID string) ([]domain.WeeklyRule, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Validation("provider_id is required")
	}
	if err := s.requireProvider(ctx, providerID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListRules(ctx, providerID)
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	out := make([]domain.WeeklyRule, 0, 5*len(DefaultWindows))
	for day := time.Monday; day <= time.Friday; day++ {
		for _, w := range DefaultWindows {
			rule, err := s.repo.CreateRule(ctx, domain.WeeklyRule{
				ProviderID: providerID,
				DayOfWeek:  day,
				StartTime:  w[0],
				EndTime:    w[1],
				Active:     true,
			})
			if err != nil {
				return nil, domain.Infrastructure(err)
			}
			out = append(out, rule)
		}
	}
	s.invalidateProvider(ctx, providerID)
	s.log.Info("default availability seeded", slog.String("provider_id", providerID), slog.Int("rules", len(out)))
	return out, nil
}

func (s *Service) requireProvider(ctx context.Context, providerID string) error {
	u, err := s.dir.Lookup(ctx, providerID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return domain.NotFound("provider not found")
		}
		return domain.Infrastructure(err)
	}
	if u.Role != domain.RoleConsultant {
		return domain.NotFound("provider not found")
	}
	return nil
}

// authorizeProviderWrite allows the provider themself or an admin.
func (s *Service) authorizeProviderWrite(ctx context.Context, actor auth.Identity, providerID string) error {
	if !actor.IsAdmin() && actor.UserID != providerID {
		return domain.NewError(domain.KindUnauthorized, "only the provider or an admin may change availability")
	}
	return s.requireProvider(ctx, providerID)
}

func (s *Service) invalidateProvider(ctx context.Context, providerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProvider(ctx, providerID); err != nil {
		s.log.Warn("slot cache invalidation failed", slog.String("provider_id", providerID), slog.Any("err", err))
	}
}

func (s *Service) invalidateDay(ctx context.Context, providerID string, day time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDay(ctx, providerID, day); err != nil {
		s.log.Warn("slot cache invalidation failed", slog.String("provider_id", providerID), slog.Any("err", err))
	}
}
