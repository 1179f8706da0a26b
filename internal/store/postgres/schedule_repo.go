package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) CreateRule(ctx context.Context, rule domain.WeeklyRule) (domain.WeeklyRule, error) {
	if _, err := r.db.NewInsert().Model(&rule).Exec(ctx); err != nil {
		return domain.WeeklyRule{}, err
	}
	return rule, nil
}

func (r *ScheduleRepo) ListRules(ctx context.Context, providerID string) ([]domain.WeeklyRule, error) {
	var rows []domain.WeeklyRule
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		OrderExpr("day_of_week ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) SetRuleActive(ctx context.Context, providerID string, ruleID uuid.UUID, active bool) (domain.WeeklyRule, error) {
	m := domain.WeeklyRule{Active: active}
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("active", "updated_at").
		Where("id = ?", ruleID).
		Where("provider_id = ?", providerID).
		Exec(ctx)
	if err != nil {
		return domain.WeeklyRule{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WeeklyRule{}, err
	}
	if affected == 0 {
		return domain.WeeklyRule{}, store.ErrNotFound
	}

	var out domain.WeeklyRule
	if err := r.db.NewSelect().Model(&out).Where("id = ?", ruleID).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WeeklyRule{}, store.ErrNotFound
		}
		return domain.WeeklyRule{}, err
	}
	return out, nil
}

func (r *ScheduleRepo) CreateException(ctx context.Context, ex domain.Exception) (domain.Exception, error) {
	ex.Date = domain.CivilDate(ex.Date)
	if _, err := r.db.NewInsert().Model(&ex).Exec(ctx); err != nil {
		return domain.Exception{}, err
	}
	return ex, nil
}

func (r *ScheduleRepo) ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]domain.Exception, error) {
	var rows []domain.Exception
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("date >= ?", domain.CivilDate(from).Format(time.DateOnly)).
		Where("date <= ?", domain.CivilDate(to).Format(time.DateOnly)).
		OrderExpr("date ASC, start_minute ASC NULLS FIRST").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
