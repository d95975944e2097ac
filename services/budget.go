package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LovationAdmin/finance-api/events"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/repository"
)

const budgetResource = "Budget"

type BudgetService struct {
	repo      repository.BudgetRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewBudgetService(repo repository.BudgetRepository, publisher events.Publisher, logger *slog.Logger) *BudgetService {
	return &BudgetService{repo: repo, publisher: publisher, logger: logger}
}

func budgetOwner(b *models.Budget) string { return b.UserID }

func (s *BudgetService) List(ctx context.Context, userID string) ([]models.Budget, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal(fmt.Errorf("list budgets: %w", err))
	}
	return list, nil
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (*models.Budget, error) {
	return loadOwned(ctx, s.repo.GetByID, budgetOwner, id, userID, budgetResource, "access")
}

// Create stores a budget owned by userID. Period defaults to monthly.
func (s *BudgetService) Create(ctx context.Context, userID string, in models.BudgetInput) (*models.Budget, error) {
	var v validator
	_, hasCategory := trimmed(in.Category)
	v.check(hasCategory, "Please add a category")
	v.check(in.Limit != nil, "Please add a budget limit")
	patch := s.validate(&v, in)
	if err := v.err(); err != nil {
		return nil, err
	}

	b := &models.Budget{
		UserID:    userID,
		Period:    models.Monthly,
		CreatedAt: time.Now().UTC(),
	}
	patch.Apply(b)

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, internal(fmt.Errorf("create budget: %w", err))
	}

	notify(ctx, s.publisher, s.logger, events.New(events.BudgetCreated, userID, b.ID))
	return b, nil
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, in models.BudgetInput) (*models.Budget, error) {
	current, err := loadOwned(ctx, s.repo.GetByID, budgetOwner, id, userID, budgetResource, "update")
	if err != nil {
		return nil, err
	}

	var v validator
	if in.Category != nil {
		_, ok := trimmed(in.Category)
		v.check(ok, "Please add a category")
	}
	patch := s.validate(&v, in)
	if err := v.err(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, userID, patch)
	if err != nil {
		return nil, storeErr(err, budgetResource, "update")
	}

	notify(ctx, s.publisher, s.logger, events.New(events.BudgetUpdated, userID, id))
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	if _, err := loadOwned(ctx, s.repo.GetByID, budgetOwner, id, userID, budgetResource, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return storeErr(err, budgetResource, "delete")
	}

	notify(ctx, s.publisher, s.logger, events.New(events.BudgetDeleted, userID, id))
	return nil
}

func (s *BudgetService) validate(v *validator, in models.BudgetInput) models.BudgetPatch {
	var patch models.BudgetPatch

	if category, ok := trimmed(in.Category); ok {
		patch.Category = &category
	}
	if in.Limit != nil {
		limit := in.Limit.Float()
		v.check(limit > 0, "Budget limit must be greater than 0")
		patch.Limit = &limit
	}
	if in.Period != nil && strings.TrimSpace(*in.Period) != "" {
		period := models.BudgetPeriod(strings.ToLower(strings.TrimSpace(*in.Period)))
		v.check(period.Valid(), "Period must be weekly, monthly or yearly")
		patch.Period = &period
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		patch.Description = &description
	}
	return patch
}
