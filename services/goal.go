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

const goalResource = "Goal"

type GoalService struct {
	repo      repository.GoalRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewGoalService(repo repository.GoalRepository, publisher events.Publisher, logger *slog.Logger) *GoalService {
	return &GoalService{repo: repo, publisher: publisher, logger: logger}
}

func goalOwner(g *models.Goal) string { return g.UserID }

func (s *GoalService) get(ctx context.Context, userID, id, action string) (*models.Goal, error) {
	return loadOwned(ctx, s.repo.GetByID, goalOwner, id, userID, goalResource, action)
}

func (s *GoalService) List(ctx context.Context, userID string) ([]models.Goal, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal(fmt.Errorf("list goals: %w", err))
	}
	for i := range list {
		list[i].Derive()
	}
	return list, nil
}

func (s *GoalService) Get(ctx context.Context, userID, id string) (*models.Goal, error) {
	g, err := s.get(ctx, userID, id, "access")
	if err != nil {
		return nil, err
	}
	g.Derive()
	return g, nil
}

func (s *GoalService) Create(ctx context.Context, userID string, in models.GoalInput) (*models.Goal, error) {
	var v validator
	_, hasTitle := trimmed(in.Title)
	v.check(hasTitle, "Please provide a goal title")
	v.check(in.TargetAmount != nil, "Please provide a target amount")
	_, hasCategory := trimmed(in.Category)
	v.check(hasCategory, "Please provide a category")
	patch := s.validate(&v, in)

	var current float64
	if in.CurrentAmount != nil {
		current = in.CurrentAmount.Float()
		v.check(current >= 0, "Current amount cannot be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	g := &models.Goal{
		UserID:        userID,
		CurrentAmount: current,
		Contributions: []models.Contribution{},
		CreatedAt:     time.Now().UTC(),
	}
	patch.Apply(g)

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, internal(fmt.Errorf("create goal: %w", err))
	}

	notify(ctx, s.publisher, s.logger, events.New(events.GoalCreated, userID, g.ID))
	g.Derive()
	return g, nil
}

// Update merges the provided fields. currentAmount is not updatable; only
// Contribute changes it after creation.
func (s *GoalService) Update(ctx context.Context, userID, id string, in models.GoalInput) (*models.Goal, error) {
	current, err := s.get(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	var v validator
	if in.Title != nil {
		_, ok := trimmed(in.Title)
		v.check(ok, "Please provide a goal title")
	}
	if in.Category != nil {
		_, ok := trimmed(in.Category)
		v.check(ok, "Please provide a category")
	}
	patch := s.validate(&v, in)
	if err := v.err(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		current.Derive()
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, userID, patch)
	if err != nil {
		return nil, storeErr(err, goalResource, "update")
	}

	notify(ctx, s.publisher, s.logger, events.New(events.GoalUpdated, userID, id))
	updated.Derive()
	return updated, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, userID, id, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return storeErr(err, goalResource, "delete")
	}

	notify(ctx, s.publisher, s.logger, events.New(events.GoalDeleted, userID, id))
	return nil
}

// Contribute adds a positive amount to the goal in one atomic store
// operation and records it in the history.
func (s *GoalService) Contribute(ctx context.Context, userID, id string, req models.ContributeRequest) (*models.Goal, error) {
	if req.Amount == nil {
		return nil, validationError([]string{"Please provide a contribution amount"})
	}
	amount := req.Amount.Float()
	if amount <= 0 {
		return nil, validationError([]string{"Contribution amount must be a positive number"})
	}

	if _, err := s.get(ctx, userID, id, "contribute to"); err != nil {
		return nil, err
	}

	updated, err := s.repo.Contribute(ctx, id, userID, amount, time.Now().UTC())
	if err != nil {
		return nil, storeErr(err, goalResource, "contribute to")
	}

	s.logger.InfoContext(ctx, "goal contribution", "goal_id", id, "user_id", userID, "amount", amount)
	notify(ctx, s.publisher, s.logger, events.New(events.GoalContributed, userID, id))
	updated.Derive()
	return updated, nil
}

func (s *GoalService) validate(v *validator, in models.GoalInput) models.GoalPatch {
	var patch models.GoalPatch

	if title, ok := trimmed(in.Title); ok {
		patch.Title = &title
	}
	if in.TargetAmount != nil {
		target := in.TargetAmount.Float()
		v.check(target > 0, "Target amount must be greater than 0")
		patch.TargetAmount = &target
	}
	if category, ok := trimmed(in.Category); ok {
		patch.Category = &category
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		patch.Description = &description
	}
	if in.Deadline != nil && strings.TrimSpace(*in.Deadline) != "" {
		deadline, err := models.ParseDate(*in.Deadline)
		v.check(err == nil, "Please provide a valid deadline")
		if err == nil {
			patch.Deadline = &deadline
		}
	}
	return patch
}
