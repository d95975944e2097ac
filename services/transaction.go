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

const transactionResource = "Transaction"

type TransactionService struct {
	repo      repository.TransactionRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewTransactionService(repo repository.TransactionRepository, publisher events.Publisher, logger *slog.Logger) *TransactionService {
	return &TransactionService{repo: repo, publisher: publisher, logger: logger}
}

func transactionOwner(t *models.Transaction) string { return t.UserID }

func (s *TransactionService) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal(fmt.Errorf("list transactions: %w", err))
	}
	return list, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	return loadOwned(ctx, s.repo.GetByID, transactionOwner, id, userID, transactionResource, "access")
}

// Create stores a transaction owned by userID. Date defaults to now.
func (s *TransactionService) Create(ctx context.Context, userID string, in models.TransactionInput) (*models.Transaction, error) {
	var v validator
	v.check(in.Amount != nil, "Please add an amount")
	v.check(in.Type != nil && strings.TrimSpace(*in.Type) != "", "Please specify transaction type")
	_, hasCategory := trimmed(in.Category)
	v.check(hasCategory, "Please add a category")
	patch := s.validate(&v, in)
	if err := v.err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &models.Transaction{UserID: userID, Date: now, CreatedAt: now}
	patch.Apply(t)

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, internal(fmt.Errorf("create transaction: %w", err))
	}

	notify(ctx, s.publisher, s.logger, events.New(events.TransactionCreated, userID, t.ID))
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, in models.TransactionInput) (*models.Transaction, error) {
	current, err := loadOwned(ctx, s.repo.GetByID, transactionOwner, id, userID, transactionResource, "update")
	if err != nil {
		return nil, err
	}

	var v validator
	if in.Category != nil {
		_, ok := trimmed(in.Category)
		v.check(ok, "Please add a category")
	}
	if in.Type != nil {
		v.check(strings.TrimSpace(*in.Type) != "", "Please specify transaction type")
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
		return nil, storeErr(err, transactionResource, "update")
	}

	notify(ctx, s.publisher, s.logger, events.New(events.TransactionUpdated, userID, id))
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if _, err := loadOwned(ctx, s.repo.GetByID, transactionOwner, id, userID, transactionResource, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return storeErr(err, transactionResource, "delete")
	}

	notify(ctx, s.publisher, s.logger, events.New(events.TransactionDeleted, userID, id))
	return nil
}

// validate checks the fields present in in and converts them to a patch.
func (s *TransactionService) validate(v *validator, in models.TransactionInput) models.TransactionPatch {
	var patch models.TransactionPatch

	if in.Amount != nil {
		amount := in.Amount.Float()
		v.check(amount > 0, "Amount must be greater than 0")
		patch.Amount = &amount
	}
	if in.Type != nil && strings.TrimSpace(*in.Type) != "" {
		typ := models.TransactionType(strings.ToLower(strings.TrimSpace(*in.Type)))
		v.check(typ.Valid(), "Type must be either income or expense")
		patch.Type = &typ
	}
	if category, ok := trimmed(in.Category); ok {
		patch.Category = &category
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		patch.Description = &description
	}
	if in.Date != nil && strings.TrimSpace(*in.Date) != "" {
		date, err := models.ParseDate(*in.Date)
		v.check(err == nil, "Please provide a valid date")
		if err == nil {
			patch.Date = &date
		}
	}
	return patch
}
