// Package repository persists users and their owned records. Each backend
// (MongoDB, PostgreSQL, memory) implements the same interfaces; ownership is
// enforced by the callers, repositories only scope queries by owner.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/LovationAdmin/finance-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateTOTP(ctx context.Context, id, secret string, enabled bool) error
}

type TransactionRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Create(ctx context.Context, t *models.Transaction) error
	// Update merges patch into the record matching both id and owner.
	Update(ctx context.Context, id, userID string, patch models.TransactionPatch) (*models.Transaction, error)
	Delete(ctx context.Context, id, userID string) error
}

type GoalRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Goal, error)
	GetByID(ctx context.Context, id string) (*models.Goal, error)
	Create(ctx context.Context, g *models.Goal) error
	Update(ctx context.Context, id, userID string, patch models.GoalPatch) (*models.Goal, error)
	Delete(ctx context.Context, id, userID string) error
	// Contribute atomically adds amount to currentAmount and records it in
	// the contribution history.
	Contribute(ctx context.Context, id, userID string, amount float64, at time.Time) (*models.Goal, error)
}

type BudgetRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Budget, error)
	GetByID(ctx context.Context, id string) (*models.Budget, error)
	Create(ctx context.Context, b *models.Budget) error
	Update(ctx context.Context, id, userID string, patch models.BudgetPatch) (*models.Budget, error)
	Delete(ctx context.Context, id, userID string) error
}

// Store groups the repositories of one backend.
type Store struct {
	Backend      string
	Users        UserRepository
	Transactions TransactionRepository
	Goals        GoalRepository
	Budgets      BudgetRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks that the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
