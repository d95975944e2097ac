package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/finance-api/models"
)

// memoryDB keeps every collection behind one mutex, so each repository call
// is atomic with respect to all others.
type memoryDB struct {
	mu           sync.RWMutex
	users        map[string]models.User
	transactions map[string]models.Transaction
	goals        map[string]models.Goal
	budgets      map[string]models.Budget
}

// NewMemoryStore returns a process-local store used for tests and demos.
func NewMemoryStore() *Store {
	db := &memoryDB{
		users:        make(map[string]models.User),
		transactions: make(map[string]models.Transaction),
		goals:        make(map[string]models.Goal),
		budgets:      make(map[string]models.Budget),
	}
	return &Store{
		Backend:      "memory",
		Users:        memoryUsers{db},
		Transactions: memoryTransactions{db},
		Goals:        memoryGoals{db},
		Budgets:      memoryBudgets{db},
	}
}

func newID() string {
	return uuid.NewString()
}

// ============================================================================
// USERS
// ============================================================================

type memoryUsers struct{ db *memoryDB }

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	user.ID = newID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) UpdateTOTP(_ context.Context, id, secret string, enabled bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return ErrNotFound
	}
	u.TOTPSecret = secret
	u.TOTPEnabled = enabled
	r.db.users[id] = u
	return nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

type memoryTransactions struct{ db *memoryDB }

func (r memoryTransactions) ListByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []models.Transaction{}
	for _, t := range r.db.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r memoryTransactions) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r memoryTransactions) Create(_ context.Context, t *models.Transaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t.ID = newID()
	r.db.transactions[t.ID] = *t
	return nil
}

func (r memoryTransactions) Update(_ context.Context, id, userID string, patch models.TransactionPatch) (*models.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.transactions[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	patch.Apply(&t)
	r.db.transactions[id] = t
	return &t, nil
}

func (r memoryTransactions) Delete(_ context.Context, id, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.transactions[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(r.db.transactions, id)
	return nil
}

// ============================================================================
// GOALS
// ============================================================================

type memoryGoals struct{ db *memoryDB }

func copyGoal(g models.Goal) models.Goal {
	g.Contributions = append([]models.Contribution(nil), g.Contributions...)
	if g.Deadline != nil {
		d := *g.Deadline
		g.Deadline = &d
	}
	return g
}

func (r memoryGoals) ListByUser(_ context.Context, userID string) ([]models.Goal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []models.Goal{}
	for _, g := range r.db.goals {
		if g.UserID == userID {
			out = append(out, copyGoal(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r memoryGoals) GetByID(_ context.Context, id string) (*models.Goal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	g, ok := r.db.goals[id]
	if !ok {
		return nil, ErrNotFound
	}
	g = copyGoal(g)
	return &g, nil
}

func (r memoryGoals) Create(_ context.Context, g *models.Goal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	g.ID = newID()
	r.db.goals[g.ID] = copyGoal(*g)
	return nil
}

func (r memoryGoals) Update(_ context.Context, id, userID string, patch models.GoalPatch) (*models.Goal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	g, ok := r.db.goals[id]
	if !ok || g.UserID != userID {
		return nil, ErrNotFound
	}
	patch.Apply(&g)
	r.db.goals[id] = g
	out := copyGoal(g)
	return &out, nil
}

func (r memoryGoals) Delete(_ context.Context, id, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	g, ok := r.db.goals[id]
	if !ok || g.UserID != userID {
		return ErrNotFound
	}
	delete(r.db.goals, id)
	return nil
}

func (r memoryGoals) Contribute(_ context.Context, id, userID string, amount float64, at time.Time) (*models.Goal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	g, ok := r.db.goals[id]
	if !ok || g.UserID != userID {
		return nil, ErrNotFound
	}
	g = copyGoal(g)
	g.CurrentAmount += amount
	g.Contributions = append(g.Contributions, models.Contribution{Amount: amount, Date: at})
	r.db.goals[id] = g
	out := copyGoal(g)
	return &out, nil
}

// ============================================================================
// BUDGETS
// ============================================================================

type memoryBudgets struct{ db *memoryDB }

func (r memoryBudgets) ListByUser(_ context.Context, userID string) ([]models.Budget, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []models.Budget{}
	for _, b := range r.db.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r memoryBudgets) GetByID(_ context.Context, id string) (*models.Budget, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	b, ok := r.db.budgets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r memoryBudgets) Create(_ context.Context, b *models.Budget) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b.ID = newID()
	r.db.budgets[b.ID] = *b
	return nil
}

func (r memoryBudgets) Update(_ context.Context, id, userID string, patch models.BudgetPatch) (*models.Budget, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.budgets[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	patch.Apply(&b)
	r.db.budgets[id] = b
	return &b, nil
}

func (r memoryBudgets) Delete(_ context.Context, id, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.budgets[id]
	if !ok || b.UserID != userID {
		return ErrNotFound
	}
	delete(r.db.budgets, id)
	return nil
}
