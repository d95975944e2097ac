package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/LovationAdmin/finance-api/models"
)

// StoreSuite runs the same behaviour checks against every backend.
type StoreSuite struct {
	suite.Suite
	newStore func() *Store
	store    *Store
	ctx      context.Context
	alice    *models.User
	bob      *models.User
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close(s.ctx))
}

func (s *StoreSuite) createUser(name string) *models.User {
	u := &models.User{
		Username:     name,
		Email:        name + "-" + time.Now().Format("150405.000000000") + "@example.com",
		PasswordHash: "hash",
	}
	s.Require().NoError(s.store.Users.Create(s.ctx, u))
	s.Require().NotEmpty(u.ID)
	return u
}

func (s *StoreSuite) newTransaction(owner string, amount float64, date time.Time) *models.Transaction {
	t := &models.Transaction{
		UserID:    owner,
		Amount:    amount,
		Type:      models.Expense,
		Category:  "Food",
		Date:      date,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Transactions.Create(s.ctx, t))
	return t
}

func (s *StoreSuite) newGoal(owner string) *models.Goal {
	g := &models.Goal{
		UserID:       owner,
		Title:        "Car",
		TargetAmount: 1000,
		Category:     "Savings",
		CreatedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.store.Goals.Create(s.ctx, g))
	return g
}

func (s *StoreSuite) TestUsers_DuplicateEmail() {
	dup := &models.User{Username: "alice2", Email: s.alice.Email, PasswordHash: "hash"}
	s.ErrorIs(s.store.Users.Create(s.ctx, dup), ErrDuplicate)
}

func (s *StoreSuite) TestUsers_Lookup() {
	byID, err := s.store.Users.GetByID(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(s.alice.Email, byID.Email)

	byEmail, err := s.store.Users.GetByEmail(s.ctx, s.alice.Email)
	s.Require().NoError(err)
	s.Equal(s.alice.ID, byEmail.ID)

	_, err = s.store.Users.GetByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, ErrNotFound)

	_, err = s.store.Users.GetByID(s.ctx, "not-an-id")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestUsers_UpdateTOTP() {
	s.Require().NoError(s.store.Users.UpdateTOTP(s.ctx, s.alice.ID, "sealed", true))

	u, err := s.store.Users.GetByID(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal("sealed", u.TOTPSecret)
	s.True(u.TOTPEnabled)
}

func (s *StoreSuite) TestTransactions_ListScopedAndSorted() {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	older := s.newTransaction(s.alice.ID, 10, day)
	newer := s.newTransaction(s.alice.ID, 20, day.AddDate(0, 0, 1))
	s.newTransaction(s.bob.ID, 30, day)

	list, err := s.store.Transactions.ListByUser(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)
	for _, t := range list {
		s.Equal(s.alice.ID, t.UserID)
	}
}

func (s *StoreSuite) TestTransactions_UpdateRequiresOwner() {
	t := s.newTransaction(s.alice.ID, 10, time.Now().UTC())
	amount := 99.0

	_, err := s.store.Transactions.Update(s.ctx, t.ID, s.bob.ID, models.TransactionPatch{Amount: &amount})
	s.ErrorIs(err, ErrNotFound)

	updated, err := s.store.Transactions.Update(s.ctx, t.ID, s.alice.ID, models.TransactionPatch{Amount: &amount})
	s.Require().NoError(err)
	s.Equal(99.0, updated.Amount)
	s.Equal("Food", updated.Category)
}

func (s *StoreSuite) TestTransactions_DeleteRequiresOwner() {
	t := s.newTransaction(s.alice.ID, 10, time.Now().UTC())

	s.ErrorIs(s.store.Transactions.Delete(s.ctx, t.ID, s.bob.ID), ErrNotFound)
	s.Require().NoError(s.store.Transactions.Delete(s.ctx, t.ID, s.alice.ID))

	_, err := s.store.Transactions.GetByID(s.ctx, t.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestGoals_ContributeAppendsHistory() {
	g := s.newGoal(s.alice.ID)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	updated, err := s.store.Goals.Contribute(s.ctx, g.ID, s.alice.ID, 100, at)
	s.Require().NoError(err)
	s.Equal(100.0, updated.CurrentAmount)
	s.Require().Len(updated.Contributions, 1)
	s.Equal(100.0, updated.Contributions[0].Amount)
	s.True(at.Equal(updated.Contributions[0].Date))

	_, err = s.store.Goals.Contribute(s.ctx, g.ID, s.bob.ID, 100, at)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestGoals_ConcurrentContributions() {
	g := s.newGoal(s.alice.ID)
	const n = 20

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Goals.Contribute(s.ctx, g.ID, s.alice.ID, 5, time.Now().UTC())
			s.NoError(err)
		}()
	}
	wg.Wait()

	final, err := s.store.Goals.GetByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(float64(n*5), final.CurrentAmount)
	s.Len(final.Contributions, n)
}

func (s *StoreSuite) TestGoals_UpdateKeepsCurrentAmount() {
	g := s.newGoal(s.alice.ID)
	_, err := s.store.Goals.Contribute(s.ctx, g.ID, s.alice.ID, 50, time.Now().UTC())
	s.Require().NoError(err)

	title := "New car"
	updated, err := s.store.Goals.Update(s.ctx, g.ID, s.alice.ID, models.GoalPatch{Title: &title})
	s.Require().NoError(err)
	s.Equal("New car", updated.Title)
	s.Equal(50.0, updated.CurrentAmount)
}

func (s *StoreSuite) TestGoals_Description() {
	g := &models.Goal{
		UserID:        s.alice.ID,
		Title:         "House",
		TargetAmount:  50000,
		Category:      "Savings",
		Description:   "Deposit for a flat",
		Contributions: []models.Contribution{},
		CreatedAt:     time.Now().UTC(),
	}
	s.Require().NoError(s.store.Goals.Create(s.ctx, g))

	got, err := s.store.Goals.GetByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal("Deposit for a flat", got.Description)

	title := "Flat"
	updated, err := s.store.Goals.Update(s.ctx, g.ID, s.alice.ID, models.GoalPatch{Title: &title})
	s.Require().NoError(err)
	s.Equal("Deposit for a flat", updated.Description)

	description := "Two bedrooms"
	updated, err = s.store.Goals.Update(s.ctx, g.ID, s.alice.ID, models.GoalPatch{Description: &description})
	s.Require().NoError(err)
	s.Equal("Two bedrooms", updated.Description)
	s.Equal("Flat", updated.Title)
}

func (s *StoreSuite) TestBudgets_CRUD() {
	b := &models.Budget{
		UserID:    s.alice.ID,
		Category:  "Food",
		Limit:     300,
		Period:    models.Monthly,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Budgets.Create(s.ctx, b))

	limit := 400.0
	period := models.Weekly
	updated, err := s.store.Budgets.Update(s.ctx, b.ID, s.alice.ID, models.BudgetPatch{Limit: &limit, Period: &period})
	s.Require().NoError(err)
	s.Equal(400.0, updated.Limit)
	s.Equal(models.Weekly, updated.Period)

	list, err := s.store.Budgets.ListByUser(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Empty(list)

	s.ErrorIs(s.store.Budgets.Delete(s.ctx, b.ID, s.bob.ID), ErrNotFound)
	s.NoError(s.store.Budgets.Delete(s.ctx, b.ID, s.alice.ID))
}

func (s *StoreSuite) TestGetByID_MalformedID() {
	_, err := s.store.Transactions.GetByID(s.ctx, "not-an-id")
	s.ErrorIs(err, ErrNotFound)
	_, err = s.store.Goals.GetByID(s.ctx, "not-an-id")
	s.ErrorIs(err, ErrNotFound)
	_, err = s.store.Budgets.GetByID(s.ctx, "not-an-id")
	s.ErrorIs(err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: NewMemoryStore})
}
