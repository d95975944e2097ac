// Command apiflow drives the register → record → contribute scenario
// against a running server and exits non-zero on the first mismatch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/LovationAdmin/finance-api/client"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/utils"
)

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "API base URL")
	username := flag.String("username", "alice", "username to register")
	email := flag.String("email", "alice@example.com", "e-mail to register")
	password := flag.String("password", "pw123456", "password")
	keep := flag.Bool("keep", false, "keep the created records")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	logger := utils.NewLogger(os.Stderr, utils.ParseLevel(os.Getenv("LOG_LEVEL")), false)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	f := &flow{
		api:    client.New(*baseURL),
		logger: logger,
		creds:  models.RegisterRequest{Username: *username, Email: *email, Password: *password},
	}
	if err := f.run(ctx, *keep); err != nil {
		logger.Error("flow failed", "error", err)
		os.Exit(1)
	}
	logger.Info("flow passed")
}

type flow struct {
	api    *client.Client
	logger *slog.Logger
	creds  models.RegisterRequest
}

func (f *flow) run(ctx context.Context, keep bool) error {
	if err := f.registerOrLogin(ctx); err != nil {
		return err
	}

	if _, err := f.api.Me(ctx); err != nil {
		return fmt.Errorf("me: %w", err)
	}

	amount := models.Numeric(100)
	tx, err := f.api.CreateTransaction(ctx, models.TransactionInput{
		Amount:   &amount,
		Type:     ptr("income"),
		Category: ptr("Salary"),
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	f.logger.Info("transaction created", "id", tx.ID)

	target := models.Numeric(1000)
	goal, err := f.api.CreateGoal(ctx, models.GoalInput{
		Title:        ptr("Emergency Fund"),
		TargetAmount: &target,
		Category:     ptr("Savings"),
	})
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	f.logger.Info("goal created", "id", goal.ID)

	if !keep {
		defer f.cleanup(tx.ID, goal.ID)
	}

	if _, err := f.api.Contribute(ctx, goal.ID, 250); err != nil {
		return fmt.Errorf("contribute: %w", err)
	}

	got, err := f.api.GetGoal(ctx, goal.ID)
	if err != nil {
		return fmt.Errorf("get goal: %w", err)
	}
	if got.CurrentAmount != 250 {
		return fmt.Errorf("goal currentAmount = %v, want 250", got.CurrentAmount)
	}

	list, err := f.api.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if len(list) != 1 || list[0].ID != tx.ID {
		return fmt.Errorf("transactions = %d records, want exactly %s", len(list), tx.ID)
	}

	f.api.Logout()
	if _, err := f.api.ListTransactions(ctx); !isStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("anonymous list: want 401, got %v", err)
	}
	return f.login(ctx)
}

func (f *flow) registerOrLogin(ctx context.Context) error {
	_, err := f.api.Register(ctx, f.creds)
	if err == nil {
		f.logger.Info("registered", "email", f.creds.Email)
		return nil
	}
	if !isStatus(err, http.StatusBadRequest) {
		return fmt.Errorf("register: %w", err)
	}
	f.logger.Info("already registered, logging in", "email", f.creds.Email)
	return f.login(ctx)
}

func (f *flow) login(ctx context.Context) error {
	if _, err := f.api.Login(ctx, models.LoginRequest{Email: f.creds.Email, Password: f.creds.Password}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func (f *flow) cleanup(txID, goalID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.api.DeleteTransaction(ctx, txID); err != nil {
		f.logger.Warn("cleanup transaction", "error", err)
	}
	if err := f.api.DeleteGoal(ctx, goalID); err != nil {
		f.logger.Warn("cleanup goal", "error", err)
	}
}

func isStatus(err error, status int) bool {
	var apiErr *client.APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func ptr[T any](v T) *T { return &v }
