package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LovationAdmin/finance-api/models"
)

// NewPostgresStore wires the repositories to db. Migrations are applied by
// RunMigrations before the store is used.
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Backend:      "postgres",
		Users:        &pgUsers{db: db},
		Transactions: &pgTransactions{db: db},
		Goals:        &pgGoals{db: db},
		Budgets:      &pgBudgets{db: db},
		ping:         db.PingContext,
		close: func(context.Context) error {
			return db.Close()
		},
	}
}

// validUUID reports malformed ids as ErrNotFound instead of letting
// PostgreSQL reject the cast.
func validUUID(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return ErrNotFound
		}
	}
	return nil
}

func pgErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ============================================================================
// USERS
// ============================================================================

type pgUsers struct {
	db *sql.DB
}

const userColumns = `id, username, email, password_hash, totp_secret, totp_enabled, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt); err != nil {
		return nil, pgErr(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r *pgUsers) Create(ctx context.Context, user *models.User) error {
	id := uuid.NewString()
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, totp_secret, totp_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, user.Username, strings.ToLower(user.Email), user.PasswordHash, user.TOTPSecret, user.TOTPEnabled, createdAt)
	if err != nil {
		return pgErr(err)
	}
	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

func (r *pgUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := validUUID(id); err != nil {
		return nil, err
	}
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *pgUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (r *pgUsers) UpdateTOTP(ctx context.Context, id, secret string, enabled bool) error {
	if err := validUUID(id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET totp_secret = $2, totp_enabled = $3 WHERE id = $1`, id, secret, enabled)
	if err != nil {
		return pgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

type pgTransactions struct {
	db *sql.DB
}

const transactionColumns = `id, user_id, amount, type, category, description, date, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Category, &t.Description, &t.Date, &t.CreatedAt); err != nil {
		return nil, pgErr(err)
	}
	t.Date = t.Date.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (r *pgTransactions) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	if validUUID(userID) != nil {
		return []models.Transaction{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *pgTransactions) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if err := validUUID(id); err != nil {
		return nil, err
	}
	return scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (r *pgTransactions) Create(ctx context.Context, t *models.Transaction) error {
	if err := validUUID(t.UserID); err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, category, description, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, t.UserID, t.Amount, t.Type, t.Category, t.Description, t.Date, t.CreatedAt)
	if err != nil {
		return pgErr(err)
	}
	t.ID = id
	return nil
}

// Update leaves a column untouched when its patch field is nil.
func (r *pgTransactions) Update(ctx context.Context, id, userID string, patch models.TransactionPatch) (*models.Transaction, error) {
	if err := validUUID(id, userID); err != nil {
		return nil, err
	}
	return scanTransaction(r.db.QueryRowContext(ctx, `
		UPDATE transactions SET
			amount = COALESCE($3::float8, amount),
			type = COALESCE($4::varchar, type),
			category = COALESCE($5::varchar, category),
			description = COALESCE($6::text, description),
			date = COALESCE($7::timestamptz, date)
		WHERE id = $1 AND user_id = $2
		RETURNING `+transactionColumns,
		id, userID, patch.Amount, patch.Type, patch.Category, patch.Description, patch.Date,
	))
}

func (r *pgTransactions) Delete(ctx context.Context, id, userID string) error {
	return deleteOwned(ctx, r.db, "transactions", id, userID)
}

func deleteOwned(ctx context.Context, db *sql.DB, table, id, userID string) error {
	if err := validUUID(id, userID); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return pgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// GOALS
// ============================================================================

type pgGoals struct {
	db *sql.DB
}

const goalColumns = `id, user_id, title, target_amount, current_amount, category, description, deadline, contributions, created_at`

func scanGoal(row rowScanner) (*models.Goal, error) {
	var (
		g             models.Goal
		deadline      sql.NullTime
		contributions []byte
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &g.Category, &g.Description, &deadline, &contributions, &g.CreatedAt)
	if err != nil {
		return nil, pgErr(err)
	}
	if deadline.Valid {
		d := deadline.Time.UTC()
		g.Deadline = &d
	}
	g.Contributions = []models.Contribution{}
	if len(contributions) > 0 {
		if err := json.Unmarshal(contributions, &g.Contributions); err != nil {
			return nil, fmt.Errorf("decode contributions: %w", err)
		}
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}

func (r *pgGoals) ListByUser(ctx context.Context, userID string) ([]models.Goal, error) {
	if validUUID(userID) != nil {
		return []models.Goal{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	out := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *pgGoals) GetByID(ctx context.Context, id string) (*models.Goal, error) {
	if err := validUUID(id); err != nil {
		return nil, err
	}
	return scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id))
}

func (r *pgGoals) Create(ctx context.Context, g *models.Goal) error {
	if err := validUUID(g.UserID); err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	contributions := g.Contributions
	if contributions == nil {
		contributions = []models.Contribution{}
	}
	history, err := json.Marshal(contributions)
	if err != nil {
		return fmt.Errorf("encode contributions: %w", err)
	}
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, target_amount, current_amount, category, description, deadline, contributions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, g.UserID, g.Title, g.TargetAmount, g.CurrentAmount, g.Category, g.Description, g.Deadline, history, g.CreatedAt)
	if err != nil {
		return pgErr(err)
	}
	g.ID = id
	return nil
}

func (r *pgGoals) Update(ctx context.Context, id, userID string, patch models.GoalPatch) (*models.Goal, error) {
	if err := validUUID(id, userID); err != nil {
		return nil, err
	}
	return scanGoal(r.db.QueryRowContext(ctx, `
		UPDATE goals SET
			title = COALESCE($3::varchar, title),
			target_amount = COALESCE($4::float8, target_amount),
			category = COALESCE($5::varchar, category),
			deadline = COALESCE($6::timestamptz, deadline),
			description = COALESCE($7::text, description)
		WHERE id = $1 AND user_id = $2
		RETURNING `+goalColumns,
		id, userID, patch.Title, patch.TargetAmount, patch.Category, patch.Deadline, patch.Description,
	))
}

func (r *pgGoals) Delete(ctx context.Context, id, userID string) error {
	return deleteOwned(ctx, r.db, "goals", id, userID)
}

// Contribute increments in a single UPDATE so concurrent calls serialize on
// the row lock.
func (r *pgGoals) Contribute(ctx context.Context, id, userID string, amount float64, at time.Time) (*models.Goal, error) {
	if err := validUUID(id, userID); err != nil {
		return nil, err
	}
	return scanGoal(r.db.QueryRowContext(ctx, `
		UPDATE goals SET
			current_amount = current_amount + $3,
			contributions = contributions || jsonb_build_array(jsonb_build_object('amount', $3::float8, 'date', $4::text))
		WHERE id = $1 AND user_id = $2
		RETURNING `+goalColumns,
		id, userID, amount, at.UTC().Format(time.RFC3339Nano),
	))
}

// ============================================================================
// BUDGETS
// ============================================================================

type pgBudgets struct {
	db *sql.DB
}

const budgetColumns = `id, user_id, category, amount_limit, period, description, created_at`

func scanBudget(row rowScanner) (*models.Budget, error) {
	var b models.Budget
	if err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit, &b.Period, &b.Description, &b.CreatedAt); err != nil {
		return nil, pgErr(err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func (r *pgBudgets) ListByUser(ctx context.Context, userID string) ([]models.Budget, error) {
	if validUUID(userID) != nil {
		return []models.Budget{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *pgBudgets) GetByID(ctx context.Context, id string) (*models.Budget, error) {
	if err := validUUID(id); err != nil {
		return nil, err
	}
	return scanBudget(r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
}

func (r *pgBudgets) Create(ctx context.Context, b *models.Budget) error {
	if err := validUUID(b.UserID); err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category, amount_limit, period, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, b.UserID, b.Category, b.Limit, b.Period, b.Description, b.CreatedAt)
	if err != nil {
		return pgErr(err)
	}
	b.ID = id
	return nil
}

func (r *pgBudgets) Update(ctx context.Context, id, userID string, patch models.BudgetPatch) (*models.Budget, error) {
	if err := validUUID(id, userID); err != nil {
		return nil, err
	}
	return scanBudget(r.db.QueryRowContext(ctx, `
		UPDATE budgets SET
			category = COALESCE($3::varchar, category),
			amount_limit = COALESCE($4::float8, amount_limit),
			period = COALESCE($5::varchar, period),
			description = COALESCE($6::text, description)
		WHERE id = $1 AND user_id = $2
		RETURNING `+budgetColumns,
		id, userID, patch.Category, patch.Limit, patch.Period, patch.Description,
	))
}

func (r *pgBudgets) Delete(ctx context.Context, id, userID string) error {
	return deleteOwned(ctx, r.db, "budgets", id, userID)
}
