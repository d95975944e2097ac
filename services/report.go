package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/repository"
)

type ReportService struct {
	transactions repository.TransactionRepository
	goals        repository.GoalRepository
	budgets      repository.BudgetRepository
	now          func() time.Time
}

func NewReportService(transactions repository.TransactionRepository, goals repository.GoalRepository, budgets repository.BudgetRepository) *ReportService {
	return &ReportService{
		transactions: transactions,
		goals:        goals,
		budgets:      budgets,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// snapshot is everything one user owns, read at roughly the same time.
type snapshot struct {
	transactions []models.Transaction
	goals        []models.Goal
	budgets      []models.Budget
}

func (s *ReportService) load(ctx context.Context, userID string) (*snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.transactions.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = list
		return nil
	})
	g.Go(func() error {
		list, err := s.goals.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		snap.goals = list
		return nil
	})
	g.Go(func() error {
		list, err := s.budgets.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		snap.budgets = list
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, internal(err)
	}
	return &snap, nil
}

// ============================================================================
// MONEY HELPERS
// ============================================================================

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// percent returns part/whole*100 rounded to two places, 0 when whole is 0.
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return cents(part.Div(whole).Mul(decimal.NewFromInt(100)))
}

type totals struct {
	income   decimal.Decimal
	expenses decimal.Decimal
}

func (t totals) net() decimal.Decimal {
	return t.income.Sub(t.expenses)
}

func sumTotals(list []models.Transaction) totals {
	var t totals
	for _, tx := range list {
		switch tx.Type {
		case models.Income:
			t.income = t.income.Add(money(tx.Amount))
		case models.Expense:
			t.expenses = t.expenses.Add(money(tx.Amount))
		}
	}
	return t
}

type categorySum struct {
	category string
	total    decimal.Decimal
	count    int
}

// expenseCategories sums expenses per category, largest first.
func expenseCategories(list []models.Transaction) []categorySum {
	byName := map[string]*categorySum{}
	var order []*categorySum
	for _, tx := range list {
		if tx.Type != models.Expense {
			continue
		}
		c, ok := byName[tx.Category]
		if !ok {
			c = &categorySum{category: tx.Category}
			byName[tx.Category] = c
			order = append(order, c)
		}
		c.total = c.total.Add(money(tx.Amount))
		c.count++
	}

	out := make([]categorySum, 0, len(order))
	for _, c := range order {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].total.GreaterThan(out[j].total)
	})
	return out
}

// ============================================================================
// SUMMARY
// ============================================================================

func (s *ReportService) Summary(ctx context.Context, userID string) (*models.Summary, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildSummary(snap, s.now()), nil
}

func buildSummary(snap *snapshot, now time.Time) *models.Summary {
	t := sumTotals(snap.transactions)

	summary := &models.Summary{
		TotalIncome:   cents(t.income),
		TotalExpenses: cents(t.expenses),
		Net:           cents(t.net()),
		SavingsRate:   percent(t.net(), t.income),
		Categories:    categoryTotals(snap.transactions, t),
		Budgets:       make([]models.BudgetUsage, 0, len(snap.budgets)),
	}

	for _, b := range snap.budgets {
		summary.Budgets = append(summary.Budgets, budgetUsage(b, snap.transactions, now))
	}

	for _, g := range snap.goals {
		g.Derive()
		summary.Goals.Count++
		if g.Completed {
			summary.Goals.Completed++
		}
		summary.Goals.TotalTarget += g.TargetAmount
		summary.Goals.TotalSaved += g.CurrentAmount
	}
	summary.Goals.TotalTarget = cents(money(summary.Goals.TotalTarget))
	summary.Goals.TotalSaved = cents(money(summary.Goals.TotalSaved))

	return summary
}

func categoryTotals(list []models.Transaction, t totals) []models.CategoryTotal {
	type key struct {
		category string
		typ      models.TransactionType
	}
	sums := map[key]*models.CategoryTotal{}
	amounts := map[key]decimal.Decimal{}
	var keys []key

	for _, tx := range list {
		k := key{tx.Category, tx.Type}
		if _, ok := sums[k]; !ok {
			sums[k] = &models.CategoryTotal{Category: tx.Category, Type: tx.Type}
			keys = append(keys, k)
		}
		sums[k].Count++
		amounts[k] = amounts[k].Add(money(tx.Amount))
	}

	out := make([]models.CategoryTotal, 0, len(keys))
	for _, k := range keys {
		c := *sums[k]
		c.Total = cents(amounts[k])
		whole := t.expenses
		if k.typ == models.Income {
			whole = t.income
		}
		c.Percentage = percent(amounts[k], whole)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Total > out[j].Total
	})
	return out
}

// budgetUsage sums the expenses of the budget's category in the current
// period.
func budgetUsage(b models.Budget, list []models.Transaction, now time.Time) models.BudgetUsage {
	start := b.Period.Start(now)
	spent := decimal.Zero
	for _, tx := range list {
		if tx.Type != models.Expense || !strings.EqualFold(tx.Category, b.Category) {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(now) {
			continue
		}
		spent = spent.Add(money(tx.Amount))
	}

	limit := money(b.Limit)
	remaining := limit.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return models.BudgetUsage{
		Budget:     b,
		Spent:      cents(spent),
		Remaining:  cents(remaining),
		Percentage: percent(spent, limit),
		Exceeded:   spent.GreaterThan(limit),
	}
}

// ============================================================================
// RECOMMENDATIONS & PLANS
// ============================================================================

func (s *ReportService) Recommendations(ctx context.Context, userID, mode string) (*models.RecommendationSet, error) {
	spec, ok := modes[models.Mode(strings.ToLower(mode))]
	if !ok {
		return nil, validationError([]string{fmt.Sprintf("Unknown mode %q: must be one of %s", mode, strings.Join(modeNames(), ", "))})
	}

	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.RecommendationSet{
		Mode:            spec.mode,
		Name:            spec.name,
		Description:     spec.description,
		Dashboard:       spec.dashboard,
		Recommendations: spec.recommend(snap, s.now()),
	}, nil
}

func (s *ReportService) BudgetPlan(ctx context.Context, userID, strategy string) (*models.BudgetPlan, error) {
	spec, ok := strategies[strings.ToLower(strategy)]
	if !ok {
		return nil, validationError([]string{fmt.Sprintf("Unknown strategy %q: must be one of %s", strategy, strings.Join(strategyNames(), ", "))})
	}

	list, err := s.transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal(fmt.Errorf("list transactions: %w", err))
	}

	plan := spec.plan(list)
	plan.Strategy = spec.key
	plan.Name = spec.name
	plan.Description = spec.description
	if plan.Recommendations == nil {
		plan.Recommendations = []string{}
	}
	return &plan, nil
}
