package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/finance-api/models"
)

// ============================================================================
// FINANCIAL MODES
// ============================================================================

type modeSpec struct {
	mode        models.Mode
	name        string
	description string
	dashboard   []string
	recommend   func(snap *snapshot, now time.Time) []models.Recommendation
}

var modes = map[models.Mode]modeSpec{
	models.ModeBudgeting: {
		mode:        models.ModeBudgeting,
		name:        "Budgeting Mode",
		description: "Focus on tracking and managing your expenses to stay within your budget.",
		dashboard:   []string{"BudgetOverview", "ExpenseTracker", "CategorySpending", "SpendingTrends"},
		recommend:   budgetingRecommendations,
	},
	models.ModeSavings: {
		mode:        models.ModeSavings,
		name:        "Savings Mode",
		description: "Prioritize saving money and tracking progress toward your savings goals.",
		dashboard:   []string{"SavingsGoals", "SavingsProgress", "SavingsTips", "MonthlyContributions"},
		recommend:   savingsRecommendations,
	},
	models.ModeInvestment: {
		mode:        models.ModeInvestment,
		name:        "Investment Mode",
		description: "Focus on managing and optimizing your investment portfolio.",
		dashboard:   []string{"PortfolioOverview", "AssetAllocation", "InvestmentPerformance", "InvestmentOpportunities"},
		recommend:   investmentRecommendations,
	},
}

func modeNames() []string {
	names := make([]string, 0, len(modes))
	for m := range modes {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}

func budgetingRecommendations(snap *snapshot, _ time.Time) []models.Recommendation {
	var out []models.Recommendation
	t := sumTotals(snap.transactions)

	if t.expenses.GreaterThan(t.income) {
		out = append(out, models.Recommendation{
			Type:    "warning",
			Message: fmt.Sprintf("Your expenses ($%s) exceed your income ($%s). Consider reducing expenses.", t.expenses.StringFixed(2), t.income.StringFixed(2)),
		})
	} else if t.expenses.GreaterThan(t.income.Mul(decimal.NewFromFloat(0.9))) {
		out = append(out, models.Recommendation{
			Type:    "warning",
			Message: "Your expenses are over 90% of your income. Consider reducing spending.",
		})
	}

	var heavy []string
	for _, c := range expenseCategories(snap.transactions) {
		if percent(c.total, t.expenses) > 30 {
			heavy = append(heavy, c.category)
		}
	}
	if len(heavy) > 0 {
		out = append(out, models.Recommendation{
			Type:    "info",
			Message: fmt.Sprintf("You're spending a large portion of your budget on %s. Consider setting limits for these categories.", strings.Join(heavy, ", ")),
		})
	}

	smallCount, smallTotal := 0, decimal.Zero
	for _, tx := range snap.transactions {
		if tx.Type == models.Expense && tx.Amount > 0 && tx.Amount < 20 {
			smallCount++
			smallTotal = smallTotal.Add(money(tx.Amount))
		}
	}
	if smallCount > 5 {
		out = append(out, models.Recommendation{
			Type:    "tip",
			Message: fmt.Sprintf("You have %d small transactions totaling $%s. Small purchases can add up quickly.", smallCount, smallTotal.StringFixed(2)),
		})
	}

	if len(out) == 0 {
		out = append(out, models.Recommendation{
			Type:    "tip",
			Message: "Try using the 50/30/20 budget rule: 50% for needs, 30% for wants, and 20% for savings.",
		})
	}
	return out
}

func savingsRecommendations(snap *snapshot, now time.Time) []models.Recommendation {
	var out []models.Recommendation
	t := sumTotals(snap.transactions)

	saved := decimal.Zero
	for _, tx := range snap.transactions {
		if ClassifyCategory(tx.Category) == BucketSavings || strings.Contains(strings.ToLower(tx.Description), "saving") {
			saved = saved.Add(money(tx.Amount))
		}
	}
	if t.income.IsPositive() && saved.Div(t.income).LessThan(decimal.NewFromFloat(0.1)) {
		out = append(out, models.Recommendation{
			Type:    "warning",
			Message: "You're saving less than 10% of your income. Try to increase your savings rate.",
		})
	}

	if len(snap.goals) == 0 {
		out = append(out, models.Recommendation{
			Type:    "suggestion",
			Message: "Consider setting up savings goals for emergencies, big purchases, or retirement.",
		})
	}
	for _, g := range snap.goals {
		if g.CurrentAmount >= g.TargetAmount {
			continue
		}
		remaining := money(g.TargetAmount).Sub(money(g.CurrentAmount))
		msg := fmt.Sprintf("For your %q goal, you still need $%s.", g.Title, remaining.StringFixed(2))
		if monthly, ok := monthlyContribution(g, remaining, now); ok {
			msg += fmt.Sprintf(" Consider saving $%s monthly to reach this goal on time.", monthly.StringFixed(2))
		}
		out = append(out, models.Recommendation{Type: "goal", Message: msg})
	}

	if t.income.GreaterThan(decimal.NewFromInt(1000)) {
		out = append(out, models.Recommendation{
			Type:    "tip",
			Message: fmt.Sprintf("Based on your income, try to save at least $%s (20%%) each month.", t.income.Mul(decimal.NewFromFloat(0.2)).StringFixed(2)),
		})
	}

	out = append(out,
		models.Recommendation{Type: "tip", Message: "Consider automating your savings by setting up automatic transfers on payday."},
		models.Recommendation{Type: "tip", Message: "Build an emergency fund covering 3-6 months of expenses before focusing on other savings goals."},
	)
	return out
}

// monthlyContribution spreads the remaining amount over the whole months
// left before the deadline. A deadline in the current month asks for the
// full remainder; a past or missing deadline yields nothing.
func monthlyContribution(g models.Goal, remaining decimal.Decimal, now time.Time) (decimal.Decimal, bool) {
	if g.Deadline == nil || !g.Deadline.After(now) {
		return decimal.Zero, false
	}
	months := (g.Deadline.Year()-now.Year())*12 + int(g.Deadline.Month()) - int(now.Month())
	if months <= 0 {
		return remaining, true
	}
	return remaining.Div(decimal.NewFromInt(int64(months))), true
}

func investmentRecommendations(snap *snapshot, _ time.Time) []models.Recommendation {
	var out []models.Recommendation
	t := sumTotals(snap.transactions)
	net := t.net()

	if net.IsPositive() {
		out = append(out, models.Recommendation{
			Type:    "suggestion",
			Message: fmt.Sprintf("You have a positive net income of $%s. Consider investing some of this surplus.", net.StringFixed(2)),
		})
		if net.GreaterThan(t.income.Mul(decimal.NewFromFloat(0.2))) {
			out = append(out, models.Recommendation{
				Type:    "tip",
				Message: "With your high savings rate, you could benefit from tax-advantaged investment accounts.",
			})
		}
	}

	out = append(out,
		models.Recommendation{Type: "education", Message: "Remember the importance of diversification. Consider a mix of stocks, bonds, and other assets based on your risk tolerance."},
		models.Recommendation{Type: "tip", Message: "Regular contributions to your investments, even small ones, can lead to significant growth over time."},
		models.Recommendation{Type: "tip", Message: "Review your asset allocation quarterly and rebalance if necessary."},
	)
	return out
}

// ============================================================================
// BUDGET STRATEGIES
// ============================================================================

type strategySpec struct {
	key         string
	name        string
	description string
	plan        func(list []models.Transaction) models.BudgetPlan
}

var strategies = map[string]strategySpec{
	"zero-based": {
		key:         "zero-based",
		name:        "Zero-Based Budgeting",
		description: "Allocate every dollar of your income to specific expenses, savings, or investments to reach a zero balance.",
		plan:        zeroBasedPlan,
	},
	"50-30-20": {
		key:         "50-30-20",
		name:        "50/30/20 Rule",
		description: "Allocate 50% of your income to needs, 30% to wants, and 20% to savings and debt repayment.",
		plan:        fiftyThirtyTwentyPlan,
	},
}

func strategyNames() []string {
	names := make([]string, 0, len(strategies))
	for k := range strategies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func zeroBasedPlan(list []models.Transaction) models.BudgetPlan {
	t := sumTotals(list)
	remaining := t.net()
	cats := expenseCategories(list)

	plan := models.BudgetPlan{
		Income:        cents(t.income),
		TotalExpenses: cents(t.expenses),
		Remaining:     cents(remaining),
		Categories:    make(map[string]float64, len(cats)),
	}
	for _, c := range cats {
		plan.Categories[c.category] = cents(c.total)
	}

	switch {
	case t.expenses.GreaterThan(t.income):
		plan.Recommendations = append(plan.Recommendations, "Your expenses exceed your income. Look for categories to reduce spending.")
		for i, c := range cats {
			if i == 2 {
				break
			}
			plan.Recommendations = append(plan.Recommendations,
				fmt.Sprintf("Consider reducing spending in %s (currently $%s).", c.category, c.total.StringFixed(2)))
		}
	case remaining.GreaterThan(t.income.Mul(decimal.NewFromFloat(0.2))):
		plan.Recommendations = append(plan.Recommendations,
			fmt.Sprintf("You have %s%% of your income unallocated. Consider increasing savings or investments.", remaining.Div(t.income).Mul(decimal.NewFromInt(100)).StringFixed(1)))
	}
	return plan
}

var bucketShares = map[Bucket]decimal.Decimal{
	BucketNeeds:   decimal.NewFromFloat(0.5),
	BucketWants:   decimal.NewFromFloat(0.3),
	BucketSavings: decimal.NewFromFloat(0.2),
}

func fiftyThirtyTwentyPlan(list []models.Transaction) models.BudgetPlan {
	t := sumTotals(list)

	actual := map[Bucket]decimal.Decimal{}
	for _, tx := range list {
		if tx.Type != models.Expense {
			continue
		}
		b := ClassifyCategory(tx.Category)
		actual[b] = actual[b].Add(money(tx.Amount))
	}

	plan := models.BudgetPlan{
		Income:        cents(t.income),
		TotalExpenses: cents(t.expenses),
		Remaining:     cents(t.net()),
		Buckets:       make(map[string]models.BucketPlan, len(bucketShares)),
	}

	ideal := map[Bucket]decimal.Decimal{}
	for b, share := range bucketShares {
		ideal[b] = t.income.Mul(share)
		plan.Buckets[string(b)] = models.BucketPlan{
			Actual:     cents(actual[b]),
			Ideal:      cents(ideal[b]),
			Difference: cents(ideal[b].Sub(actual[b])),
		}
	}

	over := func(b Bucket) string {
		return actual[b].Sub(ideal[b]).Div(ideal[b]).Mul(decimal.NewFromInt(100)).StringFixed(1)
	}
	if ideal[BucketNeeds].IsPositive() && actual[BucketNeeds].GreaterThan(ideal[BucketNeeds]) {
		plan.Recommendations = append(plan.Recommendations,
			fmt.Sprintf("You're spending %s%% too much on needs. Look for ways to reduce essential expenses.", over(BucketNeeds)))
	}
	if ideal[BucketWants].IsPositive() && actual[BucketWants].GreaterThan(ideal[BucketWants]) {
		plan.Recommendations = append(plan.Recommendations,
			fmt.Sprintf("You're spending %s%% too much on wants. Consider cutting back on non-essential purchases.", over(BucketWants)))
	}
	if ideal[BucketSavings].IsPositive() && actual[BucketSavings].LessThan(ideal[BucketSavings]) {
		short := ideal[BucketSavings].Sub(actual[BucketSavings]).Div(ideal[BucketSavings]).Mul(decimal.NewFromInt(100)).StringFixed(1)
		plan.Recommendations = append(plan.Recommendations,
			fmt.Sprintf("You're saving %s%% less than recommended. Try to increase your savings rate.", short))
	}
	return plan
}
