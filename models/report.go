package models

// ============================================================================
// SUMMARY
// ============================================================================

type CategoryTotal struct {
	Category   string          `json:"category"`
	Type       TransactionType `json:"type"`
	Total      float64         `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"` // share of the type total
}

type BudgetUsage struct {
	Budget     Budget  `json:"budget"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Exceeded   bool    `json:"exceeded"`
}

type GoalTotals struct {
	Count       int     `json:"count"`
	Completed   int     `json:"completed"`
	TotalTarget float64 `json:"totalTarget"`
	TotalSaved  float64 `json:"totalSaved"`
}

type Summary struct {
	TotalIncome   float64         `json:"totalIncome"`
	TotalExpenses float64         `json:"totalExpenses"`
	Net           float64         `json:"net"`
	SavingsRate   float64         `json:"savingsRate"`
	Categories    []CategoryTotal `json:"categories"`
	Budgets       []BudgetUsage   `json:"budgets"`
	Goals         GoalTotals      `json:"goals"`
}

// ============================================================================
// RECOMMENDATIONS
// ============================================================================

// Mode is the financial focus a user picks on the dashboard.
type Mode string

const (
	ModeBudgeting  Mode = "budgeting"
	ModeSavings    Mode = "savings"
	ModeInvestment Mode = "investment"
)

type Recommendation struct {
	Type    string `json:"type"` // warning, info, tip, goal, suggestion, education
	Message string `json:"message"`
}

type RecommendationSet struct {
	Mode            Mode             `json:"mode"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Dashboard       []string         `json:"dashboard"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ============================================================================
// BUDGET PLANS
// ============================================================================

type BucketPlan struct {
	Actual     float64 `json:"actual"`
	Ideal      float64 `json:"ideal"`
	Difference float64 `json:"difference"`
}

type BudgetPlan struct {
	Strategy        string                `json:"strategy"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Income          float64               `json:"income"`
	TotalExpenses   float64               `json:"totalExpenses"`
	Remaining       float64               `json:"remaining"`
	Categories      map[string]float64    `json:"categories,omitempty"`
	Buckets         map[string]BucketPlan `json:"buckets,omitempty"`
	Recommendations []string              `json:"recommendations"`
}
