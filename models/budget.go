package models

import "time"

type BudgetPeriod string

const (
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
)

func (p BudgetPeriod) Valid() bool {
	return p == Weekly || p == Monthly || p == Yearly
}

// Start returns the beginning of the period containing now.
func (p BudgetPeriod) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	switch p {
	case Weekly:
		offset := (int(now.Weekday()) + 6) % 7 // weeks start on Monday
		return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
}

type Budget struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user"`
	Category    string       `json:"category"`
	Limit       float64      `json:"limit"`
	Period      BudgetPeriod `json:"period"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type BudgetInput struct {
	Category    *string  `json:"category"`
	Limit       *Numeric `json:"limit"`
	Period      *string  `json:"period"`
	Description *string  `json:"description"`
}

type BudgetPatch struct {
	Category    *string
	Limit       *float64
	Period      *BudgetPeriod
	Description *string
}

func (p BudgetPatch) Empty() bool {
	return p.Category == nil && p.Limit == nil && p.Period == nil && p.Description == nil
}

func (p BudgetPatch) Apply(b *Budget) {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
}
