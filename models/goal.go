package models

import "time"

type Contribution struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

type Goal struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user"`
	Title         string         `json:"title"`
	TargetAmount  float64        `json:"targetAmount"`
	CurrentAmount float64        `json:"currentAmount"`
	Category      string         `json:"category"`
	Description   string         `json:"description"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	Contributions []Contribution `json:"contributions"`
	CreatedAt     time.Time      `json:"createdAt"`

	// Derived, filled by Derive before the goal leaves the API.
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed"`
}

// Derive computes progress and completion from the stored amounts.
func (g *Goal) Derive() {
	if g.Contributions == nil {
		g.Contributions = []Contribution{}
	}
	if g.TargetAmount > 0 {
		g.Progress = g.CurrentAmount / g.TargetAmount
	}
	g.Completed = g.CurrentAmount >= g.TargetAmount
}

func (g *Goal) Remaining() float64 {
	if r := g.TargetAmount - g.CurrentAmount; r > 0 {
		return r
	}
	return 0
}

// GoalInput is the create/update payload. CurrentAmount is honoured on
// create only; after that contributions are the only way to raise it.
type GoalInput struct {
	Title         *string  `json:"title"`
	TargetAmount  *Numeric `json:"targetAmount"`
	CurrentAmount *Numeric `json:"currentAmount"`
	Category      *string  `json:"category"`
	Description   *string  `json:"description"`
	Deadline      *string  `json:"deadline"`
}

type GoalPatch struct {
	Title        *string
	TargetAmount *float64
	Category     *string
	Description  *string
	Deadline     *time.Time
}

func (p GoalPatch) Empty() bool {
	return p.Title == nil && p.TargetAmount == nil && p.Category == nil && p.Description == nil && p.Deadline == nil
}

func (p GoalPatch) Apply(g *Goal) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Deadline != nil {
		d := *p.Deadline
		g.Deadline = &d
	}
}

type ContributeRequest struct {
	Amount *Numeric `json:"amount"`
}
