package models

import "time"

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransactionInput is the create/update payload. Absent fields stay nil.
// It has no owner field; the owner always comes from the token.
type TransactionInput struct {
	Amount      *Numeric `json:"amount"`
	Type        *string  `json:"type"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
}

// TransactionPatch holds validated fields to merge into a stored record.
type TransactionPatch struct {
	Amount      *float64
	Type        *TransactionType
	Category    *string
	Description *string
	Date        *time.Time
}

func (p TransactionPatch) Empty() bool {
	return p.Amount == nil && p.Type == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

func (p TransactionPatch) Apply(t *Transaction) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
}
