// Package events carries change notifications for owned records to
// interested sinks (websocket sessions, a message broker).
package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"
	GoalCreated        Type = "goal.created"
	GoalUpdated        Type = "goal.updated"
	GoalDeleted        Type = "goal.deleted"
	GoalContributed    Type = "goal.contributed"
	BudgetCreated      Type = "budget.created"
	BudgetUpdated      Type = "budget.updated"
	BudgetDeleted      Type = "budget.deleted"
)

type Event struct {
	Type       Type      `json:"type"`
	UserID     string    `json:"user"`
	ResourceID string    `json:"id"`
	At         time.Time `json:"at"`
}

func New(t Type, userID, resourceID string) Event {
	return Event{Type: t, UserID: userID, ResourceID: resourceID, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
