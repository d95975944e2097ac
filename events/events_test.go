package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestMulti_FansOutToEveryPublisher(t *testing.T) {
	failing := &recorder{err: errors.New("broker down")}
	ok := &recorder{}

	e := New(GoalContributed, "user-1", "goal-1")
	err := Multi{failing, ok, Nop{}}.Publish(context.Background(), e)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, []Event{e}, failing.events)
	assert.Equal(t, []Event{e}, ok.events)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Publish(context.Background(), New(BudgetCreated, "u", "b")))
}

func TestNew(t *testing.T) {
	e := New(TransactionDeleted, "user-1", "tx-1")

	assert.Equal(t, TransactionDeleted, e.Type)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, "tx-1", e.ResourceID)
	assert.False(t, e.At.IsZero())
}
