package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTerminal(t *testing.T) {
	assert.False(t, StatePendingCreation.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateError.Terminal())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateCancelled.Terminal())
}

func TestAdvanceFromInitialState(t *testing.T) {
	for _, next := range []TransactionState{StatePending, StateDone, StateCancelled, StateError} {
		tx := &Transaction{Reference: "SO1", State: StatePendingCreation}
		assert.True(t, tx.Advance(next, "msg"), "to %s", next)
		assert.Equal(t, next, tx.State)
		assert.Equal(t, "msg", tx.StateMessage)
	}
}

func TestAdvanceRefusedFromTerminalState(t *testing.T) {
	for _, terminal := range []TransactionState{StateDone, StateCancelled} {
		tx := &Transaction{Reference: "SO1", State: terminal, StateMessage: "first"}
		assert.False(t, tx.Advance(StateError, "second"), "from %s", terminal)
		assert.Equal(t, terminal, tx.State)
		assert.Equal(t, "first", tx.StateMessage)
	}
}

func TestAdvancePendingToTerminal(t *testing.T) {
	tx := &Transaction{Reference: "SO1", State: StatePending}
	assert.True(t, tx.Advance(StateDone, "settled"))
	assert.Equal(t, StateDone, tx.State)
}

func TestAdvanceErrorIsNotTerminal(t *testing.T) {
	tx := &Transaction{Reference: "SO1", State: StateError}
	assert.True(t, tx.Advance(StateDone, "recovered"))
	assert.Equal(t, StateDone, tx.State)
}
