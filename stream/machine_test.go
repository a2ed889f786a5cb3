package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from Phase
		ev   Event
		want Phase
	}{
		{PhaseDispatch, EventFetched, PhaseCommit},
		{PhaseDispatch, EventFailed, PhaseDegrade},
		{PhaseDispatch, EventCanceled, PhaseAbort},
		{PhaseDegrade, EventBudgetLeft, PhaseRetryBackoff},
		{PhaseDegrade, EventBudgetExhausted, PhaseAbort},
		{PhaseDegrade, EventCanceled, PhaseAbort},
		{PhaseRetryBackoff, EventWoke, PhaseDispatch},
		{PhaseRetryBackoff, EventCanceled, PhaseAbort},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			got, err := Transition(tt.from, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	tests := []struct {
		from Phase
		ev   Event
	}{
		{PhaseDispatch, EventWoke},
		{PhaseDispatch, EventBudgetLeft},
		{PhaseDegrade, EventFetched},
		{PhaseRetryBackoff, EventFailed},
		{PhaseCommit, EventFetched},
		{PhaseAbort, EventWoke},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.ev)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tt.from, tt.ev)
		assert.Equal(t, tt.from, got)
	}
}

func TestPhase_Terminal(t *testing.T) {
	assert.True(t, PhaseAbort.Terminal())
	assert.True(t, PhaseCommit.Terminal())
	assert.False(t, PhaseDispatch.Terminal())
	assert.False(t, PhaseDegrade.Terminal())
	assert.False(t, PhaseRetryBackoff.Terminal())
}

func TestBudget(t *testing.T) {
	b := budget{limit: 2}
	assert.False(t, b.empty())
	assert.Equal(t, EventBudgetLeft, b.spend())
	assert.Equal(t, EventBudgetExhausted, b.spend())
	assert.True(t, b.empty())

	zero := budget{limit: 0}
	assert.True(t, zero.empty())

	unbounded := budget{limit: -1}
	for range 1000 {
		assert.Equal(t, EventBudgetLeft, unbounded.spend())
	}
	assert.False(t, unbounded.empty())
}

func TestDegrade_FloorsAtOne(t *testing.T) {
	c := 13
	for range 10 {
		next := degrade(c)
		assert.LessOrEqual(t, next, c)
		assert.GreaterOrEqual(t, next, 1)
		c = next
	}
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, degrade(0))
}
