package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}

	assert.False(t, OrderStatus("Returned").IsValid())
	assert.False(t, OrderStatus("").IsValid())
	assert.False(t, OrderStatus("pending").IsValid(), "statuses are case sensitive")
}

func TestOrderStatus_TransitionTable(t *testing.T) {
	expected := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusAccept, OrderStatusCancelled},
		OrderStatusAccept:    {OrderStatusPacked, OrderStatusShipped, OrderStatusCancelled},
		OrderStatusPacked:    {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:   {OrderStatusDelivered},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}

	for from, targets := range expected {
		assert.ElementsMatch(t, targets, from.AllowedTargets(), "targets from %s", from)

		// Exactly the listed targets are accepted; everything else,
		// including the same-state no-op, is rejected.
		for _, to := range AllStatuses {
			want := false
			for _, allowed := range targets {
				if allowed == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_TerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range AllStatuses {
			assert.False(t, terminal.CanTransition(to), "%s -> %s must be rejected", terminal, to)
		}
	}
}

func TestOrderStatus_NonTerminalStates(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusAccept, OrderStatusPacked, OrderStatusShipped} {
		assert.False(t, s.IsTerminal())
		assert.NotEmpty(t, s.AllowedTargets())
	}
}

func TestOrderStatus_CancelBranch(t *testing.T) {
	// Cancellation is reachable from every non-terminal state except
	// Shipped, which can only complete.
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusCancelled))
	assert.True(t, OrderStatusAccept.CanTransition(OrderStatusCancelled))
	assert.True(t, OrderStatusPacked.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusShipped.CanTransition(OrderStatusCancelled))
}

func TestOrderStatus_UnknownStatusHasNoTargets(t *testing.T) {
	unknown := OrderStatus("Refunded")

	assert.Empty(t, unknown.AllowedTargets())
	assert.False(t, unknown.CanTransition(OrderStatusPending))
	assert.False(t, unknown.IsTerminal(), "unknown statuses are invalid, not terminal")
}
