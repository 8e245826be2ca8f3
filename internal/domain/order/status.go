package order

import "fmt"

// Status is an order fulfilment state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// Actor identifies who requested a status transition.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorAdmin    Actor = "admin"
)

// InvalidStatusTransitionError indicates a transition outside the configured
// edge set.
type InvalidStatusTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// OrderNotCancellableError indicates a cancellation attempt after stock has
// been dispatched.
type OrderNotCancellableError struct {
	Status Status
}

func (e *OrderNotCancellableError) Error() string {
	return fmt.Sprintf("order in status %s can no longer be cancelled", e.Status)
}

// TransitionTable maps each status to the statuses reachable from it. A
// status with no entry is terminal. The table is data, not code: deployments
// with extra intermediate states supply their own.
type TransitionTable map[Status][]Status

// DefaultTransitions returns the standard fulfilment flow:
// PENDING → PROCESSING → SHIPPED → DELIVERED, with CANCELLED reachable from
// PENDING and PROCESSING only.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped, StatusCancelled},
		StatusShipped:    {StatusDelivered},
	}
}

// Machine validates status transitions against a TransitionTable.
type Machine struct {
	table TransitionTable
}

// NewMachine builds a Machine over the given table.
func NewMachine(table TransitionTable) *Machine {
	return &Machine{table: table}
}

// CanTransition reports whether from → to is a configured edge.
func (m *Machine) CanTransition(from, to Status) bool {
	for _, next := range m.table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transitions leave the given status.
func (m *Machine) IsTerminal(s Status) bool {
	return len(m.table[s]) == 0
}

// Cancellable reports whether CANCELLED is reachable from the given status.
func (m *Machine) Cancellable(s Status) bool {
	return m.CanTransition(s, StatusCancelled)
}

// Validate checks a requested transition. Illegal edges fail with
// InvalidStatusTransitionError; a cancellation attempt on a dispatched but
// not yet terminal order fails with OrderNotCancellableError instead, so the
// caller can tell "too late to cancel" apart from "nonsensical transition".
func (m *Machine) Validate(from, to Status) error {
	if m.CanTransition(from, to) {
		return nil
	}
	if to == StatusCancelled && !m.IsTerminal(from) {
		return &OrderNotCancellableError{Status: from}
	}
	return &InvalidStatusTransitionError{From: from, To: to}
}
