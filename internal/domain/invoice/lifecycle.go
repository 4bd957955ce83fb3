package invoice

import (
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
)

// Trigger names what is asking for a status change
type Trigger string

const (
	TriggerIssuer           Trigger = "issuer"
	TriggerPaymentSession   Trigger = "payment_session"
	TriggerPaymentConfirmed Trigger = "payment_confirmed"
	TriggerOverdueSweep     Trigger = "overdue_sweep"
)

type edge struct {
	from types.InvoiceStatus
	to   types.InvoiceStatus
}

// transitions lists every allowed edge with the triggers that may fire it.
// Self transitions are handled separately and always allowed.
var transitions = map[edge][]Trigger{
	{types.InvoiceStatusDraft, types.InvoiceStatusSent}:        {TriggerIssuer, TriggerPaymentSession},
	{types.InvoiceStatusSent, types.InvoiceStatusOverdue}:      {TriggerIssuer, TriggerOverdueSweep},
	{types.InvoiceStatusDraft, types.InvoiceStatusPaid}:        {TriggerIssuer, TriggerPaymentConfirmed},
	{types.InvoiceStatusSent, types.InvoiceStatusPaid}:         {TriggerIssuer, TriggerPaymentConfirmed},
	{types.InvoiceStatusOverdue, types.InvoiceStatusPaid}:      {TriggerIssuer, TriggerPaymentConfirmed},
	{types.InvoiceStatusDraft, types.InvoiceStatusCancelled}:   {TriggerIssuer},
	{types.InvoiceStatusSent, types.InvoiceStatusCancelled}:    {TriggerIssuer},
	{types.InvoiceStatusOverdue, types.InvoiceStatusCancelled}: {TriggerIssuer},
}

// IsTerminal reports whether no transition can leave the status
func IsTerminal(s types.InvoiceStatus) bool {
	return s == types.InvoiceStatusPaid || s == types.InvoiceStatusCancelled
}

// CanTransition reports whether trigger may move an invoice from one status to another
func CanTransition(from, to types.InvoiceStatus, trigger Trigger) bool {
	if from == to {
		return true
	}
	return lo.Contains(transitions[edge{from, to}], trigger)
}

// Transition validates a status change. A same-status transition is a no-op
// and always succeeds.
func Transition(from, to types.InvoiceStatus, trigger Trigger) error {
	if err := to.Validate(); err != nil {
		return err
	}

	if CanTransition(from, to, trigger) {
		return nil
	}

	hint := "Invoice cannot move from " + string(from) + " to " + string(to)
	switch from {
	case types.InvoiceStatusPaid:
		hint = "Invoice is already paid"
	case types.InvoiceStatusCancelled:
		hint = "Invoice is already cancelled"
	}

	return ierr.NewErrorf("invalid invoice status transition %s -> %s", from, to).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"from":    from,
			"to":      to,
			"trigger": trigger,
		}).
		Mark(ierr.ErrInvalidState)
}

// AllowedFrom returns the statuses trigger may move to target from, excluding
// target itself. Used to build conditional updates.
func AllowedFrom(to types.InvoiceStatus, trigger Trigger) []types.InvoiceStatus {
	return lo.Filter(types.InvoiceStatuses, func(from types.InvoiceStatus, _ int) bool {
		return from != to && CanTransition(from, to, trigger)
	})
}
