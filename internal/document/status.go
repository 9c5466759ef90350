package document

import "slices"

var transitions = map[Kind]map[Status][]Status{
	KindEstimate: {
		StatusDraft: {StatusSent},
		StatusSent:  {StatusApproved, StatusRejected, StatusExpired},
	},
	KindInvoice: {
		StatusDraft:   {StatusSent, StatusCancelled},
		StatusSent:    {StatusPaid, StatusOverdue, StatusCancelled},
		StatusOverdue: {StatusPaid, StatusCancelled},
	},
}

var statuses = map[Kind][]Status{
	KindEstimate: {StatusDraft, StatusSent, StatusApproved, StatusRejected, StatusExpired},
	KindInvoice:  {StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled},
}

// ValidStatus reports whether s is a status of the given kind.
func ValidStatus(kind Kind, s Status) bool {
	return slices.Contains(statuses[kind], s)
}

// IsTerminal reports whether no transition leaves s. Terminal documents have
// immutable line items.
func IsTerminal(kind Kind, s Status) bool {
	return ValidStatus(kind, s) && len(transitions[kind][s]) == 0
}

func CanTransition(kind Kind, from, to Status) bool {
	return slices.Contains(transitions[kind][from], to)
}

// ValidateTransition returns an *InvalidTransitionError when to is not
// reachable from from in one step.
func ValidateTransition(kind Kind, from, to Status) error {
	if !ValidStatus(kind, to) {
		return &InvalidTransitionError{Current: from, Requested: to, Reason: "unknown " + string(kind) + " status"}
	}

	if !CanTransition(kind, from, to) {
		return &InvalidTransitionError{Current: from, Requested: to}
	}

	return nil
}
