package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsufficientStockError is returned when a deduction would take an item's
// stock level below zero.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Item      string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.Item, e.Available, e.Requested)
}

// AmbiguousMatchError reports a line item whose description and price match
// more than one inventory item. It is a warning: the line is treated as not
// inventory-backed.
type AmbiguousMatchError struct {
	Description string
	UnitPrice   decimal.Decimal
	Candidates  []uuid.UUID
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous inventory match for %q at %s: %d candidates",
		e.Description, e.UnitPrice.StringFixed(2), len(e.Candidates))
}

// MatchError is a hard matching failure on a single line.
type MatchError struct {
	Line   int
	Reason string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
