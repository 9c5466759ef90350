package inventory

import (
	"context"
	"fmt"
)

// Ledger is the only writer of inventory stock levels. Every operation runs
// inside the caller's StockTx so that a failed deduction aborts the whole
// document commit.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Check locks every required item and verifies that each one has enough
// stock. Nothing is written.
func (l *Ledger) Check(ctx context.Context, tx StockTx, reqs Requirements) error {
	ids := reqs.IDs()
	if len(ids) == 0 {
		return nil
	}

	snapshot, err := tx.LockItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("locking inventory: %w", err)
	}

	for _, id := range ids {
		item, ok := snapshot[id]
		if !ok {
			return &InsufficientStockError{ItemID: id, Item: id.String(), Available: 0, Requested: reqs[id]}
		}

		if item.StockLevel < reqs[id] {
			return &InsufficientStockError{
				ItemID:    id,
				Item:      item.Name,
				Available: item.StockLevel,
				Requested: reqs[id],
			}
		}
	}

	return nil
}

// Reserve validates all requirements first and only then decrements each
// item. A failed decrement leaves earlier ones to be undone by the caller's
// rollback.
func (l *Ledger) Reserve(ctx context.Context, tx StockTx, reqs Requirements) error {
	if err := l.Check(ctx, tx, reqs); err != nil {
		return err
	}

	for _, id := range reqs.IDs() {
		if err := tx.Decrement(ctx, id, reqs[id]); err != nil {
			if _, ok := err.(*InsufficientStockError); ok {
				return err
			}

			return fmt.Errorf("decrementing stock for %s: %w", id, err)
		}
	}

	return nil
}

// Release hands quantities back to stock.
func (l *Ledger) Release(ctx context.Context, tx StockTx, reqs Requirements) error {
	for _, id := range reqs.IDs() {
		if err := tx.Increment(ctx, id, reqs[id]); err != nil {
			return fmt.Errorf("releasing stock for %s: %w", id, err)
		}
	}

	return nil
}
