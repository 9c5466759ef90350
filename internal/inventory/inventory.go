package inventory

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a stocked part as reported by the inventory collaborator.
type Item struct {
	ID         uuid.UUID
	Name       string
	SKU        string
	UnitCost   decimal.Decimal
	StockLevel int64
}

// Ref links a line item to the inventory item it was picked from.
type Ref struct {
	ItemID uuid.UUID
	Name   string
	SKU    string
}

// Line is the part of a document line item that stock matching looks at.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Ref         *Ref
}

// Catalog lists the currently known inventory items.
type Catalog interface {
	ListItems(ctx context.Context) ([]Item, error)
}

// StockTx is the part of a persistence transaction the Ledger drives.
// Decrement must be an atomic compare-and-decrement on the backing store and
// return *InsufficientStockError when the level would drop below zero.
type StockTx interface {
	Catalog
	LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Item, error)
	Decrement(ctx context.Context, id uuid.UUID, qty int64) error
	Increment(ctx context.Context, id uuid.UUID, qty int64) error
}

// Draw records how many units of an item a document took from stock.
type Draw struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int64     `json:"quantity"`
}

// Requirements is the summed quantity per inventory item.
type Requirements map[uuid.UUID]int64

func (r Requirements) add(id uuid.UUID, qty int64) {
	r[id] += qty
}

// IDs returns the item IDs in ascending byte order. Locking and decrementing
// in this order keeps concurrent commits from deadlocking each other.
func (r Requirements) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r))
	for id, qty := range r {
		if qty > 0 {
			ids = append(ids, id)
		}
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	return ids
}

// Draws flattens the requirements into a sorted slice suitable for storage.
func (r Requirements) Draws() []Draw {
	ids := r.IDs()

	draws := make([]Draw, 0, len(ids))
	for _, id := range ids {
		draws = append(draws, Draw{ItemID: id, Quantity: r[id]})
	}

	return draws
}

// Delta compares r against what was previously drawn and returns the extra
// quantities to reserve and the surplus to hand back.
func (r Requirements) Delta(previous []Draw) (reserve, release Requirements) {
	reserve = Requirements{}
	release = Requirements{}

	prev := FromDraws(previous)

	for id, qty := range r {
		if diff := qty - prev[id]; diff > 0 {
			reserve[id] = diff
		}
	}

	for id, qty := range prev {
		if diff := qty - r[id]; diff > 0 {
			release[id] = diff
		}
	}

	return reserve, release
}

// FromDraws rebuilds requirements from stored draws.
func FromDraws(draws []Draw) Requirements {
	r := make(Requirements, len(draws))
	for _, d := range draws {
		r.add(d.ItemID, d.Quantity)
	}

	return r
}
