// Package memstore keeps documents and inventory in process memory. It backs
// the "memory" store driver and the service tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

// Store runs one transaction at a time. Reads outside a transaction see
// committed state only.
type Store struct {
	sem chan struct{}

	mu    sync.RWMutex
	docs  map[uuid.UUID]*document.Document
	items map[uuid.UUID]inventory.Item
	seqs  map[document.Kind]int64
}

var _ document.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		sem:   make(chan struct{}, 1),
		docs:  make(map[uuid.UUID]*document.Document),
		items: make(map[uuid.UUID]inventory.Item),
		seqs:  make(map[document.Kind]int64),
	}
}

// AddItem puts an inventory item into the catalog, replacing any item with
// the same ID.
func (s *Store) AddItem(item inventory.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = item
}

// Item returns the committed state of one inventory item.
func (s *Store) Item(id uuid.UUID) (inventory.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]

	return it, ok
}

func (s *Store) ListItems(_ context.Context) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedItems(s.items), nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}

	return d.Clone(), nil
}

func (s *Store) List(_ context.Context, filter document.ListFilter) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*document.Document

	for _, d := range s.docs {
		if filter.Kind != nil && d.Kind != *filter.Kind {
			continue
		}

		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}

		if filter.CustomerID != nil && d.CustomerID != *filter.CustomerID {
			continue
		}

		out = append(out, d.Clone())
	}

	slices.SortFunc(out, func(a, b *document.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.Number, b.Number)
	})

	return out, nil
}

func (s *Store) Begin(ctx context.Context) (document.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &Tx{
		store: s,
		docs:  make(map[uuid.UUID]*document.Document),
		items: make(map[uuid.UUID]inventory.Item),
		seqs:  make(map[document.Kind]int64),
	}, nil
}

// Tx stages writes until Commit. A nil entry in docs marks a deletion.
type Tx struct {
	store *Store
	done  bool

	docs  map[uuid.UUID]*document.Document
	items map[uuid.UUID]inventory.Item
	seqs  map[document.Kind]int64
}

func (t *Tx) doc(id uuid.UUID) (*document.Document, bool) {
	if d, ok := t.docs[id]; ok {
		return d, d != nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	d, ok := t.store.docs[id]

	return d, ok
}

func (t *Tx) item(id uuid.UUID) (inventory.Item, bool) {
	if it, ok := t.items[id]; ok {
		return it, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	it, ok := t.store.items[id]

	return it, ok
}

func (t *Tx) ListItems(_ context.Context) ([]inventory.Item, error) {
	t.store.mu.RLock()
	merged := make(map[uuid.UUID]inventory.Item, len(t.store.items))
	for id, it := range t.store.items {
		merged[id] = it
	}
	t.store.mu.RUnlock()

	for id, it := range t.items {
		merged[id] = it
	}

	return sortedItems(merged), nil
}

func (t *Tx) LockItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Item, error) {
	out := make(map[uuid.UUID]inventory.Item, len(ids))
	for _, id := range ids {
		if it, ok := t.item(id); ok {
			out[id] = it
		}
	}

	return out, nil
}

func (t *Tx) Decrement(_ context.Context, id uuid.UUID, qty int64) error {
	it, ok := t.item(id)
	if !ok {
		return &inventory.InsufficientStockError{ItemID: id, Item: id.String(), Requested: qty}
	}

	if it.StockLevel < qty {
		return &inventory.InsufficientStockError{ItemID: id, Item: it.Name, Available: it.StockLevel, Requested: qty}
	}

	it.StockLevel -= qty
	t.items[id] = it

	return nil
}

func (t *Tx) Increment(_ context.Context, id uuid.UUID, qty int64) error {
	it, ok := t.item(id)
	if !ok {
		return fmt.Errorf("inventory item %s not found", id)
	}

	it.StockLevel += qty
	t.items[id] = it

	return nil
}

func (t *Tx) GetForUpdate(_ context.Context, id uuid.UUID) (*document.Document, error) {
	d, ok := t.doc(id)
	if !ok {
		return nil, document.ErrNotFound
	}

	return d.Clone(), nil
}

func (t *Tx) FindBySourceEstimate(_ context.Context, estimateID uuid.UUID) (*document.Document, error) {
	for _, d := range t.docs {
		if d != nil && d.SourceEstimateID != nil && *d.SourceEstimateID == estimateID {
			return d.Clone(), nil
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for id, d := range t.store.docs {
		if staged, ok := t.docs[id]; ok && staged == nil {
			continue
		}

		if d.SourceEstimateID != nil && *d.SourceEstimateID == estimateID {
			return d.Clone(), nil
		}
	}

	return nil, document.ErrNotFound
}

func (t *Tx) NextSequence(_ context.Context, kind document.Kind) (int64, error) {
	seq, ok := t.seqs[kind]
	if !ok {
		t.store.mu.RLock()
		seq = t.store.seqs[kind]
		t.store.mu.RUnlock()
	}

	seq++
	t.seqs[kind] = seq

	return seq, nil
}

func (t *Tx) Create(ctx context.Context, doc *document.Document) error {
	if _, ok := t.doc(doc.ID); ok {
		return fmt.Errorf("document %s already exists", doc.ID)
	}

	if doc.SourceEstimateID != nil {
		if _, err := t.FindBySourceEstimate(ctx, *doc.SourceEstimateID); err == nil {
			return &document.ConversionError{EstimateID: *doc.SourceEstimateID, Reason: "already converted"}
		}
	}

	doc.Version = 1
	t.docs[doc.ID] = doc.Clone()

	return nil
}

func (t *Tx) Update(_ context.Context, doc *document.Document) error {
	cur, ok := t.doc(doc.ID)
	if !ok {
		return document.ErrNotFound
	}

	if cur.Version != doc.Version {
		return document.ErrConflict
	}

	doc.Version++
	t.docs[doc.ID] = doc.Clone()

	return nil
}

func (t *Tx) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := t.doc(id); !ok {
		return document.ErrNotFound
	}

	t.docs[id] = nil

	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}

	t.store.mu.Lock()

	for id, d := range t.docs {
		if d == nil {
			delete(t.store.docs, id)
			continue
		}

		t.store.docs[id] = d
	}

	for id, it := range t.items {
		t.store.items[id] = it
	}

	for kind, seq := range t.seqs {
		t.store.seqs[kind] = seq
	}

	t.store.mu.Unlock()

	t.finish()

	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}

	t.finish()

	return nil
}

func (t *Tx) finish() {
	t.done = true
	<-t.store.sem
}

func sortedItems(m map[uuid.UUID]inventory.Item) []inventory.Item {
	out := make([]inventory.Item, 0, len(m))
	for _, it := range m {
		out = append(out, it)
	}

	slices.SortFunc(out, func(a, b inventory.Item) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return out
}

// PutItem is AddItem behind the context-taking signature the other stores
// share.
func (s *Store) PutItem(_ context.Context, item inventory.Item) error {
	s.AddItem(item)

	return nil
}
