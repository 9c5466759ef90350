package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

const (
	uniqueViolation         = "23505"
	sourceEstimateIndexName = "documents_source_estimate_id_key"
)

type Store struct {
	db *sql.DB
}

var _ document.Repository = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// lineRow is the JSONB shape of a line item.
type lineRow struct {
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Category     string          `json:"category"`
	InventoryRef *refRow         `json:"inventory_ref,omitempty"`
}

type refRow struct {
	ItemID uuid.UUID `json:"item_id"`
	Name   string    `json:"name"`
	SKU    string    `json:"sku"`
}

func encodeLines(items []document.LineItem) ([]byte, error) {
	rows := make([]lineRow, len(items))
	for i, li := range items {
		rows[i] = lineRow{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Category:    string(li.Category),
		}

		if li.InventoryRef != nil {
			rows[i].InventoryRef = &refRow{ItemID: li.InventoryRef.ItemID, Name: li.InventoryRef.Name, SKU: li.InventoryRef.SKU}
		}
	}

	return json.Marshal(rows)
}

func decodeLines(raw []byte) ([]document.LineItem, error) {
	var rows []lineRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	items := make([]document.LineItem, len(rows))
	for i, r := range rows {
		items[i] = document.LineItem{
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			Category:    document.Category(r.Category),
		}

		if r.InventoryRef != nil {
			items[i].InventoryRef = &inventory.Ref{ItemID: r.InventoryRef.ItemID, Name: r.InventoryRef.Name, SKU: r.InventoryRef.SKU}
		}
	}

	return items, nil
}

// scanDocument reads a document row from the scanner.
// Expected column order matches selectDocumentColumns.
func scanDocument(s scanner) (*document.Document, error) {
	var (
		d            document.Document
		kind, status string
		lines, draws []byte
	)

	if err := s.Scan(
		&d.ID, &kind, &d.Number, &d.CustomerID, &d.JobID, &lines,
		&d.TaxRate, &d.Discount, &d.Notes, &status,
		&d.Subtotal, &d.TaxAmount, &d.Total,
		&d.ExpiresAt, &d.DueDate, &d.PaymentTerms, &d.PaidAmount, &d.PaidAt,
		&d.SourceEstimateID, &draws, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d.Kind = document.Kind(kind)
	d.Status = document.Status(status)

	items, err := decodeLines(lines)
	if err != nil {
		return nil, fmt.Errorf("decoding line items: %w", err)
	}

	d.LineItems = items

	if err := json.Unmarshal(draws, &d.StockDraws); err != nil {
		return nil, fmt.Errorf("decoding stock draws: %w", err)
	}

	return &d, nil
}

const selectDocumentColumns = `
	id, kind, number, customer_id, job_id, line_items,
	tax_rate, discount, notes, status,
	subtotal, tax_amount, total,
	expires_at, due_date, payment_terms, paid_amount, paid_at,
	source_estimate_id, stock_draws, version, created_at, updated_at
`

func getDocument(ctx context.Context, q querier, query string, id uuid.UUID) (*document.Document, error) {
	d, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("getting document: %w", err)
	}

	return d, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return getDocument(ctx, s.db, `SELECT `+selectDocumentColumns+` FROM documents WHERE id = $1`, id)
}

func (s *Store) List(ctx context.Context, filter document.ListFilter) ([]*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM documents WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)

		args = append(args, string(*filter.Kind))
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
	}

	query += " ORDER BY created_at ASC, number ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document

	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return docs, nil
}

func (s *Store) ListItems(ctx context.Context) ([]inventory.Item, error) {
	return listItems(ctx, s.db)
}

func listItems(ctx context.Context, q querier) ([]inventory.Item, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, sku, unit_cost, stock_level FROM inventory_items ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var items []inventory.Item

	for rows.Next() {
		var it inventory.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.SKU, &it.UnitCost, &it.StockLevel); err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}

		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventory rows: %w", err)
	}

	return items, nil
}

// PutItem inserts an inventory item or overwrites the one with the same ID.
func (s *Store) PutItem(ctx context.Context, it inventory.Item) error {
	query := `
		INSERT INTO inventory_items (id, name, sku, unit_cost, stock_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, sku = EXCLUDED.sku, unit_cost = EXCLUDED.unit_cost,
			stock_level = EXCLUDED.stock_level, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, it.ID, it.Name, it.SKU, it.UnitCost, it.StockLevel); err != nil {
		return fmt.Errorf("saving inventory item: %w", err)
	}

	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (document.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning document tx: %w", err)
	}

	return &pgTx{tx: dbTx}, nil
}

func (t *pgTx) Commit() error { return t.tx.Commit() }

// Rollback is safe to defer after Commit.
func (t *pgTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

func (t *pgTx) ListItems(ctx context.Context) ([]inventory.Item, error) {
	return listItems(ctx, t.tx)
}

// LockItems takes row locks in id order so concurrent commits touching the
// same items queue behind each other instead of deadlocking.
func (t *pgTx) LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Item, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `
		SELECT id, name, sku, unit_cost, stock_level
		FROM inventory_items
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`

	rows, err := t.tx.QueryContext(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("locking inventory items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]inventory.Item, len(ids))

	for rows.Next() {
		var it inventory.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.SKU, &it.UnitCost, &it.StockLevel); err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}

		out[it.ID] = it
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventory rows: %w", err)
	}

	return out, nil
}

func (t *pgTx) Decrement(ctx context.Context, id uuid.UUID, qty int64) error {
	query := `
		UPDATE inventory_items
		SET stock_level = stock_level - $2, updated_at = NOW()
		WHERE id = $1 AND stock_level >= $2
		RETURNING stock_level
	`

	var level int64

	err := t.tx.QueryRowContext(ctx, query, id, qty).Scan(&level)
	if err == nil {
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	ise := &inventory.InsufficientStockError{ItemID: id, Item: id.String(), Requested: qty}

	err = t.tx.QueryRowContext(ctx, `SELECT name, stock_level FROM inventory_items WHERE id = $1`, id).
		Scan(&ise.Item, &ise.Available)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading stock level: %w", err)
	}

	return ise
}

func (t *pgTx) Increment(ctx context.Context, id uuid.UUID, qty int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE inventory_items SET stock_level = stock_level + $2, updated_at = NOW() WHERE id = $1`, id, qty)
	if err != nil {
		return fmt.Errorf("incrementing stock: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("inventory item %s not found", id)
	}

	return nil
}

func (t *pgTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return getDocument(ctx, t.tx, `SELECT `+selectDocumentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) FindBySourceEstimate(ctx context.Context, estimateID uuid.UUID) (*document.Document, error) {
	return getDocument(ctx, t.tx, `SELECT `+selectDocumentColumns+` FROM documents WHERE source_estimate_id = $1`, estimateID)
}

func (t *pgTx) NextSequence(ctx context.Context, kind document.Kind) (int64, error) {
	query := `
		INSERT INTO document_sequences (kind, last_value)
		VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value
	`

	var seq int64
	if err := t.tx.QueryRowContext(ctx, query, string(kind)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("allocating %s number: %w", kind, err)
	}

	return seq, nil
}

func (t *pgTx) Create(ctx context.Context, doc *document.Document) error {
	lines, err := encodeLines(doc.LineItems)
	if err != nil {
		return fmt.Errorf("encoding line items: %w", err)
	}

	draws, err := encodeDraws(doc.StockDraws)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (
			id, kind, number, customer_id, job_id, line_items,
			tax_rate, discount, notes, status,
			subtotal, tax_amount, total,
			expires_at, due_date, payment_terms, paid_amount, paid_at,
			source_estimate_id, stock_draws, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1, $21, $22)
	`

	_, err = t.tx.ExecContext(ctx, query,
		doc.ID, string(doc.Kind), doc.Number, doc.CustomerID, doc.JobID, lines,
		doc.TaxRate, doc.Discount, doc.Notes, string(doc.Status),
		doc.Subtotal, doc.TaxAmount, doc.Total,
		doc.ExpiresAt, doc.DueDate, doc.PaymentTerms, doc.PaidAmount, doc.PaidAt,
		doc.SourceEstimateID, draws, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == sourceEstimateIndexName {
			return &document.ConversionError{EstimateID: *doc.SourceEstimateID, Reason: "already converted"}
		}

		return fmt.Errorf("creating document: %w", err)
	}

	doc.Version = 1

	return nil
}

func (t *pgTx) Update(ctx context.Context, doc *document.Document) error {
	lines, err := encodeLines(doc.LineItems)
	if err != nil {
		return fmt.Errorf("encoding line items: %w", err)
	}

	draws, err := encodeDraws(doc.StockDraws)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET customer_id = $1, job_id = $2, line_items = $3, tax_rate = $4, discount = $5,
			notes = $6, status = $7, subtotal = $8, tax_amount = $9, total = $10,
			expires_at = $11, due_date = $12, payment_terms = $13, paid_amount = $14, paid_at = $15,
			stock_draws = $16, version = version + 1, updated_at = $17
		WHERE id = $18 AND version = $19
	`

	res, err := t.tx.ExecContext(ctx, query,
		doc.CustomerID, doc.JobID, lines, doc.TaxRate, doc.Discount,
		doc.Notes, string(doc.Status), doc.Subtotal, doc.TaxAmount, doc.Total,
		doc.ExpiresAt, doc.DueDate, doc.PaymentTerms, doc.PaidAmount, doc.PaidAt,
		draws, doc.UpdatedAt,
		doc.ID, doc.Version,
	)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	if n == 0 {
		return document.ErrConflict
	}

	doc.Version++

	return nil
}

func (t *pgTx) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrNotFound
	}

	return nil
}

func encodeDraws(draws []inventory.Draw) ([]byte, error) {
	if draws == nil {
		draws = []inventory.Draw{}
	}

	b, err := json.Marshal(draws)
	if err != nil {
		return nil, fmt.Errorf("encoding stock draws: %w", err)
	}

	return b, nil
}
