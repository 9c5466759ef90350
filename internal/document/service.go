package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=document
type Repository interface {
	inventory.Catalog

	Get(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, filter ListFilter) ([]*Document, error)

	Begin(ctx context.Context) (Tx, error)
}

// Tx is one all-or-nothing unit of work. Documents read through
// GetForUpdate stay locked until Commit or Rollback. Rollback after Commit
// is a no-op.
type Tx interface {
	inventory.StockTx

	GetForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)
	FindBySourceEstimate(ctx context.Context, estimateID uuid.UUID) (*Document, error)
	NextSequence(ctx context.Context, kind Kind) (int64, error)
	Create(ctx context.Context, doc *Document) error
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id uuid.UUID) error

	Commit() error
	Rollback() error
}

type ListFilter struct {
	Kind       *Kind
	Status     *Status
	CustomerID *uuid.UUID
}

// Draft is the caller-supplied content of a new document.
type Draft struct {
	CustomerID   uuid.UUID
	JobID        *uuid.UUID
	LineItems    []LineItem
	TaxRate      decimal.Decimal
	Discount     decimal.Decimal
	Notes        string
	ExpiresAt    *time.Time
	DueDate      *time.Time
	PaymentTerms string
}

// Patch changes the fields that are set. A non-nil LineItems replaces all
// lines.
type Patch struct {
	CustomerID   *uuid.UUID
	JobID        *uuid.UUID
	LineItems    *[]LineItem
	TaxRate      *decimal.Decimal
	Discount     *decimal.Decimal
	Notes        *string
	ExpiresAt    *time.Time
	DueDate      *time.Time
	PaymentTerms *string
}

type Payment struct {
	Amount decimal.Decimal
}

const (
	DefaultEstimateValidityDays = 30
	DefaultEstimatePrefix       = "EST"
	DefaultInvoicePrefix        = "INV"
)

type Service struct {
	repo      Repository
	calc      *Calculator
	matcher   *inventory.Matcher
	ledger    *inventory.Ledger
	converter *Converter
	now       func() time.Time
	logger    *slog.Logger

	netTermsDays int
	validityDays int
	prefixes     map[Kind]string
}

type Option func(*Service)

func WithCalculator(c *Calculator) Option {
	return func(s *Service) { s.calc = c }
}

func WithMatchPolicy(p inventory.MatchPolicy) Option {
	return func(s *Service) { s.matcher = inventory.NewMatcher(p) }
}

func WithNetTerms(days int) Option {
	return func(s *Service) { s.netTermsDays = days }
}

func WithEstimateValidity(days int) Option {
	return func(s *Service) { s.validityDays = days }
}

func WithNumberPrefixes(estimate, invoice string) Option {
	return func(s *Service) {
		s.prefixes[KindEstimate] = estimate
		s.prefixes[KindInvoice] = invoice
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		calc:         NewCalculator(RoundHalfUp),
		matcher:      inventory.NewMatcher(inventory.FallbackPolicy{}),
		ledger:       inventory.NewLedger(),
		now:          time.Now,
		logger:       slog.Default(),
		netTermsDays: DefaultNetTermsDays,
		validityDays: DefaultEstimateValidityDays,
		prefixes: map[Kind]string{
			KindEstimate: DefaultEstimatePrefix,
			KindInvoice:  DefaultInvoicePrefix,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.converter = NewConverter(s.netTermsDays, s.now)
	s.netTermsDays = s.converter.NetTermsDays()

	return s
}

// ComputeTotals is the pure totals preview used while a document is edited.
func (s *Service) ComputeTotals(items []LineItem, taxRate, discount decimal.Decimal) (Totals, error) {
	return s.calc.Compute(items, taxRate, discount)
}

func (s *Service) Calculator() *Calculator { return s.calc }

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Inventory(ctx context.Context) ([]inventory.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) Create(ctx context.Context, kind Kind, draft Draft) (*Document, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}

	if draft.CustomerID == uuid.Nil {
		return nil, &ValidationError{Field: "customer_id", Reason: "is required"}
	}

	now := s.now().UTC()
	doc := &Document{
		ID:         uuid.New(),
		Kind:       kind,
		CustomerID: draft.CustomerID,
		JobID:      cloneUUID(draft.JobID),
		LineItems:  CloneLineItems(draft.LineItems),
		TaxRate:    draft.TaxRate,
		Discount:   draft.Discount,
		Notes:      draft.Notes,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	switch kind {
	case KindEstimate:
		doc.ExpiresAt = cloneTime(draft.ExpiresAt)
		if doc.ExpiresAt == nil {
			exp := now.AddDate(0, 0, s.validityDays)
			doc.ExpiresAt = &exp
		}
	case KindInvoice:
		doc.DueDate = cloneTime(draft.DueDate)
		if doc.DueDate == nil {
			due := now.AddDate(0, 0, s.netTermsDays)
			doc.DueDate = &due
		}

		doc.PaymentTerms = draft.PaymentTerms
		if doc.PaymentTerms == "" {
			doc.PaymentTerms = s.converter.PaymentTerms()
		}
	}

	if err := s.price(doc); err != nil {
		return nil, err
	}

	return s.insert(ctx, doc, nil)
}

// insert commits a new document: stock is matched and settled, a number is
// allocated and the row written, all in one transaction.
func (s *Service) insert(ctx context.Context, doc *Document, prepare func(tx Tx) error) (*Document, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if prepare != nil {
		if err := prepare(tx); err != nil {
			return nil, err
		}
	}

	if err := s.settleStock(ctx, tx, doc, nil); err != nil {
		return nil, err
	}

	seq, err := tx.NextSequence(ctx, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("allocating document number: %w", err)
	}

	doc.Number = fmt.Sprintf("%s-%06d", s.prefixes[doc.Kind], seq)

	if err := tx.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, commitError(err)
	}

	return doc, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Document, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.IsTerminal() {
		return nil, fmt.Errorf("%w: %s %s is %s", ErrLocked, doc.Kind, doc.Number, doc.Status)
	}

	previous := doc.StockDraws

	if err := applyPatch(doc, patch); err != nil {
		return nil, err
	}

	if err := s.price(doc); err != nil {
		return nil, err
	}

	if doc.Kind == KindInvoice && doc.PaidAmount.GreaterThan(doc.Total) {
		return nil, &ValidationError{Field: "line_items", Reason: "total would fall below the amount already paid"}
	}

	// Stock only moves when the lines themselves change.
	if patch.LineItems != nil {
		if err := s.settleStock(ctx, tx, doc, previous); err != nil {
			return nil, err
		}
	}

	doc.UpdatedAt = s.now().UTC()

	if err := tx.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("updating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, commitError(err)
	}

	return doc, nil
}

// Transition moves a document to target. A payment, when given, is recorded
// on the invoice before the paid guard is evaluated.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target Status, payment *Payment) (*Document, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, tx, doc, target, payment); err != nil {
		return nil, err
	}

	if err := tx.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("updating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, commitError(err)
	}

	return doc, nil
}

func (s *Service) transition(ctx context.Context, tx Tx, doc *Document, target Status, payment *Payment) error {
	current := doc.Status

	if err := ValidateTransition(doc.Kind, current, target); err != nil {
		return err
	}

	if payment != nil {
		if doc.Kind != KindInvoice {
			return &ValidationError{Field: "payment", Reason: "only invoices accept payments"}
		}

		if err := recordPayment(doc, payment.Amount); err != nil {
			return err
		}
	}

	if err := s.price(doc); err != nil {
		return &InvalidTransitionError{Current: current, Requested: target, Reason: "line items failed re-validation", Err: err}
	}

	if doc.Kind == KindEstimate && (target == StatusSent || target == StatusApproved) {
		if err := s.settleStock(ctx, tx, doc, nil); err != nil {
			var ve *ValidationError
			var ise *inventory.InsufficientStockError
			if errors.As(err, &ve) || errors.As(err, &ise) {
				return &InvalidTransitionError{Current: current, Requested: target, Reason: "line items failed re-validation", Err: err}
			}

			return err
		}
	}

	now := s.now().UTC()

	if target == StatusPaid {
		if balance := doc.BalanceDue(); balance.IsPositive() {
			return &InvalidTransitionError{
				Current:   current,
				Requested: target,
				Reason:    fmt.Sprintf("balance due %s", balance.StringFixed(2)),
			}
		}

		doc.PaidAt = &now
	}

	doc.Status = target
	doc.UpdatedAt = now

	return nil
}

// RecordPayment sets the single paid-amount field of a sent or overdue
// invoice without changing its status.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Document, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.Kind != KindInvoice {
		return nil, &ValidationError{Field: "payment", Reason: "only invoices accept payments"}
	}

	if doc.IsTerminal() {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrLocked, doc.Number, doc.Status)
	}

	if doc.Status == StatusDraft {
		return nil, &ValidationError{Field: "payment", Reason: "invoice has not been sent"}
	}

	if err := recordPayment(doc, amount); err != nil {
		return nil, err
	}

	doc.UpdatedAt = s.now().UTC()

	if err := tx.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("updating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, commitError(err)
	}

	return doc, nil
}

// Convert creates a draft invoice from an approved estimate. The estimate
// itself is left as it is.
func (s *Service) Convert(ctx context.Context, estimateID uuid.UUID) (*Document, error) {
	inv := &Document{}

	prepare := func(tx Tx) error {
		est, err := tx.GetForUpdate(ctx, estimateID)
		if err != nil {
			return err
		}

		if est.Kind != KindEstimate {
			return &ConversionError{EstimateID: estimateID, Reason: "document is not an estimate"}
		}

		existing, err := tx.FindBySourceEstimate(ctx, estimateID)
		switch {
		case err == nil:
			return &ConversionError{EstimateID: estimateID, Reason: "already converted to invoice " + existing.Number}
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("looking up conversions: %w", err)
		}

		converted, err := s.converter.Convert(est)
		if err != nil {
			return err
		}

		if err := s.price(converted); err != nil {
			return err
		}

		*inv = *converted

		return nil
	}

	return s.insert(ctx, inv, prepare)
}

// Delete removes a document that has neither payments nor a conversion.
// Stock drawn by a deleted invoice goes back to inventory.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}

	switch doc.Kind {
	case KindInvoice:
		if doc.Status == StatusPaid || doc.PaidAmount.IsPositive() {
			return fmt.Errorf("%w: invoice %s has payments, cancel it instead", ErrDeleteForbidden, doc.Number)
		}

		if err := s.ledger.Release(ctx, tx, inventory.FromDraws(doc.StockDraws)); err != nil {
			return err
		}
	case KindEstimate:
		inv, err := tx.FindBySourceEstimate(ctx, id)
		if err == nil {
			return fmt.Errorf("%w: estimate %s was converted to %s", ErrDeleteForbidden, doc.Number, inv.Number)
		}

		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("looking up conversions: %w", err)
		}
	}

	if err := tx.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return commitError(err)
	}

	return nil
}

// ExpireEstimates moves sent estimates whose expiry has passed to expired.
func (s *Service) ExpireEstimates(ctx context.Context, now time.Time) (int, error) {
	return s.sweep(ctx, KindEstimate, StatusExpired, func(d *Document) bool {
		return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
	})
}

// MarkOverdue moves sent invoices past their due date to overdue.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	return s.sweep(ctx, KindInvoice, StatusOverdue, func(d *Document) bool {
		return d.DueDate != nil && d.DueDate.Before(now)
	})
}

func (s *Service) sweep(ctx context.Context, kind Kind, target Status, due func(*Document) bool) (int, error) {
	sent := StatusSent

	docs, err := s.repo.List(ctx, ListFilter{Kind: &kind, Status: &sent})
	if err != nil {
		return 0, fmt.Errorf("listing sent %ss: %w", kind, err)
	}

	moved := 0

	for _, d := range docs {
		if !due(d) {
			continue
		}

		if _, err := s.Transition(ctx, d.ID, target, nil); err != nil {
			s.logger.Warn("sweep transition failed", "document", d.Number, "target", target, "error", err)
			continue
		}

		moved++
	}

	return moved, nil
}

// price recomputes the totals of doc in place.
func (s *Service) price(doc *Document) error {
	totals, err := s.calc.Compute(doc.LineItems, doc.TaxRate, doc.Discount)
	if err != nil {
		return err
	}

	if totals.DiscountClamped {
		s.logger.Warn("discount exceeds subtotal, clamped",
			"document", doc.ID,
			"discount", doc.Discount.StringFixed(2),
			"subtotal", totals.Subtotal.StringFixed(2),
		)
	}

	doc.applyTotals(totals)

	return nil
}

// settleStock matches the document's lines to inventory. Estimates only
// check availability; invoices reserve the increase over previous draws and
// release any surplus.
func (s *Service) settleStock(ctx context.Context, tx Tx, doc *Document, previous []inventory.Draw) error {
	catalog, err := tx.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("listing inventory: %w", err)
	}

	res, err := s.matcher.Resolve(doc.stockLines(), catalog)
	if err != nil {
		var me *inventory.MatchError
		if errors.As(err, &me) {
			return &ValidationError{Field: fmt.Sprintf("line_items[%d]", me.Line), Reason: me.Reason}
		}

		return err
	}

	for _, amb := range res.Ambiguous {
		s.logger.Warn("ambiguous inventory match, line not deducted",
			"document", doc.ID,
			"description", amb.Description,
			"unit_price", amb.UnitPrice.StringFixed(2),
			"candidates", len(amb.Candidates),
		)
	}

	if doc.Kind == KindEstimate {
		return s.ledger.Check(ctx, tx, res.Requirements)
	}

	reserve, release := res.Requirements.Delta(previous)

	if err := s.ledger.Reserve(ctx, tx, reserve); err != nil {
		return err
	}

	if err := s.ledger.Release(ctx, tx, release); err != nil {
		return err
	}

	doc.StockDraws = res.Requirements.Draws()
	pinMatches(doc, res.Matched)

	return nil
}

// pinMatches turns fallback matches into explicit references so later edits
// reconcile against the same items even after the catalog changes.
func pinMatches(doc *Document, matched []*inventory.Item) {
	for i, it := range matched {
		if it == nil || doc.LineItems[i].InventoryRef != nil {
			continue
		}

		doc.LineItems[i].InventoryRef = &inventory.Ref{ItemID: it.ID, Name: it.Name, SKU: it.SKU}
	}
}

func applyPatch(doc *Document, p Patch) error {
	if p.CustomerID != nil {
		if *p.CustomerID == uuid.Nil {
			return &ValidationError{Field: "customer_id", Reason: "is required"}
		}

		doc.CustomerID = *p.CustomerID
	}

	if p.JobID != nil {
		doc.JobID = cloneUUID(p.JobID)
	}

	if p.LineItems != nil {
		doc.LineItems = CloneLineItems(*p.LineItems)
	}

	if p.TaxRate != nil {
		doc.TaxRate = *p.TaxRate
	}

	if p.Discount != nil {
		doc.Discount = *p.Discount
	}

	if p.Notes != nil {
		doc.Notes = *p.Notes
	}

	switch doc.Kind {
	case KindEstimate:
		if p.DueDate != nil || p.PaymentTerms != nil {
			return &ValidationError{Field: "due_date", Reason: "estimates have no due date or payment terms"}
		}

		if p.ExpiresAt != nil {
			doc.ExpiresAt = cloneTime(p.ExpiresAt)
		}
	case KindInvoice:
		if p.ExpiresAt != nil {
			return &ValidationError{Field: "expires_at", Reason: "invoices do not expire"}
		}

		if p.DueDate != nil {
			doc.DueDate = cloneTime(p.DueDate)
		}

		if p.PaymentTerms != nil {
			doc.PaymentTerms = strings.TrimSpace(*p.PaymentTerms)
		}
	}

	return nil
}

func recordPayment(doc *Document, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "paid_amount", Reason: "must not be negative"}
	}

	if amount.GreaterThan(doc.Total) {
		return &ValidationError{
			Field:  "paid_amount",
			Reason: fmt.Sprintf("%s exceeds total %s", amount.StringFixed(2), doc.Total.StringFixed(2)),
		}
	}

	doc.PaidAmount = amount

	return nil
}

// commitError keeps domain errors raised at commit time (adapters that defer
// their conditional checks) recognisable to callers.
func commitError(err error) error {
	var ise *inventory.InsufficientStockError
	var ce *ConversionError
	if errors.As(err, &ise) || errors.As(err, &ce) || errors.Is(err, ErrConflict) {
		return err
	}

	return fmt.Errorf("committing transaction: %w", err)
}
