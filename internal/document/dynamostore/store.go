// Package dynamostore keeps documents and inventory in DynamoDB.
//
// Table requirements (all keyed by a string partition key):
//   - documents: PK id
//   - inventory: PK id
//   - counters:  PK name; holds document number sequences and one
//     "conversion#<estimate id>" marker per converted estimate
//
// Reads are strongly consistent. Writes made through a Tx are buffered and
// sent as a single TransactWriteItems call on Commit, so either every
// document write and stock change lands or none does.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type Tables struct {
	Documents string
	Inventory string
	Counters  string
}

type Store struct {
	ddb    API
	tables Tables
}

var _ document.Repository = (*Store)(nil)

func New(ddb API, tables Tables) *Store {
	return &Store{ddb: ddb, tables: tables}
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func nameKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"name": &types.AttributeValueMemberS{Value: name}}
}

func conversionMarker(estimateID uuid.UUID) string {
	return "conversion#" + estimateID.String()
}

func sequenceName(kind document.Kind) string {
	return "sequence#" + string(kind)
}

func (s *Store) getDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Documents),
		Key:            idKey(id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	if len(out.Item) == 0 {
		return nil, document.ErrNotFound
	}

	var it docItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshalling document: %w", err)
	}

	return fromDocItem(it)
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return s.getDocument(ctx, id)
}

func (s *Store) List(ctx context.Context, filter document.ListFilter) ([]*document.Document, error) {
	in := &dynamodb.ScanInput{
		TableName:      aws.String(s.tables.Documents),
		ConsistentRead: aws.Bool(true),
	}

	var (
		conds  []string
		names  = map[string]string{}
		values = map[string]types.AttributeValue{}
	)

	if filter.Kind != nil {
		conds = append(conds, "#kind = :kind")
		names["#kind"] = "kind"
		values[":kind"] = &types.AttributeValueMemberS{Value: string(*filter.Kind)}
	}

	if filter.Status != nil {
		conds = append(conds, "#status = :status")
		names["#status"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(*filter.Status)}
	}

	if filter.CustomerID != nil {
		conds = append(conds, "#customer_id = :customer_id")
		names["#customer_id"] = "customer_id"
		values[":customer_id"] = &types.AttributeValueMemberS{Value: filter.CustomerID.String()}
	}

	if len(conds) > 0 {
		expr := conds[0]
		for _, c := range conds[1:] {
			expr += " AND " + c
		}

		in.FilterExpression = aws.String(expr)
		in.ExpressionAttributeNames = names
		in.ExpressionAttributeValues = values
	}

	var docs []*document.Document

	p := dynamodb.NewScanPaginator(s.ddb, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}

		var items []docItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshalling documents: %w", err)
		}

		for _, it := range items {
			d, err := fromDocItem(it)
			if err != nil {
				return nil, err
			}

			docs = append(docs, d)
		}
	}

	sortDocuments(docs)

	return docs, nil
}

func (s *Store) ListItems(ctx context.Context) ([]inventory.Item, error) {
	var items []inventory.Item

	p := dynamodb.NewScanPaginator(s.ddb, &dynamodb.ScanInput{
		TableName:      aws.String(s.tables.Inventory),
		ConsistentRead: aws.Bool(true),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing inventory: %w", err)
		}

		var raw []stockItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &raw); err != nil {
			return nil, fmt.Errorf("unmarshalling inventory: %w", err)
		}

		for _, r := range raw {
			it, err := fromStockItem(r)
			if err != nil {
				return nil, err
			}

			items = append(items, it)
		}
	}

	sortItems(items)

	return items, nil
}

// PutItem inserts an inventory item or overwrites the one with the same ID.
func (s *Store) PutItem(ctx context.Context, it inventory.Item) error {
	av, err := attributevalue.MarshalMap(toStockItem(it))
	if err != nil {
		return fmt.Errorf("marshalling inventory item: %w", err)
	}

	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Inventory),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("saving inventory item: %w", err)
	}

	return nil
}

func (s *Store) getItem(ctx context.Context, id uuid.UUID) (inventory.Item, bool, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Inventory),
		Key:            idKey(id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return inventory.Item{}, false, fmt.Errorf("getting inventory item: %w", err)
	}

	if len(out.Item) == 0 {
		return inventory.Item{}, false, nil
	}

	var raw stockItem
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return inventory.Item{}, false, fmt.Errorf("unmarshalling inventory item: %w", err)
	}

	it, err := fromStockItem(raw)
	if err != nil {
		return inventory.Item{}, false, err
	}

	return it, true, nil
}

func (s *Store) Begin(ctx context.Context) (document.Tx, error) {
	return &Tx{
		ctx:    ctx,
		store:  s,
		read:   make(map[uuid.UUID]*document.Document),
		stock:  make(map[uuid.UUID]inventory.Item),
		writes: make(map[uuid.UUID]bool),
	}, nil
}

type opKind int

const (
	opStockDecrement opKind = iota
	opStockIncrement
	opDocument
	opMarker
	opCheck
)

// op remembers what each buffered TransactWriteItem was for, so that a
// cancellation reason can be mapped back to a domain error.
type op struct {
	kind       opKind
	itemID     uuid.UUID
	qty        int64
	estimateID uuid.UUID
}

// Tx buffers writes for one TransactWriteItems call. Documents read with
// GetForUpdate and not written are guarded by a version ConditionCheck, which
// stands in for the row lock a relational store would take.
type Tx struct {
	ctx   context.Context
	store *Store
	done  bool

	read   map[uuid.UUID]*document.Document
	stock  map[uuid.UUID]inventory.Item
	writes map[uuid.UUID]bool

	items []types.TransactWriteItem
	ops   []op
}

func (t *Tx) add(item types.TransactWriteItem, o op) {
	t.items = append(t.items, item)
	t.ops = append(t.ops, o)
}

func (t *Tx) ListItems(ctx context.Context) ([]inventory.Item, error) {
	items, err := t.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	for i, it := range items {
		if staged, ok := t.stock[it.ID]; ok {
			items[i] = staged
		}
	}

	return items, nil
}

func (t *Tx) LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Item, error) {
	out := make(map[uuid.UUID]inventory.Item, len(ids))

	for _, id := range ids {
		if it, ok := t.stock[id]; ok {
			out[id] = it
			continue
		}

		it, ok, err := t.store.getItem(ctx, id)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		t.stock[id] = it
		out[id] = it
	}

	return out, nil
}

func (t *Tx) Decrement(ctx context.Context, id uuid.UUID, qty int64) error {
	snapshot, err := t.LockItems(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}

	it, ok := snapshot[id]
	if !ok {
		return &inventory.InsufficientStockError{ItemID: id, Item: id.String(), Requested: qty}
	}

	if it.StockLevel < qty {
		return &inventory.InsufficientStockError{ItemID: id, Item: it.Name, Available: it.StockLevel, Requested: qty}
	}

	it.StockLevel -= qty
	t.stock[id] = it

	t.add(types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(t.store.tables.Inventory),
			Key:                 idKey(id.String()),
			UpdateExpression:    aws.String("SET #stock_level = #stock_level - :qty"),
			ConditionExpression: aws.String("attribute_exists(#id) AND #stock_level >= :qty"),
			ExpressionAttributeNames: map[string]string{
				"#id":          "id",
				"#stock_level": "stock_level",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":qty": &types.AttributeValueMemberN{Value: strconv.FormatInt(qty, 10)},
			},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		},
	}, op{kind: opStockDecrement, itemID: id, qty: qty})

	return nil
}

func (t *Tx) Increment(ctx context.Context, id uuid.UUID, qty int64) error {
	snapshot, err := t.LockItems(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}

	it, ok := snapshot[id]
	if !ok {
		return fmt.Errorf("inventory item %s not found", id)
	}

	it.StockLevel += qty
	t.stock[id] = it

	t.add(types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(t.store.tables.Inventory),
			Key:                 idKey(id.String()),
			UpdateExpression:    aws.String("SET #stock_level = #stock_level + :qty"),
			ConditionExpression: aws.String("attribute_exists(#id)"),
			ExpressionAttributeNames: map[string]string{
				"#id":          "id",
				"#stock_level": "stock_level",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":qty": &types.AttributeValueMemberN{Value: strconv.FormatInt(qty, 10)},
			},
		},
	}, op{kind: opStockIncrement, itemID: id, qty: qty})

	return nil
}

func (t *Tx) GetForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	d, err := t.store.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	t.read[id] = d.Clone()

	return d, nil
}

func (t *Tx) FindBySourceEstimate(ctx context.Context, estimateID uuid.UUID) (*document.Document, error) {
	out, err := t.store.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.store.tables.Counters),
		Key:            nameKey(conversionMarker(estimateID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting conversion marker: %w", err)
	}

	if len(out.Item) == 0 {
		return nil, document.ErrNotFound
	}

	var marker struct {
		InvoiceID string `dynamodbav:"invoice_id"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &marker); err != nil {
		return nil, fmt.Errorf("unmarshalling conversion marker: %w", err)
	}

	invoiceID, err := uuid.Parse(marker.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("parsing conversion marker: %w", err)
	}

	return t.store.getDocument(ctx, invoiceID)
}

// NextSequence increments the counter immediately. A transaction that later
// aborts leaves a gap in the numbering.
func (t *Tx) NextSequence(ctx context.Context, kind document.Kind) (int64, error) {
	out, err := t.store.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.store.tables.Counters),
		Key:                       nameKey(sequenceName(kind)),
		UpdateExpression:          aws.String("ADD #value :one"),
		ExpressionAttributeNames:  map[string]string{"#value": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("allocating %s number: %w", kind, err)
	}

	var counter struct {
		Value int64 `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		return 0, fmt.Errorf("unmarshalling %s counter: %w", kind, err)
	}

	return counter.Value, nil
}

func (t *Tx) Create(_ context.Context, doc *document.Document) error {
	doc.Version = 1

	av, err := attributevalue.MarshalMap(toDocItem(doc))
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	t.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(t.store.tables.Documents),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
		},
	}, op{kind: opDocument})

	if doc.SourceEstimateID != nil {
		t.add(types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(t.store.tables.Counters),
				Item: map[string]types.AttributeValue{
					"name":       &types.AttributeValueMemberS{Value: conversionMarker(*doc.SourceEstimateID)},
					"invoice_id": &types.AttributeValueMemberS{Value: doc.ID.String()},
				},
				ConditionExpression:      aws.String("attribute_not_exists(#name)"),
				ExpressionAttributeNames: map[string]string{"#name": "name"},
			},
		}, op{kind: opMarker, estimateID: *doc.SourceEstimateID})
	}

	t.writes[doc.ID] = true

	return nil
}

func (t *Tx) Update(_ context.Context, doc *document.Document) error {
	expected := doc.Version
	doc.Version++

	av, err := attributevalue.MarshalMap(toDocItem(doc))
	if err != nil {
		doc.Version = expected
		return fmt.Errorf("marshalling document: %w", err)
	}

	t.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(t.store.tables.Documents),
			Item:                     av,
			ConditionExpression:      aws.String("#version = :expected"),
			ExpressionAttributeNames: map[string]string{"#version": "version"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
			},
		},
	}, op{kind: opDocument})

	t.writes[doc.ID] = true

	return nil
}

func (t *Tx) Delete(_ context.Context, id uuid.UUID) error {
	t.add(types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:                aws.String(t.store.tables.Documents),
			Key:                      idKey(id.String()),
			ConditionExpression:      aws.String("attribute_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
		},
	}, op{kind: opDocument})

	if d, ok := t.read[id]; ok && d.SourceEstimateID != nil {
		t.add(types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(t.store.tables.Counters),
				Key:       nameKey(conversionMarker(*d.SourceEstimateID)),
			},
		}, op{kind: opMarker, estimateID: *d.SourceEstimateID})
	}

	t.writes[id] = true

	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}

	t.done = true

	for id, d := range t.read {
		if t.writes[id] {
			continue
		}

		t.add(types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                aws.String(t.store.tables.Documents),
				Key:                      idKey(id.String()),
				ConditionExpression:      aws.String("#version = :expected"),
				ExpressionAttributeNames: map[string]string{"#version": "version"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(d.Version, 10)},
				},
			},
		}, op{kind: opCheck})
	}

	if !t.hasWrites() {
		return nil
	}

	_, err := t.store.ddb.TransactWriteItems(t.ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: t.items,
	})
	if err != nil {
		return t.cancellationError(err)
	}

	return nil
}

func (t *Tx) hasWrites() bool {
	for _, o := range t.ops {
		if o.kind != opCheck {
			return true
		}
	}

	return false
}

// Rollback drops the buffered writes. Nothing reached DynamoDB yet.
func (t *Tx) Rollback() error {
	t.done = true
	t.items = nil
	t.ops = nil

	return nil
}

func (t *Tx) cancellationError(err error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("writing transaction: %w", err)
	}

	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" || i >= len(t.ops) {
			continue
		}

		o := t.ops[i]

		switch o.kind {
		case opStockDecrement:
			ise := &inventory.InsufficientStockError{ItemID: o.itemID, Item: o.itemID.String(), Requested: o.qty}

			var old stockItem
			if len(reason.Item) > 0 && attributevalue.UnmarshalMap(reason.Item, &old) == nil {
				ise.Item = old.Name
				ise.Available = old.StockLevel
			}

			return ise
		case opMarker:
			return &document.ConversionError{EstimateID: o.estimateID, Reason: "already converted"}
		case opDocument, opCheck:
			return document.ErrConflict
		}
	}

	return fmt.Errorf("writing transaction: %w", err)
}
