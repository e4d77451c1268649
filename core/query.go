package core

import (
	"context"
	"fmt"
	"slices"
)

// queryOptions are the one-shot request options of a Query.
type queryOptions struct {
	relations   []string
	withDeleted bool
	onlyDeleted bool
	fields      []string
	sort        []Sort
	limit       int
	offset      int
}

// Query is an immutable set of request options bound to a model.
//
// Every chained call returns a new Query and leaves the receiver untouched,
// so options only ever apply to the terminal call they are chained into.
// T is the result shape: the model type, or Record for the array shape.
//
// Example:
//
//	books, err := bookModel.
//		With("author").
//		OrderBy("title", 1).
//		Limit(10).
//		GetManyBy(ctx, "published", true)
type Query[T any] struct {
	acc  *accessor
	opts queryOptions
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.opts.relations = slices.Clone(q.opts.relations)
	c.opts.fields = slices.Clone(q.opts.fields)
	c.opts.sort = slices.Clone(q.opts.sort)
	return &c
}

// AsArray returns the same request shaped as Records.
func (q *Query[T]) AsArray() *Query[Record] {
	return &Query[Record]{acc: q.acc, opts: q.clone().opts}
}

// With resolves the named relations on every fetched record.
func (q *Query[T]) With(relations ...string) *Query[T] {
	c := q.clone()
	c.opts.relations = append(c.opts.relations, relations...)
	return c
}

// WithDeleted includes soft-deleted records.
func (q *Query[T]) WithDeleted() *Query[T] {
	c := q.clone()
	c.opts.withDeleted = true
	c.opts.onlyDeleted = false
	return c
}

// OnlyDeleted restricts results to soft-deleted records.
func (q *Query[T]) OnlyDeleted() *Query[T] {
	c := q.clone()
	c.opts.onlyDeleted = true
	c.opts.withDeleted = false
	return c
}

// Select restricts the fields fetched from the backend.
func (q *Query[T]) Select(fields ...string) *Query[T] {
	c := q.clone()
	c.opts.fields = append(c.opts.fields, fields...)
	return c
}

// OrderBy adds an ordering rule. Order is 1 (ASC) or -1 (DESC).
func (q *Query[T]) OrderBy(field string, order int) *Query[T] {
	c := q.clone()
	c.opts.sort = append(c.opts.sort, Sort{FieldName: field, Order: order})
	return c
}

// Limit caps the number of results, optionally skipping offset rows first.
func (q *Query[T]) Limit(limit int, offset ...int) *Query[T] {
	c := q.clone()
	c.opts.limit = limit
	if len(offset) > 0 {
		c.opts.offset = offset[0]
	}
	return c
}

// Get fetches the record whose primary key equals id. It returns nil when
// nothing matches.
func (q *Query[T]) Get(ctx context.Context, id any) (*T, error) {
	cond, err := q.acc.primaryCondition(id)
	if err != nil {
		return nil, err
	}
	return q.one(ctx, cond)
}

// GetBy fetches the first record matching the criteria. See Criteria for the
// accepted argument forms.
func (q *Query[T]) GetBy(ctx context.Context, args ...any) (*T, error) {
	cond, err := Criteria(args...)
	if err != nil {
		return nil, err
	}
	return q.one(ctx, cond)
}

// GetMany fetches the records whose primary key is in ids (any slice).
func (q *Query[T]) GetMany(ctx context.Context, ids any) ([]T, error) {
	cond, err := q.acc.primaryMembership(ids)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return []T{}, nil
	}
	return q.many(ctx, cond)
}

// GetManyBy fetches every record matching the criteria.
func (q *Query[T]) GetManyBy(ctx context.Context, args ...any) ([]T, error) {
	cond, err := Criteria(args...)
	if err != nil {
		return nil, err
	}
	return q.many(ctx, cond)
}

// GetAll fetches every record.
func (q *Query[T]) GetAll(ctx context.Context) ([]T, error) {
	return q.many(ctx, nil)
}

// Dropdown folds records into a key to value mapping. With one field the key
// is the primary key; with two, the first field is the key. Later keys win.
func (q *Query[T]) Dropdown(ctx context.Context, fields ...string) (map[any]any, error) {
	var key, value string
	switch len(fields) {
	case 1:
		key, value = q.acc.entity.PrimaryKey, fields[0]
	case 2:
		key, value = fields[0], fields[1]
	default:
		return nil, fmt.Errorf("core: dropdown takes 1 or 2 fields, got %d", len(fields))
	}
	opts := q.clone().opts
	opts.fields = []string{key, value}
	records, err := q.acc.fetch(ctx, opts, nil, false)
	if err != nil {
		return nil, err
	}
	out := make(map[any]any, len(records))
	for _, record := range records {
		out[record[key]] = record[value]
	}
	return out, nil
}

// CountBy counts the records matching the criteria. No callbacks run.
func (q *Query[T]) CountBy(ctx context.Context, args ...any) (int64, error) {
	cond, err := Criteria(args...)
	if err != nil {
		return 0, err
	}
	return q.acc.count(ctx, q.opts, cond)
}

// CountAll counts every record. No callbacks run.
func (q *Query[T]) CountAll(ctx context.Context) (int64, error) {
	return q.acc.count(ctx, q.opts, nil)
}

// Relate resolves the query's relations onto already fetched records, in place.
func (q *Query[T]) Relate(ctx context.Context, records ...Record) error {
	return relate(ctx, q.acc.entity, q.acc.loader, q.opts.relations, records)
}

func (q *Query[T]) one(ctx context.Context, cond *Condition) (*T, error) {
	records, err := q.acc.fetch(ctx, q.opts, cond, true)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return typecast[T](records[0])
}

func (q *Query[T]) many(ctx context.Context, cond *Condition) ([]T, error) {
	records, err := q.acc.fetch(ctx, q.opts, cond, false)
	if err != nil {
		return nil, err
	}
	return typecastAll[T](records)
}

// scopeDeleted ANDs the soft-delete predicate onto cond.
func (a *accessor) scopeDeleted(cond *Condition, opts queryOptions) *Condition {
	if !a.entity.SoftDelete || opts.withDeleted {
		return cond
	}
	marker := Field(a.entity.SoftDeleteKey).Eq(false)
	if opts.onlyDeleted {
		marker = Field(a.entity.SoftDeleteKey).Eq(true)
	}
	return foldConditionsAnd(cond, marker)
}

// fetch is the single read path: soft-delete scoping, before_get, backend
// read, relation resolution, then after_get per record in order.
func (a *accessor) fetch(ctx context.Context, opts queryOptions, cond *Condition, single bool) ([]Record, error) {
	source := &a.entity.Source
	before := &Payload{Hook: BeforeGet, Source: source, Where: a.scopeDeleted(cond, opts)}
	if err := a.entity.Callbacks.run(ctx, before); err != nil {
		return nil, err
	}

	where := &Where{
		Condition: before.Where,
		Fields:    opts.fields,
		Sort:      opts.sort,
		Limit:     opts.limit,
		Offset:    opts.offset,
	}
	if single {
		where.Limit = 1
	}

	var records []Record
	err := dispatchOperation(ctx, OperationFind, source, where, func(ctx context.Context) error {
		if single {
			record, err := a.backend.FindOne(ctx, source, where)
			if err != nil {
				return err
			}
			if record != nil {
				records = []Record{record}
			}
			return nil
		}
		var err error
		records, err = a.backend.FindMany(ctx, source, where)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(opts.relations) > 0 {
		if err := relate(ctx, a.entity, a.loader, opts.relations, records); err != nil {
			return nil, err
		}
	}

	for i, record := range records {
		after := &Payload{Hook: AfterGet, Source: source, Data: record, Where: where.Condition}
		if err := a.entity.Callbacks.run(ctx, after); err != nil {
			return nil, err
		}
		records[i] = after.Data
	}

	Emit(EventFind, FindPayload{Source: source, Where: where, Records: detachAll(records)})
	return records, nil
}

// count delegates to the backend with soft-delete scoping and no callbacks.
func (a *accessor) count(ctx context.Context, opts queryOptions, cond *Condition) (int64, error) {
	source := &a.entity.Source
	cond = a.scopeDeleted(cond, opts)
	var total int64
	err := dispatchOperation(ctx, OperationCount, source, cond, func(ctx context.Context) error {
		var err error
		total, err = a.backend.Count(ctx, source, cond)
		return err
	})
	return total, err
}
