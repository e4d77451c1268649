// Package core is the backend-independent half of recordkit.
//
// Model[T] binds an Entity to a Backend and runs every CRUD operation through
// the same pipeline: criteria normalization, callbacks, validation gating,
// soft-delete scoping, relation loading and result shaping. Query[T] is the
// immutable builder behind reads. Middleware, events and transactions are
// process-wide and shared by every model.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// accessor is the non-generic state shared by a model and its queries.
type accessor struct {
	entity    *Entity
	backend   Backend
	validator Validator
	loader    Loader
	logger    *zap.Logger
}

// primaryCondition builds the equality predicate on the primary key.
func (a *accessor) primaryCondition(id any) (*Condition, error) {
	key, err := a.backend.PrepareKey(id)
	if err != nil {
		return nil, fmt.Errorf("core: prepare %s key: %w", a.entity.Name, err)
	}
	return Field(a.entity.PrimaryKey).Eq(key), nil
}

// primaryMembership builds the membership predicate on the primary key.
// An empty list yields nil.
func (a *accessor) primaryMembership(ids any) (*Condition, error) {
	values := toSlice(ids)
	if ids == nil || len(values) == 0 {
		return nil, nil
	}
	keys := make([]any, 0, len(values))
	for _, v := range values {
		key, err := a.backend.PrepareKey(v)
		if err != nil {
			return nil, fmt.Errorf("core: prepare %s key: %w", a.entity.Name, err)
		}
		keys = append(keys, key)
	}
	return Field(a.entity.PrimaryKey).In(keys...), nil
}

// Model is the record accessor for one data source.
//
// T is the object shape returned by read operations; use Record for models
// without a dedicated struct. Struct fields map to record fields through
// `db` tags. A Model holds no per-request state and is safe for concurrent
// use; request options live on the immutable Query values it hands out.
type Model[T any] struct {
	acc            *accessor
	skipValidation atomic.Bool
}

// NewModel creates a model bound to backend.
//
// Unless Table is given, the data source name is guessed from T: snake_case
// type name, minus a _model or _m suffix, pluralized (BookModel -> books).
// The primary key is "id" unless PrimaryKey is given, and always "_id" on
// document stores.
//
// Example:
//
//	registry := core.NewRegistry()
//	books := core.NewModel[Book](backend,
//		core.WithRegistry(registry),
//		core.SoftDelete(),
//		core.BelongsToOne("author", "author", "author_id"),
//		core.Rules(core.Rule{Field: "title", Rules: "required,max=128"}),
//	)
func NewModel[T any](backend Backend, options ...Option) *Model[T] {
	s := buildSettings[T](backend.Kind(), options...)
	entity := s.entity
	m := &Model[T]{acc: &accessor{
		entity:    &entity,
		backend:   backend,
		validator: s.validator,
		loader:    s.loader,
		logger:    s.logger.With(zap.String("source", entity.Source.String())),
	}}
	if s.registry != nil {
		s.registry.Register(entity.Label, m)
	}
	return m
}

// Entity returns the model's descriptor. It must not be modified.
func (m *Model[T]) Entity() *Entity {
	return m.acc.entity
}

// Datasource returns the table or collection name.
func (m *Model[T]) Datasource() string {
	return m.acc.entity.Name
}

// WithTenant returns a copy of the model bound to a different database.
// Useful for multi-tenant or sharded layouts.
func (m *Model[T]) WithTenant(database string) *Model[T] {
	entity := *m.acc.entity
	entity.Database = database
	acc := *m.acc
	acc.entity = &entity
	acc.logger = m.acc.logger.With(zap.String("tenant", database))
	clone := &Model[T]{acc: &acc}
	clone.skipValidation.Store(m.skipValidation.Load())
	return clone
}

// SkipValidation disables validation for every following write until
// EnableValidation is called. Per-call WriteOptions still take precedence.
func (m *Model[T]) SkipValidation() *Model[T] {
	m.skipValidation.Store(true)
	return m
}

// EnableValidation reverts SkipValidation.
func (m *Model[T]) EnableValidation() *Model[T] {
	m.skipValidation.Store(false)
	return m
}

// Query starts a request with no options, shaped as T.
func (m *Model[T]) Query() *Query[T] {
	return &Query[T]{acc: m.acc}
}

// AsArray starts a request whose results are Records.
func (m *Model[T]) AsArray() *Query[Record] {
	return &Query[Record]{acc: m.acc}
}

// AsObject starts a request whose results are T.
func (m *Model[T]) AsObject() *Query[T] {
	return m.Query()
}

// With starts a request resolving the named relations.
func (m *Model[T]) With(relations ...string) *Query[T] {
	return m.Query().With(relations...)
}

// WithDeleted starts a request that includes soft-deleted records.
func (m *Model[T]) WithDeleted() *Query[T] {
	return m.Query().WithDeleted()
}

// OnlyDeleted starts a request restricted to soft-deleted records.
func (m *Model[T]) OnlyDeleted() *Query[T] {
	return m.Query().OnlyDeleted()
}

// Select starts a request fetching only fields.
func (m *Model[T]) Select(fields ...string) *Query[T] {
	return m.Query().Select(fields...)
}

// OrderBy starts an ordered request.
func (m *Model[T]) OrderBy(field string, order int) *Query[T] {
	return m.Query().OrderBy(field, order)
}

// Limit starts a paginated request.
func (m *Model[T]) Limit(limit int, offset ...int) *Query[T] {
	return m.Query().Limit(limit, offset...)
}

// Get fetches the record whose primary key equals id, or nil.
func (m *Model[T]) Get(ctx context.Context, id any) (*T, error) {
	return m.Query().Get(ctx, id)
}

// GetBy fetches the first record matching the criteria, or nil.
func (m *Model[T]) GetBy(ctx context.Context, args ...any) (*T, error) {
	return m.Query().GetBy(ctx, args...)
}

// GetMany fetches the records whose primary key is in ids.
func (m *Model[T]) GetMany(ctx context.Context, ids any) ([]T, error) {
	return m.Query().GetMany(ctx, ids)
}

// GetManyBy fetches every record matching the criteria.
func (m *Model[T]) GetManyBy(ctx context.Context, args ...any) ([]T, error) {
	return m.Query().GetManyBy(ctx, args...)
}

// GetAll fetches every record.
func (m *Model[T]) GetAll(ctx context.Context) ([]T, error) {
	return m.Query().GetAll(ctx)
}

// Dropdown folds records into a key to value mapping.
func (m *Model[T]) Dropdown(ctx context.Context, fields ...string) (map[any]any, error) {
	return m.Query().Dropdown(ctx, fields...)
}

// CountBy counts the records matching the criteria.
func (m *Model[T]) CountBy(ctx context.Context, args ...any) (int64, error) {
	return m.Query().CountBy(ctx, args...)
}

// CountAll counts every record.
func (m *Model[T]) CountAll(ctx context.Context) (int64, error) {
	return m.Query().CountAll(ctx)
}

// FindRecords runs the read pipeline for condition, shaped as Records.
// It lets the model serve as a relationship target.
func (m *Model[T]) FindRecords(ctx context.Context, condition *Condition) ([]Record, error) {
	return m.acc.fetch(ctx, queryOptions{}, condition, false)
}

// GetNextID returns the next auto-increment value of the data source.
// Document stores return ErrUnsupported.
func (m *Model[T]) GetNextID(ctx context.Context) (int64, error) {
	if m.acc.backend.Kind() == KindDocument {
		return 0, ErrUnsupported
	}
	return m.acc.backend.NextID(ctx, &m.acc.entity.Source)
}

// WriteOption adjusts a single write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	skip *bool
}

// WithoutValidation skips validation for this write only.
func WithoutValidation() WriteOption {
	return func(o *writeOptions) {
		skip := true
		o.skip = &skip
	}
}

// WithValidation forces validation for this write even if the model skips it.
func WithValidation() WriteOption {
	return func(o *writeOptions) {
		skip := false
		o.skip = &skip
	}
}

func (m *Model[T]) shouldValidate(options []WriteOption) bool {
	o := writeOptions{}
	for _, option := range options {
		option(&o)
	}
	if o.skip != nil {
		return !*o.skip
	}
	return !m.skipValidation.Load()
}

func (m *Model[T]) validate(ctx context.Context, data Record, options []WriteOption) error {
	if !m.shouldValidate(options) {
		return nil
	}
	if err := m.acc.validator.Validate(ctx, m.acc.entity.Rules, data); err != nil {
		m.acc.logger.Debug("validation failed", zap.Error(err))
		return err
	}
	return nil
}

// conform applies the declared field set on document stores.
func (m *Model[T]) conform(data Record, withDefaults bool) Record {
	if m.acc.backend.Kind() != KindDocument {
		return data
	}
	return m.acc.entity.conform(data, withDefaults)
}

// markLive sets the soft-delete marker to false on records that do not carry
// it, so fresh records pass the default read scope on every backend.
func (m *Model[T]) markLive(data Record) Record {
	entity := m.acc.entity
	if !entity.SoftDelete {
		return data
	}
	if _, ok := data[entity.SoftDeleteKey]; ok {
		return data
	}
	out := data.Clone()
	if out == nil {
		out = Record{}
	}
	out[entity.SoftDeleteKey] = false
	return out
}

// Insert runs before_create, validation, the backend insert and after_create,
// and returns the generated identifier.
//
// A validation failure returns an error matching ErrValidation without
// calling the backend or any after_create callback.
func (m *Model[T]) Insert(ctx context.Context, data Record, options ...WriteOption) (any, error) {
	entity := m.acc.entity
	source := &entity.Source

	before := &Payload{Hook: BeforeCreate, Source: source, Data: data.Without(entity.Protected...)}
	if err := entity.Callbacks.run(ctx, before); err != nil {
		return nil, err
	}
	if err := m.validate(ctx, before.Data, options); err != nil {
		return nil, err
	}

	row := m.conform(m.markLive(before.Data), true)
	var id any
	err := dispatchOperation(ctx, OperationInsert, source, row, func(ctx context.Context) error {
		var err error
		id, err = m.acc.backend.Insert(ctx, source, row)
		return err
	})
	if err != nil {
		return nil, err
	}

	after := &Payload{Hook: AfterCreate, Source: source, Data: row, ID: id}
	if err := entity.Callbacks.run(ctx, after); err != nil {
		return id, err
	}
	Emit(EventInsert, InsertPayload{Source: source, Data: detach(after.Data), ID: id})
	return id, nil
}

// InsertResult is the outcome of one row of InsertMany.
type InsertResult struct {
	ID  any
	Err error
}

// InsertMany inserts rows one by one, each independently validated.
//
// A row failing validation records its error in its slot and does not stop
// the following rows. Any other error aborts and is returned along with the
// results collected so far.
func (m *Model[T]) InsertMany(ctx context.Context, rows []Record, options ...WriteOption) ([]InsertResult, error) {
	results := make([]InsertResult, 0, len(rows))
	for _, row := range rows {
		id, err := m.Insert(ctx, row, options...)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				results = append(results, InsertResult{Err: err})
				continue
			}
			return results, err
		}
		results = append(results, InsertResult{ID: id})
	}
	return results, nil
}

// Update modifies the record whose primary key equals id.
func (m *Model[T]) Update(ctx context.Context, id any, data Record, options ...WriteOption) (int64, error) {
	cond, err := m.acc.primaryCondition(id)
	if err != nil {
		return 0, err
	}
	return m.update(ctx, cond, data, options)
}

// UpdateMany modifies the records whose primary key is in ids (any slice).
func (m *Model[T]) UpdateMany(ctx context.Context, ids any, data Record, options ...WriteOption) (int64, error) {
	cond, err := m.acc.primaryMembership(ids)
	if err != nil || cond == nil {
		return 0, err
	}
	return m.update(ctx, cond, data, options)
}

// UpdateBy modifies the records matching the criteria.
func (m *Model[T]) UpdateBy(ctx context.Context, data Record, args ...any) (int64, error) {
	cond, err := Criteria(args...)
	if err != nil {
		return 0, err
	}
	return m.update(ctx, cond, data, nil)
}

// UpdateAll modifies every record.
func (m *Model[T]) UpdateAll(ctx context.Context, data Record, options ...WriteOption) (int64, error) {
	return m.update(ctx, nil, data, options)
}

func (m *Model[T]) update(ctx context.Context, cond *Condition, data Record, options []WriteOption) (int64, error) {
	entity := m.acc.entity
	source := &entity.Source

	before := &Payload{Hook: BeforeUpdate, Source: source, Data: data.Without(entity.Protected...), Where: cond}
	if err := entity.Callbacks.run(ctx, before); err != nil {
		return 0, err
	}
	if err := m.validate(ctx, before.Data, options); err != nil {
		return 0, err
	}

	row := m.conform(before.Data, false)
	var affected int64
	err := dispatchOperation(ctx, OperationUpdate, source, row, func(ctx context.Context) error {
		var err error
		affected, err = m.acc.backend.Update(ctx, source, before.Where, row)
		return err
	})
	if err != nil {
		return 0, err
	}

	after := &Payload{Hook: AfterUpdate, Source: source, Data: row, Where: before.Where, Affected: affected}
	if err := entity.Callbacks.run(ctx, after); err != nil {
		return affected, err
	}
	Emit(EventUpdate, UpdatePayload{Source: source, Condition: before.Where, Data: detach(after.Data), Affected: affected})
	return affected, nil
}

// Delete removes the record whose primary key equals id.
func (m *Model[T]) Delete(ctx context.Context, id any) (int64, error) {
	cond, err := m.acc.primaryCondition(id)
	if err != nil {
		return 0, err
	}
	return m.delete(ctx, cond)
}

// DeleteMany removes the records whose primary key is in ids (any slice).
func (m *Model[T]) DeleteMany(ctx context.Context, ids any) (int64, error) {
	cond, err := m.acc.primaryMembership(ids)
	if err != nil || cond == nil {
		return 0, err
	}
	return m.delete(ctx, cond)
}

// DeleteBy removes the records matching the criteria.
func (m *Model[T]) DeleteBy(ctx context.Context, args ...any) (int64, error) {
	cond, err := Criteria(args...)
	if err != nil {
		return 0, err
	}
	return m.delete(ctx, cond)
}

// delete runs before_delete, the backend delete and after_delete. On
// soft-delete entities the backend receives an update setting the marker to
// true instead; update callbacks do not run.
func (m *Model[T]) delete(ctx context.Context, cond *Condition) (int64, error) {
	entity := m.acc.entity
	source := &entity.Source

	before := &Payload{Hook: BeforeDelete, Source: source, Where: cond}
	if err := entity.Callbacks.run(ctx, before); err != nil {
		return 0, err
	}

	var affected int64
	err := dispatchOperation(ctx, OperationDelete, source, before.Where, func(ctx context.Context) error {
		var err error
		if entity.SoftDelete {
			m.acc.logger.Debug("soft delete", zap.String("marker", entity.SoftDeleteKey))
			affected, err = m.acc.backend.Update(ctx, source, before.Where, Record{entity.SoftDeleteKey: true})
			return err
		}
		affected, err = m.acc.backend.Delete(ctx, source, before.Where)
		return err
	})
	if err != nil {
		return 0, err
	}

	after := &Payload{Hook: AfterDelete, Source: source, Where: before.Where, Affected: affected}
	if err := entity.Callbacks.run(ctx, after); err != nil {
		return affected, err
	}
	Emit(EventDelete, DeletePayload{Source: source, Condition: before.Where, Affected: affected, Soft: entity.SoftDelete})
	return affected, nil
}
