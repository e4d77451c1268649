// Package postgres implements core.Backend on top of pgx.
//
// Statements are assembled with squirrel using $n placeholders, identifiers
// are sanitized with pgx.Identifier and rows are returned as core.Record.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leandroluk/recordkit/core"
)

// Pool is the connection pool contract. It is satisfied by *pgxpool.Pool and
// by pgxmock.PgxPoolIface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Driver is the relational core.Backend.
type Driver struct {
	pool Pool
}

var _ core.Backend = (*Driver)(nil)

// New wraps an open pool.
func New(pool Pool) *Driver {
	return &Driver{pool: pool}
}

func (d *Driver) Kind() core.Kind { return core.KindRelational }

// PrepareKey returns value unchanged; PostgreSQL casts parameters itself.
func (d *Driver) PrepareKey(value any) (any, error) { return value, nil }

func (d *Driver) selectBuilder(source *core.Source, where *core.Where) (sq.SelectBuilder, error) {
	columns := []string{"*"}
	if len(where.Fields) > 0 {
		columns = quoteAll(where.Fields)
	}
	query := builder.Select(columns...).From(table(source))

	predicate, err := buildCondition(where.Condition)
	if err != nil {
		return query, err
	}
	if predicate != nil {
		query = query.Where(predicate)
	}
	for _, s := range where.Sort {
		direction := "ASC"
		if s.Order < 0 {
			direction = "DESC"
		}
		query = query.OrderBy(quote(s.FieldName) + " " + direction)
	}
	if where.Limit > 0 {
		query = query.Limit(uint64(where.Limit))
	}
	if where.Offset > 0 {
		query = query.Offset(uint64(where.Offset))
	}
	return query, nil
}

func (d *Driver) find(ctx context.Context, source *core.Source, where *core.Where) ([]core.Record, error) {
	query, err := d.selectBuilder(source, where)
	if err != nil {
		return nil, err
	}
	statement, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := d.querierFrom(ctx).Query(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := rows.FieldDescriptions()
	var records []core.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(core.Record, len(columns))
		for i, column := range columns {
			record[column.Name] = values[i]
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (d *Driver) FindOne(ctx context.Context, source *core.Source, where *core.Where) (core.Record, error) {
	single := *where
	single.Limit = 1
	records, err := d.find(ctx, source, &single)
	if err != nil {
		return nil, wrapError("find", source, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (d *Driver) FindMany(ctx context.Context, source *core.Source, where *core.Where) ([]core.Record, error) {
	records, err := d.find(ctx, source, where)
	if err != nil {
		return nil, wrapError("find", source, err)
	}
	return records, nil
}

// Insert writes one row and returns the primary key reported by RETURNING.
func (d *Driver) Insert(ctx context.Context, source *core.Source, data core.Record) (any, error) {
	var (
		statement string
		args      []any
		err       error
	)
	returning := "RETURNING " + quote(source.PrimaryKey)
	if len(data) == 0 {
		statement = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES %s", table(source), returning)
	} else {
		values := make(map[string]any, len(data))
		for column, value := range data {
			values[quote(column)] = value
		}
		statement, args, err = builder.Insert(table(source)).SetMap(values).Suffix(returning).ToSql()
		if err != nil {
			return nil, wrapError("insert", source, err)
		}
	}

	var id any
	if err := d.querierFrom(ctx).QueryRow(ctx, statement, args...).Scan(&id); err != nil {
		return nil, wrapError("insert", source, err)
	}
	return id, nil
}

func (d *Driver) Update(ctx context.Context, source *core.Source, condition *core.Condition, data core.Record) (int64, error) {
	values := make(map[string]any, len(data))
	for column, value := range data {
		values[quote(column)] = value
	}
	query := builder.Update(table(source)).SetMap(values)

	predicate, err := buildCondition(condition)
	if err != nil {
		return 0, wrapError("update", source, err)
	}
	if predicate != nil {
		query = query.Where(predicate)
	}
	statement, args, err := query.ToSql()
	if err != nil {
		return 0, wrapError("update", source, err)
	}
	return d.exec(ctx, "update", source, statement, args)
}

func (d *Driver) Delete(ctx context.Context, source *core.Source, condition *core.Condition) (int64, error) {
	query := builder.Delete(table(source))

	predicate, err := buildCondition(condition)
	if err != nil {
		return 0, wrapError("delete", source, err)
	}
	if predicate != nil {
		query = query.Where(predicate)
	}
	statement, args, err := query.ToSql()
	if err != nil {
		return 0, wrapError("delete", source, err)
	}
	return d.exec(ctx, "delete", source, statement, args)
}

func (d *Driver) Count(ctx context.Context, source *core.Source, condition *core.Condition) (int64, error) {
	query := builder.Select("COUNT(*)").From(table(source))

	predicate, err := buildCondition(condition)
	if err != nil {
		return 0, wrapError("count", source, err)
	}
	if predicate != nil {
		query = query.Where(predicate)
	}
	statement, args, err := query.ToSql()
	if err != nil {
		return 0, wrapError("count", source, err)
	}

	var total int64
	if err := d.querierFrom(ctx).QueryRow(ctx, statement, args...).Scan(&total); err != nil {
		return 0, wrapError("count", source, err)
	}
	return total, nil
}

// nextIDQuery reads the serial sequence behind the primary key without
// consuming a value.
const nextIDQuery = `SELECT COALESCE(s.last_value, s.start_value - s.increment_by) + s.increment_by
FROM pg_sequences s
WHERE quote_ident(s.schemaname) || '.' || quote_ident(s.sequencename) = pg_get_serial_sequence($1, $2)`

// NextID returns the value the primary key sequence will hand out next.
func (d *Driver) NextID(ctx context.Context, source *core.Source) (int64, error) {
	relation := source.Name
	if source.Database != "" {
		relation = source.Database + "." + source.Name
	}

	var next int64
	err := d.querierFrom(ctx).QueryRow(ctx, nextIDQuery, relation, source.PrimaryKey).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s has no serial primary key", core.ErrUnsupported, source)
	}
	if err != nil {
		return 0, wrapError("next id", source, err)
	}
	return next, nil
}

func (d *Driver) Transaction(ctx context.Context) (core.Transaction, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin transaction: %w", err)
	}
	return &transaction{tx: tx}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Driver) Close(context.Context) error {
	d.pool.Close()
	return nil
}

func (d *Driver) exec(ctx context.Context, op string, source *core.Source, statement string, args []any) (int64, error) {
	tag, err := d.querierFrom(ctx).Exec(ctx, statement, args...)
	if err != nil {
		return 0, wrapError(op, source, err)
	}
	return tag.RowsAffected(), nil
}

// wrapError prefixes driver errors with the operation and source, plus the
// SQLSTATE when the server rejected the statement.
func wrapError(op string, source *core.Source, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres: %s %s [%s]: %w", op, source, pgErr.Code, err)
	}
	return fmt.Errorf("postgres: %s %s: %w", op, source, err)
}
