package core

import (
	"context"
	"reflect"
	"sync"
)

// backendCall records one round trip received by fakeBackend.
type backendCall struct {
	Op        string
	Source    string
	Where     *Where
	Condition *Condition
	Data      Record
}

// fakeBackend is an in-memory Backend that evaluates conditions against
// seeded records and records every call.
type fakeBackend struct {
	mutex  sync.Mutex
	kind   Kind
	tables map[string][]Record
	serial map[string]int
	calls  []backendCall
	nextID int64
	tx     *fakeTransaction
}

func newFakeBackend(kind Kind) *fakeBackend {
	return &fakeBackend{
		kind:   kind,
		tables: map[string][]Record{},
		serial: map[string]int{},
	}
}

func (f *fakeBackend) seed(table string, rows ...Record) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for _, row := range rows {
		f.tables[table] = append(f.tables[table], row.Clone())
	}
}

func (f *fakeBackend) callsOf(op string) []backendCall {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var out []backendCall
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) rows(table string) []Record {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.tables[table]
}

func (f *fakeBackend) record(c backendCall) {
	f.calls = append(f.calls, c)
}

func matches(c *Condition, r Record) bool {
	if c == nil || c.Operator == nil {
		return true
	}
	switch *c.Operator {
	case OpAnd:
		for _, child := range c.Children {
			if !matches(child, r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range c.Children {
			if matches(child, r) {
				return true
			}
		}
		return false
	case OpNot:
		return !matches(c.Children[0], r)
	case OpEq:
		v, ok := r[c.FieldName]
		return ok && sameValue(v, c.Value)
	case OpIn:
		v, ok := r[c.FieldName]
		if !ok {
			return false
		}
		for _, candidate := range c.Value.([]any) {
			if sameValue(v, candidate) {
				return true
			}
		}
		return false
	case OpNil:
		return r[c.FieldName] == nil
	default:
		return true
	}
}

// sameValue compares like the real backends: numbers by value across widths,
// everything else only within the same type.
func sameValue(a, b any) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func project(r Record, fields []string) Record {
	if len(fields) == 0 {
		return r.Clone()
	}
	out := Record{}
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (f *fakeBackend) Kind() Kind { return f.kind }

func (f *fakeBackend) PrepareKey(value any) (any, error) { return value, nil }

func (f *fakeBackend) FindOne(_ context.Context, source *Source, where *Where) (Record, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "FindOne", Source: source.String(), Where: where, Condition: where.Condition})
	for _, r := range f.tables[source.String()] {
		if matches(where.Condition, r) {
			return project(r, where.Fields), nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) FindMany(_ context.Context, source *Source, where *Where) ([]Record, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "FindMany", Source: source.String(), Where: where, Condition: where.Condition})
	var out []Record
	skipped := 0
	for _, r := range f.tables[source.String()] {
		if !matches(where.Condition, r) {
			continue
		}
		if skipped < where.Offset {
			skipped++
			continue
		}
		out = append(out, project(r, where.Fields))
		if where.Limit > 0 && len(out) == where.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeBackend) Insert(_ context.Context, source *Source, data Record) (any, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "Insert", Source: source.String(), Data: data.Clone()})
	row := data.Clone()
	id, ok := row[source.PrimaryKey]
	if !ok {
		f.serial[source.String()]++
		id = f.serial[source.String()]
		row[source.PrimaryKey] = id
	}
	f.tables[source.String()] = append(f.tables[source.String()], row)
	return id, nil
}

func (f *fakeBackend) Update(_ context.Context, source *Source, condition *Condition, data Record) (int64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "Update", Source: source.String(), Condition: condition, Data: data.Clone()})
	var affected int64
	for _, r := range f.tables[source.String()] {
		if matches(condition, r) {
			for k, v := range data {
				r[k] = v
			}
			affected++
		}
	}
	return affected, nil
}

func (f *fakeBackend) Delete(_ context.Context, source *Source, condition *Condition) (int64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "Delete", Source: source.String(), Condition: condition})
	var kept []Record
	var affected int64
	for _, r := range f.tables[source.String()] {
		if matches(condition, r) {
			affected++
			continue
		}
		kept = append(kept, r)
	}
	f.tables[source.String()] = kept
	return affected, nil
}

func (f *fakeBackend) Count(_ context.Context, source *Source, condition *Condition) (int64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "Count", Source: source.String(), Condition: condition})
	var total int64
	for _, r := range f.tables[source.String()] {
		if matches(condition, r) {
			total++
		}
	}
	return total, nil
}

func (f *fakeBackend) NextID(_ context.Context, source *Source) (int64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record(backendCall{Op: "NextID", Source: source.String()})
	if f.kind == KindDocument {
		return 0, ErrUnsupported
	}
	return f.nextID, nil
}

func (f *fakeBackend) Transaction(context.Context) (Transaction, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.tx = &fakeTransaction{}
	return f.tx, nil
}

func (f *fakeBackend) Ping(context.Context) error { return nil }

func (f *fakeBackend) Close(context.Context) error { return nil }

type fakeTransaction struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTransaction) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTransaction) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}
