package core

import "context"

// Kind distinguishes relational backends from schema-less document stores.
type Kind int

const (
	// KindRelational backends speak SQL and generate sequential identifiers.
	KindRelational Kind = iota + 1
	// KindDocument backends are schema-less; the primary key is forced to "_id".
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindRelational:
		return "relational"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Sort orders results by FieldName, ascending when Order is positive and
// descending when negative.
type Sort struct {
	FieldName string
	Order     int
}

// Where is a read request in backend terms. A nil Condition matches
// everything, empty Fields selects whole records and a zero Limit is
// unbounded.
type Where struct {
	Condition *Condition
	Fields    []string
	Sort      []Sort
	Limit     int
	Offset    int
}

// Transaction is an open backend transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Backend is the query collaborator a Model runs its pipeline against.
//
// Implementations live under driver/ (postgres, mongo). A Backend never sees
// callbacks, validation or scopes: it receives fully built conditions and
// records and returns raw records.
type Backend interface {
	// Kind reports the backend family.
	Kind() Kind
	// PrepareKey converts a caller supplied primary value into the backend's
	// native identifier type (e.g. hex string to ObjectID).
	PrepareKey(value any) (any, error)

	// FindOne returns the first record matching where, or nil when none does.
	FindOne(ctx context.Context, source *Source, where *Where) (Record, error)
	// FindMany returns every record matching where, in backend order.
	FindMany(ctx context.Context, source *Source, where *Where) ([]Record, error)
	// Insert persists one record and returns its generated identifier.
	Insert(ctx context.Context, source *Source, data Record) (any, error)
	// Update applies data to the records matching condition and returns the affected count.
	Update(ctx context.Context, source *Source, condition *Condition, data Record) (int64, error)
	// Delete removes the records matching condition and returns the affected count.
	Delete(ctx context.Context, source *Source, condition *Condition) (int64, error)
	// Count returns the number of records matching condition.
	Count(ctx context.Context, source *Source, condition *Condition) (int64, error)
	// NextID returns the next auto-increment value, or ErrUnsupported.
	NextID(ctx context.Context, source *Source) (int64, error)

	// Transaction starts a new backend transaction.
	Transaction(ctx context.Context) (Transaction, error)
	// Ping checks if the underlying database is reachable.
	Ping(ctx context.Context) error
	// Close terminates the connection and releases resources.
	Close(ctx context.Context) error
}
