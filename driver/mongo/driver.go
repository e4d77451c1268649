// Package mongo implements core.Backend on a MongoDB database.
//
// Conditions become query documents, raw predicates are read as extended
// JSON, and hexadecimal primary keys are converted to ObjectIDs.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/leandroluk/recordkit/config"
	"github.com/leandroluk/recordkit/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Driver is the document-store core.Backend.
type Driver struct {
	client   *mongo.Client
	database string
}

var _ core.Backend = (*Driver)(nil)

// New wraps a connected client. database is used for sources that do not
// name their own.
func New(client *mongo.Client, database string) *Driver {
	return &Driver{client: client, database: database}
}

// Open connects a client from cfg, pings the primary and wraps it in a Driver.
func Open(ctx context.Context, cfg config.MongoConfig) (*Driver, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client, cfg.Database), nil
}

func (d *Driver) Kind() core.Kind { return core.KindDocument }

// PrepareKey converts 24 character hexadecimal strings to ObjectIDs. Other
// values are returned unchanged.
func (d *Driver) PrepareKey(value any) (any, error) {
	if s, ok := value.(string); ok && primitive.IsValidObjectID(s) {
		return primitive.ObjectIDFromHex(s)
	}
	return value, nil
}

func (d *Driver) collection(source *core.Source) (*mongo.Collection, error) {
	database := source.Database
	if database == "" {
		database = d.database
	}
	if database == "" {
		return nil, fmt.Errorf("mongo: %s: no database configured", source.Name)
	}
	return d.client.Database(database).Collection(source.Name), nil
}

func (d *Driver) FindOne(ctx context.Context, source *core.Source, where *core.Where) (core.Record, error) {
	coll, filter, err := d.prepare(source, where.Condition)
	if err != nil {
		return nil, err
	}
	opts := options.FindOne()
	if fields := projection(where.Fields); fields != nil {
		opts.SetProjection(fields)
	}
	if sort := sortDocument(where.Sort); sort != nil {
		opts.SetSort(sort)
	}
	if where.Offset > 0 {
		opts.SetSkip(int64(where.Offset))
	}

	var record core.Record
	err = coll.FindOne(withSession(ctx), filter, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("find", source, err)
	}
	return record, nil
}

func (d *Driver) FindMany(ctx context.Context, source *core.Source, where *core.Where) ([]core.Record, error) {
	coll, filter, err := d.prepare(source, where.Condition)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if fields := projection(where.Fields); fields != nil {
		opts.SetProjection(fields)
	}
	if sort := sortDocument(where.Sort); sort != nil {
		opts.SetSort(sort)
	}
	if where.Limit > 0 {
		opts.SetLimit(int64(where.Limit))
	}
	if where.Offset > 0 {
		opts.SetSkip(int64(where.Offset))
	}

	ctx = withSession(ctx)
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapError("find", source, err)
	}
	records := []core.Record{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, wrapError("find", source, err)
	}
	return records, nil
}

// Insert stores one document and returns its _id, generated client side when
// absent.
func (d *Driver) Insert(ctx context.Context, source *core.Source, data core.Record) (any, error) {
	coll, err := d.collection(source)
	if err != nil {
		return nil, err
	}
	result, err := coll.InsertOne(withSession(ctx), data)
	if err != nil {
		return nil, wrapError("insert", source, err)
	}
	return result.InsertedID, nil
}

// Update sets data on every matching document and returns the matched count.
func (d *Driver) Update(ctx context.Context, source *core.Source, condition *core.Condition, data core.Record) (int64, error) {
	coll, filter, err := d.prepare(source, condition)
	if err != nil {
		return 0, err
	}
	result, err := coll.UpdateMany(withSession(ctx), filter, bson.M{"$set": data})
	if err != nil {
		return 0, wrapError("update", source, err)
	}
	return result.MatchedCount, nil
}

func (d *Driver) Delete(ctx context.Context, source *core.Source, condition *core.Condition) (int64, error) {
	coll, filter, err := d.prepare(source, condition)
	if err != nil {
		return 0, err
	}
	result, err := coll.DeleteMany(withSession(ctx), filter)
	if err != nil {
		return 0, wrapError("delete", source, err)
	}
	return result.DeletedCount, nil
}

func (d *Driver) Count(ctx context.Context, source *core.Source, condition *core.Condition) (int64, error) {
	coll, filter, err := d.prepare(source, condition)
	if err != nil {
		return 0, err
	}
	total, err := coll.CountDocuments(withSession(ctx), filter)
	if err != nil {
		return 0, wrapError("count", source, err)
	}
	return total, nil
}

// NextID is not available on document stores.
func (d *Driver) NextID(context.Context, *core.Source) (int64, error) {
	return 0, fmt.Errorf("%w: document stores have no sequential identifiers", core.ErrUnsupported)
}

func (d *Driver) Transaction(context.Context) (core.Transaction, error) {
	session, err := d.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("mongo: start session: %w", err)
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(context.Background())
		return nil, fmt.Errorf("mongo: start transaction: %w", err)
	}
	return &transaction{session: session}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *Driver) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *Driver) prepare(source *core.Source, condition *core.Condition) (*mongo.Collection, bson.M, error) {
	coll, err := d.collection(source)
	if err != nil {
		return nil, nil, err
	}
	filter, err := buildFilter(condition)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: %s: %w", source, err)
	}
	return coll, filter, nil
}

func wrapError(op string, source *core.Source, err error) error {
	return fmt.Errorf("mongo: %s %s: %w", op, source, err)
}
