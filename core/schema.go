package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
)

// DefaultPrimaryKey is the primary key of relational entities unless overridden.
const DefaultPrimaryKey = "id"

// DocumentPrimaryKey is the primary key forced on document-store entities.
const DocumentPrimaryKey = "_id"

// DefaultSoftDeleteKey is the marker field used by SoftDelete without arguments.
const DefaultSoftDeleteKey = "deleted"

// Source locates an entity's records inside a backend.
type Source struct {
	Database   string
	Name       string
	PrimaryKey string
}

func (s *Source) String() string {
	if s.Database != "" {
		return s.Database + "." + s.Name
	}
	return s.Name
}

// RelationKind defines the type of relationship between entities.
type RelationKind int

const (
	// BelongsTo attaches the single related record referenced by a local foreign key.
	BelongsTo RelationKind = 1
	// HasMany attaches every related record whose foreign key points back here.
	HasMany RelationKind = 2
)

func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return "belongs_to"
	case HasMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// Relation declares a relationship edge.
//
// For BelongsTo, ForeignKey is a field on this entity and LocalKey a field on
// the related entity (its primary key when empty). For HasMany, ForeignKey is
// a field on the related entity and LocalKey a field on this entity (its
// primary key when empty).
type Relation struct {
	Kind       RelationKind
	Name       string // field the related data is attached under
	Entity     string // loader name of the related model
	ForeignKey string
	LocalKey   string
}

// Entity is the immutable descriptor of a model.
type Entity struct {
	Source
	Label         string
	Fields        Record
	Relations     []Relation
	SoftDelete    bool
	SoftDeleteKey string
	Rules         []Rule
	Protected     []string
	Callbacks     Callbacks
}

// relation finds a declared relation by name.
func (e *Entity) relation(name string) (Relation, bool) {
	for _, r := range e.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// conform prunes data against the declared field set of a schema-less entity:
// undeclared keys are dropped, basic scalars are coerced to strings and, when
// withDefaults is set, declared defaults fill absent keys. The primary key and
// the soft-delete marker are always kept, and the marker stays a boolean.
func (e *Entity) conform(data Record, withDefaults bool) Record {
	if len(e.Fields) == 0 {
		return data
	}
	out := Record{}
	if withDefaults {
		for k, v := range e.Fields {
			out[k] = v
		}
	}
	for k, v := range data {
		if e.SoftDelete && k == e.SoftDeleteKey {
			out[k] = v
			continue
		}
		if _, declared := e.Fields[k]; !declared && k != e.PrimaryKey {
			continue
		}
		out[k] = canonical(v)
	}
	return out
}

func canonical(v any) any {
	if v == nil {
		return nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v)
	default:
		return v
	}
}

// settings collects options before the entity is frozen.
type settings struct {
	entity    Entity
	validator Validator
	loader    Loader
	registry  *Registry
	logger    *zap.Logger
}

// Option configures a model at construction.
type Option func(*settings)

// Table sets the data source name, bypassing name guessing.
func Table(name string) Option {
	return func(s *settings) { s.entity.Name = name }
}

// Database sets the database (schema) the data source lives in.
func Database(name string) Option {
	return func(s *settings) { s.entity.Database = name }
}

// PrimaryKey overrides the primary key field. Document stores ignore it.
func PrimaryKey(field string) Option {
	return func(s *settings) { s.entity.PrimaryKey = field }
}

// Label sets the name the model registers under in a Registry.
func Label(name string) Option {
	return func(s *settings) { s.entity.Label = name }
}

// Fields declares the field set and defaults of a schema-less entity.
func Fields(defaults Record) Option {
	return func(s *settings) { s.entity.Fields = defaults.Clone() }
}

// SoftDelete turns deletes into marker updates. The marker defaults to "deleted".
func SoftDelete(key ...string) Option {
	return func(s *settings) {
		s.entity.SoftDelete = true
		s.entity.SoftDeleteKey = DefaultSoftDeleteKey
		if len(key) > 0 && key[0] != "" {
			s.entity.SoftDeleteKey = key[0]
		}
	}
}

// Relations declares relationship edges.
func Relations(relations ...Relation) Option {
	return func(s *settings) { s.entity.Relations = append(s.entity.Relations, relations...) }
}

// BelongsToOne declares a belongs_to edge: foreignKey on this entity references
// the primary key of entity.
func BelongsToOne(name, entity, foreignKey string) Option {
	return Relations(Relation{Kind: BelongsTo, Name: name, Entity: entity, ForeignKey: foreignKey})
}

// HasManyOf declares a has_many edge: foreignKey on entity references this
// entity's primary key.
func HasManyOf(name, entity, foreignKey string) Option {
	return Relations(Relation{Kind: HasMany, Name: name, Entity: entity, ForeignKey: foreignKey})
}

// Observe registers callbacks for a lifecycle hook, in declaration order.
func Observe(hook Hook, callbacks ...Callback) Option {
	return func(s *settings) { s.entity.Callbacks.register(hook, callbacks...) }
}

// Rules sets the validation rule set.
func Rules(rules ...Rule) Option {
	return func(s *settings) { s.entity.Rules = append(s.entity.Rules, rules...) }
}

// Protect lists attributes stripped from data before create and update callbacks run.
func Protect(fields ...string) Option {
	return func(s *settings) { s.entity.Protected = append(s.entity.Protected, fields...) }
}

// WithValidator sets the validation collaborator. Defaults to a RuleValidator.
func WithValidator(v Validator) Option {
	return func(s *settings) { s.validator = v }
}

// WithLoader sets the relationship loader collaborator.
func WithLoader(l Loader) Option {
	return func(s *settings) { s.loader = l }
}

// WithRegistry uses r as loader and registers the model in it under its label.
func WithRegistry(r *Registry) Option {
	return func(s *settings) {
		s.loader = r
		s.registry = r
	}
}

// WithLogger sets the model logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// guessNames derives the data source name and the registry label of T:
// snake_case type name, minus a _model or _m suffix, lower-cased; the data
// source is its plural.
func guessNames[T any]() (name, label string) {
	base := snakeCase(typeName[T]())
	for _, suffix := range []string{"_model", "_m"} {
		if trimmed, ok := strings.CutSuffix(base, suffix); ok && trimmed != "" {
			base = trimmed
			break
		}
	}
	base = strings.ToLower(base)
	return inflection.Plural(base), base
}

// buildSettings applies options and fills defaults for an entity of type T.
func buildSettings[T any](kind Kind, options ...Option) *settings {
	s := &settings{entity: Entity{Callbacks: Callbacks{}}}
	for _, option := range options {
		option(s)
	}

	name, label := guessNames[T]()
	if s.entity.Name == "" {
		s.entity.Name = name
	}
	if s.entity.Label == "" {
		s.entity.Label = label
	}
	if s.entity.PrimaryKey == "" {
		s.entity.PrimaryKey = DefaultPrimaryKey
	}
	if kind == KindDocument {
		s.entity.PrimaryKey = DocumentPrimaryKey
	}
	if s.validator == nil {
		s.validator = NewRuleValidator()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}
