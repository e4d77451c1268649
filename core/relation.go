package core

import (
	"context"
	"fmt"
	"sync"
)

// Accessor is what relationship resolution needs from a related model.
type Accessor interface {
	// Entity returns the related model's descriptor.
	Entity() *Entity
	// FindRecords runs the read pipeline for condition and returns records.
	FindRecords(ctx context.Context, condition *Condition) ([]Record, error)
}

// Loader resolves related models by name.
type Loader interface {
	Load(name string) (Accessor, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(name string) (Accessor, error)

func (f LoaderFunc) Load(name string) (Accessor, error) {
	return f(name)
}

// Registry is a concurrency-safe Loader keyed by entity label.
type Registry struct {
	mutex     sync.RWMutex
	accessors map[string]Accessor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{accessors: make(map[string]Accessor)}
}

// Register stores accessor under name, replacing any previous entry.
func (r *Registry) Register(name string, accessor Accessor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.accessors[name] = accessor
}

// Load returns the accessor registered under name.
func (r *Registry) Load(name string) (Accessor, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if accessor, ok := r.accessors[name]; ok {
		return accessor, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
}

// Names lists registered labels.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.accessors))
	for name := range r.accessors {
		names = append(names, name)
	}
	return names
}

// relate attaches the named relations to records in place.
func relate(ctx context.Context, entity *Entity, loader Loader, names []string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, name := range names {
		relation, ok := entity.relation(name)
		if !ok {
			return fmt.Errorf("%w: %s has no relation %q", ErrUnknownRelation, entity.Name, name)
		}
		if loader == nil {
			return fmt.Errorf("%w: no loader for relation %q", ErrUnknownEntity, name)
		}
		target, err := loader.Load(relation.Entity)
		if err != nil {
			return err
		}
		switch relation.Kind {
		case BelongsTo:
			err = relateBelongsTo(ctx, relation, target, records)
		case HasMany:
			err = relateHasMany(ctx, entity, relation, target, records)
		default:
			err = fmt.Errorf("%w: relation %q has kind %s", ErrUnknownRelation, name, relation.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func relateBelongsTo(ctx context.Context, relation Relation, target Accessor, records []Record) error {
	remoteKey := relation.LocalKey
	if remoteKey == "" {
		remoteKey = target.Entity().PrimaryKey
	}
	keys := distinctValues(records, relation.ForeignKey)
	index := map[string]Record{}
	if len(keys) > 0 {
		related, err := target.FindRecords(ctx, Field(remoteKey).In(keys...))
		if err != nil {
			return err
		}
		for _, r := range related {
			index[keyOf(r[remoteKey])] = r
		}
	}
	for _, record := range records {
		if match, ok := index[keyOf(record[relation.ForeignKey])]; ok && record[relation.ForeignKey] != nil {
			record[relation.Name] = match
		} else {
			record[relation.Name] = nil
		}
	}
	return nil
}

func relateHasMany(ctx context.Context, entity *Entity, relation Relation, target Accessor, records []Record) error {
	localKey := relation.LocalKey
	if localKey == "" {
		localKey = entity.PrimaryKey
	}
	keys := distinctValues(records, localKey)
	groups := map[string][]Record{}
	if len(keys) > 0 {
		related, err := target.FindRecords(ctx, Field(relation.ForeignKey).In(keys...))
		if err != nil {
			return err
		}
		for _, r := range related {
			k := keyOf(r[relation.ForeignKey])
			groups[k] = append(groups[k], r)
		}
	}
	for _, record := range records {
		children := groups[keyOf(record[localKey])]
		if children == nil {
			children = []Record{}
		}
		record[relation.Name] = children
	}
	return nil
}

// distinctValues collects the non-nil values of field, first occurrence order.
func distinctValues(records []Record, field string) []any {
	seen := map[string]struct{}{}
	var out []any
	for _, record := range records {
		v, ok := record[field]
		if !ok || v == nil {
			continue
		}
		k := keyOf(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
