package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var nowFunc = time.Now

// Stamp sets field to the current UTC time.
func Stamp(field string) Callback {
	return func(_ context.Context, p *Payload) (Record, error) {
		out := p.Data.Clone()
		if out == nil {
			out = Record{}
		}
		out[field] = nowFunc().UTC()
		return out, nil
	}
}

// Timestamps stamps created and updated on create, and updated on update.
// An empty name disables that stamp.
func Timestamps(created, updated string) Option {
	return func(s *settings) {
		if created != "" {
			s.entity.Callbacks.register(BeforeCreate, Stamp(created))
		}
		if updated != "" {
			s.entity.Callbacks.register(BeforeCreate, Stamp(updated))
			s.entity.Callbacks.register(BeforeUpdate, Stamp(updated))
		}
	}
}

// UUIDKey fills field with a random UUID when the record does not carry one.
func UUIDKey(field string) Callback {
	return func(_ context.Context, p *Payload) (Record, error) {
		if v, ok := p.Data[field]; ok && v != nil && v != "" {
			return nil, nil
		}
		out := p.Data.Clone()
		if out == nil {
			out = Record{}
		}
		out[field] = uuid.NewString()
		return out, nil
	}
}

// Serialize JSON-encodes the given fields into strings. Register it on
// before_create and before_update.
func Serialize(fields ...string) Callback {
	return func(_ context.Context, p *Payload) (Record, error) {
		out := p.Data.Clone()
		for _, field := range fields {
			v, ok := out[field]
			if !ok || v == nil {
				continue
			}
			if _, isString := v.(string); isString {
				continue
			}
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("core: serialize %s: %w", field, err)
			}
			out[field] = string(encoded)
		}
		return out, nil
	}
}

// Unserialize decodes JSON strings written by Serialize. Register it on after_get.
// Values that are not valid JSON are left untouched.
func Unserialize(fields ...string) Callback {
	return func(_ context.Context, p *Payload) (Record, error) {
		out := p.Data.Clone()
		for _, field := range fields {
			var raw []byte
			switch v := out[field].(type) {
			case string:
				raw = []byte(v)
			case []byte:
				raw = v
			default:
				continue
			}
			var decoded any
			if err := json.Unmarshal(raw, &decoded); err != nil {
				continue
			}
			out[field] = decoded
		}
		return out, nil
	}
}
