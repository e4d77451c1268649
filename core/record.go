package core

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Record is the array shape of a row or document: field name to value.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// detach copies the record along with nested records and record lists, so the
// copy shares no map with the original.
func detach(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		switch nested := v.(type) {
		case Record:
			out[k] = detach(nested)
		case []Record:
			out[k] = detachAll(nested)
		default:
			out[k] = v
		}
	}
	return out
}

func detachAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = detach(r)
	}
	return out
}

// Without returns a copy of the record minus the given keys.
func (r Record) Without(keys ...string) Record {
	out := r.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// typecast shapes a record into T. Record targets are assigned directly,
// anything else is decoded through `db` tags.
func typecast[T any](record Record) (*T, error) {
	out := new(T)
	if target, ok := any(out).(*Record); ok {
		*target = record
		return out, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(record); err != nil {
		return nil, fmt.Errorf("core: typecast record to %T: %w", *out, err)
	}
	return out, nil
}

// typecastAll shapes every record, preserving order.
func typecastAll[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, record := range records {
		value, err := typecast[T](record)
		if err != nil {
			return nil, err
		}
		out = append(out, *value)
	}
	return out, nil
}
