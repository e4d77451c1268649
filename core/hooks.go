package core

import "context"

// Hook names a lifecycle point at which callbacks run.
type Hook string

const (
	// BeforeCreate runs before validation and the backend insert.
	BeforeCreate Hook = "before_create"
	// AfterCreate runs after the backend insert, with the generated ID.
	AfterCreate Hook = "after_create"
	// BeforeUpdate runs before validation and the backend update.
	BeforeUpdate Hook = "before_update"
	// AfterUpdate runs after the backend update, with the affected count.
	AfterUpdate Hook = "after_update"
	// BeforeGet runs before the backend read; Data is nil, Where is set.
	BeforeGet Hook = "before_get"
	// AfterGet runs once per fetched record, in result order.
	AfterGet Hook = "after_get"
	// BeforeDelete runs before the backend delete (or soft delete update).
	BeforeDelete Hook = "before_delete"
	// AfterDelete runs after the backend delete, with the affected count.
	AfterDelete Hook = "after_delete"
)

// Payload is what a callback receives.
//
// Data is the evolving record for create, update and after_get. Where is the
// request criteria for get, update and delete. ID and Affected are filled by
// the backend result on after_create and after_update/after_delete.
type Payload struct {
	Hook     Hook
	Source   *Source
	Data     Record
	ID       any
	Where    *Condition
	Affected int64
}

// Callback is a lifecycle handler.
//
// A non-nil returned record replaces Payload.Data for the next callback and
// ultimately for the backend call (or the caller, on after_get). Returning nil
// keeps the current data. A returned error aborts the operation and is
// propagated unchanged.
type Callback func(ctx context.Context, p *Payload) (Record, error)

// Callbacks maps each hook to its ordered handler list.
type Callbacks map[Hook][]Callback

// register appends callbacks to hook, keeping declaration order.
func (c Callbacks) register(hook Hook, callbacks ...Callback) {
	c[hook] = append(c[hook], callbacks...)
}

// run executes the handlers of p.Hook in declaration order.
func (c Callbacks) run(ctx context.Context, p *Payload) error {
	for _, fn := range c[p.Hook] {
		out, err := fn(ctx, p)
		if err != nil {
			return err
		}
		if out != nil {
			p.Data = out
		}
	}
	return nil
}

// Has reports whether any handler is registered for hook.
func (c Callbacks) Has(hook Hook) bool {
	return len(c[hook]) > 0
}
