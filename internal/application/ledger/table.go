package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
)

// aggregate is what a table can hold: an aggregate root that can copy itself
type aggregate[T any] interface {
	GetID() string
	Clone() T
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// table is an ordered collection of aggregates, oldest first
type table[T aggregate[T]] struct {
	name string
	rows []T
}

func (t *table[T]) find(id string) (T, bool) {
	for _, r := range t.rows {
		if r.GetID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) encode() ([]json.RawMessage, error) {
	return encodeRows(t.name, t.rows)
}

func encodeRows[T any](collection string, rows []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", collection, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// tableTx is a copy-on-write view of a table inside a unit of work.
// Rows are cloned the first time they are fetched for change; the base
// table is never touched until commit.
type tableTx[T aggregate[T]] struct {
	base    *table[T]
	touched map[string]T
	added   []T
	removed map[string]struct{}
}

func newTableTx[T aggregate[T]](base *table[T]) *tableTx[T] {
	return &tableTx[T]{
		base:    base,
		touched: make(map[string]T),
		removed: make(map[string]struct{}),
	}
}

// get returns a mutable copy of the row with id
func (t *tableTx[T]) get(id string) (T, bool) {
	var zero T
	if _, gone := t.removed[id]; gone {
		return zero, false
	}
	if r, ok := t.touched[id]; ok {
		return r, true
	}
	for _, r := range t.added {
		if r.GetID() == id {
			return r, true
		}
	}
	r, ok := t.base.find(id)
	if !ok {
		return zero, false
	}
	c := r.Clone()
	t.touched[id] = c
	return c, true
}

// peek returns the current row with id without copying it. The row must
// not be changed.
func (t *tableTx[T]) peek(id string) (T, bool) {
	var zero T
	if _, gone := t.removed[id]; gone {
		return zero, false
	}
	if r, ok := t.touched[id]; ok {
		return r, true
	}
	for _, r := range t.added {
		if r.GetID() == id {
			return r, true
		}
	}
	return t.base.find(id)
}

func (t *tableTx[T]) add(r T) {
	t.added = append(t.added, r)
}

func (t *tableTx[T]) remove(id string) {
	t.removed[id] = struct{}{}
}

// view lists the rows as they would be after commit. Rows that were not
// fetched with get are the base rows and must not be changed.
func (t *tableTx[T]) view() []T {
	out := make([]T, 0, len(t.base.rows)+len(t.added))
	for _, r := range t.base.rows {
		id := r.GetID()
		if _, gone := t.removed[id]; gone {
			continue
		}
		if c, ok := t.touched[id]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, r)
	}
	for _, r := range t.added {
		if _, gone := t.removed[r.GetID()]; !gone {
			out = append(out, r)
		}
	}
	return out
}

func (t *tableTx[T]) dirty() bool {
	return len(t.touched) > 0 || len(t.added) > 0 || len(t.removed) > 0
}

// events drains the pending domain events of every changed row
func (t *tableTx[T]) events() []shared.DomainEvent {
	var out []shared.DomainEvent
	collect := func(r T) {
		out = append(out, r.GetDomainEvents()...)
		r.ClearDomainEvents()
	}
	for _, r := range t.base.rows {
		if c, ok := t.touched[r.GetID()]; ok {
			collect(c)
		}
	}
	for _, r := range t.added {
		collect(r)
	}
	return out
}

// commit writes the view back into the base table
func (t *tableTx[T]) commit() {
	if t.dirty() {
		t.base.rows = t.view()
	}
}
