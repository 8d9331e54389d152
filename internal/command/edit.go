package command

import (
	"slices"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// accessor reads and writes one attribute of the objects a command edits.
type accessor[T comparable] struct {
	get func(v core.View, id domain.ID) (T, error)
	set func(tx *core.Transaction, id domain.ID, value T) error
}

// attr builds an accessor from a lookup such as core.View.Task and the
// getter and setter method expressions of the entity.
func attr[E any, T comparable](lookup func(core.View, domain.ID) (E, error), get func(E) T, set func(E, *domain.Event, T) bool) accessor[T] {
	return accessor[T]{
		get: func(v core.View, id domain.ID) (T, error) {
			e, err := lookup(v, id)
			if err != nil {
				var zero T
				return zero, err
			}
			return get(e), nil
		},
		set: func(tx *core.Transaction, id domain.ID, value T) error {
			e, err := lookup(tx, id)
			if err != nil {
				return err
			}
			set(e, tx.Event(), value)
			return nil
		},
	}
}

func lookupObject(v core.View, id domain.ID) (*domain.Object, error) {
	e, err := v.Lookup(id)
	if err != nil {
		return nil, err
	}
	return e.Base(), nil
}

// editCommand sets one attribute of every item to the same value and
// restores the previous value of each item on undo.
type editCommand[T comparable] struct {
	base
	value T
	attr  accessor[T]
	old   []T
	check func(v core.View, id domain.ID, value T) bool
}

func newEdit[T comparable](singular, plural string, items []domain.ID, value T, a accessor[T]) *editCommand[T] {
	return &editCommand[T]{base: newBase(singular, plural, items), value: value, attr: a}
}

func (c *editCommand[T]) CanDo(v core.View) bool {
	if !c.base.CanDo(v) {
		return false
	}
	for _, id := range c.items {
		if _, err := c.attr.get(v, id); err != nil {
			return false
		}
		if c.check != nil && !c.check(v, id, c.value) {
			return false
		}
	}
	return true
}

func (c *editCommand[T]) Do(tx *core.Transaction) error {
	if c.old == nil {
		c.old = make([]T, 0, len(c.items))
		for _, id := range c.items {
			old, err := c.attr.get(tx, id)
			if err != nil {
				return err
			}
			c.old = append(c.old, old)
		}
	}
	if err := c.touch(tx, c.items); err != nil {
		return err
	}
	for _, id := range c.items {
		if err := c.attr.set(tx, id, c.value); err != nil {
			return err
		}
	}
	return nil
}

func (c *editCommand[T]) Undo(tx *core.Transaction) error {
	for i, id := range c.items {
		if err := c.attr.set(tx, id, c.old[i]); err != nil {
			return err
		}
	}
	return c.untouch(tx)
}

func (c *editCommand[T]) Redo(tx *core.Transaction) error { return c.Do(tx) }

// stateCommand runs an operation with derived side effects. The records of
// every object the operation can reach are saved before the first run, so
// undo puts them back and redo restores the state the run produced.
type stateCommand struct {
	base
	states savedStates
	scope  func(v core.View) []domain.ID
	apply  func(tx *core.Transaction) error
	check  func(v core.View) bool
}

func newState(singular, plural string, items []domain.ID) *stateCommand {
	c := &stateCommand{base: newBase(singular, plural, items)}
	c.scope = c.taskScope
	return c
}

// taskScope covers the items, their ancestors and descendants and the
// efforts of all of them, which is everything task completion reaches.
func (c *stateCommand) taskScope(v core.View) []domain.ID {
	tasks := family(v, c.items)
	ids := slices.Clone(tasks)
	for _, id := range tasks {
		ids = append(ids, v.Efforts(id, false)...)
	}
	return ids
}

func (c *stateCommand) CanDo(v core.View) bool {
	if !c.base.CanDo(v) || len(live(v, c.items)) != len(c.items) {
		return false
	}
	return c.check == nil || c.check(v)
}

func (c *stateCommand) Do(tx *core.Transaction) error {
	if err := c.states.save(tx, c.scope(tx)); err != nil {
		return err
	}
	if err := c.touch(tx, c.items); err != nil {
		return err
	}
	return c.apply(tx)
}

func (c *stateCommand) Undo(tx *core.Transaction) error { return c.states.undo(tx) }

func (c *stateCommand) Redo(tx *core.Transaction) error { return c.states.redo(tx) }
