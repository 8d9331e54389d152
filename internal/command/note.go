package command

import (
	"slices"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// NewNote returns a command creating a root note.
func NewNote(subject string, opts ...ItemOption) Command {
	return newNoteItems("New note", "New notes", []domain.ID{""}, subject, opts)
}

// NewSubNote returns a command creating a subnote below each parent note.
func NewSubNote(parents []domain.ID, subject string, opts ...ItemOption) Command {
	return newNoteItems(`New subnote of "%s"`, "New subnotes", parents, subject, opts)
}

func newNoteItems(singular, plural string, parents []domain.ID, subject string, opts []ItemOption) *newItem {
	spec := specOf(opts)
	c := newNewItem(singular, plural, parents)
	c.build = func(tx *core.Transaction, id, parent domain.ID) (domain.Entity, error) {
		n := domain.NewNote(id, subject, tx.Now())
		if parent != "" {
			if _, err := tx.Note(parent); err != nil {
				return nil, err
			}
			n.Tree().SetParent(nil, id, parent)
		}
		n.SetDescription(nil, spec.description)
		return n, nil
	}
	c.link, c.unlink = categorize(spec.categories)
	return c
}

// owned adds entities to owners and takes them away again on undo.
type owned struct {
	base
	owners []domain.ID
	ids    []domain.ID
	build  func(tx *core.Transaction, id domain.ID) domain.Entity
	protos []domain.Record
}

func newOwned(singular, plural string, owners []domain.ID) *owned {
	ids := make([]domain.ID, len(owners))
	for i := range ids {
		ids[i] = domain.NewID()
	}
	return &owned{base: newBase(singular, plural, owners), owners: slices.Clone(owners), ids: ids}
}

func (c *owned) CanDo(v core.View) bool {
	return c.base.CanDo(v) && len(live(v, c.owners)) == len(c.owners)
}

// Added returns the IDs of the entities the command adds.
func (c *owned) Added() []domain.ID { return slices.Clone(c.ids) }

func (c *owned) Do(tx *core.Transaction) error {
	if c.protos == nil {
		for _, id := range c.ids {
			c.protos = append(c.protos, c.build(tx, id).Record())
		}
	}
	if err := c.touch(tx, dedupe(c.owners)); err != nil {
		return err
	}
	for i, proto := range c.protos {
		e, err := domain.FromRecord(proto)
		if err != nil {
			return err
		}
		if err := tx.InsertOwned(c.owners[i], e); err != nil {
			return err
		}
	}
	return nil
}

func (c *owned) Undo(tx *core.Transaction) error {
	for i := len(c.ids) - 1; i >= 0; i-- {
		if _, err := tx.RemoveOwned(c.owners[i], c.ids[i]); err != nil {
			return err
		}
	}
	return c.untouch(tx)
}

func (c *owned) Redo(tx *core.Transaction) error { return c.Do(tx) }

// NewAddNote returns a command adding a note with subject to each owner.
func NewAddNote(owners []domain.ID, subject string) Command {
	c := newOwned(`Add note to "%s"`, "Add note", owners)
	c.build = func(tx *core.Transaction, id domain.ID) domain.Entity {
		return domain.NewNote(id, subject, tx.Now())
	}
	return c
}

// disowned takes owned entities, with their subnotes, away from an owner
// and gives them back on undo in their original order.
type disowned struct {
	base
	owner   domain.ID
	removed []domain.Record
	states  savedStates
}

func newDisowned(singular, plural string, owner domain.ID, items []domain.ID) *disowned {
	return &disowned{base: newBase(singular, plural, items), owner: owner}
}

func (c *disowned) CanDo(v core.View) bool {
	if !c.base.CanDo(v) || v.IsDeleted(c.owner) {
		return false
	}
	for _, id := range c.items {
		if _, err := v.Lookup(id); err != nil {
			return false
		}
	}
	return true
}

func (c *disowned) Do(tx *core.Transaction) error {
	first := c.removed == nil
	if first {
		if err := c.states.save(tx, []domain.ID{c.owner}); err != nil {
			return err
		}
	}
	if err := c.touch(tx, []domain.ID{c.owner}); err != nil {
		return err
	}
	for _, id := range c.items {
		removed, err := tx.RemoveOwned(c.owner, id)
		if err != nil {
			return err
		}
		if first {
			for _, e := range removed {
				c.removed = append(c.removed, e.Record())
			}
		}
	}
	return nil
}

func (c *disowned) Undo(tx *core.Transaction) error {
	for _, r := range c.removed {
		e, err := domain.FromRecord(r)
		if err != nil {
			return err
		}
		if slices.Contains(c.items, r.RecordID()) {
			err = tx.InsertOwned(c.owner, e)
		} else {
			err = tx.Insert(e, -1)
		}
		if err != nil {
			return err
		}
	}
	return c.states.restore(tx)
}

func (c *disowned) Redo(tx *core.Transaction) error { return c.Do(tx) }

// NewRemoveNote returns a command removing notes from owner.
func NewRemoveNote(owner domain.ID, notes []domain.ID) Command {
	return newDisowned(`Remove note "%s"`, "Remove notes", owner, notes)
}
