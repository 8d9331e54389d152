package domain

import (
	"fmt"
	"time"
)

// Category groups categorizable items. A category with exclusive
// subcategories allows an item in at most one of its children.
type Category struct {
	Object
	Composite

	categorizables SetAttribute[ID]
	filtered       Attribute[bool]
	exclusive      Attribute[bool]
	notes          OwnedCollection[ID]
	attachments    OwnedCollection[ID]
}

var (
	_ TreeEntity      = (*Category)(nil)
	_ NoteOwner       = (*Category)(nil)
	_ AttachmentOwner = (*Category)(nil)
)

// NewCategory builds a root category. Use an empty id to generate one.
func NewCategory(id ID, subject string, created time.Time) *Category {
	return &Category{
		Object:         newObject(id, subject, created),
		Composite:      newComposite(""),
		categorizables: NewSetAttribute[ID](SetEvents{EventCategorizables, EventCategorizablesAdded, EventCategorizablesRemoved}),
		filtered:       NewAttribute(false, EventFiltered),
		exclusive:      NewAttribute(false, EventExclusiveSubcategories),
		notes:          NewOwnedCollection[ID](noteEvents),
		attachments:    NewOwnedCollection[ID](attachmentEvents),
	}
}

func (c *Category) Kind() Kind          { return KindCategory }
func (c *Category) Tree() *Composite    { return &c.Composite }
func (c *Category) CloneEntity() Entity { return c.Clone() }

// Clone returns a deep copy of the category.
func (c *Category) Clone() *Category {
	cp := *c
	cp.Composite = c.Composite.clone()
	cp.categorizables = c.categorizables.clone()
	cp.notes = c.notes.clone()
	cp.attachments = c.attachments.clone()
	return &cp
}

// Categorizables returns the IDs of the items in this category itself.
func (c *Category) Categorizables() []ID { return c.categorizables.Get() }

// HasCategorizable reports whether id is directly in the category.
func (c *Category) HasCategorizable(id ID) bool { return c.categorizables.Contains(id) }

// Filtered reports whether views should show only items in this category.
func (c *Category) Filtered() bool { return c.filtered.Get() }

// ExclusiveSubcategories reports whether children are mutually exclusive.
func (c *Category) ExclusiveSubcategories() bool { return c.exclusive.Get() }

func (c *Category) Notes() []ID       { return c.notes.Items() }
func (c *Category) Attachments() []ID { return c.attachments.Items() }

func (c *Category) AddCategorizables(ev *Event, ids ...ID) bool {
	return c.categorizables.Add(ev, c.id, ids...)
}

func (c *Category) RemoveCategorizables(ev *Event, ids ...ID) bool {
	return c.categorizables.Remove(ev, c.id, ids...)
}

func (c *Category) SetFiltered(ev *Event, v bool) bool { return c.filtered.Set(ev, c.id, v) }

func (c *Category) SetExclusiveSubcategories(ev *Event, v bool) bool {
	return c.exclusive.Set(ev, c.id, v)
}

func (c *Category) AddNotes(ev *Event, ids ...ID) bool    { return c.notes.Add(ev, c.id, ids...) }
func (c *Category) RemoveNotes(ev *Event, ids ...ID) bool { return c.notes.Remove(ev, c.id, ids...) }

func (c *Category) AddAttachments(ev *Event, ids ...ID) bool {
	return c.attachments.Add(ev, c.id, ids...)
}

func (c *Category) RemoveAttachments(ev *Event, ids ...ID) bool {
	return c.attachments.Remove(ev, c.id, ids...)
}

// Record implements Entity.
func (c *Category) Record() Record {
	return CategoryRecord{
		ObjectRecord:           c.objectRecord(),
		Parent:                 c.Parent(),
		Children:               c.Children(),
		Categorizables:         c.categorizables.Get(),
		Filtered:               c.filtered.Get(),
		ExclusiveSubcategories: c.exclusive.Get(),
		Notes:                  c.notes.Items(),
		Attachments:            c.attachments.Items(),
	}
}

// Apply implements Entity.
func (c *Category) Apply(ev *Event, rec Record) error {
	r, ok := rec.(CategoryRecord)
	if !ok || r.ID != c.id {
		return fmt.Errorf("apply %T to category %s: %w", rec, c.id, ErrRecordMismatch)
	}
	c.applyCategory(ev, r)
	return nil
}

func (c *Category) applyCategory(ev *Event, r CategoryRecord) {
	c.categorizables.Set(ev, c.id, r.Categorizables)
	c.SetFiltered(ev, r.Filtered)
	c.SetExclusiveSubcategories(ev, r.ExclusiveSubcategories)
	c.notes.Set(ev, c.id, r.Notes)
	c.attachments.Set(ev, c.id, r.Attachments)
	c.applyObject(ev, r.ObjectRecord)
}

// CategoryFromRecord rebuilds a category from r.
func CategoryFromRecord(r CategoryRecord) *Category {
	c := NewCategory(r.ID, r.Subject, r.Created)
	c.Object = objectFromRecord(r.ObjectRecord)
	c.Composite = newComposite(r.Parent)
	c.children = append([]ID(nil), r.Children...)
	c.applyCategory(nil, r)
	return c
}
