package domain

import (
	"slices"
	"time"
)

// Entity is implemented by every object stored in the document arena.
type Entity interface {
	ID() ID
	Kind() Kind
	Base() *Object
	// CloneEntity returns a deep copy sharing no mutable state.
	CloneEntity() Entity
	// Record returns the plain persisted form of the entity.
	Record() Record
	// Apply restores the attribute state held by r, notifying through ev.
	// Identity and tree structure are left untouched.
	Apply(ev *Event, r Record) error
}

// TreeEntity is an entity that takes part in a parent/child hierarchy.
type TreeEntity interface {
	Entity
	Tree() *Composite
}

// Object carries the identity and the attributes shared by all entities.
type Object struct {
	id           ID
	created      time.Time
	modified     Attribute[time.Time]
	subject      Attribute[string]
	description  Attribute[string]
	fgColor      Attribute[string]
	bgColor      Attribute[string]
	font         Attribute[string]
	icon         Attribute[string]
	selectedIcon Attribute[string]
	deleted      Attribute[bool]
}

func newObject(id ID, subject string, created time.Time) Object {
	if id == "" {
		id = NewID()
	}
	created = NormalizeTime(created)
	return Object{
		id:           id,
		created:      created,
		modified:     NewAttribute(created, EventModificationTime),
		subject:      NewAttribute(subject, EventSubject),
		description:  NewAttribute("", EventDescription),
		fgColor:      NewAttribute("", EventForegroundColor, EventAppearance),
		bgColor:      NewAttribute("", EventBackgroundColor, EventAppearance),
		font:         NewAttribute("", EventFont, EventAppearance),
		icon:         NewAttribute("", EventIcon, EventAppearance),
		selectedIcon: NewAttribute("", EventIcon, EventAppearance),
		deleted:      NewAttribute(false, EventDeleted),
	}
}

// ID returns the stable identifier.
func (o *Object) ID() ID { return o.id }

// Base returns the object itself; it lets embedding entities satisfy Entity.
func (o *Object) Base() *Object { return o }

// Created returns the creation time.
func (o *Object) Created() time.Time { return o.created }

// Modified returns the last modification time.
func (o *Object) Modified() time.Time { return o.modified.Get() }

// Subject returns the one-line title.
func (o *Object) Subject() string { return o.subject.Get() }

// Description returns the free-form text.
func (o *Object) Description() string { return o.description.Get() }

// ForegroundColor returns the own foreground color, empty when inherited.
func (o *Object) ForegroundColor() string { return o.fgColor.Get() }

// BackgroundColor returns the own background color, empty when inherited.
func (o *Object) BackgroundColor() string { return o.bgColor.Get() }

// Font returns the own font description, empty when inherited.
func (o *Object) Font() string { return o.font.Get() }

// Icon returns the own icon name, empty when inherited.
func (o *Object) Icon() string { return o.icon.Get() }

// SelectedIcon returns the icon shown while selected.
func (o *Object) SelectedIcon() string { return o.selectedIcon.Get() }

// Deleted reports whether the object is tombstoned.
func (o *Object) Deleted() bool { return o.deleted.Get() }

func (o *Object) SetModified(ev *Event, t time.Time) bool {
	return o.modified.Set(ev, o.id, NormalizeTime(t))
}

func (o *Object) SetSubject(ev *Event, s string) bool { return o.subject.Set(ev, o.id, s) }

func (o *Object) SetDescription(ev *Event, s string) bool {
	return o.description.Set(ev, o.id, s)
}

func (o *Object) SetForegroundColor(ev *Event, c string) bool { return o.fgColor.Set(ev, o.id, c) }

func (o *Object) SetBackgroundColor(ev *Event, c string) bool { return o.bgColor.Set(ev, o.id, c) }

func (o *Object) SetFont(ev *Event, f string) bool { return o.font.Set(ev, o.id, f) }

func (o *Object) SetIcon(ev *Event, icon string) bool { return o.icon.Set(ev, o.id, icon) }

func (o *Object) SetSelectedIcon(ev *Event, icon string) bool {
	return o.selectedIcon.Set(ev, o.id, icon)
}

// SetDeleted tombstones or restores the object.
func (o *Object) SetDeleted(ev *Event, deleted bool) bool {
	return o.deleted.Set(ev, o.id, deleted)
}

func (o *Object) objectRecord() ObjectRecord {
	return ObjectRecord{
		ID:              o.id,
		Created:         o.created,
		Modified:        o.modified.Get(),
		Subject:         o.subject.Get(),
		Description:     o.description.Get(),
		ForegroundColor: o.fgColor.Get(),
		BackgroundColor: o.bgColor.Get(),
		Font:            o.font.Get(),
		Icon:            o.icon.Get(),
		SelectedIcon:    o.selectedIcon.Get(),
		Deleted:         o.deleted.Get(),
	}
}

func (o *Object) applyObject(ev *Event, r ObjectRecord) {
	o.SetSubject(ev, r.Subject)
	o.SetDescription(ev, r.Description)
	o.SetForegroundColor(ev, r.ForegroundColor)
	o.SetBackgroundColor(ev, r.BackgroundColor)
	o.SetFont(ev, r.Font)
	o.SetIcon(ev, r.Icon)
	o.SetSelectedIcon(ev, r.SelectedIcon)
	o.SetDeleted(ev, r.Deleted)
	o.SetModified(ev, r.Modified)
}

func objectFromRecord(r ObjectRecord) Object {
	o := newObject(r.ID, r.Subject, r.Created)
	o.applyObject(nil, r)
	return o
}

// Composite holds the position of an entity in its tree: a parent ID and the
// ordered IDs of its children. Ownership flows from parent to children.
type Composite struct {
	parent   Attribute[ID]
	children []ID
}

func newComposite(parent ID) Composite {
	return Composite{parent: NewAttribute(parent, EventParent)}
}

// Parent returns the parent ID, empty for root items.
func (c *Composite) Parent() ID { return c.parent.Get() }

// Children returns the child IDs in order.
func (c *Composite) Children() []ID { return slices.Clone(c.children) }

// HasChild reports whether id is a direct child.
func (c *Composite) HasChild(id ID) bool { return slices.Contains(c.children, id) }

// SetParent changes the parent reference of owner.
func (c *Composite) SetParent(ev *Event, owner, parent ID) bool {
	return c.parent.Set(ev, owner, parent)
}

// InsertChild inserts child at index, or appends when index is out of range.
func (c *Composite) InsertChild(ev *Event, owner, child ID, index int) bool {
	if slices.Contains(c.children, child) {
		return false
	}
	if index < 0 || index > len(c.children) {
		index = len(c.children)
	}
	c.children = slices.Insert(c.children, index, child)
	if ev != nil {
		ev.AddSource(owner, EventChildAdded, Delta[ID]{Added: []ID{child}})
	}
	return true
}

// RemoveChild removes child and returns the index it occupied, or -1.
func (c *Composite) RemoveChild(ev *Event, owner, child ID) int {
	idx := slices.Index(c.children, child)
	if idx < 0 {
		return -1
	}
	c.children = slices.Delete(c.children, idx, idx+1)
	if ev != nil {
		ev.AddSource(owner, EventChildRemoved, Delta[ID]{Removed: []ID{child}})
	}
	return idx
}

func (c Composite) clone() Composite {
	return Composite{parent: c.parent, children: slices.Clone(c.children)}
}

// TriState is a setting that can be forced on, forced off or inherited.
type TriState int8

// TriState values.
const (
	Inherit TriState = iota
	Yes
	No
)

// Resolve returns the effective boolean given the inherited default.
func (t TriState) Resolve(def bool) bool {
	switch t {
	case Yes:
		return true
	case No:
		return false
	default:
		return def
	}
}
