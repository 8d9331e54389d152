package domain

import (
	"fmt"
	"time"
)

// Note is a composite free-form text item. Notes live either in the note
// list or in the notes collection of an owner.
type Note struct {
	Object
	Composite

	categories  SetAttribute[ID]
	attachments OwnedCollection[ID]
}

var (
	_ TreeEntity      = (*Note)(nil)
	_ Categorizable   = (*Note)(nil)
	_ AttachmentOwner = (*Note)(nil)
)

// NewNote builds a root note. Use an empty id to generate one.
func NewNote(id ID, subject string, created time.Time) *Note {
	return &Note{
		Object:      newObject(id, subject, created),
		Composite:   newComposite(""),
		categories:  NewSetAttribute[ID](categoryEvents),
		attachments: NewOwnedCollection[ID](attachmentEvents),
	}
}

func (n *Note) Kind() Kind          { return KindNote }
func (n *Note) Tree() *Composite    { return &n.Composite }
func (n *Note) CloneEntity() Entity { return n.Clone() }

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	cp := *n
	cp.Composite = n.Composite.clone()
	cp.categories = n.categories.clone()
	cp.attachments = n.attachments.clone()
	return &cp
}

func (n *Note) Categories() []ID  { return n.categories.Get() }
func (n *Note) Attachments() []ID { return n.attachments.Items() }

func (n *Note) AddCategories(ev *Event, ids ...ID) bool { return n.categories.Add(ev, n.id, ids...) }

func (n *Note) RemoveCategories(ev *Event, ids ...ID) bool {
	return n.categories.Remove(ev, n.id, ids...)
}

func (n *Note) AddAttachments(ev *Event, ids ...ID) bool {
	return n.attachments.Add(ev, n.id, ids...)
}

func (n *Note) RemoveAttachments(ev *Event, ids ...ID) bool {
	return n.attachments.Remove(ev, n.id, ids...)
}

// Record implements Entity.
func (n *Note) Record() Record {
	return NoteRecord{
		ObjectRecord: n.objectRecord(),
		Parent:       n.Parent(),
		Children:     n.Children(),
		Categories:   n.categories.Get(),
		Attachments:  n.attachments.Items(),
	}
}

// Apply implements Entity.
func (n *Note) Apply(ev *Event, rec Record) error {
	r, ok := rec.(NoteRecord)
	if !ok || r.ID != n.id {
		return fmt.Errorf("apply %T to note %s: %w", rec, n.id, ErrRecordMismatch)
	}
	n.applyNote(ev, r)
	return nil
}

func (n *Note) applyNote(ev *Event, r NoteRecord) {
	n.categories.Set(ev, n.id, r.Categories)
	n.attachments.Set(ev, n.id, r.Attachments)
	n.applyObject(ev, r.ObjectRecord)
}

// NoteFromRecord rebuilds a note from r.
func NoteFromRecord(r NoteRecord) *Note {
	n := NewNote(r.ID, r.Subject, r.Created)
	n.Object = objectFromRecord(r.ObjectRecord)
	n.Composite = newComposite(r.Parent)
	n.children = append([]ID(nil), r.Children...)
	n.applyNote(nil, r)
	return n
}
