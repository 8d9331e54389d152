package domain

import (
	"fmt"
	"time"
)

// AttachmentKind distinguishes what an attachment location points at.
type AttachmentKind string

// Supported attachment kinds.
const (
	AttachmentFile AttachmentKind = "file"
	AttachmentURI  AttachmentKind = "uri"
	AttachmentMail AttachmentKind = "mail"
)

// Attachment references a file, a URI or a mail message.
type Attachment struct {
	Object

	kind     AttachmentKind
	location Attribute[string]
}

var _ Entity = (*Attachment)(nil)

// NewAttachment builds an attachment whose subject defaults to its location.
func NewAttachment(id ID, kind AttachmentKind, location string, created time.Time) *Attachment {
	return &Attachment{
		Object:   newObject(id, location, created),
		kind:     kind,
		location: NewAttribute(location, EventLocation),
	}
}

func (a *Attachment) Kind() Kind          { return KindAttachment }
func (a *Attachment) CloneEntity() Entity { return a.Clone() }

// Clone returns a copy of the attachment.
func (a *Attachment) Clone() *Attachment {
	cp := *a
	return &cp
}

// Type returns what the location points at.
func (a *Attachment) Type() AttachmentKind { return a.kind }

// Location returns the path, URI or mail reference.
func (a *Attachment) Location() string { return a.location.Get() }

func (a *Attachment) SetLocation(ev *Event, loc string) bool {
	return a.location.Set(ev, a.id, loc)
}

// Record implements Entity.
func (a *Attachment) Record() Record {
	return AttachmentRecord{
		ObjectRecord: a.objectRecord(),
		Type:         a.kind,
		Location:     a.location.Get(),
	}
}

// Apply implements Entity.
func (a *Attachment) Apply(ev *Event, rec Record) error {
	r, ok := rec.(AttachmentRecord)
	if !ok || r.ID != a.id {
		return fmt.Errorf("apply %T to attachment %s: %w", rec, a.id, ErrRecordMismatch)
	}
	a.SetLocation(ev, r.Location)
	a.applyObject(ev, r.ObjectRecord)
	return nil
}

// AttachmentFromRecord rebuilds an attachment from r.
func AttachmentFromRecord(r AttachmentRecord) *Attachment {
	a := NewAttachment(r.ID, r.Type, r.Location, r.Created)
	a.Object = objectFromRecord(r.ObjectRecord)
	return a
}
