package domain

import "errors"

// ErrRecordMismatch is returned when a record is applied to an entity of a
// different kind or identity.
var ErrRecordMismatch = errors.New("record does not match entity")

var (
	categoryEvents   = SetEvents{EventCategories, EventCategoriesAdded, EventCategoriesRemoved}
	noteEvents       = SetEvents{EventNotes, EventNotesAdded, EventNotesRemoved}
	attachmentEvents = SetEvents{EventAttachments, EventAttachmentsAdded, EventAttachmentsRemoved}
)

// Categorizable is an entity that can be put into categories.
type Categorizable interface {
	Entity
	Categories() []ID
	AddCategories(ev *Event, ids ...ID) bool
	RemoveCategories(ev *Event, ids ...ID) bool
}

// NoteOwner is an entity that owns notes.
type NoteOwner interface {
	Entity
	Notes() []ID
	AddNotes(ev *Event, ids ...ID) bool
	RemoveNotes(ev *Event, ids ...ID) bool
}

// AttachmentOwner is an entity that owns attachments.
type AttachmentOwner interface {
	Entity
	Attachments() []ID
	AddAttachments(ev *Event, ids ...ID) bool
	RemoveAttachments(ev *Event, ids ...ID) bool
}
