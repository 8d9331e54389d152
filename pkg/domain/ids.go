// Package domain defines the observable task-management entities, their
// attribute holders and the typed change events emitted when they mutate.
//
// Entities never hold pointers to each other. Parents, owners and related
// items are referenced by ID and resolved through the document arena in
// internal/core, which is also the only place that hands out mutable entities.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ID identifies a domain object, a container or another event source.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.New().String())
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Kind identifies the type of a domain object stored in the arena.
type Kind string

// Supported entity kinds used for lookups, persistence buckets and errors.
const (
	// KindTask identifies a task.
	KindTask Kind = "task"
	// KindCategory identifies a category.
	KindCategory Kind = "category"
	// KindNote identifies a note.
	KindNote Kind = "note"
	// KindEffort identifies an effort record booked on a task.
	KindEffort Kind = "effort"
	// KindAttachment identifies a file, URI or mail attachment.
	KindAttachment Kind = "attachment"
)

// Well-known event sources that are not domain objects.
const (
	// TaskListID is the source of task membership notifications.
	TaskListID ID = "tasks"
	// CategoryListID is the source of category membership notifications.
	CategoryListID ID = "categories"
	// NoteListID is the source of note membership notifications.
	NoteListID ID = "notes"
	// EffortListID is the source of effort membership notifications.
	EffortListID ID = "efforts"
	// HistoryID is the source of undo/redo availability notifications.
	HistoryID ID = "history"
)

// ListFor returns the container that holds objects of the given kind.
// Attachments have no container of their own; they live in their owners.
func ListFor(kind Kind) (ID, bool) {
	switch kind {
	case KindTask:
		return TaskListID, true
	case KindCategory:
		return CategoryListID, true
	case KindNote:
		return NoteListID, true
	case KindEffort:
		return EffortListID, true
	default:
		return "", false
	}
}

// NormalizeTime converts t to UTC and strips the monotonic clock reading so
// that attribute equality is plain value equality. The zero time stays zero.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Round(0)
}
