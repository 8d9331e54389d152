package domain

import (
	"context"
	"fmt"
	"time"
)

// Record is the plain, serializable form of an entity. Records are what
// persistence stores and what commands keep to restore earlier states.
type Record interface {
	RecordID() ID
	RecordKind() Kind
}

// ObjectRecord holds the attributes shared by all entities.
type ObjectRecord struct {
	ID              ID        `json:"id"`
	Created         time.Time `json:"created_at"`
	Modified        time.Time `json:"modified_at"`
	Subject         string    `json:"subject"`
	Description     string    `json:"description,omitempty"`
	ForegroundColor string    `json:"foreground_color,omitempty"`
	BackgroundColor string    `json:"background_color,omitempty"`
	Font            string    `json:"font,omitempty"`
	Icon            string    `json:"icon,omitempty"`
	SelectedIcon    string    `json:"selected_icon,omitempty"`
	Deleted         bool      `json:"deleted,omitempty"`
}

// RecordID implements Record.
func (r ObjectRecord) RecordID() ID { return r.ID }

// TaskRecord is the persisted form of a Task.
type TaskRecord struct {
	ObjectRecord
	Parent              ID            `json:"parent,omitempty"`
	Children            []ID          `json:"children,omitempty"`
	PlannedStart        time.Time     `json:"planned_start"`
	Due                 time.Time     `json:"due"`
	ActualStart         time.Time     `json:"actual_start"`
	Completion          time.Time     `json:"completion"`
	Reminder            time.Time     `json:"reminder"`
	Priority            int           `json:"priority"`
	PercentageComplete  int           `json:"percentage_complete"`
	Budget              time.Duration `json:"budget"`
	HourlyFee           float64       `json:"hourly_fee"`
	FixedFee            float64       `json:"fixed_fee"`
	ShouldMarkCompleted TriState      `json:"should_mark_completed"`
	Recurrence          Recurrence    `json:"recurrence,omitzero"`
	Prerequisites       []ID          `json:"prerequisites,omitempty"`
	Dependencies        []ID          `json:"dependencies,omitempty"`
	Categories          []ID          `json:"categories,omitempty"`
	Efforts             []ID          `json:"efforts,omitempty"`
	Notes               []ID          `json:"notes,omitempty"`
	Attachments         []ID          `json:"attachments,omitempty"`
}

// RecordKind implements Record.
func (TaskRecord) RecordKind() Kind { return KindTask }

// CategoryRecord is the persisted form of a Category.
type CategoryRecord struct {
	ObjectRecord
	Parent                 ID   `json:"parent,omitempty"`
	Children               []ID `json:"children,omitempty"`
	Categorizables         []ID `json:"categorizables,omitempty"`
	Filtered               bool `json:"filtered,omitempty"`
	ExclusiveSubcategories bool `json:"exclusive_subcategories,omitempty"`
	Notes                  []ID `json:"notes,omitempty"`
	Attachments            []ID `json:"attachments,omitempty"`
}

// RecordKind implements Record.
func (CategoryRecord) RecordKind() Kind { return KindCategory }

// NoteRecord is the persisted form of a Note.
type NoteRecord struct {
	ObjectRecord
	Parent      ID   `json:"parent,omitempty"`
	Children    []ID `json:"children,omitempty"`
	Categories  []ID `json:"categories,omitempty"`
	Attachments []ID `json:"attachments,omitempty"`
}

// RecordKind implements Record.
func (NoteRecord) RecordKind() Kind { return KindNote }

// EffortRecord is the persisted form of an Effort.
type EffortRecord struct {
	ObjectRecord
	Task  ID        `json:"task"`
	Start time.Time `json:"start"`
	Stop  time.Time `json:"stop"`
}

// RecordKind implements Record.
func (EffortRecord) RecordKind() Kind { return KindEffort }

// AttachmentRecord is the persisted form of an Attachment.
type AttachmentRecord struct {
	ObjectRecord
	Type     AttachmentKind `json:"type"`
	Location string         `json:"location"`
}

// RecordKind implements Record.
func (AttachmentRecord) RecordKind() Kind { return KindAttachment }

// FromRecord rebuilds the entity described by r.
func FromRecord(r Record) (Entity, error) {
	switch rec := r.(type) {
	case TaskRecord:
		return TaskFromRecord(rec), nil
	case CategoryRecord:
		return CategoryFromRecord(rec), nil
	case NoteRecord:
		return NoteFromRecord(rec), nil
	case EffortRecord:
		return EffortFromRecord(rec), nil
	case AttachmentRecord:
		return AttachmentFromRecord(rec), nil
	default:
		return nil, fmt.Errorf("unsupported record %T", r)
	}
}

// Snapshot is the persisted content of a document. Slices keep container
// order; tombstoned objects are not part of a snapshot.
type Snapshot struct {
	Tasks       []TaskRecord       `json:"tasks"`
	Categories  []CategoryRecord   `json:"categories"`
	Notes       []NoteRecord       `json:"notes"`
	Efforts     []EffortRecord     `json:"efforts"`
	Attachments []AttachmentRecord `json:"attachments"`
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Tasks) + len(s.Categories) + len(s.Notes) + len(s.Efforts) + len(s.Attachments)
}

// SnapshotStore is the durable backend a document is saved to and loaded from.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}
