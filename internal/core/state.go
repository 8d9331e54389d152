package core

import (
	"fmt"
	"slices"

	"taskcoach/pkg/domain"
)

// ErrNotFound reports a lookup of an ID that is not in the arena or not of
// the expected kind.
type ErrNotFound struct {
	Kind domain.Kind
	ID   domain.ID
}

func (e ErrNotFound) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("object %s not found", e.ID)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// arena holds every object of a document keyed by ID plus the ordered
// containers. Containers keep tombstoned members; enumeration skips them.
type arena struct {
	objects map[domain.ID]domain.Entity
	lists   map[domain.ID][]domain.ID
}

var containerIDs = []domain.ID{domain.TaskListID, domain.CategoryListID, domain.NoteListID, domain.EffortListID}

func newArena() *arena {
	a := &arena{
		objects: make(map[domain.ID]domain.Entity),
		lists:   make(map[domain.ID][]domain.ID, len(containerIDs)),
	}
	for _, id := range containerIDs {
		a.lists[id] = nil
	}
	return a
}

func (a *arena) clone() *arena {
	cp := &arena{
		objects: make(map[domain.ID]domain.Entity, len(a.objects)),
		lists:   make(map[domain.ID][]domain.ID, len(a.lists)),
	}
	for id, obj := range a.objects {
		cp.objects[id] = obj.CloneEntity()
	}
	for id, members := range a.lists {
		cp.lists[id] = slices.Clone(members)
	}
	return cp
}

func (a *arena) lookup(id domain.ID) (domain.Entity, error) {
	obj, ok := a.objects[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}
	return obj, nil
}

func lookupAs[T domain.Entity](a *arena, id domain.ID, kind domain.Kind) (T, error) {
	var zero T
	obj, ok := a.objects[id]
	if !ok {
		return zero, ErrNotFound{Kind: kind, ID: id}
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, ErrNotFound{Kind: kind, ID: id}
	}
	return typed, nil
}

// snapshot exports the live objects in container order.
func (a *arena) snapshot(deleted func(domain.ID) bool) domain.Snapshot {
	var snap domain.Snapshot
	var pending []domain.ID
	for _, id := range a.lists[domain.TaskListID] {
		if deleted(id) {
			continue
		}
		t := a.objects[id].(*domain.Task)
		rec := t.Record().(domain.TaskRecord)
		rec.Children = liveOnly(rec.Children, deleted)
		rec.Prerequisites = liveOnly(rec.Prerequisites, deleted)
		rec.Dependencies = liveOnly(rec.Dependencies, deleted)
		rec.Categories = liveOnly(rec.Categories, deleted)
		rec.Efforts = liveOnly(rec.Efforts, deleted)
		snap.Tasks = append(snap.Tasks, rec)
		pending = append(pending, rec.Notes...)
		pending = append(pending, rec.Attachments...)
	}
	for _, id := range a.lists[domain.CategoryListID] {
		if deleted(id) {
			continue
		}
		rec := a.objects[id].Record().(domain.CategoryRecord)
		rec.Children = liveOnly(rec.Children, deleted)
		rec.Categorizables = liveOnly(rec.Categorizables, deleted)
		snap.Categories = append(snap.Categories, rec)
		pending = append(pending, rec.Notes...)
		pending = append(pending, rec.Attachments...)
	}
	pending = append(pending, a.lists[domain.NoteListID]...)
	// Notes owned by tasks and categories are not in the note container, so
	// walk owner collections breadth first to reach them and their children.
	seen := make(map[domain.ID]bool)
	for i := 0; i < len(pending); i++ {
		id := pending[i]
		if seen[id] || deleted(id) {
			continue
		}
		seen[id] = true
		switch obj := a.objects[id].(type) {
		case *domain.Note:
			rec := obj.Record().(domain.NoteRecord)
			rec.Children = liveOnly(rec.Children, deleted)
			rec.Categories = liveOnly(rec.Categories, deleted)
			snap.Notes = append(snap.Notes, rec)
			pending = append(pending, rec.Children...)
			pending = append(pending, rec.Attachments...)
		case *domain.Attachment:
			snap.Attachments = append(snap.Attachments, obj.Record().(domain.AttachmentRecord))
		}
	}
	for _, id := range a.lists[domain.EffortListID] {
		if deleted(id) {
			continue
		}
		snap.Efforts = append(snap.Efforts, a.objects[id].Record().(domain.EffortRecord))
	}
	return snap
}

func liveOnly(ids []domain.ID, deleted func(domain.ID) bool) []domain.ID {
	return slices.DeleteFunc(ids, deleted)
}

// arenaFromSnapshot rebuilds an arena. Notes that are owned by a task,
// category or note attachment list stay out of the note container.
func arenaFromSnapshot(snap domain.Snapshot) (*arena, error) {
	a := newArena()
	owned := make(map[domain.ID]bool)
	for _, r := range snap.Tasks {
		a.objects[r.ID] = domain.TaskFromRecord(r)
		a.lists[domain.TaskListID] = append(a.lists[domain.TaskListID], r.ID)
		markOwned(owned, r.Notes)
	}
	for _, r := range snap.Categories {
		a.objects[r.ID] = domain.CategoryFromRecord(r)
		a.lists[domain.CategoryListID] = append(a.lists[domain.CategoryListID], r.ID)
		markOwned(owned, r.Notes)
	}
	for _, r := range snap.Notes {
		a.objects[r.ID] = domain.NoteFromRecord(r)
	}
	for _, r := range snap.Notes {
		if owned[r.ID] || (r.Parent != "" && a.objects[r.Parent] != nil && isOwnedNote(a, owned, r.Parent)) {
			owned[r.ID] = true
			continue
		}
		a.lists[domain.NoteListID] = append(a.lists[domain.NoteListID], r.ID)
	}
	for _, r := range snap.Efforts {
		if _, ok := a.objects[r.Task].(*domain.Task); !ok {
			return nil, fmt.Errorf("effort %s: %w", r.ID, ErrNotFound{Kind: domain.KindTask, ID: r.Task})
		}
		a.objects[r.ID] = domain.EffortFromRecord(r)
		a.lists[domain.EffortListID] = append(a.lists[domain.EffortListID], r.ID)
	}
	for _, r := range snap.Attachments {
		a.objects[r.ID] = domain.AttachmentFromRecord(r)
	}
	return a, nil
}

func markOwned(owned map[domain.ID]bool, ids []domain.ID) {
	for _, id := range ids {
		owned[id] = true
	}
}

func isOwnedNote(a *arena, owned map[domain.ID]bool, id domain.ID) bool {
	for id != "" {
		if owned[id] {
			return true
		}
		n, ok := a.objects[id].(*domain.Note)
		if !ok {
			return false
		}
		id = n.Parent()
	}
	return false
}
