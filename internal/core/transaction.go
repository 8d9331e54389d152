package core

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"taskcoach/pkg/domain"
)

var (
	// ErrExists is returned when inserting an ID that is already in the arena.
	ErrExists = errors.New("object already exists")
	// ErrInvalidParent is returned when re-parenting would create a cycle or
	// mix entity kinds.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrUnsupported is returned for operations that do not apply to an
	// entity kind, such as putting an attachment into a container.
	ErrUnsupported = errors.New("unsupported operation")
)

// Transaction is the mutable scope of one Document.Run call. Every mutation
// records its notifications on the same batch, which is dispatched once when
// the outermost Run returns successfully.
type Transaction struct {
	stateView
	ev *domain.Event
}

func newTransaction(a *arena, now time.Time, settings Settings) *Transaction {
	return &Transaction{
		stateView: stateView{arena: a, now: now, settings: settings},
		ev:        domain.NewEvent(),
	}
}

// Event returns the batch all mutations of this transaction report to.
func (tx *Transaction) Event() *domain.Event { return tx.ev }

// Placement is the position of a tree entity under its parent.
type Placement struct {
	Parent domain.ID
	Index  int
}

// Insert adds e to the arena and to the container of its kind. A tree entity
// whose parent is set is linked as a child at index, appended when index is
// out of range, and joins the container only if its parent is in it. Efforts
// are booked on their task.
func (tx *Transaction) Insert(e domain.Entity, index int) error {
	id := e.ID()
	if _, exists := tx.arena.objects[id]; exists {
		return fmt.Errorf("insert %s %s: %w", e.Kind(), id, ErrExists)
	}
	list, ok := domain.ListFor(e.Kind())
	if !ok {
		return fmt.Errorf("insert %s %s: %w", e.Kind(), id, ErrUnsupported)
	}
	inContainer := true
	if te, ok := e.(domain.TreeEntity); ok && te.Tree().Parent() != "" {
		parent, err := tx.treeOf(te.Tree().Parent(), e.Kind())
		if err != nil {
			return err
		}
		inContainer = slices.Contains(tx.arena.lists[list], te.Tree().Parent())
		parent.InsertChild(tx.ev, te.Tree().Parent(), id, index)
	}
	if effort, ok := e.(*domain.Effort); ok {
		if err := tx.bookEffort(effort); err != nil {
			return err
		}
	}
	tx.arena.objects[id] = e
	if inContainer {
		tx.arena.lists[list] = append(tx.arena.lists[list], id)
		tx.ev.AddSource(list, domain.EventItemsAdded, domain.Delta[domain.ID]{Added: []domain.ID{id}})
	}
	return nil
}

// InsertOwned adds a note or attachment to the arena and to owner's collection.
func (tx *Transaction) InsertOwned(owner domain.ID, e domain.Entity) error {
	if _, exists := tx.arena.objects[e.ID()]; exists {
		return fmt.Errorf("insert %s %s: %w", e.Kind(), e.ID(), ErrExists)
	}
	obj, err := tx.arena.lookup(owner)
	if err != nil {
		return err
	}
	switch e.Kind() {
	case domain.KindNote:
		no, ok := obj.(domain.NoteOwner)
		if !ok {
			return fmt.Errorf("%s %s cannot own notes: %w", obj.Kind(), owner, ErrUnsupported)
		}
		no.AddNotes(tx.ev, e.ID())
	case domain.KindAttachment:
		ao, ok := obj.(domain.AttachmentOwner)
		if !ok {
			return fmt.Errorf("%s %s cannot own attachments: %w", obj.Kind(), owner, ErrUnsupported)
		}
		ao.AddAttachments(tx.ev, e.ID())
	default:
		return fmt.Errorf("%s cannot be owned: %w", e.Kind(), ErrUnsupported)
	}
	tx.arena.objects[e.ID()] = e
	return nil
}

// RemoveOwned detaches a note or attachment from owner and drops it, with
// any subnotes, from the arena. It returns the removed entities, owned one
// first, so they can be inserted again.
func (tx *Transaction) RemoveOwned(owner, id domain.ID) ([]domain.Entity, error) {
	obj, err := tx.arena.lookup(owner)
	if err != nil {
		return nil, err
	}
	removed := false
	if no, ok := obj.(domain.NoteOwner); ok {
		removed = no.RemoveNotes(tx.ev, id)
	}
	if ao, ok := obj.(domain.AttachmentOwner); ok && !removed {
		removed = ao.RemoveAttachments(tx.ev, id)
	}
	if !removed {
		return nil, ErrNotFound{ID: id}
	}
	ids := append([]domain.ID{id}, tx.Children(id, true)...)
	out := make([]domain.Entity, 0, len(ids))
	for _, rid := range ids {
		if e, ok := tx.arena.objects[rid]; ok {
			out = append(out, e)
			delete(tx.arena.objects, rid)
		}
	}
	return out, nil
}

// Remove drops id and its descendants from the arena and containers and
// unlinks it from its parent. Efforts of removed tasks are removed too. It
// is the inverse of Insert for objects created at the same point in history;
// removed entities are returned parent first.
func (tx *Transaction) Remove(id domain.ID) ([]domain.Entity, error) {
	obj, err := tx.arena.lookup(id)
	if err != nil {
		return nil, err
	}
	if te, ok := obj.(domain.TreeEntity); ok && te.Tree().Parent() != "" {
		if parent := tx.tree(te.Tree().Parent()); parent != nil {
			parent.RemoveChild(tx.ev, te.Tree().Parent(), id)
		}
	}
	ids := append([]domain.ID{id}, tx.Children(id, true)...)
	var out []domain.Entity
	for _, rid := range ids {
		if t, ok := tx.arena.objects[rid].(*domain.Task); ok {
			for _, eid := range t.Efforts() {
				removed, err := tx.Remove(eid)
				if err != nil {
					return nil, err
				}
				out = append(out, removed...)
			}
		}
		e := tx.arena.objects[rid]
		if effort, ok := e.(*domain.Effort); ok {
			tx.unbookEffort(effort)
		}
		tx.dropFromContainer(e)
		delete(tx.arena.objects, rid)
		out = append(out, e)
	}
	return out, nil
}

func (tx *Transaction) dropFromContainer(e domain.Entity) {
	list, ok := domain.ListFor(e.Kind())
	if !ok {
		return
	}
	idx := slices.Index(tx.arena.lists[list], e.ID())
	if idx < 0 {
		return
	}
	tx.arena.lists[list] = slices.Delete(tx.arena.lists[list], idx, idx+1)
	tx.ev.AddSource(list, domain.EventItemsRemoved, domain.Delta[domain.ID]{Removed: []domain.ID{e.ID()}})
}

// Placement returns the parent and child index of id.
func (tx *Transaction) Placement(id domain.ID) (Placement, error) {
	obj, err := tx.arena.lookup(id)
	if err != nil {
		return Placement{}, err
	}
	te, ok := obj.(domain.TreeEntity)
	if !ok {
		return Placement{}, fmt.Errorf("%s %s has no parent: %w", obj.Kind(), id, ErrUnsupported)
	}
	parent := te.Tree().Parent()
	if parent == "" {
		return Placement{Index: -1}, nil
	}
	pt := tx.tree(parent)
	if pt == nil {
		return Placement{Parent: parent, Index: -1}, nil
	}
	return Placement{Parent: parent, Index: slices.Index(pt.Children(), id)}, nil
}

// Move re-parents id under to.Parent at to.Index; an empty parent makes it a
// root item. It returns the previous placement.
func (tx *Transaction) Move(id domain.ID, to Placement) (Placement, error) {
	from, err := tx.Placement(id)
	if err != nil {
		return Placement{}, err
	}
	obj := tx.arena.objects[id]
	te := obj.(domain.TreeEntity)
	if to.Parent != "" {
		if to.Parent == id || slices.Contains(tx.Children(id, true), to.Parent) {
			return Placement{}, fmt.Errorf("move %s under %s: %w", id, to.Parent, ErrInvalidParent)
		}
		if _, err := tx.treeOf(to.Parent, obj.Kind()); err != nil {
			return Placement{}, err
		}
	}
	if from.Parent == to.Parent && (from.Index == to.Index || to.Parent == "") {
		return from, nil
	}
	if from.Parent != "" {
		if pt := tx.tree(from.Parent); pt != nil {
			pt.RemoveChild(tx.ev, from.Parent, id)
		}
	}
	te.Tree().SetParent(tx.ev, id, to.Parent)
	if to.Parent != "" {
		tx.tree(to.Parent).InsertChild(tx.ev, to.Parent, id, to.Index)
	}
	return from, nil
}

func (tx *Transaction) treeOf(id domain.ID, kind domain.Kind) (*domain.Composite, error) {
	obj, ok := tx.arena.objects[id]
	if !ok {
		return nil, ErrNotFound{Kind: kind, ID: id}
	}
	te, ok := obj.(domain.TreeEntity)
	if !ok || obj.Kind() != kind {
		return nil, fmt.Errorf("%s %s is not a %s: %w", obj.Kind(), id, kind, ErrInvalidParent)
	}
	return te.Tree(), nil
}

// SetDeleted tombstones or restores the given objects and returns the IDs
// whose flag actually changed.
func (tx *Transaction) SetDeleted(deleted bool, ids ...domain.ID) ([]domain.ID, error) {
	var changed []domain.ID
	for _, id := range ids {
		obj, err := tx.arena.lookup(id)
		if err != nil {
			return nil, err
		}
		if obj.Base().SetDeleted(tx.ev, deleted) {
			changed = append(changed, id)
		}
	}
	return changed, nil
}

// Touch sets the modification time of the given objects.
func (tx *Transaction) Touch(at time.Time, ids ...domain.ID) error {
	for _, id := range ids {
		obj, err := tx.arena.lookup(id)
		if err != nil {
			return err
		}
		obj.Base().SetModified(tx.ev, at)
	}
	return nil
}

// Restore applies saved records to the live objects they describe. Tasks
// whose tracking state changes as a result report it.
func (tx *Transaction) Restore(records ...domain.Record) error {
	tracking := make(map[domain.ID]bool)
	var tasks []domain.ID
	watch := func(task domain.ID) {
		if _, seen := tracking[task]; !seen {
			tracking[task] = tx.Tracking(task)
			tasks = append(tasks, task)
		}
	}
	for _, r := range records {
		switch rec := r.(type) {
		case domain.TaskRecord:
			watch(rec.ID)
		case domain.EffortRecord:
			watch(rec.Task)
			if e, err := lookupAs[*domain.Effort](tx.arena, rec.ID, domain.KindEffort); err == nil {
				watch(e.Task())
			}
		}
	}
	for _, r := range records {
		obj, err := tx.arena.lookup(r.RecordID())
		if err != nil {
			return err
		}
		if err := obj.Apply(tx.ev, r); err != nil {
			return err
		}
	}
	for _, task := range tasks {
		if now := tx.Tracking(task); now != tracking[task] {
			tx.ev.AddSource(task, domain.EventTracking, domain.Value[bool]{New: now})
		}
	}
	return nil
}
