package core

import (
	"slices"
	"time"

	"taskcoach/pkg/domain"
)

// Settings are the document-wide preferences that influence derived state.
type Settings struct {
	// DueSoonHours is the window before the due date in which a task is due soon.
	DueSoonHours int
	// MarkParentCompletedWhenAllChildrenCompleted is the default for tasks
	// whose own ShouldMarkCompleted is Inherit.
	MarkParentCompletedWhenAllChildrenCompleted bool
}

// DefaultSettings mirrors the defaults of the desktop application.
func DefaultSettings() Settings {
	return Settings{DueSoonHours: 24, MarkParentCompletedWhenAllChildrenCompleted: true}
}

// View is read access to a document state. Entities returned from a
// Document view are copies; entities returned from a Transaction are live
// and must only be mutated through the transaction's event batch.
type View interface {
	Now() time.Time
	Settings() Settings
	Lookup(id domain.ID) (domain.Entity, error)
	Task(id domain.ID) (*domain.Task, error)
	Category(id domain.ID) (*domain.Category, error)
	Note(id domain.ID) (*domain.Note, error)
	Effort(id domain.ID) (*domain.Effort, error)
	Attachment(id domain.ID) (*domain.Attachment, error)
	// Members returns a container's IDs in order, tombstones included.
	Members(list domain.ID) []domain.ID
	// Live returns a container's IDs in order without deleted objects.
	Live(list domain.ID) []domain.ID
	// Children returns the child IDs of a tree entity, depth first when recursive.
	Children(id domain.ID, recursive bool) []domain.ID
	// Ancestors returns the parent chain of id, nearest first.
	Ancestors(id domain.ID) []domain.ID
	// IsDeleted reports whether id is tombstoned itself or through an
	// ancestor or, for efforts, through its task.
	IsDeleted(id domain.ID) bool
	Status(task domain.ID) domain.TaskStatus
	TimeSpent(task domain.ID, recursive bool) time.Duration
	// Efforts returns the efforts of a task and, when recursive, of its subtasks.
	Efforts(task domain.ID, recursive bool) []domain.ID
	Tracking(task domain.ID) bool
	// Notes returns the notes of an owner and, when recursive, their subnotes.
	Notes(owner domain.ID, recursive bool) []domain.ID
	// Categorizables returns the items in a category and, when recursive,
	// in its subcategories.
	Categorizables(category domain.ID, recursive bool) []domain.ID
}

type stateView struct {
	arena    *arena
	now      time.Time
	settings Settings
	copies   bool
}

var _ View = (*stateView)(nil)

func (v *stateView) Now() time.Time     { return v.now }
func (v *stateView) Settings() Settings { return v.settings }

func (v *stateView) Lookup(id domain.ID) (domain.Entity, error) {
	obj, err := v.arena.lookup(id)
	if err != nil {
		return nil, err
	}
	if v.copies {
		return obj.CloneEntity(), nil
	}
	return obj, nil
}

func viewAs[T domain.Entity](v *stateView, id domain.ID, kind domain.Kind, clone func(T) T) (T, error) {
	obj, err := lookupAs[T](v.arena, id, kind)
	if err != nil {
		return obj, err
	}
	if v.copies {
		return clone(obj), nil
	}
	return obj, nil
}

func (v *stateView) Task(id domain.ID) (*domain.Task, error) {
	return viewAs(v, id, domain.KindTask, (*domain.Task).Clone)
}

func (v *stateView) Category(id domain.ID) (*domain.Category, error) {
	return viewAs(v, id, domain.KindCategory, (*domain.Category).Clone)
}

func (v *stateView) Note(id domain.ID) (*domain.Note, error) {
	return viewAs(v, id, domain.KindNote, (*domain.Note).Clone)
}

func (v *stateView) Effort(id domain.ID) (*domain.Effort, error) {
	return viewAs(v, id, domain.KindEffort, (*domain.Effort).Clone)
}

func (v *stateView) Attachment(id domain.ID) (*domain.Attachment, error) {
	return viewAs(v, id, domain.KindAttachment, (*domain.Attachment).Clone)
}

func (v *stateView) Members(list domain.ID) []domain.ID {
	return slices.Clone(v.arena.lists[list])
}

func (v *stateView) Live(list domain.ID) []domain.ID {
	members := v.arena.lists[list]
	out := make([]domain.ID, 0, len(members))
	for _, id := range members {
		if !v.IsDeleted(id) {
			out = append(out, id)
		}
	}
	return out
}

func (v *stateView) tree(id domain.ID) *domain.Composite {
	if te, ok := v.arena.objects[id].(domain.TreeEntity); ok {
		return te.Tree()
	}
	return nil
}

func (v *stateView) Children(id domain.ID, recursive bool) []domain.ID {
	tree := v.tree(id)
	if tree == nil {
		return nil
	}
	var out []domain.ID
	for _, child := range tree.Children() {
		out = append(out, child)
		if recursive {
			out = append(out, v.Children(child, true)...)
		}
	}
	return out
}

func (v *stateView) Ancestors(id domain.ID) []domain.ID {
	var out []domain.ID
	seen := map[domain.ID]bool{id: true}
	for tree := v.tree(id); tree != nil && tree.Parent() != ""; {
		parent := tree.Parent()
		if seen[parent] {
			break
		}
		seen[parent] = true
		out = append(out, parent)
		tree = v.tree(parent)
	}
	return out
}

func (v *stateView) IsDeleted(id domain.ID) bool {
	obj, ok := v.arena.objects[id]
	if !ok {
		return true
	}
	if obj.Base().Deleted() {
		return true
	}
	if e, ok := obj.(*domain.Effort); ok {
		return v.IsDeleted(e.Task())
	}
	for _, anc := range v.Ancestors(id) {
		if v.arena.objects[anc].Base().Deleted() {
			return true
		}
	}
	return false
}

func (v *stateView) Status(id domain.ID) domain.TaskStatus {
	t, err := lookupAs[*domain.Task](v.arena, id, domain.KindTask)
	if err != nil {
		return domain.StatusInactive
	}
	dueSoon := time.Duration(v.settings.DueSoonHours) * time.Hour
	return t.Status(v.now, dueSoon, v.prerequisitesOpen(id))
}

// prerequisitesOpen checks the prerequisites of the task and its ancestors
// without recursing into prerequisites of prerequisites, which may be cyclic.
func (v *stateView) prerequisitesOpen(id domain.ID) bool {
	for _, owner := range append([]domain.ID{id}, v.Ancestors(id)...) {
		t, err := lookupAs[*domain.Task](v.arena, owner, domain.KindTask)
		if err != nil {
			continue
		}
		for _, p := range t.Prerequisites() {
			pt, err := lookupAs[*domain.Task](v.arena, p, domain.KindTask)
			if err != nil || v.IsDeleted(p) {
				continue
			}
			if !pt.Completed() {
				return true
			}
		}
	}
	return false
}

func (v *stateView) Efforts(task domain.ID, recursive bool) []domain.ID {
	t, err := lookupAs[*domain.Task](v.arena, task, domain.KindTask)
	if err != nil {
		return nil
	}
	out := t.Efforts()
	if recursive {
		for _, child := range v.Children(task, true) {
			if ct, err := lookupAs[*domain.Task](v.arena, child, domain.KindTask); err == nil {
				out = append(out, ct.Efforts()...)
			}
		}
	}
	return out
}

func (v *stateView) TimeSpent(task domain.ID, recursive bool) time.Duration {
	var total time.Duration
	for _, id := range v.Efforts(task, recursive) {
		if e, err := lookupAs[*domain.Effort](v.arena, id, domain.KindEffort); err == nil {
			total += e.Duration(v.now)
		}
	}
	return total
}

func (v *stateView) Tracking(task domain.ID) bool {
	for _, id := range v.Efforts(task, false) {
		if e, err := lookupAs[*domain.Effort](v.arena, id, domain.KindEffort); err == nil && e.Tracking() {
			return true
		}
	}
	return false
}

func (v *stateView) Notes(owner domain.ID, recursive bool) []domain.ID {
	obj, ok := v.arena.objects[owner].(domain.NoteOwner)
	if !ok {
		return nil
	}
	var out []domain.ID
	for _, id := range obj.Notes() {
		out = append(out, id)
		if recursive {
			out = append(out, v.Children(id, true)...)
		}
	}
	return out
}

func (v *stateView) Categorizables(category domain.ID, recursive bool) []domain.ID {
	c, err := lookupAs[*domain.Category](v.arena, category, domain.KindCategory)
	if err != nil {
		return nil
	}
	out := c.Categorizables()
	if recursive {
		for _, child := range v.Children(category, true) {
			if cc, err := lookupAs[*domain.Category](v.arena, child, domain.KindCategory); err == nil {
				for _, id := range cc.Categorizables() {
					if !slices.Contains(out, id) {
						out = append(out, id)
					}
				}
			}
		}
	}
	return out
}
