package command

import (
	"slices"
	"strings"
	"time"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// newItem creates one object per entry of parents, under that parent or as
// a root item when the entry is empty. The objects are built on the first
// run; undo removes them and redo inserts the same objects again.
type newItem struct {
	base
	parents []domain.ID
	build   func(tx *core.Transaction, id, parent domain.ID) (domain.Entity, error)
	link    func(tx *core.Transaction, id domain.ID) error
	unlink  func(tx *core.Transaction, id domain.ID) error
	reopen  bool
	protos  []domain.Record
	states  savedStates
}

func newNewItem(singular, plural string, parents []domain.ID) *newItem {
	items := make([]domain.ID, len(parents))
	for i := range items {
		items[i] = domain.NewID()
	}
	return &newItem{base: newBase(singular, plural, items), parents: slices.Clone(parents)}
}

// Name of a new item leaves the subject out; for sub items it names the parent.
func (c *newItem) Name() string {
	if len(c.items) == 1 && c.parents[0] == "" {
		return c.singular
	}
	return c.base.Name()
}

func (c *newItem) CanDo(v core.View) bool {
	if len(c.items) == 0 {
		return false
	}
	for _, parent := range c.parents {
		if parent != "" && v.IsDeleted(parent) {
			return false
		}
	}
	return true
}

func (c *newItem) modified() []domain.ID { return dedupe(c.parents) }

func (c *newItem) Do(tx *core.Transaction) error {
	if c.protos == nil {
		if c.parents[0] != "" {
			c.nameFrom(tx, c.parents[0])
		}
		for i, id := range c.items {
			e, err := c.build(tx, id, c.parents[i])
			if err != nil {
				return err
			}
			c.protos = append(c.protos, e.Record())
		}
	}
	saved := c.modified()
	for _, parent := range c.modified() {
		saved = append(saved, tx.Ancestors(parent)...)
	}
	if err := c.states.save(tx, saved); err != nil {
		return err
	}
	if err := c.touch(tx, c.modified()); err != nil {
		return err
	}
	if err := c.insert(tx); err != nil {
		return err
	}
	if c.reopen {
		for _, parent := range c.modified() {
			if t, err := tx.Task(parent); err == nil && t.Completed() {
				if err := tx.SetCompletion(parent, time.Time{}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *newItem) insert(tx *core.Transaction) error {
	for _, proto := range c.protos {
		e, err := domain.FromRecord(proto)
		if err != nil {
			return err
		}
		if err := tx.Insert(e, -1); err != nil {
			return err
		}
		if c.link != nil {
			if err := c.link(tx, e.ID()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *newItem) Undo(tx *core.Transaction) error {
	for _, id := range slices.Backward(c.items) {
		if c.unlink != nil {
			if err := c.unlink(tx, id); err != nil {
				return err
			}
		}
		if _, err := tx.Remove(id); err != nil {
			return err
		}
	}
	return c.states.undo(tx)
}

func (c *newItem) Redo(tx *core.Transaction) error {
	if err := c.states.redo(tx); err != nil {
		return err
	}
	return c.insert(tx)
}

// categorize returns link and unlink functions that put new items into
// the live categories among categories.
func categorize(categories []domain.ID) (link, unlink func(*core.Transaction, domain.ID) error) {
	if len(categories) == 0 {
		return nil, nil
	}
	link = func(tx *core.Transaction, id domain.ID) error {
		for _, cat := range live(tx, categories) {
			if _, err := tx.Categorize(cat, id); err != nil {
				return err
			}
		}
		return nil
	}
	unlink = func(tx *core.Transaction, id domain.ID) error {
		for _, cat := range categories {
			if _, err := tx.Category(cat); err != nil {
				continue
			}
			if err := tx.Uncategorize(cat, id); err != nil {
				return err
			}
		}
		return nil
	}
	return link, unlink
}

// Delete tombstones the items and their descendants. Deleted tasks stop
// tracking and leave the prerequisite relations they take part in; deleted
// categories release their items.
type Delete struct {
	base
	states savedStates
}

// NewDelete returns a command deleting items. Without items it cannot be done.
func NewDelete(items []domain.ID) *Delete {
	return &Delete{base: newBase(`Delete "%s"`, "Delete", items)}
}

func (c *Delete) CanDo(v core.View) bool {
	return len(c.items) > 0 && len(live(v, c.items)) == len(c.items)
}

// deleted returns the items with all their live descendants.
func (c *Delete) deleted(v core.View) []domain.ID {
	var out []domain.ID
	for _, id := range c.items {
		out = append(out, id)
		out = append(out, live(v, v.Children(id, true))...)
	}
	return dedupe(out)
}

func (c *Delete) scope(v core.View) []domain.ID {
	deleted := c.deleted(v)
	ids := append(slices.Clone(deleted), parents(v, c.items)...)
	for _, id := range deleted {
		if t, err := v.Task(id); err == nil {
			ids = append(ids, t.Prerequisites()...)
			ids = append(ids, t.Dependencies()...)
			ids = append(ids, v.Efforts(id, false)...)
		}
		if cat, err := v.Category(id); err == nil {
			ids = append(ids, cat.Categorizables()...)
		}
	}
	return existing(v, ids)
}

func (c *Delete) Do(tx *core.Transaction) error {
	deleted := c.deleted(tx)
	if err := c.states.save(tx, c.scope(tx)); err != nil {
		return err
	}
	if err := c.touch(tx, parents(tx, c.items)); err != nil {
		return err
	}
	if _, err := tx.SetDeleted(true, deleted...); err != nil {
		return err
	}
	for _, id := range deleted {
		if t, err := tx.Task(id); err == nil {
			if _, err := tx.StopTracking(id, tx.Now()); err != nil {
				return err
			}
			if err := tx.UnlinkPrerequisites(id, t.Prerequisites()...); err != nil {
				return err
			}
			for _, dep := range t.Dependencies() {
				if err := tx.UnlinkPrerequisites(dep, id); err != nil {
					return err
				}
			}
		}
		if cat, err := tx.Category(id); err == nil {
			for _, item := range cat.Categorizables() {
				if err := tx.Uncategorize(id, item); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Delete) Undo(tx *core.Transaction) error { return c.states.undo(tx) }

func (c *Delete) Redo(tx *core.Transaction) error { return c.states.redo(tx) }

// existing drops IDs that are not in the arena.
func existing(v core.View, ids []domain.ID) []domain.ID {
	out := make([]domain.ID, 0, len(ids))
	for _, id := range dedupe(ids) {
		if _, err := v.Lookup(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// Cut deletes the items after putting copies of them on the clipboard.
// Undo puts the previous clipboard content back.
type Cut struct {
	Delete
	clipboard *Clipboard
	clip      Clip
	previous  Clip
}

// NewCut returns a command cutting items to clipboard.
func NewCut(clipboard *Clipboard, items []domain.ID) *Cut {
	return &Cut{Delete: Delete{base: newBase(`Cut "%s"`, "Cut", items)}, clipboard: clipboard}
}

func (c *Cut) CanDo(v core.View) bool {
	return c.Delete.CanDo(v) && pastable(v, c.items)
}

func (c *Cut) Do(tx *core.Transaction) error {
	clip, err := clipOf(tx, c.items)
	if err != nil {
		return err
	}
	if err := c.Delete.Do(tx); err != nil {
		return err
	}
	c.clip = clip
	c.previous = c.clipboard.Put(clip)
	return nil
}

func (c *Cut) Undo(tx *core.Transaction) error {
	if err := c.Delete.Undo(tx); err != nil {
		return err
	}
	c.clipboard.Put(c.previous)
	return nil
}

func (c *Cut) Redo(tx *core.Transaction) error {
	if err := c.Delete.Redo(tx); err != nil {
		return err
	}
	c.previous = c.clipboard.Put(c.clip)
	return nil
}

// Copy puts copies of the items and their descendants on the clipboard.
// It does not change the document.
type Copy struct {
	base
	clipboard *Clipboard
	clip      Clip
	previous  Clip
}

// NewCopy returns a command copying items to clipboard.
func NewCopy(clipboard *Clipboard, items []domain.ID) *Copy {
	return &Copy{base: newBase(`Copy "%s"`, "Copy", items), clipboard: clipboard}
}

func (c *Copy) CanDo(v core.View) bool {
	return c.base.CanDo(v) && pastable(v, c.items)
}

func (c *Copy) Do(tx *core.Transaction) error {
	c.nameFrom(tx, c.items[0])
	clip, err := clipOf(tx, c.items)
	if err != nil {
		return err
	}
	c.clip = clip
	c.previous = c.clipboard.Put(clip)
	return nil
}

func (c *Copy) Undo(*core.Transaction) error {
	c.clipboard.Put(c.previous)
	return nil
}

func (c *Copy) Redo(*core.Transaction) error {
	c.previous = c.clipboard.Put(c.clip)
	return nil
}

// Paste inserts fresh copies of the clipboard content, as root items or,
// with a target, as children of the target. The clipboard keeps its content
// so it can be pasted again.
type Paste struct {
	base
	clip   Clip
	target domain.ID
	pasted []domain.Record
	cats   map[domain.ID][]domain.ID
	roots  []domain.ID
}

// NewPaste returns a command pasting the current clipboard content.
func NewPaste(clipboard *Clipboard) *Paste {
	return &Paste{base: newBase(`Paste "%s"`, "Paste", nil), clip: clipboard.Get()}
}

// NewPasteAsSubItem returns a command pasting the clipboard content below target.
func NewPasteAsSubItem(clipboard *Clipboard, target domain.ID) *Paste {
	return &Paste{
		base:   newBase(`Paste as subitem of "%s"`, "Paste as subitem", []domain.ID{target}),
		clip:   clipboard.Get(),
		target: target,
	}
}

// Name implements Command.
func (c *Paste) Name() string {
	if c.target == "" {
		return c.plural
	}
	return c.base.Name()
}

// Pasted returns the IDs of the pasted subtree roots once the command ran.
func (c *Paste) Pasted() []domain.ID { return slices.Clone(c.roots) }

func (c *Paste) CanDo(v core.View) bool {
	if c.clip.Empty() {
		return false
	}
	if c.target == "" {
		return true
	}
	target, err := v.Lookup(c.target)
	if err != nil || v.IsDeleted(c.target) {
		return false
	}
	for _, r := range c.clip.Records {
		if slices.Contains(c.clip.Roots, r.RecordID()) && r.RecordKind() != target.Kind() {
			return false
		}
	}
	return true
}

func (c *Paste) Do(tx *core.Transaction) error {
	if c.pasted == nil {
		c.prepare(tx.Now())
	}
	if c.target != "" {
		if err := c.touch(tx, c.items); err != nil {
			return err
		}
	}
	return c.insert(tx)
}

// prepare gives every clipboard record a fresh identity, keeping the tree
// shape. Relations to other objects are dropped except for categories.
func (c *Paste) prepare(now time.Time) {
	ids := make(map[domain.ID]domain.ID, len(c.clip.Records))
	for _, r := range c.clip.Records {
		ids[r.RecordID()] = domain.NewID()
	}
	c.cats = make(map[domain.ID][]domain.ID)
	for _, r := range c.clip.Records {
		parent := c.target
		if !slices.Contains(c.clip.Roots, r.RecordID()) {
			parent = ids[recordParent(r)]
		} else {
			c.roots = append(c.roots, ids[r.RecordID()])
		}
		fresh, cats := reidentify(r, ids[r.RecordID()], parent, now)
		c.pasted = append(c.pasted, fresh)
		if len(cats) > 0 {
			c.cats[fresh.RecordID()] = cats
		}
	}
}

func (c *Paste) insert(tx *core.Transaction) error {
	for _, r := range c.pasted {
		e, err := domain.FromRecord(r)
		if err != nil {
			return err
		}
		if err := tx.Insert(e, -1); err != nil {
			return err
		}
		for _, cat := range live(tx, c.cats[r.RecordID()]) {
			if _, err := tx.Categorize(cat, r.RecordID()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Paste) Undo(tx *core.Transaction) error {
	for _, r := range c.pasted {
		for _, cat := range c.cats[r.RecordID()] {
			if _, err := tx.Category(cat); err != nil {
				continue
			}
			if err := tx.Uncategorize(cat, r.RecordID()); err != nil {
				return err
			}
		}
	}
	for _, id := range slices.Backward(c.roots) {
		if _, err := tx.Remove(id); err != nil {
			return err
		}
	}
	return c.untouch(tx)
}

func (c *Paste) Redo(tx *core.Transaction) error { return c.Do(tx) }

func recordParent(r domain.Record) domain.ID {
	switch rec := r.(type) {
	case domain.TaskRecord:
		return rec.Parent
	case domain.CategoryRecord:
		return rec.Parent
	case domain.NoteRecord:
		return rec.Parent
	}
	return ""
}

// reidentify returns a copy of r under a new ID and parent, without
// children and relations, together with the categories r was in.
func reidentify(r domain.Record, id, parent domain.ID, now time.Time) (domain.Record, []domain.ID) {
	object := func(o domain.ObjectRecord) domain.ObjectRecord {
		o.ID = id
		o.Created = now
		o.Modified = now
		o.Deleted = false
		return o
	}
	switch rec := r.(type) {
	case domain.TaskRecord:
		cats := rec.Categories
		rec.ObjectRecord = object(rec.ObjectRecord)
		rec.Parent, rec.Children = parent, nil
		rec.Prerequisites, rec.Dependencies, rec.Categories = nil, nil, nil
		rec.Efforts, rec.Notes, rec.Attachments = nil, nil, nil
		return rec, cats
	case domain.CategoryRecord:
		rec.ObjectRecord = object(rec.ObjectRecord)
		rec.Parent, rec.Children = parent, nil
		rec.Categorizables, rec.Notes, rec.Attachments = nil, nil, nil
		return rec, nil
	case domain.NoteRecord:
		cats := rec.Categories
		rec.ObjectRecord = object(rec.ObjectRecord)
		rec.Parent, rec.Children = parent, nil
		rec.Categories, rec.Attachments = nil, nil
		return rec, cats
	}
	return r, nil
}

// DropPart says where on the target the dragged items were dropped.
type DropPart int

const (
	// DropOnto moves the items below the target.
	DropOnto DropPart = iota
	// DropAbove makes the items prerequisites of the target task.
	DropAbove
	// DropBelow makes the target task a prerequisite of the items.
	DropBelow
)

// DragAndDrop moves the items below a target, or to the root level when
// the target is empty. Dropping on an item, its descendants or its own
// ancestors is refused. Tasks dropped above or below a task are linked as
// prerequisites instead of moved.
type DragAndDrop struct {
	base
	target domain.ID
	part   DropPart
	from   []core.Placement
	// linked holds the (task, prerequisite) pairs the drop added.
	linked [][2]domain.ID
}

// NewDragAndDrop returns a command moving items onto target.
func NewDragAndDrop(items []domain.ID, target domain.ID) *DragAndDrop {
	return NewDragAndDropPart(items, target, DropOnto)
}

// NewDragAndDropPart returns a command dropping items on the given part of
// target.
func NewDragAndDropPart(items []domain.ID, target domain.ID, part DropPart) *DragAndDrop {
	return &DragAndDrop{base: newBase(`Drag and drop "%s"`, "Drag and drop", items), target: target, part: part}
}

func (c *DragAndDrop) CanDo(v core.View) bool {
	if c.part != DropOnto {
		return c.canLink(v)
	}
	if !c.base.CanDo(v) || !pastable(v, c.items) {
		return false
	}
	if c.target == "" {
		return true
	}
	target, err := v.Lookup(c.target)
	if err != nil || v.IsDeleted(c.target) {
		return false
	}
	for _, id := range c.items {
		item, _ := v.Lookup(id)
		if item.Kind() != target.Kind() || id == c.target {
			return false
		}
		if slices.Contains(v.Children(id, true), c.target) || slices.Contains(v.Ancestors(id), c.target) {
			return false
		}
	}
	return true
}

func (c *DragAndDrop) canLink(v core.View) bool {
	if !c.base.CanDo(v) || c.target == "" || slices.Contains(c.items, c.target) {
		return false
	}
	all := append(slices.Clone(c.items), c.target)
	return allTasks(v, all) && len(live(v, all)) == len(all)
}

func (c *DragAndDrop) Do(tx *core.Transaction) error {
	if c.part != DropOnto {
		return c.link(tx)
	}
	if err := c.touch(tx, dedupe(append(parents(tx, c.items), c.target))); err != nil {
		return err
	}
	c.from = c.from[:0]
	for _, id := range c.items {
		from, err := tx.Move(id, core.Placement{Parent: c.target, Index: -1})
		if err != nil {
			return err
		}
		c.from = append(c.from, from)
	}
	return nil
}

func (c *DragAndDrop) link(tx *core.Transaction) error {
	if err := c.touch(tx, dedupe(append(slices.Clone(c.items), c.target))); err != nil {
		return err
	}
	c.linked = c.linked[:0]
	for _, id := range c.items {
		task, prerequisite := c.target, id
		if c.part == DropBelow {
			task, prerequisite = id, c.target
		}
		t, err := tx.Task(task)
		if err != nil {
			return err
		}
		if slices.Contains(t.Prerequisites(), prerequisite) {
			continue
		}
		if err := tx.LinkPrerequisites(task, prerequisite); err != nil {
			return err
		}
		c.linked = append(c.linked, [2]domain.ID{task, prerequisite})
	}
	return nil
}

func (c *DragAndDrop) Undo(tx *core.Transaction) error {
	if c.part != DropOnto {
		for i := len(c.linked) - 1; i >= 0; i-- {
			if err := tx.UnlinkPrerequisites(c.linked[i][0], c.linked[i][1]); err != nil {
				return err
			}
		}
		return c.untouch(tx)
	}
	for i := len(c.items) - 1; i >= 0; i-- {
		if _, err := tx.Move(c.items[i], c.from[i]); err != nil {
			return err
		}
	}
	return c.untouch(tx)
}

func (c *DragAndDrop) Redo(tx *core.Transaction) error { return c.Do(tx) }

// NewEditSubject returns a command setting the subject of items.
func NewEditSubject(items []domain.ID, subject string) Command {
	return newEdit(`Edit subject "%s"`, "Edit subjects", items, subject,
		attr(lookupObject, (*domain.Object).Subject, (*domain.Object).SetSubject))
}

// NewEditDescription returns a command setting the description of items.
func NewEditDescription(items []domain.ID, description string) Command {
	return newEdit(`Edit description "%s"`, "Edit descriptions", items, description,
		attr(lookupObject, (*domain.Object).Description, (*domain.Object).SetDescription))
}

// NewEditForegroundColor returns a command setting the foreground color of items.
func NewEditForegroundColor(items []domain.ID, color string) Command {
	return newEdit(`Change foreground color "%s"`, "Change foreground colors", items, color,
		attr(lookupObject, (*domain.Object).ForegroundColor, (*domain.Object).SetForegroundColor))
}

// NewEditBackgroundColor returns a command setting the background color of items.
func NewEditBackgroundColor(items []domain.ID, color string) Command {
	return newEdit(`Change background color "%s"`, "Change background colors", items, color,
		attr(lookupObject, (*domain.Object).BackgroundColor, (*domain.Object).SetBackgroundColor))
}

// NewEditFont returns a command setting the font of items.
func NewEditFont(items []domain.ID, font string) Command {
	return newEdit(`Change font "%s"`, "Change fonts", items, font,
		attr(lookupObject, (*domain.Object).Font, (*domain.Object).SetFont))
}

type icons struct{ icon, selected string }

// NewEditIcon returns a command setting the icon of items. Closed folder
// icons such as "folder_blue_icon" get the matching open folder as the
// icon shown while selected.
func NewEditIcon(items []domain.ID, icon string) Command {
	value := icons{icon: icon, selected: selectedIcon(icon)}
	return newEdit(`Change icon "%s"`, "Change icons", items, value, accessor[icons]{
		get: func(v core.View, id domain.ID) (icons, error) {
			obj, err := lookupObject(v, id)
			if err != nil {
				return icons{}, err
			}
			return icons{icon: obj.Icon(), selected: obj.SelectedIcon()}, nil
		},
		set: func(tx *core.Transaction, id domain.ID, value icons) error {
			obj, err := lookupObject(tx, id)
			if err != nil {
				return err
			}
			obj.SetIcon(tx.Event(), value.icon)
			obj.SetSelectedIcon(tx.Event(), value.selected)
			return nil
		},
	})
}

func selectedIcon(icon string) string {
	parts := strings.Split(icon, "_")
	if len(parts) == 3 && parts[0] == "folder" && parts[2] == "icon" {
		return "folder_" + parts[1] + "_open_icon"
	}
	return icon
}
