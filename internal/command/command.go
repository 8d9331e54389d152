// Package command implements the reversible operations on a document and
// the undo history that records them.
//
// A command runs inside a core.Transaction: CanDo is checked first and, when
// it passes, Do mutates the state. Undo is the exact inverse of Do on every
// observable attribute of the items the command touched, and Redo
// reproduces the forward effect, derived changes included.
package command

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// Command is a reversible operation over a set of domain objects.
type Command interface {
	// Name is the human readable label shown for undo and redo.
	Name() string
	// Items returns the objects the command operates on.
	Items() []domain.ID
	// CanDo reports whether the command applies to the current state. A
	// command that cannot be done is not executed and not recorded.
	CanDo(v core.View) bool
	Do(tx *core.Transaction) error
	Undo(tx *core.Transaction) error
	Redo(tx *core.Transaction) error
}

const maxSubjectLength = 60

// base carries the bookkeeping shared by all commands: the item list, the
// display names and the modification times of the modified items.
type base struct {
	items    []domain.ID
	singular string
	plural   string
	subject  string

	touched     bool
	at          time.Time
	oldModified []modification
}

type modification struct {
	id domain.ID
	at time.Time
}

func newBase(singular, plural string, items []domain.ID) base {
	return base{items: slices.Clone(items), singular: singular, plural: plural}
}

// Name uses the singular form, filled with the subject of the only item
// when it has a placeholder, or the plural form for several items.
func (b *base) Name() string {
	if len(b.items) != 1 {
		return b.plural
	}
	if strings.Contains(b.singular, "%s") {
		return fmt.Sprintf(b.singular, b.subject)
	}
	return b.singular
}

// Items implements Command.
func (b *base) Items() []domain.ID { return slices.Clone(b.items) }

// CanDo requires at least one item.
func (b *base) CanDo(core.View) bool { return len(b.items) > 0 }

func (b *base) nameFrom(v core.View, id domain.ID) {
	if b.subject != "" {
		return
	}
	obj, err := v.Lookup(id)
	if err != nil {
		return
	}
	b.subject = shorten(obj.Base().Subject())
}

func shorten(subject string) string {
	runes := []rune(subject)
	if len(runes) < maxSubjectLength {
		return subject
	}
	return string(runes[:maxSubjectLength-3]) + "..."
}

// touch sets the modification time of modified to the time of the first
// execution, remembering the previous times the first time around.
func (b *base) touch(tx *core.Transaction, modified []domain.ID) error {
	if len(b.items) > 0 {
		b.nameFrom(tx, b.items[0])
	}
	if !b.touched {
		b.touched = true
		b.at = tx.Now()
		b.oldModified = b.oldModified[:0]
		for _, id := range modified {
			obj, err := tx.Lookup(id)
			if err != nil {
				return err
			}
			b.oldModified = append(b.oldModified, modification{id: id, at: obj.Base().Modified()})
		}
	}
	for _, m := range b.oldModified {
		if err := tx.Touch(b.at, m.id); err != nil {
			return err
		}
	}
	return nil
}

// untouch restores the modification times saved by touch.
func (b *base) untouch(tx *core.Transaction) error {
	for _, m := range b.oldModified {
		if err := tx.Touch(m.at, m.id); err != nil {
			return err
		}
	}
	return nil
}

// savedStates keeps records of objects before a command and, once undone,
// after it, so undo and redo can put every attribute back exactly.
type savedStates struct {
	ids []domain.ID
	old []domain.Record
	new []domain.Record
}

func (s *savedStates) save(v core.View, ids []domain.ID) error {
	s.ids = dedupe(ids)
	records, err := capture(v, s.ids)
	if err != nil {
		return err
	}
	s.old = records
	return nil
}

func (s *savedStates) undo(tx *core.Transaction) error {
	records, err := capture(tx, s.ids)
	if err != nil {
		return err
	}
	s.new = records
	return tx.Restore(s.old...)
}

func (s *savedStates) redo(tx *core.Transaction) error {
	return tx.Restore(s.new...)
}

func (s *savedStates) restore(tx *core.Transaction) error {
	return tx.Restore(s.old...)
}

func capture(v core.View, ids []domain.ID) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		obj, err := v.Lookup(id)
		if err != nil {
			return nil, err
		}
		records = append(records, obj.Record())
	}
	return records, nil
}

func dedupe(ids []domain.ID) []domain.ID {
	out := make([]domain.ID, 0, len(ids))
	seen := make(map[domain.ID]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// family returns the items with their ancestors and descendants.
func family(v core.View, items []domain.ID) []domain.ID {
	var out []domain.ID
	for _, id := range items {
		out = append(out, id)
		out = append(out, v.Ancestors(id)...)
		out = append(out, v.Children(id, true)...)
	}
	return dedupe(out)
}

// parents returns the parents of items that have one.
func parents(v core.View, items []domain.ID) []domain.ID {
	var out []domain.ID
	for _, id := range items {
		if anc := v.Ancestors(id); len(anc) > 0 {
			out = append(out, anc[0])
		}
	}
	return dedupe(out)
}

// live drops items that no longer exist or are deleted.
func live(v core.View, items []domain.ID) []domain.ID {
	out := make([]domain.ID, 0, len(items))
	for _, id := range items {
		if !v.IsDeleted(id) {
			out = append(out, id)
		}
	}
	return out
}
