package command

import (
	"slices"
	"sync"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// Clip is the content of the clipboard: copies of whole subtrees, parents
// before children, with the IDs of the subtree roots.
type Clip struct {
	Roots   []domain.ID
	Records []domain.Record
}

// Empty reports whether the clip holds nothing to paste.
func (c Clip) Empty() bool { return len(c.Roots) == 0 }

// Clipboard holds what Cut and Copy put aside for Paste. One clipboard is
// shared by all documents of a process.
type Clipboard struct {
	mu   sync.Mutex
	clip Clip
}

// NewClipboard returns an empty clipboard.
func NewClipboard() *Clipboard { return &Clipboard{} }

// Put replaces the content and returns the previous one.
func (c *Clipboard) Put(clip Clip) Clip {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.clip
	c.clip = Clip{Roots: slices.Clone(clip.Roots), Records: slices.Clone(clip.Records)}
	return prev
}

// Get returns the content without clearing it.
func (c *Clipboard) Get() Clip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Clip{Roots: slices.Clone(c.clip.Roots), Records: slices.Clone(c.clip.Records)}
}

// Clear empties the clipboard.
func (c *Clipboard) Clear() {
	c.mu.Lock()
	c.clip = Clip{}
	c.mu.Unlock()
}

// Empty reports whether there is nothing to paste.
func (c *Clipboard) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clip.Empty()
}

// clipOf copies the live subtrees of items. Items below another item are
// left to their ancestor's subtree.
func clipOf(v core.View, items []domain.ID) (Clip, error) {
	var clip Clip
	for _, id := range items {
		if slices.ContainsFunc(v.Ancestors(id), func(a domain.ID) bool { return slices.Contains(items, a) }) {
			continue
		}
		clip.Roots = append(clip.Roots, id)
		records, err := capture(v, live(v, append([]domain.ID{id}, v.Children(id, true)...)))
		if err != nil {
			return Clip{}, err
		}
		clip.Records = append(clip.Records, records...)
	}
	return clip, nil
}

// pastable reports whether every item can be put on the clipboard.
func pastable(v core.View, items []domain.ID) bool {
	for _, id := range items {
		e, err := v.Lookup(id)
		if err != nil || v.IsDeleted(id) {
			return false
		}
		if _, ok := e.(domain.TreeEntity); !ok {
			return false
		}
	}
	return true
}
