package view

import (
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// SearchOption configures a Search.
type SearchOption func(*Search)

// MatchCase makes the search case sensitive.
func MatchCase() SearchOption { return func(s *Search) { s.matchCase = true } }

// RegularExpression treats the query as a regular expression. An invalid
// expression is searched for as plain text.
func RegularExpression() SearchOption { return func(s *Search) { s.regexp = true } }

// SearchDescription also searches the descriptions.
func SearchDescription() SearchOption { return func(s *Search) { s.descriptions = true } }

// IncludeParents lets an item match through the text of its ancestors.
func IncludeParents() SearchOption { return func(s *Search) { s.parents = true } }

// Tolerance lets a plain text query match words that are at most distance
// edits away from it.
func Tolerance(distance int) SearchOption {
	return func(s *Search) { s.tolerance = distance }
}

// Search passes items whose text contains the query. In tree mode the text
// of an item includes the text of its visible descendants.
type Search struct {
	query        string
	matchCase    bool
	regexp       bool
	descriptions bool
	parents      bool
	tolerance    int

	rx     *regexp.Regexp
	folder cases.Caser
	folded string
}

var _ Predicate = (*Search)(nil)

// NewSearch compiles a search for query. The empty query passes everything.
func NewSearch(query string, opts ...SearchOption) *Search {
	s := &Search{query: query, folder: cases.Fold()}
	for _, opt := range opts {
		opt(s)
	}
	if s.regexp && query != "" {
		pattern := query
		if !s.matchCase {
			pattern = "(?i)" + pattern
		}
		if rx, err := regexp.Compile(pattern); err == nil {
			s.rx = rx
		}
	}
	s.folded = s.folder.String(query)
	return s
}

// Query returns the text searched for.
func (s *Search) Query() string { return s.query }

func (s *Search) Watch() []domain.EventType {
	types := []domain.EventType{domain.EventSubject}
	if s.descriptions {
		types = append(types, domain.EventDescription)
	}
	return append(types, domain.EventParent)
}

func (s *Search) Match(v core.View, items []domain.ID, tree bool) []domain.ID {
	if s.query == "" {
		return items
	}
	members := setOf(items)
	var out []domain.ID
	for _, id := range items {
		if s.matches(s.text(v, id, members, tree)) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Search) text(v core.View, id domain.ID, members map[domain.ID]bool, tree bool) string {
	parts := []string{s.ownText(v, id)}
	if s.parents {
		for _, anc := range v.Ancestors(id) {
			parts = append(parts, s.ownText(v, anc))
		}
	}
	if tree {
		for _, child := range v.Children(id, true) {
			if members[child] {
				parts = append(parts, s.ownText(v, child))
			}
		}
	}
	return strings.Join(parts, " ")
}

func (s *Search) ownText(v core.View, id domain.ID) string {
	e, err := v.Lookup(id)
	if err != nil {
		return ""
	}
	if s.descriptions {
		return e.Base().Subject() + " " + e.Base().Description()
	}
	return e.Base().Subject()
}

func (s *Search) matches(text string) bool {
	if s.rx != nil {
		return s.rx.MatchString(text)
	}
	if s.matchCase {
		return strings.Contains(text, s.query) || s.near(strings.Fields(text), s.query)
	}
	folded := s.folder.String(text)
	return strings.Contains(folded, s.folded) || s.near(strings.Fields(folded), s.folded)
}

func (s *Search) near(words []string, query string) bool {
	if s.tolerance <= 0 || s.regexp {
		return false
	}
	for _, word := range words {
		if levenshtein.ComputeDistance(word, query) <= s.tolerance {
			return true
		}
	}
	return false
}

// NotDeleted passes items that are not tombstoned, directly or through an
// ancestor.
type NotDeleted struct{}

var _ Predicate = NotDeleted{}

func (NotDeleted) Watch() []domain.EventType {
	return []domain.EventType{domain.EventDeleted, domain.EventParent}
}

func (NotDeleted) Match(v core.View, items []domain.ID, _ bool) []domain.ID {
	var out []domain.ID
	for _, id := range items {
		if !v.IsDeleted(id) {
			out = append(out, id)
		}
	}
	return out
}

// Category passes the items in the categories marked filtered, including
// items in their subcategories and the subitems of those items. Without
// filtered categories everything passes. MatchAll requires membership of
// every filtered category instead of any.
type Category struct {
	MatchAll bool
}

var _ Predicate = Category{}

func (Category) Watch() []domain.EventType {
	return []domain.EventType{
		domain.EventFiltered,
		domain.EventCategorizables, domain.EventCategorizablesAdded, domain.EventCategorizablesRemoved,
		domain.EventItemsAdded, domain.EventItemsRemoved, domain.EventDeleted, domain.EventParent,
	}
}

func (c Category) Match(v core.View, items []domain.ID, _ bool) []domain.ID {
	var filtered []domain.ID
	for _, id := range v.Live(domain.CategoryListID) {
		if cat, err := v.Category(id); err == nil && cat.Filtered() {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return items
	}
	var pass map[domain.ID]bool
	for _, cat := range filtered {
		in := make(map[domain.ID]bool)
		for _, id := range v.Categorizables(cat, true) {
			in[id] = true
			for _, child := range v.Children(id, true) {
				in[child] = true
			}
		}
		switch {
		case pass == nil:
			pass = in
		case c.MatchAll:
			for id := range pass {
				if !in[id] {
					delete(pass, id)
				}
			}
		default:
			for id := range in {
				pass[id] = true
			}
		}
	}
	var out []domain.ID
	for _, id := range items {
		if pass[id] {
			out = append(out, id)
		}
	}
	return out
}

// Status hides tasks by status and, outside tree mode, tasks with
// subtasks. Items that are not tasks pass. Status depends on the clock, so
// owners of long lived filters call Reset when the day changes.
type Status struct {
	Hide          []domain.TaskStatus
	HideComposite bool
}

var _ Predicate = Status{}

func (Status) Watch() []domain.EventType {
	return append(slices.Clone(dateEvents), domain.EventAppearance)
}

func (s Status) Match(v core.View, items []domain.ID, tree bool) []domain.ID {
	hidden := make(map[domain.TaskStatus]bool, len(s.Hide))
	for _, status := range s.Hide {
		hidden[status] = true
	}
	var out []domain.ID
	for _, id := range items {
		t, err := v.Task(id)
		if err != nil {
			out = append(out, id)
			continue
		}
		if hidden[v.Status(id)] {
			continue
		}
		if s.HideComposite && !tree && len(t.Children()) > 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Selected passes only the given items and, with SubItems, everything below
// them. An empty selection passes everything.
type Selected struct {
	Items    []domain.ID
	SubItems bool
}

var _ Predicate = Selected{}

func (Selected) Watch() []domain.EventType {
	return []domain.EventType{domain.EventParent}
}

func (s Selected) Match(v core.View, items []domain.ID, _ bool) []domain.ID {
	if len(s.Items) == 0 {
		return items
	}
	selected := setOf(s.Items)
	var out []domain.ID
	for _, id := range items {
		if selected[id] || (s.SubItems && parentIn(v, id, selected) != "") {
			out = append(out, id)
		}
	}
	return out
}
