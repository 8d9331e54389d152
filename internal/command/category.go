package command

import (
	"slices"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// NewCategory returns a command creating a root category.
func NewCategory(subject string, opts ...ItemOption) Command {
	return newCategoryItems("New category", "New categories", []domain.ID{""}, subject, opts)
}

// NewSubCategory returns a command creating a subcategory below each parent.
func NewSubCategory(parents []domain.ID, subject string, opts ...ItemOption) Command {
	return newCategoryItems(`New subcategory of "%s"`, "New subcategories", parents, subject, opts)
}

func newCategoryItems(singular, plural string, parents []domain.ID, subject string, opts []ItemOption) *newItem {
	spec := specOf(opts)
	c := newNewItem(singular, plural, parents)
	c.build = func(tx *core.Transaction, id, parent domain.ID) (domain.Entity, error) {
		cat := domain.NewCategory(id, subject, tx.Now())
		if parent != "" {
			if _, err := tx.Category(parent); err != nil {
				return nil, err
			}
			cat.Tree().SetParent(nil, id, parent)
		}
		cat.SetDescription(nil, spec.description)
		return cat, nil
	}
	return c
}

func allCategories(v core.View, items []domain.ID) bool {
	for _, id := range items {
		if _, err := v.Category(id); err != nil {
			return false
		}
	}
	return true
}

// NewEditExclusiveSubcategories returns a command switching whether the
// subcategories of categories are mutually exclusive. Making them exclusive
// leaves every item in only the first subcategory it is in.
func NewEditExclusiveSubcategories(items []domain.ID, exclusive bool) Command {
	c := newState(`Edit exclusive subcategories of "%s"`, "Edit exclusive subcategories", items)
	c.scope = func(v core.View) []domain.ID {
		ids := slices.Clone(c.items)
		for _, id := range c.items {
			for _, child := range v.Children(id, false) {
				ids = append(ids, child)
				ids = append(ids, v.Categorizables(child, false)...)
			}
		}
		return existing(v, ids)
	}
	c.check = func(v core.View) bool { return allCategories(v, c.items) }
	c.apply = func(tx *core.Transaction) error {
		for _, id := range c.items {
			cat, err := tx.Category(id)
			if err != nil {
				return err
			}
			cat.SetExclusiveSubcategories(tx.Event(), exclusive)
			if !exclusive {
				continue
			}
			if _, err := tx.EnforceExclusive(id); err != nil {
				return err
			}
		}
		return nil
	}
	return c
}

// NewEditCategoryFiltered returns a command switching whether categories
// take part in category filtering.
func NewEditCategoryFiltered(items []domain.ID, filtered bool) Command {
	return newEdit(`Change filtering of "%s"`, "Change category filtering", items, filtered,
		attr(core.View.Category, (*domain.Category).Filtered, (*domain.Category).SetFiltered))
}

// NewToggleCategory returns a command that takes the items out of category
// when all of them are in it and otherwise puts them all in. Entering a
// subcategory of an exclusive category leaves the sibling subcategories.
func NewToggleCategory(items []domain.ID, category domain.ID) Command {
	c := newState(`Toggle category of "%s"`, "Toggle category", items)
	c.scope = func(v core.View) []domain.ID {
		ids := append(slices.Clone(c.items), category)
		if anc := v.Ancestors(category); len(anc) > 0 {
			ids = append(ids, v.Children(anc[0], false)...)
		}
		return existing(v, ids)
	}
	c.check = func(v core.View) bool {
		if _, err := v.Category(category); err != nil || v.IsDeleted(category) {
			return false
		}
		for _, id := range c.items {
			e, err := v.Lookup(id)
			if err != nil {
				return false
			}
			if _, ok := e.(domain.Categorizable); !ok {
				return false
			}
		}
		return true
	}
	c.apply = func(tx *core.Transaction) error {
		cat, err := tx.Category(category)
		if err != nil {
			return err
		}
		all := !slices.ContainsFunc(c.items, func(id domain.ID) bool { return !cat.HasCategorizable(id) })
		for _, id := range c.items {
			if all {
				err = tx.Uncategorize(category, id)
			} else if !cat.HasCategorizable(id) {
				_, err = tx.Categorize(category, id)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	return c
}
