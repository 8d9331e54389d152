package core

import (
	"fmt"

	"taskcoach/pkg/domain"
)

// Categorize puts item into category. When the category's parent has
// exclusive subcategories the item leaves the sibling categories; their IDs
// are returned.
func (tx *Transaction) Categorize(category, item domain.ID) ([]domain.ID, error) {
	c, err := lookupAs[*domain.Category](tx.arena, category, domain.KindCategory)
	if err != nil {
		return nil, err
	}
	obj, err := tx.arena.lookup(item)
	if err != nil {
		return nil, err
	}
	ci, ok := obj.(domain.Categorizable)
	if !ok {
		return nil, fmt.Errorf("%s %s cannot be categorized: %w", obj.Kind(), item, ErrUnsupported)
	}
	var left []domain.ID
	if parent, err := lookupAs[*domain.Category](tx.arena, c.Parent(), domain.KindCategory); err == nil && parent.ExclusiveSubcategories() {
		for _, sibling := range parent.Children() {
			if sibling == category {
				continue
			}
			sc, err := lookupAs[*domain.Category](tx.arena, sibling, domain.KindCategory)
			if err != nil || !sc.HasCategorizable(item) {
				continue
			}
			sc.RemoveCategorizables(tx.ev, item)
			ci.RemoveCategories(tx.ev, sibling)
			left = append(left, sibling)
		}
	}
	c.AddCategorizables(tx.ev, item)
	ci.AddCategories(tx.ev, category)
	return left, nil
}

// Uncategorize takes item out of category.
func (tx *Transaction) Uncategorize(category, item domain.ID) error {
	c, err := lookupAs[*domain.Category](tx.arena, category, domain.KindCategory)
	if err != nil {
		return err
	}
	c.RemoveCategorizables(tx.ev, item)
	if ci, ok := tx.arena.objects[item].(domain.Categorizable); ok {
		ci.RemoveCategories(tx.ev, category)
	}
	return nil
}

// EnforceExclusive makes the subcategories of category mutually exclusive
// for their items: an item in several children keeps only the first one.
// It returns the (category, item) pairs that were dropped.
func (tx *Transaction) EnforceExclusive(category domain.ID) ([][2]domain.ID, error) {
	c, err := lookupAs[*domain.Category](tx.arena, category, domain.KindCategory)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.ID]bool)
	var dropped [][2]domain.ID
	for _, child := range c.Children() {
		cc, err := lookupAs[*domain.Category](tx.arena, child, domain.KindCategory)
		if err != nil {
			continue
		}
		for _, item := range cc.Categorizables() {
			if !seen[item] {
				seen[item] = true
				continue
			}
			if err := tx.Uncategorize(child, item); err != nil {
				return nil, err
			}
			dropped = append(dropped, [2]domain.ID{child, item})
		}
	}
	return dropped, nil
}
