package shop

import (
	"sort"
	"strings"

	"github.com/xenking/warishayday/internal/domain/apperr"
)

// Category bundles everything the config holds for one category id.
type Category struct {
	ID     string
	Meta   CategoryMeta
	Prices PriceTable
	Items  []Item
}

// CategoryIDs returns the category ids in menu order: CategoryOrder first,
// then any remaining ids sorted.
func (c *ShopConfig) CategoryIDs() []string {
	ids := make([]string, 0, len(c.CategoryMeta))
	seen := make(map[string]bool, len(c.CategoryMeta))
	for _, id := range c.CategoryOrder {
		if _, ok := c.CategoryMeta[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range c.CategoryMeta {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// Category returns the category with the given id.
func (c *ShopConfig) Category(id string) (Category, error) {
	meta, ok := c.CategoryMeta[id]
	if !ok || id == CrossTableKey {
		return Category{}, ErrCategoryNotFound
	}
	return Category{
		ID:     id,
		Meta:   meta,
		Prices: c.Prices[id],
		Items:  c.Items[id],
	}, nil
}

// Label returns the display label of a category, falling back to the id.
func (c *ShopConfig) Label(id string) string {
	if meta, ok := c.CategoryMeta[id]; ok && meta.Label != "" {
		return meta.Label
	}
	return id
}

// NormalizeCategoryID lowercases id and strips every character outside
// [a-z0-9].
func NormalizeCategoryID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AddCategory adds an empty category with default prices and returns its
// normalized id.
func (c *ShopConfig) AddCategory(id, label string) (string, error) {
	id = NormalizeCategoryID(id)
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return "", apperr.Invalid("label", "required")
	case id == "":
		return "", apperr.Invalid("id", "required")
	case id == CrossTableKey:
		return "", apperr.Invalidf("id", "%q is reserved", id)
	}
	if _, ok := c.CategoryMeta[id]; ok {
		return "", apperr.Invalidf("id", "category %q already exists", id)
	}
	if _, ok := c.Items[id]; ok {
		return "", apperr.Invalidf("id", "category %q already exists", id)
	}

	order := c.CategoryIDs()
	preset := categoryPresets[len(order)%len(categoryPresets)]
	if c.CategoryMeta == nil {
		c.CategoryMeta = make(map[string]CategoryMeta)
	}
	if c.Prices == nil {
		c.Prices = make(map[string]PriceTable)
	}
	if c.Items == nil {
		c.Items = make(map[string][]Item)
	}
	c.CategoryMeta[id] = CategoryMeta{Label: label, Icon: preset.icon, Color: preset.color}
	c.Prices[id] = defaultCategoryPrices
	c.Items[id] = []Item{}
	c.CategoryOrder = append(order, id)
	return id, nil
}

// RemoveCategory deletes the meta, prices and items of a category together.
// The last remaining category cannot be removed.
func (c *ShopConfig) RemoveCategory(id string) error {
	if _, err := c.Category(id); err != nil {
		return err
	}
	if len(c.CategoryMeta) <= 1 {
		return apperr.Invalid("id", "at least one category must remain")
	}
	delete(c.CategoryMeta, id)
	delete(c.Prices, id)
	delete(c.Items, id)
	order := c.CategoryOrder[:0]
	for _, v := range c.CategoryOrder {
		if v != id {
			order = append(order, v)
		}
	}
	c.CategoryOrder = order
	return nil
}

// SetItems replaces the item catalog of a category.
func (c *ShopConfig) SetItems(id string, items []Item) error {
	if _, err := c.Category(id); err != nil {
		return err
	}
	out := make([]Item, 0, len(items))
	for i, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return apperr.Invalidf("items", "item %d: name required", i)
		}
		out = append(out, it)
	}
	c.Items[id] = out
	return nil
}

// SetPrices replaces the price row of a category. A MapPrice can only be
// kept or changed on categories that already carry one.
func (c *ShopConfig) SetPrices(id string, p PriceTable) error {
	current, err := c.Category(id)
	if err != nil {
		return err
	}
	if p.Mixed < 0 || p.Selected < 0 || p.Pure < 0 || p.Tray < 0 || (p.MapPrice != nil && *p.MapPrice < 0) {
		return apperr.Invalid("prices", "must not be negative")
	}
	if current.Prices.MapPrice == nil {
		p.MapPrice = nil
	} else if p.MapPrice == nil {
		mp := *current.Prices.MapPrice
		p.MapPrice = &mp
	}
	c.Prices[id] = p
	return nil
}

// SetCrossTray sets the per-tray price of cross-category purchases.
func (c *ShopConfig) SetCrossTray(tray int64) error {
	if tray < 0 {
		return apperr.Invalid("tray", "must not be negative")
	}
	if c.Prices == nil {
		c.Prices = make(map[string]PriceTable)
	}
	c.Prices[CrossTableKey] = PriceTable{Tray: tray}
	return nil
}

// ItemsFor returns the items a customer can order for the category and
// purchase type. Cross purchases draw from every category, deduplicated by
// name with the first occurrence in menu order winning.
func (c *ShopConfig) ItemsFor(categoryID string, t PurchaseType) []Item {
	if t != TypeCross {
		return c.Items[categoryID]
	}
	var out []Item
	seen := make(map[string]bool)
	for _, id := range c.CategoryIDs() {
		for _, it := range c.Items[id] {
			if seen[it.Name] {
				continue
			}
			seen[it.Name] = true
			out = append(out, it)
		}
	}
	return out
}

// TableFor returns the price row that applies to the category and purchase
// type.
func (c *ShopConfig) TableFor(categoryID string, t PurchaseType) (PriceTable, error) {
	if t == TypeCross {
		return c.Prices[CrossTableKey], nil
	}
	cat, err := c.Category(categoryID)
	if err != nil {
		return PriceTable{}, err
	}
	return cat.Prices, nil
}
