package order

import (
	"strings"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/pricing"
	"github.com/xenking/warishayday/internal/domain/shop"
)

// CheckLines enforces the entry constraints priced orders must satisfy:
// no negative quantity, a total within the remaining limit, at most one
// non-zero item for pure purchases and at least one for every non-mixed
// purchase.
func CheckLines(t shop.PurchaseType, lines []Line, limit pricing.Limit) error {
	if t == shop.TypeMixed {
		return nil
	}
	total, filled := 0, 0
	for _, l := range lines {
		if l.Quantity < 0 {
			return apperr.Invalidf("quantity", "%s: must not be negative", l.Name)
		}
		if l.Quantity > 0 {
			filled++
			total += l.Quantity
		}
	}
	if total > limit.Remaining {
		return apperr.Invalidf("quantity", "total %d exceeds limit %d", total, limit.Remaining)
	}
	if t == shop.TypePure && filled > 1 {
		return apperr.Invalid("quantity", "pure orders take a single item")
	}
	if filled == 0 {
		return apperr.Invalid("items", "at least one item quantity is required")
	}
	return nil
}

// normalizeLines merges lines with the same name, keeping first-seen order,
// and rejects names outside the allowed item set.
func normalizeLines(lines []Line, allowed []shop.Item) ([]Line, error) {
	known := make(map[string]bool, len(allowed))
	for _, it := range allowed {
		known[it.Name] = true
	}
	out := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		l.Name = strings.TrimSpace(l.Name)
		if !known[l.Name] {
			return nil, apperr.Invalidf("items", "unknown item %q", l.Name)
		}
		if i, ok := index[l.Name]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.Name] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func pricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{Name: l.Name, Quantity: l.Quantity}
	}
	return out
}

// nonZero drops lines with no quantity.
func nonZero(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out
}
