// Package intake walks a customer through building an order: category, limit,
// purchase type, quantities and a final review before submission.
package intake

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/pricing"
	"github.com/xenking/warishayday/internal/domain/shop"
)

// ErrInvalidTransition is returned when an operation is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid intake transition")

// State is a step of the intake flow.
type State int

// Intake states, in flow order.
const (
	StateCategorySelection State = iota
	StateLimitEntry
	StateTypeSelection
	StateItemEntry
	StateSummary
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateCategorySelection:
		return "category-selection"
	case StateLimitEntry:
		return "limit-entry"
	case StateTypeSelection:
		return "type-selection"
	case StateItemEntry:
		return "item-entry"
	case StateSummary:
		return "summary"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Placer submits a finished order.
type Placer interface {
	PlaceOrder(ctx context.Context, req order.Request) (*order.Order, error)
}

// Summary is what the customer confirms before submitting.
type Summary struct {
	CategoryID string
	Category   string
	Limit      pricing.Limit
	Type       shop.PurchaseType
	Lines      []order.Line
	Quote      pricing.Quote
}

// Session holds one customer's progress. It is not safe for concurrent use.
type Session struct {
	cfg   *shop.ShopConfig
	state State

	categoryID string
	limit      pricing.Limit
	typ        shop.PurchaseType
	items      []shop.Item
	quantities []int
	table      shop.PriceTable
	quote      pricing.Quote
	placed     *order.Order
}

// NewSession starts a session against a configuration snapshot.
func NewSession(cfg *shop.ShopConfig) *Session {
	return &Session{cfg: cfg}
}

// State returns the current step.
func (s *Session) State() State { return s.state }

// Limit returns the derived limit once declared.
func (s *Session) Limit() pricing.Limit { return s.limit }

// Quote returns the live price of the current entry.
func (s *Session) Quote() pricing.Quote { return s.quote }

// Items returns the items open for entry with their current quantities.
func (s *Session) Items() ([]shop.Item, []int) {
	return append([]shop.Item(nil), s.items...), append([]int(nil), s.quantities...)
}

// Placed returns the submitted order, if any.
func (s *Session) Placed() *order.Order { return s.placed }

func (s *Session) expect(state State) error {
	if s.state != state {
		return errors.Wrapf(ErrInvalidTransition, "in %s, want %s", s.state, state)
	}
	return nil
}

// SelectCategory picks the category and moves to limit entry.
func (s *Session) SelectCategory(id string) error {
	if err := s.expect(StateCategorySelection); err != nil {
		return err
	}
	if _, err := s.cfg.Category(id); err != nil {
		return apperr.Invalidf("category", "unknown category %q", id)
	}
	s.categoryID = id
	s.state = StateLimitEntry
	return nil
}

// DeclareLimit records the declared limit and moves to type selection.
func (s *Session) DeclareLimit(declared int) error {
	if err := s.expect(StateLimitEntry); err != nil {
		return err
	}
	limit, err := pricing.DeriveLimit(declared)
	if err != nil {
		return err
	}
	s.limit = limit
	s.state = StateTypeSelection
	return nil
}

// SelectType picks the purchase type, moves to item entry and returns the
// items open for entry. Mixed purchases take no item entry and are priced
// immediately.
func (s *Session) SelectType(t shop.PurchaseType) ([]shop.Item, error) {
	if err := s.expect(StateTypeSelection); err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, apperr.Invalidf("type", "unknown purchase type %q", t)
	}
	table, err := s.cfg.TableFor(s.categoryID, t)
	if err != nil {
		return nil, err
	}
	s.typ = t
	s.table = table
	s.items = nil
	if t != shop.TypeMixed {
		s.items = append(s.items, s.cfg.ItemsFor(s.categoryID, t)...)
	}
	s.quantities = make([]int, len(s.items))
	s.recompute()
	s.state = StateItemEntry
	return append([]shop.Item(nil), s.items...), nil
}

// SetQuantity enters a quantity for a named item and returns the new live
// quote. Input that would break the limit, or a second non-zero item on a
// pure purchase, is reset to zero; the reset quote is returned together
// with a validation error explaining the rejection.
func (s *Session) SetQuantity(name string, qty int) (pricing.Quote, error) {
	if err := s.expect(StateItemEntry); err != nil {
		return s.quote, err
	}
	if s.typ == shop.TypeMixed {
		return s.quote, apperr.Invalid("type", "mixed purchases take no item quantities")
	}
	idx := -1
	for i, it := range s.items {
		if it.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.quote, apperr.Invalidf("items", "unknown item %q", name)
	}

	var reject error
	switch {
	case qty < 0:
		reject = apperr.Invalidf("quantity", "%s: must not be negative", name)
	case qty > 0 && s.typ == shop.TypePure && s.otherFilled(idx):
		reject = apperr.Invalid("quantity", "pure orders take a single item")
	case s.totalWithout(idx)+qty > s.limit.Remaining:
		reject = apperr.Invalidf("quantity", "total exceeds limit %d", s.limit.Remaining)
	}
	if reject != nil {
		qty = 0
	}
	s.quantities[idx] = qty
	s.recompute()
	return s.quote, reject
}

func (s *Session) otherFilled(idx int) bool {
	for i, q := range s.quantities {
		if i != idx && q > 0 {
			return true
		}
	}
	return false
}

func (s *Session) totalWithout(idx int) int {
	total := 0
	for i, q := range s.quantities {
		if i != idx {
			total += q
		}
	}
	return total
}

// recompute prices the entry from scratch.
func (s *Session) recompute() {
	s.quote = pricing.Compute(pricing.Input{
		Type:       s.typ,
		Table:      s.table,
		Lines:      s.pricingLines(),
		FullLimit:  s.limit.FullLimit,
		MixedUnits: s.limit.Units(),
	})
}

func (s *Session) pricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(s.items))
	for i, it := range s.items {
		out = append(out, pricing.Line{Name: it.Name, Quantity: s.quantities[i]})
	}
	return out
}

// Lines returns the non-zero lines of the entry. A mixed purchase yields the
// single synthetic mixed line.
func (s *Session) Lines() []order.Line {
	if s.typ == shop.TypeMixed {
		return []order.Line{{Name: order.MixedLineName, Quantity: s.limit.Units()}}
	}
	var out []order.Line
	for i, it := range s.items {
		if s.quantities[i] > 0 {
			out = append(out, order.Line{Name: it.Name, Quantity: s.quantities[i]})
		}
	}
	return out
}

// Review checks the entry is complete and moves to the summary.
func (s *Session) Review() (*Summary, error) {
	if err := s.expect(StateItemEntry); err != nil {
		return nil, err
	}
	lines := s.Lines()
	if s.typ != shop.TypeMixed && len(lines) == 0 {
		return nil, apperr.Invalid("items", "at least one item quantity is required")
	}
	if s.quote.Price <= 0 {
		return nil, apperr.Invalid("price", "total price must be greater than zero")
	}
	s.state = StateSummary
	return s.summary(lines), nil
}

func (s *Session) summary(lines []order.Line) *Summary {
	return &Summary{
		CategoryID: s.categoryID,
		Category:   s.cfg.Label(s.categoryID),
		Limit:      s.limit,
		Type:       s.typ,
		Lines:      lines,
		Quote:      s.quote,
	}
}

// Submit sends the reviewed order to p. On failure the session stays on
// the summary so the customer can retry.
func (s *Session) Submit(ctx context.Context, p Placer) (*order.Order, error) {
	if err := s.expect(StateSummary); err != nil {
		return nil, err
	}
	req := order.Request{
		CategoryID:    s.categoryID,
		DeclaredLimit: s.limit.Declared,
		Type:          s.typ,
	}
	if s.typ != shop.TypeMixed {
		req.Lines = s.Lines()
	}
	o, err := p.PlaceOrder(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	s.placed = o
	s.state = StateSubmitted
	return o, nil
}

// Back returns to the previous step, discarding what that step entered.
func (s *Session) Back() error {
	switch s.state {
	case StateLimitEntry:
		s.categoryID = ""
		s.state = StateCategorySelection
	case StateTypeSelection:
		s.limit = pricing.Limit{}
		s.state = StateLimitEntry
	case StateItemEntry:
		s.typ = ""
		s.items, s.quantities = nil, nil
		s.quote = pricing.Quote{}
		s.state = StateTypeSelection
	case StateSummary:
		s.state = StateItemEntry
	default:
		return errors.Wrapf(ErrInvalidTransition, "no step before %s", s.state)
	}
	return nil
}

// Reset discards all entry and starts over from category selection.
func (s *Session) Reset() {
	*s = Session{cfg: s.cfg}
}
