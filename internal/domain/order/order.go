package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/warishayday/internal/domain/shop"
)

// ErrNotFound is returned when an order id is unknown.
var ErrNotFound = errors.New("order not found")

// MaxIssueAttempts bounds how many ids a store derives for one order before
// giving up on collisions.
const MaxIssueAttempts = 5

// MixedLineName names the single synthetic line of a mixed order.
const MixedLineName = "mixed (auto)"

// legacyMixedLineName is how the previous system labelled mixed lines.
const legacyMixedLineName = "สินค้าคละแบบ (Auto)"

// Status is the lifecycle state of an order.
type Status string

// Order statuses.
const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an order may move from s to next. Only new
// orders change status.
func (s Status) CanTransition(next Status) bool {
	return s == StatusNew && (next == StatusConfirmed || next == StatusCancelled)
}

// Deletable reports whether an order in status s may be deleted.
func (s Status) Deletable() bool {
	return s == StatusCancelled || s == StatusConfirmed
}

// Line is one ordered item.
type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// String renders the line for display as "<name> x<qty>".
func (l Line) String() string {
	return fmt.Sprintf("%s x%d", l.Name, l.Quantity)
}

// ParseLegacyLine parses a line stored as "<name> x<qty>" by the previous
// system. The legacy mixed label maps to MixedLineName.
func ParseLegacyLine(s string) (Line, error) {
	i := strings.LastIndex(s, " x")
	if i < 0 {
		return Line{}, errors.Errorf("line %q: missing quantity", s)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(s[i+2:]))
	if err != nil || qty < 0 {
		return Line{}, errors.Errorf("line %q: invalid quantity", s)
	}
	name := strings.TrimSpace(s[:i])
	if name == legacyMixedLineName {
		name = MixedLineName
	}
	if name == "" {
		return Line{}, errors.Errorf("line %q: missing name", s)
	}
	return Line{Name: name, Quantity: qty}, nil
}

// Order is a submitted customer order.
type Order struct {
	ID string
	// Category is the category label at the time of the order.
	Category   string
	CategoryID string
	Type       shop.PurchaseType
	Lines      []Line
	Price      int64
	Status     Status
	CreatedAt  time.Time
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status     Status
	IDContains string
}

// Match reports whether o passes the filter. IDContains is case-insensitive.
func (f Filter) Match(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.IDContains != "" && !strings.Contains(strings.ToLower(o.ID), strings.ToLower(f.IDContains)) {
		return false
	}
	return true
}

// IssueFunc derives the next order id from the persisted order settings and
// returns the settings to write back.
type IssueFunc func(settings shop.OrderSettings) (id string, next shop.OrderSettings)

// Repository persists orders.
type Repository interface {
	// List returns the orders matching f, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	// Create issues an id with issue and inserts o in one atomic step,
	// setting o.ID. On an id collision the store re-derives the next id up
	// to MaxIssueAttempts times before returning an apperr.ConflictError;
	// the counter still advances past the ids it found taken.
	Create(ctx context.Context, o *Order, issue IssueFunc) error
	// UpdateStatus moves an order from one status to another. It returns an
	// apperr.ConflictError when the order is no longer in status from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
	DeleteByStatus(ctx context.Context, status Status) (int, error)
}
