// Package shop holds the tunable shop configuration: categories, item
// catalogs, price tables, order numbering and display settings.
package shop

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// CrossTableKey is the reserved Prices key for the cross-category purchase
// type. It never names a category.
const CrossTableKey = "cross"

// ErrConfigNotFound is returned by a Store that has never been written.
var ErrConfigNotFound = errors.New("shop config not found")

// ErrCategoryNotFound is returned when a category id is unknown.
var ErrCategoryNotFound = errors.New("category not found")

// PurchaseType selects how an order is priced.
type PurchaseType string

// Purchase types offered to customers.
const (
	TypeMixed    PurchaseType = "mixed"
	TypeSelected PurchaseType = "selected"
	TypePure     PurchaseType = "pure"
	TypeCross    PurchaseType = "cross"
)

// PurchaseTypes lists every purchase type in menu order.
var PurchaseTypes = []PurchaseType{TypeMixed, TypeSelected, TypePure, TypeCross}

// Valid reports whether t is a known purchase type.
func (t PurchaseType) Valid() bool {
	switch t {
	case TypeMixed, TypeSelected, TypePure, TypeCross:
		return true
	default:
		return false
	}
}

// DateFormat orders the month and year parts of an order date code.
type DateFormat string

// Supported date code layouts.
const (
	DateMMYY DateFormat = "MMYY"
	DateYYMM DateFormat = "YYMM"
)

// legacyMMYY is the value older documents store for the MMYY layout.
const legacyMMYY = "0168"

// UnmarshalJSON accepts the canonical names and the legacy encoding, where
// "0168" means MMYY and any other value means YYMM.
func (f *DateFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "date format")
	}
	switch s {
	case "", string(DateMMYY), legacyMMYY:
		*f = DateMMYY
	default:
		*f = DateYYMM
	}
	return nil
}

// ShopConfig is the single live configuration document.
type ShopConfig struct {
	ShopName      string                  `json:"shopName" validate:"max=200"`
	Slogan        string                  `json:"slogan"`
	Announcement  string                  `json:"announcement"`
	HelpContent   HelpContent             `json:"helpContent"`
	OrderSettings OrderSettings           `json:"orderSettings"`
	Visuals       Visuals                 `json:"visuals"`
	CategoryMeta  map[string]CategoryMeta `json:"categoryMeta" validate:"required,dive"`
	CategoryOrder []string                `json:"categoryOrder,omitempty"`
	Prices        map[string]PriceTable   `json:"prices" validate:"required,dive"`
	Items         map[string][]Item       `json:"items" validate:"required,dive,dive"`
}

// OrderSettings controls order id generation.
type OrderSettings struct {
	Prefix          string     `json:"prefix" validate:"max=16"`
	DateFormat      DateFormat `json:"dateFormat" validate:"oneof=MMYY YYMM"`
	RunDigits       int        `json:"runDigits" validate:"gte=1,lte=12"`
	LastRunNumber   int        `json:"lastRunNumber" validate:"gte=0"`
	CurrentDateCode string     `json:"currentDateCode"`
}

// CategoryMeta is the menu presentation of a category.
type CategoryMeta struct {
	Label string `json:"label" validate:"required"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// PriceTable is the price row of a category. MapPrice is set only for
// categories that sell map pieces on their own tray track.
type PriceTable struct {
	Mixed    int64  `json:"mixed" validate:"gte=0"`
	Selected int64  `json:"selected" validate:"gte=0"`
	Pure     int64  `json:"pure" validate:"gte=0"`
	Tray     int64  `json:"tray" validate:"gte=0"`
	MapPrice *int64 `json:"mapPrice,omitempty" validate:"omitempty,gte=0"`
}

// LumpSum returns the flat price for t, or 0 when t has none.
func (p PriceTable) LumpSum(t PurchaseType) int64 {
	switch t {
	case TypeMixed:
		return p.Mixed
	case TypeSelected:
		return p.Selected
	case TypePure:
		return p.Pure
	default:
		return 0
	}
}

// Item is a catalog entry. Image is a URL or a data URI.
type Item struct {
	Name  string `json:"name" validate:"required"`
	Image string `json:"img,omitempty"`
}

// HelpContent holds the help videos and descriptions shown to customers.
type HelpContent struct {
	Limit HelpEntry `json:"limit"`
	Buy   HelpEntry `json:"buy"`
}

// HelpEntry is a single help topic.
type HelpEntry struct {
	Video string `json:"video"`
	Desc  string `json:"desc"`
}

// Visuals holds the storefront theme.
type Visuals struct {
	ThemeColor        string `json:"themeColor"`
	OpacityVal        int    `json:"opacityVal" validate:"gte=0,lte=100"`
	FontSizeHeading   int    `json:"fontSizeHeading" validate:"gte=0,lte=200"`
	FontSizeBody      int    `json:"fontSizeBody" validate:"gte=0,lte=200"`
	BackgroundImage   string `json:"backgroundImage"`
	BackgroundOverlay int    `json:"backgroundOverlay" validate:"gte=0,lte=100"`
	Logo              string `json:"logo"`
}

// Store persists the configuration document.
type Store interface {
	// Get returns the persisted document or ErrConfigNotFound.
	Get(ctx context.Context) (*ShopConfig, error)
	// Put replaces the whole document.
	Put(ctx context.Context, cfg *ShopConfig) error
	// Init stores cfg only when no document exists yet and returns the
	// document that is stored afterwards.
	Init(ctx context.Context, cfg *ShopConfig) (*ShopConfig, error)
	// Update applies fn to the persisted document under a lock and stores
	// the result. fn returning an error aborts the update.
	Update(ctx context.Context, fn func(cfg *ShopConfig) error) (*ShopConfig, error)
}

// ReplaceKeepingCounter overwrites c with a copy of next but keeps the order
// counter of c, so issuance never moves backwards.
func (c *ShopConfig) ReplaceKeepingCounter(next *ShopConfig) {
	counter := c.OrderSettings
	*c = *next.Clone()
	c.OrderSettings.LastRunNumber = counter.LastRunNumber
	c.OrderSettings.CurrentDateCode = counter.CurrentDateCode
}

// Clone returns a deep copy of c.
func (c *ShopConfig) Clone() *ShopConfig {
	out := *c
	out.CategoryMeta = make(map[string]CategoryMeta, len(c.CategoryMeta))
	for k, v := range c.CategoryMeta {
		out.CategoryMeta[k] = v
	}
	out.CategoryOrder = append([]string(nil), c.CategoryOrder...)
	out.Prices = make(map[string]PriceTable, len(c.Prices))
	for k, v := range c.Prices {
		if v.MapPrice != nil {
			mp := *v.MapPrice
			v.MapPrice = &mp
		}
		out.Prices[k] = v
	}
	out.Items = make(map[string][]Item, len(c.Items))
	for k, v := range c.Items {
		out.Items[k] = append([]Item(nil), v...)
	}
	return &out
}

// Decode parses a stored document. Top-level sections missing from data are
// taken from Default so documents written by older versions keep working.
func Decode(data []byte) (*ShopConfig, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, errors.Wrap(err, "decode shop config")
	}
	var cfg ShopConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode shop config")
	}

	base := Default()
	fill := func(key string, apply func()) {
		if raw, ok := present[key]; !ok || string(raw) == "null" {
			apply()
		}
	}
	fill("shopName", func() { cfg.ShopName = base.ShopName })
	fill("slogan", func() { cfg.Slogan = base.Slogan })
	fill("helpContent", func() { cfg.HelpContent = base.HelpContent })
	fill("orderSettings", func() { cfg.OrderSettings = base.OrderSettings })
	fill("visuals", func() { cfg.Visuals = base.Visuals })
	fill("categoryMeta", func() { cfg.CategoryMeta = base.CategoryMeta })
	fill("categoryOrder", func() { cfg.CategoryOrder = base.CategoryOrder })
	fill("prices", func() { cfg.Prices = base.Prices })
	fill("items", func() { cfg.Items = base.Items })
	return &cfg, nil
}
