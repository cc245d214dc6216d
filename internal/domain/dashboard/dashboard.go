// Package dashboard aggregates confirmed orders into sales summaries.
package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/warishayday/internal/domain/order"
)

// TopItems is how many items the item breakdown keeps.
const TopItems = 10

// MixedBucket is the item key all mixed lines are counted under.
const MixedBucket = "mixed"

// DateLayout is the timeline date format.
const DateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Entry is one slice of a breakdown.
type Entry struct {
	Key   string
	Value int64
	// Share is Value as a percentage of the breakdown total, one decimal.
	Share decimal.Decimal
}

// Point is the sales total of one day.
type Point struct {
	Date  string
	Total int64
}

// Summary is the dashboard for a selected day.
type Summary struct {
	Day   string
	Today int64
	Month int64
	Year  int64
	// Orders counts confirmed orders in the selected year.
	Orders     int
	ByCategory []Entry
	ByType     []Entry
	// Items carries quantities, not money.
	Items    []Entry
	Timeline []Point
}

// Build summarizes the confirmed orders among orders relative to day.
// Breakdowns and the timeline cover the year of day. Dates are taken in loc.
func Build(orders []order.Order, day time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	day = day.In(loc)
	dy, dm, dd := day.Date()

	s := Summary{Day: day.Format(DateLayout)}
	categories := make(map[string]int64)
	types := make(map[string]int64)
	items := make(map[string]int64)
	timeline := make(map[string]int64)

	for i := range orders {
		o := &orders[i]
		if o.Status != order.StatusConfirmed {
			continue
		}
		at := o.CreatedAt.In(loc)
		y, m, d := at.Date()
		if y != dy {
			continue
		}

		s.Orders++
		s.Year += o.Price
		if m == dm {
			s.Month += o.Price
			if d == dd {
				s.Today += o.Price
			}
		}

		category := o.Category
		if category == "" {
			category = o.CategoryID
		}
		categories[category] += o.Price
		types[string(o.Type)] += o.Price
		for _, l := range o.Lines {
			name := l.Name
			if name == order.MixedLineName {
				name = MixedBucket
			}
			items[name] += int64(l.Quantity)
		}
		timeline[at.Format(DateLayout)] += o.Price
	}

	s.ByCategory = breakdown(categories, 0)
	s.ByType = breakdown(types, 0)
	s.Items = breakdown(items, TopItems)

	s.Timeline = make([]Point, 0, len(timeline))
	for date, total := range timeline {
		s.Timeline = append(s.Timeline, Point{Date: date, Total: total})
	}
	sort.Slice(s.Timeline, func(i, j int) bool { return s.Timeline[i].Date < s.Timeline[j].Date })
	return s
}

// breakdown sorts values by size and computes shares against the total of
// the kept entries. limit <= 0 keeps everything.
func breakdown(values map[string]int64, limit int) []Entry {
	out := make([]Entry, 0, len(values))
	for k, v := range values {
		out = append(out, Entry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	var total int64
	for _, e := range out {
		total += e.Value
	}
	for i := range out {
		out[i].Share = Share(out[i].Value, total)
	}
	return out
}

// Share returns v as a percentage of total rounded to one decimal place, or
// zero when total is not positive.
func Share(v, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(v).Mul(hundred).Div(decimal.NewFromInt(total)).Round(1)
}
