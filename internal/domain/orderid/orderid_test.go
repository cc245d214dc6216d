package orderid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/warishayday/internal/domain/shop"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestDateCode(t *testing.T) {
	assert.Equal(t, "0125", DateCode(shop.DateMMYY, day(2025, time.January, 3)))
	assert.Equal(t, "2501", DateCode(shop.DateYYMM, day(2025, time.January, 3)))
	assert.Equal(t, "1299", DateCode(shop.DateMMYY, day(1999, time.December, 31)))
	assert.Equal(t, "0003", DateCode(shop.DateYYMM, day(2000, time.March, 1)))
}

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		settings shop.OrderSettings
		now      time.Time
		wantID   string
		wantRun  int
		wantCode string
	}{
		{
			name: "same period increments",
			settings: shop.OrderSettings{
				Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4,
				LastRunNumber: 41, CurrentDateCode: "0125",
			},
			now:      day(2025, time.January, 20),
			wantID:   "WSD01250042",
			wantRun:  42,
			wantCode: "0125",
		},
		{
			name: "new month rolls the counter over",
			settings: shop.OrderSettings{
				Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4,
				LastRunNumber: 9999, CurrentDateCode: "0125",
			},
			now:      day(2025, time.February, 1),
			wantID:   "WSD02250001",
			wantRun:  1,
			wantCode: "0225",
		},
		{
			name: "run number wider than padding",
			settings: shop.OrderSettings{
				Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4,
				LastRunNumber: 9999, CurrentDateCode: "0125",
			},
			now:      day(2025, time.January, 31),
			wantID:   "WSD012510000",
			wantRun:  10000,
			wantCode: "0125",
		},
		{
			name: "first order ever",
			settings: shop.OrderSettings{
				Prefix: "A-", DateFormat: shop.DateYYMM, RunDigits: 2,
			},
			now:      day(2026, time.October, 14),
			wantID:   "A-261001",
			wantRun:  1,
			wantCode: "2610",
		},
		{
			name: "non-positive digits pad to one",
			settings: shop.OrderSettings{
				DateFormat: shop.DateMMYY, CurrentDateCode: "1026", LastRunNumber: 4,
			},
			now:      day(2026, time.October, 14),
			wantID:   "10265",
			wantRun:  5,
			wantCode: "1026",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, next := Next(tt.settings, tt.now)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantRun, next.LastRunNumber)
			assert.Equal(t, tt.wantCode, next.CurrentDateCode)
			assert.Equal(t, tt.settings.Prefix, next.Prefix)
		})
	}
}

func TestNext_Sequential(t *testing.T) {
	s := shop.OrderSettings{Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4}
	now := day(2025, time.May, 5)

	seen := make(map[string]bool)
	for range 50 {
		var id string
		id, s = Next(s, now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 50, s.LastRunNumber)
}

func TestObserve(t *testing.T) {
	base := shop.OrderSettings{
		Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4,
		LastRunNumber: 3, CurrentDateCode: "0325",
	}
	tests := []struct {
		name     string
		settings shop.OrderSettings
		id       string
		wantRun  int
		wantCode string
	}{
		{name: "same period ahead", settings: base, id: "WSD03250009", wantRun: 9, wantCode: "0325"},
		{name: "same period behind", settings: base, id: "WSD03250002", wantRun: 3, wantCode: "0325"},
		{name: "wider than padding", settings: base, id: "WSD032512345", wantRun: 12345, wantCode: "0325"},
		{name: "later period", settings: base, id: "WSD01260004", wantRun: 4, wantCode: "0126"},
		{name: "earlier period", settings: base, id: "WSD12240050", wantRun: 3, wantCode: "0325"},
		{name: "other prefix", settings: base, id: "ABC03250050", wantRun: 3, wantCode: "0325"},
		{name: "not a run number", settings: base, id: "WSD0325-050", wantRun: 3, wantCode: "0325"},
		{name: "bad month", settings: base, id: "WSD13250050", wantRun: 3, wantCode: "0325"},
		{name: "too short", settings: base, id: "WSD0325", wantRun: 3, wantCode: "0325"},
		{
			name:     "empty counter adopts the id",
			settings: shop.OrderSettings{Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4},
			id:       "WSD03250006",
			wantRun:  6,
			wantCode: "0325",
		},
		{
			name: "year first format",
			settings: shop.OrderSettings{
				Prefix: "WSD", DateFormat: shop.DateYYMM, RunDigits: 4,
				LastRunNumber: 1, CurrentDateCode: "2503",
			},
			id:       "WSD25040002",
			wantRun:  2,
			wantCode: "2504",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Observe(tt.settings, tt.id)
			assert.Equal(t, tt.wantRun, got.LastRunNumber)
			assert.Equal(t, tt.wantCode, got.CurrentDateCode)
		})
	}
}

func TestObserve_NextSkipsObserved(t *testing.T) {
	s := shop.OrderSettings{Prefix: "WSD", DateFormat: shop.DateMMYY, RunDigits: 4}
	for _, id := range []string{"WSD03250001", "WSD03250006", "WSD03250003"} {
		s = Observe(s, id)
	}
	id, _ := Next(s, day(2025, time.March, 14))
	assert.Equal(t, "WSD03250007", id)
}
