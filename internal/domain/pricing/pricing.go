// Package pricing computes order charges from a category price table.
//
// A charge is the cheaper of a flat lump sum for the purchase type and a
// per-tray price, where a tray holds TraySize items. Categories with a map
// price bill map pieces on their own tray track. Cross-category purchases
// are always billed per tray.
package pricing

import (
	"fmt"
	"strings"

	"github.com/xenking/warishayday/internal/domain/shop"
)

// TraySize is the number of items billed as one tray.
const TraySize = 10

// Mode tells which rule produced a Quote.
type Mode string

// Pricing modes.
const (
	ModeLumpSum Mode = "lump-sum"
	ModePerTray Mode = "per-tray"
)

// Line is a quantity of a named item.
type Line struct {
	Name     string
	Quantity int
}

// Input is everything Compute needs.
type Input struct {
	Type  shop.PurchaseType
	Table shop.PriceTable
	Lines []Line
	// FullLimit forces the mixed lump sum.
	FullLimit bool
	// MixedUnits is the implicit item count of a mixed purchase.
	MixedUnits int
}

// Quote is the computed charge.
type Quote struct {
	Price  int64
	Status string
	Mode   Mode
	Trays  int
	Units  int
}

// Trays returns the number of trays needed for n items.
func Trays(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + TraySize - 1) / TraySize
}

// IsMapPiece reports whether an item name belongs to the map-piece track.
func IsMapPiece(name string) bool {
	return strings.Contains(name, shop.MapPieceName)
}

// Compute prices in. It has no side effects.
func Compute(in Input) Quote {
	units := in.MixedUnits
	if in.Type != shop.TypeMixed {
		units = 0
		for _, l := range in.Lines {
			if l.Quantity > 0 {
				units += l.Quantity
			}
		}
	}

	var q Quote
	q.Units = units

	if in.Type == shop.TypeCross {
		q.Trays = Trays(units)
		q.Price = int64(q.Trays) * in.Table.Tray
		q.Mode = ModePerTray
		q.Status = perTrayStatus(q.Trays)
	} else {
		var trayPrice int64
		if in.Table.MapPrice != nil && in.Type != shop.TypeMixed {
			var mapUnits, generalUnits int
			for _, l := range in.Lines {
				if l.Quantity <= 0 {
					continue
				}
				if IsMapPiece(l.Name) {
					mapUnits += l.Quantity
				} else {
					generalUnits += l.Quantity
				}
			}
			mapTrays, generalTrays := Trays(mapUnits), Trays(generalUnits)
			q.Trays = mapTrays + generalTrays
			trayPrice = int64(mapTrays)*(*in.Table.MapPrice) + int64(generalTrays)*in.Table.Tray
		} else {
			q.Trays = Trays(units)
			trayPrice = int64(q.Trays) * in.Table.Tray
		}

		lump := in.Table.LumpSum(in.Type)
		if trayPrice >= lump && lump > 0 {
			q.Price = lump
			q.Mode = ModeLumpSum
			q.Status = fmt.Sprintf("lump-sum (%s)", in.Type)
		} else {
			q.Price = trayPrice
			q.Mode = ModePerTray
			q.Status = perTrayStatus(q.Trays)
		}
	}

	if units == 0 && in.Type != shop.TypeMixed {
		q.Price = 0
	}
	if in.FullLimit && in.Type == shop.TypeMixed {
		q.Price = in.Table.Mixed
		q.Mode = ModeLumpSum
		q.Status = "lump-sum (full limit)"
	}
	return q
}

func perTrayStatus(trays int) string {
	return fmt.Sprintf("per-tray (%d trays)", trays)
}
