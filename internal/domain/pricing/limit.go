package pricing

import "github.com/xenking/warishayday/internal/domain/apperr"

// MaxLimit is the largest limit value a customer can declare.
const MaxLimit = 89

// Limit is the purchasable capacity derived from a declared value.
type Limit struct {
	Declared  int
	Remaining int
	// FullLimit is set when the customer declared 0 and buys the whole
	// capacity at the flat mixed price.
	FullLimit bool
}

// DeriveLimit converts a declared value in [0, MaxLimit] into the remaining
// capacity that caps item entry.
func DeriveLimit(declared int) (Limit, error) {
	if declared < 0 || declared > MaxLimit {
		return Limit{}, apperr.Invalidf("limit", "must be between 0 and %d", MaxLimit)
	}
	return Limit{
		Declared:  declared,
		Remaining: MaxLimit - declared,
		FullLimit: declared == 0,
	}, nil
}

// Units returns the quantity a mixed purchase covers. A full limit covers
// MaxLimit, which is also its remaining capacity.
func (l Limit) Units() int {
	return l.Remaining
}
