package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InsufficientLotsError reports a consumption request that exceeds the open
// quantity of a book. The book is left untouched when it is returned.
type InsufficientLotsError struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient %s lots: requested %s, available %s (short %s)",
		e.Asset, e.Requested, e.Available, e.Shortfall())
}

// Shortfall is the quantity that could not be covered.
func (e *InsufficientLotsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}
