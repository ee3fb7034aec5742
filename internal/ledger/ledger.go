// Package ledger maintains per-asset cost-basis lot books and implements
// strategy-ordered lot consumption.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/subnetlabs/taoledger/internal/types"
)

// Status of a lot relative to its original quantity.
type Status string

const (
	StatusOpen    Status = "Open"
	StatusPartial Status = "Partial"
	StatusClosed  Status = "Closed"
)

// Lot is one acquisition with a fixed unit cost basis. The book owns the
// mutable Remaining/BasisConsumed fields; callers treat lots as read-only.
type Lot struct {
	ID            string
	Asset         string
	AcquiredAt    int64
	BlockNumber   uint64
	SourceType    types.SourceType
	SourceKey     string
	Original      decimal.Decimal
	Remaining     decimal.Decimal
	UnitBasis     decimal.Decimal
	TotalBasis    decimal.Decimal
	BasisConsumed decimal.Decimal
}

// Status derives the lot state from its remaining quantity.
func (l *Lot) Status() Status {
	switch {
	case l.Remaining.IsZero():
		return StatusClosed
	case l.Remaining.Equal(l.Original):
		return StatusOpen
	default:
		return StatusPartial
	}
}

// BasisRemaining is the cost basis still attached to the unconsumed quantity.
func (l *Lot) BasisRemaining() decimal.Decimal {
	return l.TotalBasis.Sub(l.BasisConsumed)
}

// LongTermDate is the timestamp at which a disposal of this lot becomes a
// long-term gain.
func (l *Lot) LongTermDate() int64 {
	return l.AcquiredAt + types.LongTermHoldingSeconds
}

// Book holds every lot of one asset, open and closed. Lots are never removed;
// closed lots stay for the audit trail.
type Book struct {
	asset string
	lots  []*Lot
}

func NewBook(asset string) *Book {
	return &Book{asset: asset}
}

func (b *Book) Asset() string { return b.asset }

// Credit appends an acquisition lot to the book.
func (b *Book) Credit(lot *Lot) error {
	if lot.ID == "" {
		return fmt.Errorf("credit %s: lot id is empty", b.asset)
	}
	if lot.Original.IsNegative() || lot.Remaining.IsNegative() {
		return fmt.Errorf("credit %s: lot %s has negative quantity", b.asset, lot.ID)
	}
	if lot.Remaining.GreaterThan(lot.Original) {
		return fmt.Errorf("credit %s: lot %s remaining %s exceeds original %s",
			b.asset, lot.ID, lot.Remaining, lot.Original)
	}
	lot.Asset = b.asset
	b.lots = append(b.lots, lot)
	return nil
}

// Lots returns all lots in credit order.
func (b *Book) Lots() []*Lot {
	out := make([]*Lot, len(b.lots))
	copy(out, b.lots)
	return out
}

// OpenQuantity sums the remaining quantity of lots acquired at or before asOf.
func (b *Book) OpenQuantity(asOf int64) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.lots {
		if lot.AcquiredAt <= asOf {
			total = total.Add(lot.Remaining)
		}
	}
	return total
}

// TotalOriginal sums the original quantity of every lot ever credited.
func (b *Book) TotalOriginal() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.lots {
		total = total.Add(lot.Original)
	}
	return total
}

// TotalRemaining sums the remaining quantity across all lots.
func (b *Book) TotalRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.lots {
		total = total.Add(lot.Remaining)
	}
	return total
}

// Consume deducts quantity from open lots in strategy order and returns the
// per-lot breakdown. The call is atomic: if the open quantity as of asOf does
// not cover the request, an InsufficientLotsError is returned and no lot is
// modified.
func (b *Book) Consume(quantity decimal.Decimal, strategy types.Strategy, asOf int64) ([]types.Consumption, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("consume %s: quantity must be positive, got %s", b.asset, quantity)
	}

	eligible := b.eligible(asOf)
	available := decimal.Zero
	for _, lot := range eligible {
		available = available.Add(lot.Remaining)
	}
	if available.LessThan(quantity) {
		return nil, &InsufficientLotsError{Asset: b.asset, Requested: quantity, Available: available}
	}

	orderLots(eligible, strategy)

	var consumed []types.Consumption
	left := quantity
	for _, lot := range eligible {
		if !left.IsPositive() {
			break
		}
		take := decimal.Min(left, lot.Remaining)

		// Draining a lot takes its exact remaining basis so the lot's basis
		// conserves across partial consumptions.
		var basis decimal.Decimal
		if take.Equal(lot.Remaining) {
			basis = lot.BasisRemaining()
		} else {
			basis = lot.TotalBasis.Mul(take).Div(lot.Original)
		}

		lot.Remaining = lot.Remaining.Sub(take)
		lot.BasisConsumed = lot.BasisConsumed.Add(basis)
		left = left.Sub(take)

		consumed = append(consumed, types.Consumption{
			LotID:      lot.ID,
			Quantity:   take,
			CostBasis:  basis,
			AcquiredAt: lot.AcquiredAt,
		})
	}
	return consumed, nil
}

func (b *Book) eligible(asOf int64) []*Lot {
	var out []*Lot
	for _, lot := range b.lots {
		if lot.AcquiredAt <= asOf && lot.Remaining.IsPositive() {
			out = append(out, lot)
		}
	}
	return out
}

// orderLots sorts in place: FIFO by acquisition time, HIFO by unit basis
// descending. Ties fall back to acquisition time then lot id so iteration
// order never depends on credit order.
func orderLots(lots []*Lot, strategy types.Strategy) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if strategy == types.StrategyHIFO && !a.UnitBasis.Equal(b.UnitBasis) {
			return a.UnitBasis.GreaterThan(b.UnitBasis)
		}
		if a.AcquiredAt != b.AcquiredAt {
			return a.AcquiredAt < b.AcquiredAt
		}
		return a.ID < b.ID
	})
}
