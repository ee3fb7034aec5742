// Package disposal consumes cost-basis lots on sale, expense and transfer
// events and derives realized gains and settlement-asset lots.
package disposal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/subnetlabs/taoledger/internal/ledger"
	"github.com/subnetlabs/taoledger/internal/types"
)

// Processor runs disposals against the two lot books. It is the only creator
// of settlement-asset lots.
type Processor struct {
	alpha    *ledger.Book
	tao      *ledger.Book
	strategy types.Strategy
	prices   types.PriceSource

	// Fee-transfer events keyed by extrinsic id, built once per run.
	linked map[string]types.TransferEvent

	saleSeq     int
	expenseSeq  int
	taoLotSeq   int
	transferSeq int
}

func NewProcessor(alpha, tao *ledger.Book, strategy types.Strategy, prices types.PriceSource, linked []types.TransferEvent) *Processor {
	index := make(map[string]types.TransferEvent, len(linked))
	for _, t := range linked {
		index[t.ExtrinsicID] = t
	}
	return &Processor{
		alpha:    alpha,
		tao:      tao,
		strategy: strategy,
		prices:   prices,
		linked:   index,
	}
}

// ProcessSale consumes primary-asset lots for an UNDELEGATE conversion,
// creates the derived settlement-asset lot, and computes the realized gain.
func (p *Processor) ProcessSale(ev types.DelegationEvent) (types.SaleRecord, types.TaoLotRecord, error) {
	linked, ok := p.linked[ev.ExtrinsicID]
	if !ok {
		return types.SaleRecord{}, types.TaoLotRecord{}, &MissingLinkedTransferError{ExtrinsicID: ev.ExtrinsicID}
	}
	// Resolve the settlement price before touching the book so a lookup
	// failure leaves every lot intact.
	price, err := p.prices.PriceAt(types.AssetTao, ev.Timestamp)
	if err != nil {
		return types.SaleRecord{}, types.TaoLotRecord{}, fmt.Errorf("sale %s: %w", ev.ExtrinsicID, err)
	}

	consumed, err := p.alpha.Consume(ev.Alpha, p.strategy, ev.Timestamp)
	if err != nil {
		return types.SaleRecord{}, types.TaoLotRecord{}, fmt.Errorf("sale %s: %w", ev.ExtrinsicID, err)
	}

	taoReceived := ev.Amount.Sub(linked.Amount).Sub(linked.Fee)
	taoExpected := ev.Amount.Add(ev.Slippage)
	costBasis := sumBasis(consumed)
	proceeds := taoReceived.Mul(price)

	slippageRatio := decimal.Zero
	if taoExpected.IsPositive() {
		slippageRatio = ev.Slippage.Div(taoExpected)
	}

	p.saleSeq++
	p.taoLotSeq++
	saleID := fmt.Sprintf("SALE-%04d", p.saleSeq)
	taoLotID := fmt.Sprintf("TAO-%04d", p.taoLotSeq)

	var warnings []string
	lotQty := taoReceived
	lotBasis := proceeds
	if taoReceived.IsNegative() {
		// High fees can push computed proceeds below zero; keep the record
		// but flag it and credit an empty lot so conservation holds.
		warnings = append(warnings, fmt.Sprintf(
			"negative proceeds: amount %s - transfer %s - fee %s = %s",
			ev.Amount, linked.Amount, linked.Fee, taoReceived))
		lotQty = decimal.Zero
		lotBasis = decimal.Zero
	}

	unitBasis := decimal.Zero
	if lotQty.IsPositive() {
		unitBasis = lotBasis.Div(lotQty)
	}

	taoLot := types.TaoLotRecord{
		LotID:          taoLotID,
		SourceKey:      ev.ExtrinsicID,
		Timestamp:      ev.Timestamp,
		BlockNumber:    ev.BlockNumber,
		Quantity:       lotQty,
		UnitBasis:      unitBasis,
		TotalBasis:     lotBasis,
		SourceSaleID:   saleID,
		FromUndelegate: true,
	}
	if err := p.tao.Credit(&ledger.Lot{
		ID:          taoLotID,
		AcquiredAt:  ev.Timestamp,
		BlockNumber: ev.BlockNumber,
		SourceKey:   ev.ExtrinsicID,
		Original:    lotQty,
		Remaining:   lotQty,
		UnitBasis:   unitBasis,
		TotalBasis:  lotBasis,
	}); err != nil {
		return types.SaleRecord{}, types.TaoLotRecord{}, fmt.Errorf("sale %s: %w", ev.ExtrinsicID, err)
	}

	sale := types.SaleRecord{
		SaleID:           saleID,
		SourceKey:        ev.ExtrinsicID,
		Timestamp:        ev.Timestamp,
		BlockNumber:      ev.BlockNumber,
		AlphaDisposed:    ev.Alpha,
		TaoExpected:      taoExpected,
		TaoReceived:      taoReceived,
		TaoPrice:         price,
		USDProceeds:      proceeds,
		CostBasis:        costBasis,
		RealizedGainLoss: proceeds.Sub(costBasis),
		GainType:         gainType(ev.Timestamp, consumed),
		TaoSlippage:      ev.Slippage,
		SlippageUSD:      ev.Slippage.Mul(price),
		SlippageRatio:    slippageRatio,
		NetworkFee:       linked.Fee,
		NetworkFeeUSD:    linked.Fee.Mul(price),
		ConsumedLots:     consumed,
		TaoLotID:         taoLotID,
		Warnings:         warnings,
	}
	return sale, taoLot, nil
}

// ProcessExpense consumes primary-asset lots for an UNDELEGATE spent to an
// outside address. No settlement-asset lot is created.
func (p *Processor) ProcessExpense(ev types.DelegationEvent) (types.ExpenseRecord, error) {
	consumed, err := p.alpha.Consume(ev.Alpha, p.strategy, ev.Timestamp)
	if err != nil {
		return types.ExpenseRecord{}, fmt.Errorf("expense %s: %w", ev.ExtrinsicID, err)
	}

	costBasis := sumBasis(consumed)
	p.expenseSeq++
	return types.ExpenseRecord{
		ExpenseID:        fmt.Sprintf("EXP-%04d", p.expenseSeq),
		SourceKey:        ev.ExtrinsicID,
		Timestamp:        ev.Timestamp,
		BlockNumber:      ev.BlockNumber,
		TransferAddress:  ev.TransferAddress,
		AlphaDisposed:    ev.Alpha,
		USDProceeds:      ev.USD,
		CostBasis:        costBasis,
		RealizedGainLoss: ev.USD.Sub(costBasis),
		GainType:         gainType(ev.Timestamp, consumed),
		ConsumedLots:     consumed,
	}, nil
}

// ProcessTransfer consumes settlement-asset lots for a brokerage transfer.
// The whole outflow (amount plus fee) leaves the book; the basis is split
// pro-rata so the fee's share is reported separately from the disposal's.
func (p *Processor) ProcessTransfer(t types.TransferEvent) (types.TransferRecord, error) {
	total := t.Amount.Add(t.Fee)
	// Resolve the settlement price before touching the book so a lookup
	// failure leaves every lot intact.
	price, err := p.prices.PriceAt(types.AssetTao, t.Timestamp)
	if err != nil {
		return types.TransferRecord{}, fmt.Errorf("transfer %s: %w", t.TransactionHash, err)
	}

	consumed, err := p.tao.Consume(total, p.strategy, t.Timestamp)
	if err != nil {
		return types.TransferRecord{}, fmt.Errorf("transfer %s: %w", t.TransactionHash, err)
	}

	totalBasis := sumBasis(consumed)
	amountBasis := totalBasis
	if total.IsPositive() {
		amountBasis = totalBasis.Mul(t.Amount).Div(total)
	}
	feeBasis := totalBasis.Sub(amountBasis)
	proceeds := t.Amount.Mul(price)

	p.transferSeq++
	return types.TransferRecord{
		TransferID:       fmt.Sprintf("XFER-%04d", p.transferSeq),
		SourceKey:        t.TransactionHash,
		Timestamp:        t.Timestamp,
		BlockNumber:      t.BlockNumber,
		Amount:           t.Amount,
		Fee:              t.Fee,
		TotalOutflow:     total,
		USDProceeds:      proceeds,
		CostBasis:        amountBasis,
		FeeCostBasis:     feeBasis,
		RealizedGainLoss: proceeds.Sub(amountBasis),
		GainType:         gainType(t.Timestamp, consumed),
		ConsumedLots:     consumed,
	}, nil
}

func sumBasis(consumed []types.Consumption) decimal.Decimal {
	total := decimal.Zero
	for _, c := range consumed {
		total = total.Add(c.CostBasis)
	}
	return total
}

// gainType is long-term when the oldest consumed lot was held at least a
// year at disposal time.
func gainType(disposedAt int64, consumed []types.Consumption) types.GainType {
	oldest := int64(0)
	for i, c := range consumed {
		if i == 0 || c.AcquiredAt < oldest {
			oldest = c.AcquiredAt
		}
	}
	if len(consumed) > 0 && disposedAt-oldest >= types.LongTermHoldingSeconds {
		return types.GainLongTerm
	}
	return types.GainShortTerm
}
