package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Consumption records how much of one lot a disposal consumed.
type Consumption struct {
	LotID      string          `json:"lot_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	AcquiredAt int64           `json:"acquired_at"`
}

// IncomeRecord is one acquisition lot of the primary asset.
type IncomeRecord struct {
	LotID       string          `json:"lot_id"`
	SourceKey   string          `json:"source_key"`
	Timestamp   int64           `json:"timestamp"`
	BlockNumber uint64          `json:"block_number"`
	Asset       string          `json:"asset"`
	SourceType  SourceType      `json:"source_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitBasis   decimal.Decimal `json:"unit_basis"`
	TotalBasis  decimal.Decimal `json:"total_basis"`
	Notes       string          `json:"notes,omitempty"`
}

// SaleRecord is an ALPHA -> TAO disposal.
type SaleRecord struct {
	SaleID           string          `json:"sale_id"`
	SourceKey        string          `json:"source_key"`
	Timestamp        int64           `json:"timestamp"`
	BlockNumber      uint64          `json:"block_number"`
	AlphaDisposed    decimal.Decimal `json:"alpha_disposed"`
	TaoExpected      decimal.Decimal `json:"tao_expected"`
	TaoReceived      decimal.Decimal `json:"tao_received"`
	TaoPrice         decimal.Decimal `json:"tao_price_usd"`
	USDProceeds      decimal.Decimal `json:"usd_proceeds"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	RealizedGainLoss decimal.Decimal `json:"realized_gain_loss"`
	GainType         GainType        `json:"gain_type"`
	TaoSlippage      decimal.Decimal `json:"tao_slippage"`
	SlippageUSD      decimal.Decimal `json:"slippage_usd"`
	SlippageRatio    decimal.Decimal `json:"slippage_ratio"`
	NetworkFee       decimal.Decimal `json:"network_fee"`
	NetworkFeeUSD    decimal.Decimal `json:"network_fee_usd"`
	ConsumedLots     []Consumption   `json:"consumed_lots"`
	TaoLotID         string          `json:"tao_lot_id"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// ExpenseRecord is an ALPHA disposal spent to an outside address; no
// settlement-asset lot is created for it.
type ExpenseRecord struct {
	ExpenseID        string          `json:"expense_id"`
	SourceKey        string          `json:"source_key"`
	Timestamp        int64           `json:"timestamp"`
	BlockNumber      uint64          `json:"block_number"`
	TransferAddress  string          `json:"transfer_address"`
	AlphaDisposed    decimal.Decimal `json:"alpha_disposed"`
	USDProceeds      decimal.Decimal `json:"usd_proceeds"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	RealizedGainLoss decimal.Decimal `json:"realized_gain_loss"`
	GainType         GainType        `json:"gain_type"`
	ConsumedLots     []Consumption   `json:"consumed_lots"`
}

// TaoLotRecord is a settlement-asset lot created by a sale.
type TaoLotRecord struct {
	LotID          string          `json:"lot_id"`
	SourceKey      string          `json:"source_key"`
	Timestamp      int64           `json:"timestamp"`
	BlockNumber    uint64          `json:"block_number"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitBasis      decimal.Decimal `json:"unit_basis"`
	TotalBasis     decimal.Decimal `json:"total_basis"`
	SourceSaleID   string          `json:"source_sale_id"`
	FromUndelegate bool            `json:"from_undelegate"`
}

// TransferRecord is a settlement-asset movement to the brokerage.
type TransferRecord struct {
	TransferID       string          `json:"transfer_id"`
	SourceKey        string          `json:"source_key"`
	Timestamp        int64           `json:"timestamp"`
	BlockNumber      uint64          `json:"block_number"`
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	TotalOutflow     decimal.Decimal `json:"total_outflow"`
	USDProceeds      decimal.Decimal `json:"usd_proceeds"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	FeeCostBasis     decimal.Decimal `json:"fee_cost_basis"`
	RealizedGainLoss decimal.Decimal `json:"realized_gain_loss"`
	GainType         GainType        `json:"gain_type"`
	ConsumedLots     []Consumption   `json:"consumed_lots"`
}

// JournalEntry is one double-entry row of the monthly journal.
type JournalEntry struct {
	Month       string          `json:"month"`
	EntryType   string          `json:"entry_type"`
	Account     string          `json:"account"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

func (r IncomeRecord) MarshalBinary() ([]byte, error)   { return json.Marshal(r) }
func (r SaleRecord) MarshalBinary() ([]byte, error)     { return json.Marshal(r) }
func (r ExpenseRecord) MarshalBinary() ([]byte, error)  { return json.Marshal(r) }
func (r TaoLotRecord) MarshalBinary() ([]byte, error)   { return json.Marshal(r) }
func (r TransferRecord) MarshalBinary() ([]byte, error) { return json.Marshal(r) }
func (r JournalEntry) MarshalBinary() ([]byte, error)   { return json.Marshal(r) }
