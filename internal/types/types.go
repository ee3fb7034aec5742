package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Asset symbols for the two ledgers.
const (
	AssetAlpha = "ALPHA"
	AssetTao   = "TAO"
)

// Action is the on-chain delegation action.
type Action string

const (
	ActionDelegate   Action = "DELEGATE"
	ActionUndelegate Action = "UNDELEGATE"
)

// Strategy selects the lot consumption order.
type Strategy string

const (
	StrategyFIFO Strategy = "FIFO"
	StrategyHIFO Strategy = "HIFO"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFIFO, StrategyHIFO:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q (want FIFO or HIFO)", s)
}

// SourceType tags where an income lot came from.
type SourceType string

const (
	SourceContract SourceType = "Contract"
	SourceStaking  SourceType = "Staking"
	SourceMining   SourceType = "Mining"
)

// Category is the classification of a raw event.
type Category string

const (
	CategoryIncome   Category = "Income"
	CategorySale     Category = "Sale"
	CategoryExpense  Category = "Expense"
	CategoryTransfer Category = "Transfer"
	CategoryIgnored  Category = "Ignored"
)

// GainType marks a disposal as short- or long-term based on holding period.
type GainType string

const (
	GainShortTerm GainType = "Short-term"
	GainLongTerm  GainType = "Long-term"
)

// LongTermHoldingSeconds is the minimum holding period for long-term gains.
const LongTermHoldingSeconds int64 = 365 * 24 * 60 * 60

// DelegationEvent is a delegation record as handed over by the indexer.
type DelegationEvent struct {
	Timestamp       int64           `json:"timestamp"`
	BlockNumber     uint64          `json:"block_number"`
	Action          Action          `json:"action"`
	Nominator       string          `json:"nominator"`
	Delegate        string          `json:"delegate"`
	Amount          decimal.Decimal `json:"amount"`
	Alpha           decimal.Decimal `json:"alpha"`
	USD             decimal.Decimal `json:"usd"`
	Slippage        decimal.Decimal `json:"slippage"`
	ExtrinsicID     string          `json:"extrinsic_id"`
	IsTransfer      *bool           `json:"is_transfer,omitempty"`
	TransferAddress string          `json:"transfer_address,omitempty"`
	Fee             decimal.Decimal `json:"fee"`
}

// Transferred reports whether the event carries a set transfer flag.
func (e DelegationEvent) Transferred() bool {
	return e.IsTransfer != nil && *e.IsTransfer
}

// Day returns the UTC calendar day of the event.
func (e DelegationEvent) Day() string {
	return time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02")
}

// TransferEvent is a plain balance transfer as handed over by the indexer.
type TransferEvent struct {
	Timestamp       int64           `json:"timestamp"`
	BlockNumber     uint64          `json:"block_number"`
	TransactionHash string          `json:"transaction_hash"`
	ExtrinsicID     string          `json:"extrinsic_id"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	From            string          `json:"from"`
	To              string          `json:"to"`
}

// BalanceSnapshot is one point of the tracked wallet's stake balance history.
type BalanceSnapshot struct {
	Timestamp   int64           `json:"timestamp"`
	BlockNumber uint64          `json:"block_number"`
	Balance     decimal.Decimal `json:"balance"`
}

// Day returns the UTC calendar day of the snapshot.
func (b BalanceSnapshot) Day() string {
	return time.Unix(b.Timestamp, 0).UTC().Format("2006-01-02")
}

// PriceSource resolves a quote-currency price for an asset at a timestamp.
// Prices are materialized up front by the caller; implementations must not
// perform network I/O during a run.
type PriceSource interface {
	PriceAt(asset string, timestamp int64) (decimal.Decimal, error)
}
