// Package source loads materialized chain exports from disk: delegation
// events, wallet transfers, balance snapshots and a daily price table.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subnetlabs/taoledger/internal/types"
)

// LoadDelegations reads delegation events from a JSON array file, sorted by
// timestamp ascending.
func LoadDelegations(path string) ([]types.DelegationEvent, error) {
	var events []types.DelegationEvent
	if err := loadJSON(path, &events); err != nil {
		return nil, fmt.Errorf("load delegations: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events, nil
}

// LoadTransfers reads wallet transfer events, sorted by timestamp ascending.
func LoadTransfers(path string) ([]types.TransferEvent, error) {
	var transfers []types.TransferEvent
	if err := loadJSON(path, &transfers); err != nil {
		return nil, fmt.Errorf("load transfers: %w", err)
	}
	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Timestamp < transfers[j].Timestamp
	})
	return transfers, nil
}

// LoadBalances reads balance snapshots, sorted by timestamp ascending.
func LoadBalances(path string) ([]types.BalanceSnapshot, error) {
	var snapshots []types.BalanceSnapshot
	if err := loadJSON(path, &snapshots); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp < snapshots[j].Timestamp
	})
	return snapshots, nil
}

func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// StaticPrices is a PriceSource backed by a per-asset table of daily closes.
type StaticPrices struct {
	// asset -> day (YYYY-MM-DD, UTC) -> price
	table map[string]map[string]decimal.Decimal
}

// LoadPrices reads a daily price table from a JSON file shaped like
// {"TAO": {"2025-01-02": "451.30"}}.
func LoadPrices(path string) (*StaticPrices, error) {
	var table map[string]map[string]decimal.Decimal
	if err := loadJSON(path, &table); err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return &StaticPrices{table: table}, nil
}

// NewStaticPrices wraps an in-memory table, used by tests and callers that
// already hold prices.
func NewStaticPrices(table map[string]map[string]decimal.Decimal) *StaticPrices {
	return &StaticPrices{table: table}
}

// PriceAt returns the close for the UTC day the timestamp falls on.
func (p *StaticPrices) PriceAt(asset string, timestamp int64) (decimal.Decimal, error) {
	days, ok := p.table[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("no prices for asset %s", asset)
	}
	day := time.Unix(timestamp, 0).UTC().Format("2006-01-02")
	price, ok := days[day]
	if !ok {
		return decimal.Zero, fmt.Errorf("no %s price for %s", asset, day)
	}
	return price, nil
}
