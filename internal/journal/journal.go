// Package journal aggregates a month of ledger records into balanced
// double-entry journal rows for the accounting system.
package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subnetlabs/taoledger/internal/types"
)

// Accounts maps ledger concepts to accounting-system account names.
type Accounts struct {
	AlphaAsset       string `yaml:"alpha_asset"`
	TaoAsset         string `yaml:"tao_asset"`
	ContractIncome   string `yaml:"contract_income"`
	StakingIncome    string `yaml:"staking_income"`
	MiningIncome     string `yaml:"mining_income"`
	TransferProceeds string `yaml:"transfer_proceeds"`
	TransferFee      string `yaml:"transfer_fee"`
	ShortTermGain    string `yaml:"short_term_gain"`
	ShortTermLoss    string `yaml:"short_term_loss"`
	LongTermGain     string `yaml:"long_term_gain"`
	LongTermLoss     string `yaml:"long_term_loss"`
}

// Summary totals one month of activity, keyed the way the journal rows are.
type Summary struct {
	ContractIncome   decimal.Decimal `json:"contract_income"`
	StakingIncome    decimal.Decimal `json:"staking_income"`
	MiningIncome     decimal.Decimal `json:"mining_income"`
	SalesProceeds    decimal.Decimal `json:"sales_proceeds"`
	SalesCostBasis   decimal.Decimal `json:"sales_cost_basis"`
	SalesGain        decimal.Decimal `json:"sales_gain"`
	SalesSlippage    decimal.Decimal `json:"sales_slippage"`
	SalesFees        decimal.Decimal `json:"sales_fees"`
	TransferProceeds decimal.Decimal `json:"transfer_proceeds"`
	TransferGain     decimal.Decimal `json:"transfer_gain"`
	TransferFees     decimal.Decimal `json:"transfer_fees"`
}

// MonthWindow returns the [start, end) unix bounds of a YYYY-MM month in UTC.
func MonthWindow(yearMonth string) (int64, int64, error) {
	start, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return 0, 0, fmt.Errorf("bad month %q: %w", yearMonth, err)
	}
	end := start.AddDate(0, 1, 0)
	return start.Unix(), end.Unix(), nil
}

const cents int32 = 2

// AggregateMonth builds the month's journal rows from the income, sale and
// transfer record sets. Rows balance: total debits equal total credits, with
// a rounding adjustment row absorbing cent drift when needed.
func AggregateMonth(
	yearMonth string,
	income []types.IncomeRecord,
	sales []types.SaleRecord,
	transfers []types.TransferRecord,
	accounts Accounts,
) ([]types.JournalEntry, Summary, error) {
	startTS, endTS, err := MonthWindow(yearMonth)
	if err != nil {
		return nil, Summary{}, err
	}
	inWindow := func(ts int64) bool { return ts >= startTS && ts < endTS }

	var entries []types.JournalEntry
	var sum Summary

	// Income: asset account debited at fair market value, income account per
	// source type credited.
	incomeByAccount := map[string]decimal.Decimal{}
	incomeTotal := decimal.Zero
	for _, rec := range income {
		if !inWindow(rec.Timestamp) {
			continue
		}
		account := accounts.StakingIncome
		switch rec.SourceType {
		case types.SourceContract:
			account = accounts.ContractIncome
			sum.ContractIncome = sum.ContractIncome.Add(rec.TotalBasis)
		case types.SourceMining:
			account = accounts.MiningIncome
			sum.MiningIncome = sum.MiningIncome.Add(rec.TotalBasis)
		default:
			sum.StakingIncome = sum.StakingIncome.Add(rec.TotalBasis)
		}
		incomeByAccount[account] = incomeByAccount[account].Add(rec.TotalBasis)
		incomeTotal = incomeTotal.Add(rec.TotalBasis)
	}
	if incomeTotal.IsPositive() {
		entries = append(entries, debit(yearMonth, "Income", accounts.AlphaAsset, incomeTotal,
			"ALPHA received at fair market value"))
		for _, account := range []string{accounts.ContractIncome, accounts.StakingIncome, accounts.MiningIncome} {
			if amt, ok := incomeByAccount[account]; ok && amt.IsPositive() {
				entries = append(entries, credit(yearMonth, "Income", account, amt, "staking/contract income"))
			}
		}
	}

	// Sales: settlement asset debited at proceeds, primary asset credited at
	// consumed basis. Gains are netted below together with transfers.
	gains := map[types.GainType]decimal.Decimal{}
	for _, rec := range sales {
		if !inWindow(rec.Timestamp) {
			continue
		}
		sum.SalesProceeds = sum.SalesProceeds.Add(rec.USDProceeds)
		sum.SalesCostBasis = sum.SalesCostBasis.Add(rec.CostBasis)
		sum.SalesGain = sum.SalesGain.Add(rec.RealizedGainLoss)
		// Proceeds are valued on the TAO actually received, so the realized
		// gain already absorbs slippage and fees. The summary breaks them out
		// for reporting only; no extra rows are booked.
		sum.SalesSlippage = sum.SalesSlippage.Add(rec.SlippageUSD)
		sum.SalesFees = sum.SalesFees.Add(rec.NetworkFeeUSD)
		gains[rec.GainType] = gains[rec.GainType].Add(rec.RealizedGainLoss)
	}
	if sum.SalesProceeds.IsPositive() {
		entries = append(entries, debit(yearMonth, "Sale", accounts.TaoAsset, sum.SalesProceeds,
			"TAO received from ALPHA conversions"))
	}
	if sum.SalesCostBasis.IsPositive() {
		entries = append(entries, credit(yearMonth, "Sale", accounts.AlphaAsset, sum.SalesCostBasis,
			"ALPHA cost basis consumed by conversions"))
	}

	// Transfers: brokerage proceeds and fee basis debited, settlement asset
	// credited for the whole basis that left the book.
	taoBasisOut := decimal.Zero
	for _, rec := range transfers {
		if !inWindow(rec.Timestamp) {
			continue
		}
		sum.TransferProceeds = sum.TransferProceeds.Add(rec.USDProceeds)
		sum.TransferGain = sum.TransferGain.Add(rec.RealizedGainLoss)
		sum.TransferFees = sum.TransferFees.Add(rec.FeeCostBasis)
		taoBasisOut = taoBasisOut.Add(rec.CostBasis).Add(rec.FeeCostBasis)
		gains[rec.GainType] = gains[rec.GainType].Add(rec.RealizedGainLoss)
	}
	if sum.TransferProceeds.IsPositive() {
		entries = append(entries, debit(yearMonth, "Transfer", accounts.TransferProceeds, sum.TransferProceeds,
			"TAO transferred to brokerage"))
	}
	if sum.TransferFees.IsPositive() {
		entries = append(entries, debit(yearMonth, "Transfer", accounts.TransferFee, sum.TransferFees,
			"network fee cost basis"))
	}
	if taoBasisOut.IsPositive() {
		entries = append(entries, credit(yearMonth, "Transfer", accounts.TaoAsset, taoBasisOut,
			"TAO cost basis consumed by transfers"))
	}

	// Net realized gain/loss per gain type across sales and transfers.
	for _, gt := range []types.GainType{types.GainShortTerm, types.GainLongTerm} {
		net, ok := gains[gt]
		if !ok || net.IsZero() {
			continue
		}
		gainAcct, lossAcct := accounts.ShortTermGain, accounts.ShortTermLoss
		if gt == types.GainLongTerm {
			gainAcct, lossAcct = accounts.LongTermGain, accounts.LongTermLoss
		}
		if net.IsPositive() {
			entries = append(entries, credit(yearMonth, "Gains", gainAcct, net,
				fmt.Sprintf("net %s capital gain", gt)))
		} else {
			entries = append(entries, debit(yearMonth, "Gains", lossAcct, net.Neg(),
				fmt.Sprintf("net %s capital loss", gt)))
		}
	}

	entries = balance(yearMonth, entries, accounts)
	return entries, sum, nil
}

// balance rounds every row to cents and, if rounding skewed the totals,
// appends an adjustment row so debits equal credits again.
func balance(yearMonth string, entries []types.JournalEntry, accounts Accounts) []types.JournalEntry {
	debits, credits := decimal.Zero, decimal.Zero
	for i := range entries {
		entries[i].Debit = entries[i].Debit.Round(cents)
		entries[i].Credit = entries[i].Credit.Round(cents)
		debits = debits.Add(entries[i].Debit)
		credits = credits.Add(entries[i].Credit)
	}
	diff := debits.Sub(credits)
	if diff.IsZero() {
		return entries
	}
	adj := types.JournalEntry{
		Month:       yearMonth,
		EntryType:   "Gains",
		Account:     accounts.ShortTermGain,
		Description: "rounding adjustment",
	}
	if diff.IsPositive() {
		adj.Credit = diff
	} else {
		adj.Debit = diff.Neg()
	}
	return append(entries, adj)
}

func debit(month, entryType, account string, amount decimal.Decimal, desc string) types.JournalEntry {
	return types.JournalEntry{Month: month, EntryType: entryType, Account: account, Debit: amount, Description: desc}
}

func credit(month, entryType, account string, amount decimal.Decimal, desc string) types.JournalEntry {
	return types.JournalEntry{Month: month, EntryType: entryType, Account: account, Credit: amount, Description: desc}
}
