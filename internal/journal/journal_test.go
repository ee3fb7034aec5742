package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subnetlabs/taoledger/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ts(day string) int64 {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t.Unix()
}

var accounts = Accounts{
	AlphaAsset:       "ALPHA Holdings",
	TaoAsset:         "TAO Holdings",
	ContractIncome:   "Contract Income",
	StakingIncome:    "Staking Income",
	MiningIncome:     "Mining Income",
	TransferProceeds: "Brokerage Transfers",
	TransferFee:      "Network Fees",
	ShortTermGain:    "ST Gains",
	ShortTermLoss:    "ST Losses",
	LongTermGain:     "LT Gains",
	LongTermLoss:     "LT Losses",
}

func totalsByAccount(entries []types.JournalEntry) map[string][2]decimal.Decimal {
	out := map[string][2]decimal.Decimal{}
	for _, e := range entries {
		cur := out[e.Account]
		out[e.Account] = [2]decimal.Decimal{cur[0].Add(e.Debit), cur[1].Add(e.Credit)}
	}
	return out
}

func assertBalanced(t *testing.T, entries []types.JournalEntry) {
	t.Helper()
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)
}

func TestAggregateMonth_FullMonth(t *testing.T) {
	income := []types.IncomeRecord{
		{Timestamp: ts("2025-04-03"), SourceType: types.SourceContract, TotalBasis: dec("100")},
		{Timestamp: ts("2025-04-10"), SourceType: types.SourceStaking, TotalBasis: dec("50")},
		// Outside the month, must be excluded.
		{Timestamp: ts("2025-05-01"), SourceType: types.SourceContract, TotalBasis: dec("999")},
	}
	sales := []types.SaleRecord{
		{Timestamp: ts("2025-04-05"), USDProceeds: dec("180"), CostBasis: dec("150"),
			RealizedGainLoss: dec("50"), GainType: types.GainShortTerm,
			SlippageUSD: dec("5"), NetworkFeeUSD: dec("4")},
		{Timestamp: ts("2025-04-20"), USDProceeds: dec("120"), CostBasis: dec("130"),
			RealizedGainLoss: dec("-30"), GainType: types.GainShortTerm,
			SlippageUSD: dec("5"), NetworkFeeUSD: dec("2.5")},
	}
	transfers := []types.TransferRecord{
		{Timestamp: ts("2025-04-07"), USDProceeds: dec("90"), CostBasis: dec("70"),
			FeeCostBasis: dec("10"), RealizedGainLoss: dec("20"), GainType: types.GainShortTerm},
		{Timestamp: ts("2025-04-08"), USDProceeds: dec("80"), CostBasis: dec("100"),
			RealizedGainLoss: dec("-20"), GainType: types.GainShortTerm},
		{Timestamp: ts("2025-04-12"), USDProceeds: dec("200"), CostBasis: dec("180"),
			RealizedGainLoss: dec("20"), GainType: types.GainLongTerm},
		{Timestamp: ts("2025-04-15"), USDProceeds: dec("60"), CostBasis: dec("90"),
			RealizedGainLoss: dec("-30"), GainType: types.GainLongTerm},
	}

	entries, summary, err := AggregateMonth("2025-04", income, sales, transfers, accounts)
	require.NoError(t, err)
	assertBalanced(t, entries)

	totals := totalsByAccount(entries)

	assert.True(t, totals["ALPHA Holdings"][0].Equal(dec("150")), "income debits the asset at FMV")
	assert.True(t, totals["ALPHA Holdings"][1].Equal(dec("280")), "sales credit consumed basis")
	assert.True(t, totals["Contract Income"][1].Equal(dec("100")))
	assert.True(t, totals["Staking Income"][1].Equal(dec("50")))
	assert.True(t, totals["TAO Holdings"][0].Equal(dec("300")), "sale proceeds debit the TAO account")
	assert.True(t, totals["TAO Holdings"][1].Equal(dec("450")), "transfer basis plus fee basis leaves it")
	assert.True(t, totals["Brokerage Transfers"][0].Equal(dec("430")))
	assert.True(t, totals["Network Fees"][0].Equal(dec("10")))
	assert.True(t, totals["ST Gains"][1].Equal(dec("20")), "short-term gains net to 50-30+20-20")
	assert.True(t, totals["LT Losses"][0].Equal(dec("10")), "long-term net to 20-30")
	_, hasSTLoss := totals["ST Losses"]
	assert.False(t, hasSTLoss)

	assert.True(t, summary.ContractIncome.Equal(dec("100")))
	assert.True(t, summary.StakingIncome.Equal(dec("50")))
	assert.True(t, summary.SalesProceeds.Equal(dec("300")))
	assert.True(t, summary.SalesGain.Equal(dec("20")))
	assert.True(t, summary.SalesSlippage.Equal(dec("10")))
	assert.True(t, summary.SalesFees.Equal(dec("6.5")))
	assert.True(t, summary.TransferProceeds.Equal(dec("430")))
	assert.True(t, summary.TransferGain.Equal(dec("-10")))
	assert.True(t, summary.TransferFees.Equal(dec("10")))
}

func TestAggregateMonth_SlippageStaysOutOfTheRows(t *testing.T) {
	// Slippage is already baked into the proceeds and the realized gain, so
	// it only surfaces in the summary. The rows must be identical with or
	// without it, and still balance.
	sale := types.SaleRecord{
		Timestamp: ts("2025-04-05"), USDProceeds: dec("100"), CostBasis: dec("80"),
		RealizedGainLoss: dec("20"), GainType: types.GainShortTerm,
	}
	slipped := sale
	slipped.SlippageUSD = dec("5")

	plain, plainSum, err := AggregateMonth("2025-04", nil, []types.SaleRecord{sale}, nil, accounts)
	require.NoError(t, err)
	entries, summary, err := AggregateMonth("2025-04", nil, []types.SaleRecord{slipped}, nil, accounts)
	require.NoError(t, err)

	assert.Equal(t, plain, entries)
	assertBalanced(t, entries)
	assert.True(t, plainSum.SalesSlippage.IsZero())
	assert.True(t, summary.SalesSlippage.Equal(dec("5")))
	assert.True(t, summary.SalesGain.Equal(dec("20")))
}

func TestAggregateMonth_EmptyMonthProducesNothing(t *testing.T) {
	entries, summary, err := AggregateMonth("2025-06", nil, nil, nil, accounts)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, summary.SalesProceeds.IsZero())
}

func TestAggregateMonth_RoundingAdjustmentKeepsBalance(t *testing.T) {
	// A third each: per-row cents rounding skews debits vs credits.
	income := []types.IncomeRecord{
		{Timestamp: ts("2025-04-03"), SourceType: types.SourceContract, TotalBasis: dec("100").Div(dec("3"))},
	}
	sales := []types.SaleRecord{
		{Timestamp: ts("2025-04-05"), USDProceeds: dec("100").Div(dec("3")),
			CostBasis: dec("100").Div(dec("7")), RealizedGainLoss: dec("100").Div(dec("3")).Sub(dec("100").Div(dec("7"))),
			GainType: types.GainShortTerm},
	}

	entries, _, err := AggregateMonth("2025-04", income, sales, nil, accounts)
	require.NoError(t, err)
	assertBalanced(t, entries)

	for _, e := range entries {
		assert.True(t, e.Debit.Equal(e.Debit.Round(2)), "entry %s not rounded to cents", e.Account)
		assert.True(t, e.Credit.Equal(e.Credit.Round(2)), "entry %s not rounded to cents", e.Account)
	}
}

func TestAggregateMonth_RejectsBadMonth(t *testing.T) {
	_, _, err := AggregateMonth("April 2025", nil, nil, nil, accounts)
	assert.Error(t, err)
}

func TestMonthWindow(t *testing.T) {
	start, end, err := MonthWindow("2025-02")
	require.NoError(t, err)
	assert.Equal(t, ts("2025-02-01"), start)
	assert.Equal(t, ts("2025-03-01"), end)
}
