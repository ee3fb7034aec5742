package emission

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

func ts(day string, hour int) int64 {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour).Unix()
}

func TestReconcile_PureBalanceGrowthIsEmission(t *testing.T) {
	snapshots := []types.BalanceSnapshot{
		{Timestamp: ts("2025-03-01", 23), BlockNumber: 10, Balance: dec("100")},
		{Timestamp: ts("2025-03-02", 23), BlockNumber: 20, Balance: dec("103.5")},
	}

	out := Reconcile(snapshots, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "2025-03-02", out[0].Day)
	assert.Equal(t, ts("2025-03-02", 23), out[0].Timestamp)
	assert.Equal(t, uint64(20), out[0].BlockNumber)
	assert.True(t, out[0].Quantity.Equal(dec("3.5")))
}

func TestReconcile_ExplicitMovementsAreSubtractedOut(t *testing.T) {
	snapshots := []types.BalanceSnapshot{
		{Timestamp: ts("2025-03-01", 23), Balance: dec("100")},
		{Timestamp: ts("2025-03-02", 23), Balance: dec("150")},
	}
	delegations := []types.DelegationEvent{
		{Timestamp: ts("2025-03-02", 10), Action: types.ActionDelegate, Alpha: dec("60")},
		{Timestamp: ts("2025-03-02", 12), Action: types.ActionUndelegate, Alpha: dec("15")},
	}

	out := Reconcile(snapshots, delegations)

	// 150 - 100 - 60 + 15 = 5
	require.Len(t, out, 1)
	assert.True(t, out[0].Quantity.Equal(dec("5")))
}

// A day whose delta is fully explained by delegate/undelegate movements, or
// whose balance shrank, yields no emission rather than a negative lot.
func TestReconcile_NonPositiveDaysAreClamped(t *testing.T) {
	snapshots := []types.BalanceSnapshot{
		{Timestamp: ts("2025-03-01", 23), Balance: dec("100")},
		{Timestamp: ts("2025-03-02", 23), Balance: dec("140")},
		{Timestamp: ts("2025-03-03", 23), Balance: dec("130")},
	}
	delegations := []types.DelegationEvent{
		{Timestamp: ts("2025-03-02", 10), Action: types.ActionDelegate, Alpha: dec("40")},
	}

	out := Reconcile(snapshots, delegations)

	assert.Empty(t, out)
}

func TestReconcile_UsesLastSnapshotOfEachDay(t *testing.T) {
	snapshots := []types.BalanceSnapshot{
		{Timestamp: ts("2025-03-01", 8), Balance: dec("90")},
		{Timestamp: ts("2025-03-01", 22), Balance: dec("100")},
		{Timestamp: ts("2025-03-02", 6), Balance: dec("101")},
		{Timestamp: ts("2025-03-02", 21), BlockNumber: 42, Balance: dec("104")},
	}

	out := Reconcile(snapshots, nil)

	require.Len(t, out, 1)
	assert.True(t, out[0].Quantity.Equal(dec("4")), "delta must use each day's closing balance")
	assert.Equal(t, uint64(42), out[0].BlockNumber)
}

func TestReconcile_NeedsTwoDays(t *testing.T) {
	assert.Nil(t, Reconcile(nil, nil))
	assert.Nil(t, Reconcile([]types.BalanceSnapshot{{Timestamp: ts("2025-03-01", 23), Balance: dec("1")}}, nil))
}
