// Package emission derives unreported reward income from daily balance
// deltas that explicit delegate/undelegate movements do not explain.
package emission

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/subnetlabs/taoledger/internal/types"
)

// DailyEmission is the reward quantity credited to the tracked balance on one
// day boundary, dated to the day's last balance snapshot.
type DailyEmission struct {
	Day         string
	Timestamp   int64
	BlockNumber uint64
	Quantity    decimal.Decimal
}

// Reconcile computes, for each consecutive pair of days in the snapshot
// series:
//
//	emission = balance(day) - balance(prev day) - sum(delegate.alpha) + sum(undelegate.alpha)
//
// over the day's delegation events. Callers must pass only the delegations
// that move the snapshot balance, the tracked wallet's own events with the
// tracked hotkey. Days where the explicit movements account for the whole
// delta (emission <= 0) produce nothing; that is a valid outcome, not an
// error.
func Reconcile(snapshots []types.BalanceSnapshot, delegations []types.DelegationEvent) []DailyEmission {
	if len(snapshots) < 2 {
		return nil
	}

	// Last snapshot of each day carries that day's closing balance.
	closing := make(map[string]types.BalanceSnapshot)
	for _, snap := range snapshots {
		day := snap.Day()
		if cur, ok := closing[day]; !ok || snap.Timestamp > cur.Timestamp {
			closing[day] = snap
		}
	}

	days := make([]string, 0, len(closing))
	for day := range closing {
		days = append(days, day)
	}
	sort.Strings(days)

	byDay := make(map[string][]types.DelegationEvent)
	for _, ev := range delegations {
		byDay[ev.Day()] = append(byDay[ev.Day()], ev)
	}

	var out []DailyEmission
	for i := 1; i < len(days); i++ {
		prev := closing[days[i-1]]
		cur := closing[days[i]]

		delta := cur.Balance.Sub(prev.Balance)
		for _, ev := range byDay[days[i]] {
			switch ev.Action {
			case types.ActionDelegate:
				delta = delta.Sub(ev.Alpha)
			case types.ActionUndelegate:
				delta = delta.Add(ev.Alpha)
			}
		}

		if delta.IsPositive() {
			out = append(out, DailyEmission{
				Day:         days[i],
				Timestamp:   cur.Timestamp,
				BlockNumber: cur.BlockNumber,
				Quantity:    delta,
			})
		}
	}
	return out
}
