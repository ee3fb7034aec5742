// Package classifier labels raw events with their ledger category.
package classifier

import (
	"fmt"

	"github.com/subnetlabs/taoledger/internal/types"
)

// Identities are the configured addresses a run tracks. All comparisons are
// exact string equality on the wire addresses.
type Identities struct {
	OwnWallet       string
	TrackedHotkey   string
	ContractAddress string
	Brokerage       string
}

// AmbiguousClassificationError signals an event matching more than one
// category predicate. The rules are mutually exclusive, so this only happens
// on malformed upstream data and must never be resolved by guessing.
type AmbiguousClassificationError struct {
	EventKey   string
	Categories []types.Category
}

func (e *AmbiguousClassificationError) Error() string {
	return fmt.Sprintf("event %s matches multiple categories %v", e.EventKey, e.Categories)
}

type rule struct {
	category types.Category
	matches  func(types.DelegationEvent, Identities) bool
}

// The table is ordered: Expense's destination-mismatch predicate sits before
// Sale's transfer-absent predicate, which keeps the two UNDELEGATE rows
// mutually exclusive on the transfer fields.
var delegationRules = []rule{
	{types.CategoryIncome, func(e types.DelegationEvent, id Identities) bool {
		return e.Action == types.ActionDelegate &&
			e.Transferred() &&
			e.TransferAddress == id.ContractAddress && id.ContractAddress != "" &&
			e.Nominator == id.OwnWallet &&
			e.Delegate == id.TrackedHotkey
	}},
	{types.CategoryExpense, func(e types.DelegationEvent, id Identities) bool {
		return e.Action == types.ActionUndelegate &&
			e.Transferred() &&
			e.TransferAddress != "" &&
			e.TransferAddress != id.TrackedHotkey &&
			e.Nominator == id.OwnWallet &&
			e.Delegate == id.TrackedHotkey
	}},
	{types.CategorySale, func(e types.DelegationEvent, id Identities) bool {
		return e.Action == types.ActionUndelegate &&
			!e.Transferred() &&
			e.TransferAddress == "" &&
			e.Nominator == id.OwnWallet &&
			e.Delegate == id.TrackedHotkey
	}},
}

// Classify resolves a delegation event to exactly one category. Events that
// match no rule, including events for untracked identities, are Ignored.
func Classify(e types.DelegationEvent, id Identities) (types.Category, error) {
	var matched []types.Category
	for _, r := range delegationRules {
		if r.matches(e, id) {
			matched = append(matched, r.category)
		}
	}
	switch len(matched) {
	case 0:
		return types.CategoryIgnored, nil
	case 1:
		return matched[0], nil
	default:
		return "", &AmbiguousClassificationError{EventKey: e.ExtrinsicID, Categories: matched}
	}
}

// ClassifyTransfer labels a settlement-asset movement: own wallet to
// brokerage is a Transfer disposal, everything else is Ignored.
func ClassifyTransfer(t types.TransferEvent, id Identities) types.Category {
	if t.From == id.OwnWallet && t.To == id.Brokerage && id.Brokerage != "" {
		return types.CategoryTransfer
	}
	return types.CategoryIgnored
}
