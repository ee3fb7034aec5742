// Package assembler orchestrates one full ledger run: classify events,
// credit acquisition lots, reconcile emission, then process disposals in
// time order.
package assembler

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/subnetlabs/taoledger/internal/classifier"
	"github.com/subnetlabs/taoledger/internal/disposal"
	"github.com/subnetlabs/taoledger/internal/emission"
	"github.com/subnetlabs/taoledger/internal/ledger"
	"github.com/subnetlabs/taoledger/internal/logger"
	"github.com/subnetlabs/taoledger/internal/types"
)

// Options is the immutable per-run context. It is validated once at run
// start; nothing reads process-wide state after that.
type Options struct {
	Identities   classifier.Identities
	Strategy     types.Strategy
	Mode         string // "staking" or "mining"; decides how emission income is tagged
	LookbackDays int
	Prices       types.PriceSource
}

func (o Options) validate() error {
	if o.Identities.OwnWallet == "" {
		return fmt.Errorf("own wallet identity is required")
	}
	if o.Identities.TrackedHotkey == "" {
		return fmt.Errorf("tracked hotkey identity is required")
	}
	if _, err := types.ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if o.Mode != "staking" && o.Mode != "mining" {
		return fmt.Errorf("mode must be staking or mining, got %q", o.Mode)
	}
	if o.Prices == nil {
		return fmt.Errorf("price source is required")
	}
	if o.LookbackDays < 0 {
		return fmt.Errorf("lookback days must not be negative")
	}
	return nil
}

// Failure is one event that could not be processed. The run carries on past
// per-event failures and reports them together.
type Failure struct {
	SourceKey string `json:"source_key"`
	Stage     string `json:"stage"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// Report holds the five output record sets of a run plus per-event failures.
type Report struct {
	Income    []types.IncomeRecord
	Sales     []types.SaleRecord
	Expenses  []types.ExpenseRecord
	TaoLots   []types.TaoLotRecord
	Transfers []types.TransferRecord
	Failures  []Failure

	AlphaBook *ledger.Book
	TaoBook   *ledger.Book
}

// Assembler runs the ledger pipeline over materialized event history.
type Assembler struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) (*Assembler, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid run options: %w", err)
	}
	return &Assembler{opts: opts, log: logger.L().With("component", "assembler")}, nil
}

// Run processes one bounded window of history to completion. Per-event
// failures are collected in the report; Run returns an error only for
// invalid input or when every single event in the window failed.
func (a *Assembler) Run(
	delegations []types.DelegationEvent,
	transfers []types.TransferEvent,
	snapshots []types.BalanceSnapshot,
) (*Report, error) {
	delegations, transfers, snapshots = a.applyLookback(delegations, transfers, snapshots)

	report := &Report{
		AlphaBook: ledger.NewBook(types.AssetAlpha),
		TaoBook:   ledger.NewBook(types.AssetTao),
	}

	incomeEvents, disposals := a.classify(delegations, transfers, report)

	// Pass 1: credits. Every acquisition lot must exist before the first
	// disposal that could consume it.
	a.creditIncome(incomeEvents, snapshots, delegations, report)

	// Pass 2: disposals in ascending time order.
	a.processDisposals(disposals, transfers, report)

	produced := len(report.Income) + len(report.Sales) + len(report.Expenses) + len(report.Transfers)
	if produced == 0 && len(report.Failures) > 0 {
		return report, fmt.Errorf("all %d events failed, see failure report", len(report.Failures))
	}
	a.log.Info("run complete",
		"income_lots", len(report.Income),
		"sales", len(report.Sales),
		"expenses", len(report.Expenses),
		"transfers", len(report.Transfers),
		"failures", len(report.Failures))
	return report, nil
}

const (
	stageClassify = "classify"
	stageCredit   = "credit"
	stageDisposal = "disposal"
)

// classifiedEvent pairs a delegation event with its category so the disposal
// pass can interleave delegation and transfer events by timestamp.
type classifiedEvent struct {
	category types.Category
	event    types.DelegationEvent
}

func (a *Assembler) classify(
	delegations []types.DelegationEvent,
	transfers []types.TransferEvent,
	report *Report,
) (income []types.DelegationEvent, disposals []classifiedEvent) {
	for _, ev := range delegations {
		category, err := classifier.Classify(ev, a.opts.Identities)
		if err != nil {
			report.fail(ev.ExtrinsicID, stageClassify, err)
			continue
		}
		switch category {
		case types.CategoryIncome:
			income = append(income, ev)
		case types.CategorySale, types.CategoryExpense:
			disposals = append(disposals, classifiedEvent{category: category, event: ev})
		}
	}
	return income, disposals
}

// creditIncome books delegated income and reconciled emission as ALPHA lots,
// in ascending time order so lot ids are stable across runs.
func (a *Assembler) creditIncome(
	incomeEvents []types.DelegationEvent,
	snapshots []types.BalanceSnapshot,
	delegations []types.DelegationEvent,
	report *Report,
) {
	type pendingLot struct {
		timestamp   int64
		blockNumber uint64
		sourceKey   string
		sourceType  types.SourceType
		quantity    decimal.Decimal
		totalBasis  decimal.Decimal
		notes       string
	}

	var pending []pendingLot
	for _, ev := range incomeEvents {
		pending = append(pending, pendingLot{
			timestamp:   ev.Timestamp,
			blockNumber: ev.BlockNumber,
			sourceKey:   ev.ExtrinsicID,
			sourceType:  types.SourceContract,
			quantity:    ev.Alpha,
			totalBasis:  ev.USD,
		})
	}

	emissionSource := types.SourceStaking
	if a.opts.Mode == "mining" {
		emissionSource = types.SourceMining
	}
	// The snapshots track one wallet's stake with one hotkey, so only that
	// pair's delegations can explain balance movement. Foreign events on the
	// same subnet must not dilute the reconciled emission.
	var own []types.DelegationEvent
	for _, ev := range delegations {
		if ev.Nominator == a.opts.Identities.OwnWallet && ev.Delegate == a.opts.Identities.TrackedHotkey {
			own = append(own, ev)
		}
	}
	for _, em := range emission.Reconcile(snapshots, own) {
		price, err := a.opts.Prices.PriceAt(types.AssetAlpha, em.Timestamp)
		if err != nil {
			report.fail("emission:"+em.Day, stageCredit, err)
			continue
		}
		pending = append(pending, pendingLot{
			timestamp:   em.Timestamp,
			blockNumber: em.BlockNumber,
			sourceKey:   "emission:" + em.Day,
			sourceType:  emissionSource,
			quantity:    em.Quantity,
			totalBasis:  em.Quantity.Mul(price),
			notes:       "reconciled daily emission",
		})
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].timestamp != pending[j].timestamp {
			return pending[i].timestamp < pending[j].timestamp
		}
		return pending[i].sourceKey < pending[j].sourceKey
	})

	for i, p := range pending {
		if !p.quantity.IsPositive() {
			report.fail(p.sourceKey, stageCredit,
				fmt.Errorf("income quantity must be positive, got %s", p.quantity))
			continue
		}
		lot := &ledger.Lot{
			ID:          fmt.Sprintf("ALPHA-%04d", i+1),
			Asset:       types.AssetAlpha,
			AcquiredAt:  p.timestamp,
			BlockNumber: p.blockNumber,
			SourceType:  p.sourceType,
			SourceKey:   p.sourceKey,
			Original:    p.quantity,
			Remaining:   p.quantity,
			UnitBasis:   p.totalBasis.Div(p.quantity),
			TotalBasis:  p.totalBasis,
		}
		if err := report.AlphaBook.Credit(lot); err != nil {
			report.fail(p.sourceKey, stageCredit, err)
			continue
		}
		report.Income = append(report.Income, types.IncomeRecord{
			LotID:       lot.ID,
			SourceKey:   lot.SourceKey,
			Timestamp:   lot.AcquiredAt,
			BlockNumber: lot.BlockNumber,
			Asset:       lot.Asset,
			SourceType:  lot.SourceType,
			Quantity:    lot.Original,
			UnitBasis:   lot.UnitBasis,
			TotalBasis:  lot.TotalBasis,
			Notes:       p.notes,
		})
	}
}

// processDisposals runs sales, expenses and brokerage transfers through the
// disposal processor in one time-ordered sequence.
func (a *Assembler) processDisposals(
	disposals []classifiedEvent,
	transfers []types.TransferEvent,
	report *Report,
) {
	proc := disposal.NewProcessor(report.AlphaBook, report.TaoBook, a.opts.Strategy, a.opts.Prices, transfers)

	type step struct {
		timestamp  int64
		key        string
		delegation *classifiedEvent
		transfer   *types.TransferEvent
	}
	var steps []step
	for i := range disposals {
		steps = append(steps, step{
			timestamp:  disposals[i].event.Timestamp,
			key:        disposals[i].event.ExtrinsicID,
			delegation: &disposals[i],
		})
	}
	for i := range transfers {
		if classifier.ClassifyTransfer(transfers[i], a.opts.Identities) != types.CategoryTransfer {
			continue
		}
		steps = append(steps, step{
			timestamp: transfers[i].Timestamp,
			key:       transfers[i].TransactionHash,
			transfer:  &transfers[i],
		})
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].timestamp != steps[j].timestamp {
			return steps[i].timestamp < steps[j].timestamp
		}
		return steps[i].key < steps[j].key
	})

	for _, s := range steps {
		switch {
		case s.transfer != nil:
			rec, err := proc.ProcessTransfer(*s.transfer)
			if err != nil {
				report.fail(s.key, stageDisposal, err)
				continue
			}
			report.Transfers = append(report.Transfers, rec)
		case s.delegation.category == types.CategorySale:
			sale, taoLot, err := proc.ProcessSale(s.delegation.event)
			if err != nil {
				report.fail(s.key, stageDisposal, err)
				continue
			}
			report.Sales = append(report.Sales, sale)
			report.TaoLots = append(report.TaoLots, taoLot)
		default:
			rec, err := proc.ProcessExpense(s.delegation.event)
			if err != nil {
				report.fail(s.key, stageDisposal, err)
				continue
			}
			report.Expenses = append(report.Expenses, rec)
		}
	}
}

// applyLookback trims all inputs to the configured window, anchored on the
// newest timestamp present in the data so runs stay deterministic.
func (a *Assembler) applyLookback(
	delegations []types.DelegationEvent,
	transfers []types.TransferEvent,
	snapshots []types.BalanceSnapshot,
) ([]types.DelegationEvent, []types.TransferEvent, []types.BalanceSnapshot) {
	if a.opts.LookbackDays == 0 {
		return delegations, transfers, snapshots
	}
	var newest int64
	for _, ev := range delegations {
		newest = max(newest, ev.Timestamp)
	}
	for _, t := range transfers {
		newest = max(newest, t.Timestamp)
	}
	for _, s := range snapshots {
		newest = max(newest, s.Timestamp)
	}
	cutoff := newest - int64(a.opts.LookbackDays)*24*60*60

	var keptDelegations []types.DelegationEvent
	for _, ev := range delegations {
		if ev.Timestamp >= cutoff {
			keptDelegations = append(keptDelegations, ev)
		}
	}
	var keptTransfers []types.TransferEvent
	for _, t := range transfers {
		if t.Timestamp >= cutoff {
			keptTransfers = append(keptTransfers, t)
		}
	}
	var keptSnapshots []types.BalanceSnapshot
	for _, s := range snapshots {
		if s.Timestamp >= cutoff {
			keptSnapshots = append(keptSnapshots, s)
		}
	}
	return keptDelegations, keptTransfers, keptSnapshots
}

func (r *Report) fail(sourceKey, stage string, err error) {
	logger.L().Warn("event failed", "source_key", sourceKey, "stage", stage, "error", err)
	r.Failures = append(r.Failures, Failure{
		SourceKey: sourceKey,
		Stage:     stage,
		Err:       err,
		Message:   err.Error(),
	})
}
