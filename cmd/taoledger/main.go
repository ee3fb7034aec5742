package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/taoledger/internal/assembler"
	"github.com/subnetlabs/taoledger/internal/classifier"
	"github.com/subnetlabs/taoledger/internal/config"
	"github.com/subnetlabs/taoledger/internal/events"
	"github.com/subnetlabs/taoledger/internal/journal"
	"github.com/subnetlabs/taoledger/internal/kvstore"
	"github.com/subnetlabs/taoledger/internal/logger"
	"github.com/subnetlabs/taoledger/internal/source"
	"github.com/subnetlabs/taoledger/internal/types"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "taoledger",
		Short: "Cost-basis ledger for delegation income, conversions and transfers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger.Init(&logger.Options{Level: level, TimeFormat: time.RFC3339})
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs")

	root.AddCommand(newRunCmd(), newJournalCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the event history into ledger records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runLedger(cfg)
		},
	}
}

func newJournalCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Aggregate stored ledger records into monthly journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runJournal(cfg, month)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to aggregate (YYYY-MM)")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func runLedger(cfg *config.Config) error {
	log := logger.L()
	l := cfg.Ledger

	delegations, err := source.LoadDelegations(l.Sources.DelegationsPath)
	if err != nil {
		return err
	}
	transfers, err := source.LoadTransfers(l.Sources.TransfersPath)
	if err != nil {
		return err
	}
	snapshots, err := source.LoadBalances(l.Sources.BalancesPath)
	if err != nil {
		return err
	}
	prices, err := source.LoadPrices(l.Sources.PricesPath)
	if err != nil {
		return err
	}
	log.Info("sources loaded",
		"delegations", len(delegations),
		"transfers", len(transfers),
		"snapshots", len(snapshots))

	asm, err := assembler.New(assembler.Options{
		Identities: classifier.Identities{
			OwnWallet:       l.Identities.OwnWallet,
			TrackedHotkey:   l.Identities.TrackedHotkey,
			ContractAddress: l.Identities.ContractAddress,
			Brokerage:       l.Identities.Brokerage,
		},
		Strategy:     types.Strategy(l.Strategy),
		Mode:         l.Tracker.Mode,
		LookbackDays: l.Tracker.LookbackDays,
		Prices:       prices,
	})
	if err != nil {
		return err
	}

	started := time.Now().UTC()
	report, err := asm.Run(delegations, transfers, snapshots)
	if err != nil {
		return err
	}
	for _, f := range report.Failures {
		log.Warn("event not processed", "source_key", f.SourceKey, "stage", f.Stage, "error", f.Message)
	}

	store, err := kvstore.NewBadgerStore(filepath.Clean(l.Storage.Dir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	state := kvstore.NewLedgerStateStore(store)

	var emitter *events.Emitter
	if l.NATS.URL != "" {
		emitter, err = events.NewEmitter(l.NATS.URL, l.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer emitter.Close()
	}

	recordCount, err := persistRecords(state, emitter, report)
	if err != nil {
		return err
	}
	if emitter != nil {
		if err := emitter.Flush(); err != nil {
			return err
		}
	}

	finished := time.Now().UTC()
	err = state.StoreRun(kvstore.RunInfo{
		RunID:       started.Format("20060102T150405Z"),
		Strategy:    l.Strategy,
		StartedAt:   started,
		FinishedAt:  finished,
		EventCount:  len(delegations) + len(transfers),
		RecordCount: recordCount,
		Failures:    len(report.Failures),
	})
	if err != nil {
		return err
	}

	log.Info("run stored",
		"records", recordCount,
		"failures", len(report.Failures),
		"alpha_remaining", report.AlphaBook.TotalRemaining(),
		"tao_remaining", report.TaoBook.TotalRemaining(),
		"elapsed", finished.Sub(started))
	return nil
}

// persistRecords writes every record to the state store and publishes the
// ones that have not been emitted before. Records key on their source event,
// so re-runs over overlapping windows never publish duplicates.
func persistRecords(state *kvstore.LedgerStateStore, emitter *events.Emitter, report *assembler.Report) (int, error) {
	count := 0
	publish := func(kind, id string, record interface {
		MarshalBinary() ([]byte, error)
	}) error {
		if err := state.StoreRecord(kind, id, record); err != nil {
			return err
		}
		count++
		if emitter == nil {
			return nil
		}
		emitted, err := state.WasEmitted(kind, id)
		if err != nil || emitted {
			return err
		}
		if err := emitter.EmitRecord(kind, record); err != nil {
			return err
		}
		return state.MarkEmitted(kind, id)
	}

	for _, rec := range report.Income {
		if err := publish(events.SubjectIncome, rec.SourceKey, rec); err != nil {
			return count, err
		}
	}
	for _, rec := range report.Sales {
		if err := publish(events.SubjectSales, rec.SourceKey, rec); err != nil {
			return count, err
		}
	}
	for _, rec := range report.Expenses {
		if err := publish(events.SubjectExpenses, rec.SourceKey, rec); err != nil {
			return count, err
		}
	}
	for _, rec := range report.TaoLots {
		if err := publish(events.SubjectTaoLots, rec.SourceKey, rec); err != nil {
			return count, err
		}
	}
	for _, rec := range report.Transfers {
		if err := publish(events.SubjectTransfers, rec.SourceKey, rec); err != nil {
			return count, err
		}
	}
	return count, nil
}

func runJournal(cfg *config.Config, month string) error {
	l := cfg.Ledger
	store, err := kvstore.NewBadgerStore(filepath.Clean(l.Storage.Dir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	state := kvstore.NewLedgerStateStore(store)

	latest, err := state.LatestRun()
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("no ledger run stored yet, run `taoledger run` first")
	}

	income, err := loadRecords[types.IncomeRecord](state, events.SubjectIncome)
	if err != nil {
		return err
	}
	sales, err := loadRecords[types.SaleRecord](state, events.SubjectSales)
	if err != nil {
		return err
	}
	transfers, err := loadRecords[types.TransferRecord](state, events.SubjectTransfers)
	if err != nil {
		return err
	}

	entries, summary, err := journal.AggregateMonth(month, income, sales, transfers, l.Accounts)
	if err != nil {
		return err
	}

	if l.NATS.URL != "" {
		emitter, err := events.NewEmitter(l.NATS.URL, l.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer emitter.Close()
		for _, entry := range entries {
			if err := emitter.EmitRecord(events.SubjectJournal, entry); err != nil {
				return err
			}
		}
		if err := emitter.Flush(); err != nil {
			return err
		}
	}

	out := struct {
		Month   string               `json:"month"`
		Entries []types.JournalEntry `json:"entries"`
		Summary journal.Summary      `json:"summary"`
	}{Month: month, Entries: entries, Summary: summary}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadRecords[T any](state *kvstore.LedgerStateStore, kind string) ([]T, error) {
	raw, err := state.ListRecords(kind)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raw))
	for id, data := range raw {
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record %s: %w", kind, id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
