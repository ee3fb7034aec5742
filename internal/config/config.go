package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/subnetlabs/taoledger/internal/journal"
	"github.com/subnetlabs/taoledger/internal/types"
)

type Config struct {
	Ledger LedgerConfig `yaml:"ledger"`
}

type LedgerConfig struct {
	Identities IdentityConfig   `yaml:"identities"`
	Strategy   string           `yaml:"strategy"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Sources    SourcesConfig    `yaml:"sources"`
	NATS       NATSConfig       `yaml:"nats"`
	Storage    StorageConfig    `yaml:"storage"`
	Accounts   journal.Accounts `yaml:"accounts"`
}

// IdentityConfig names the on-chain addresses the ledger is run for.
type IdentityConfig struct {
	OwnWallet       string `yaml:"own_wallet"`
	TrackedHotkey   string `yaml:"tracked_hotkey"`
	ContractAddress string `yaml:"contract_address"`
	Brokerage       string `yaml:"brokerage"`
}

type TrackerConfig struct {
	// Mode decides how reconciled emission is booked: "staking" or "mining".
	Mode string `yaml:"mode"`
	// LookbackDays bounds how far back balance snapshots are reconciled.
	// Zero means all available snapshots.
	LookbackDays int `yaml:"lookback_days"`
}

// SourcesConfig points at the materialized event exports the run reads.
type SourcesConfig struct {
	DelegationsPath string `yaml:"delegations_path"`
	TransfersPath   string `yaml:"transfers_path"`
	BalancesPath    string `yaml:"balances_path"`
	PricesPath      string `yaml:"prices_path"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type StorageConfig struct {
	Type string `yaml:"type"`
	Dir  string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	l := &c.Ledger
	if l.Strategy == "" {
		l.Strategy = string(types.StrategyFIFO)
	}
	if l.Tracker.Mode == "" {
		l.Tracker.Mode = "staking"
	}
	if l.NATS.SubjectPrefix == "" {
		l.NATS.SubjectPrefix = "taoledger"
	}
	if l.Storage.Type == "" {
		l.Storage.Type = "badger"
	}
	if l.Storage.Dir == "" {
		l.Storage.Dir = "data/ledger"
	}
	a := &l.Accounts
	setDefault(&a.AlphaAsset, "ALPHA Holdings")
	setDefault(&a.TaoAsset, "TAO Holdings")
	setDefault(&a.ContractIncome, "Contract Income")
	setDefault(&a.StakingIncome, "Staking Income")
	setDefault(&a.MiningIncome, "Mining Income")
	setDefault(&a.TransferProceeds, "Brokerage Transfers")
	setDefault(&a.TransferFee, "Network Fees")
	setDefault(&a.ShortTermGain, "Short-term Capital Gains")
	setDefault(&a.ShortTermLoss, "Short-term Capital Losses")
	setDefault(&a.LongTermGain, "Long-term Capital Gains")
	setDefault(&a.LongTermLoss, "Long-term Capital Losses")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func (c *Config) Validate() error {
	l := c.Ledger
	if l.Identities.OwnWallet == "" {
		return fmt.Errorf("ledger.identities.own_wallet is required")
	}
	if l.Identities.TrackedHotkey == "" {
		return fmt.Errorf("ledger.identities.tracked_hotkey is required")
	}
	if l.Identities.ContractAddress == "" {
		return fmt.Errorf("ledger.identities.contract_address is required")
	}
	if _, err := types.ParseStrategy(l.Strategy); err != nil {
		return err
	}
	if l.Tracker.Mode != "staking" && l.Tracker.Mode != "mining" {
		return fmt.Errorf("ledger.tracker.mode must be staking or mining, got %q", l.Tracker.Mode)
	}
	if l.Tracker.LookbackDays < 0 {
		return fmt.Errorf("ledger.tracker.lookback_days must not be negative")
	}
	return nil
}
