package kvstore

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// RunInfo records the outcome of a completed ledger run.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	Strategy    string    `json:"strategy"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	EventCount  int       `json:"event_count"`
	RecordCount int       `json:"record_count"`
	Failures    int       `json:"failures"`
}

// LedgerStateStore persists run metadata and emitted-record keys on top of a
// KVStore. Emitted keys let downstream publishing stay idempotent across
// re-runs over the same event history.
type LedgerStateStore struct {
	kvstore KVStore
}

func NewLedgerStateStore(kvstore KVStore) *LedgerStateStore {
	return &LedgerStateStore{kvstore: kvstore}
}

// StoreRecord stores the marshaled record under its kind and source key.
func (s *LedgerStateStore) StoreRecord(kind, recordID string, record encoding.BinaryMarshaler) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}
	return s.kvstore.Set(s.recordKey(kind, recordID), data)
}

// ListRecords returns all stored records of one kind, keyed by record id.
func (s *LedgerStateStore) ListRecords(kind string) (map[string][]byte, error) {
	prefix := fmt.Sprintf("records/%s/", kind)
	pairs, err := s.kvstore.List(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	records := make(map[string][]byte, len(pairs))
	for key, value := range pairs {
		records[key[len(prefix):]] = value
	}
	return records, nil
}

// MarkEmitted records that a record was published downstream.
func (s *LedgerStateStore) MarkEmitted(kind, recordID string) error {
	return s.kvstore.Set(s.emittedKey(kind, recordID), []byte("1"))
}

// WasEmitted reports whether a record was already published.
func (s *LedgerStateStore) WasEmitted(kind, recordID string) (bool, error) {
	_, err := s.kvstore.Get(s.emittedKey(kind, recordID))
	if err == ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StoreRun saves the metadata of a finished run and advances the latest
// run pointer.
func (s *LedgerStateStore) StoreRun(info RunInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal run info: %w", err)
	}
	if err := s.kvstore.Set("runs/"+info.RunID, data); err != nil {
		return fmt.Errorf("failed to store run info: %w", err)
	}
	return s.kvstore.Set("runs/latest", data)
}

// LatestRun returns the most recent run's metadata, or nil when no run has
// completed yet.
func (s *LedgerStateStore) LatestRun() (*RunInfo, error) {
	data, err := s.kvstore.Get("runs/latest")
	if err == ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run info: %w", err)
	}
	return &info, nil
}

func (s *LedgerStateStore) recordKey(kind, recordID string) string {
	return fmt.Sprintf("records/%s/%s", kind, recordID)
}

func (s *LedgerStateStore) emittedKey(kind, recordID string) string {
	return fmt.Sprintf("emitted/%s/%s", kind, recordID)
}
