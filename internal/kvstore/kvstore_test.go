package kvstore

import (
	"os"
	"testing"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "badger_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := NewBadgerStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create BadgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore_BasicOperations(t *testing.T) {
	store := newTestStore(t)

	key := "test_key"
	value := []byte("test_value")

	if err := store.Set(key, value); err != nil {
		t.Errorf("Failed to set key: %v", err)
	}

	retrieved, err := store.Get(key)
	if err != nil {
		t.Errorf("Failed to get key: %v", err)
	}
	if string(retrieved) != string(value) {
		t.Errorf("Expected value %s, got %s", string(value), string(retrieved))
	}
}

func TestBadgerStore_GetNonExistentKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("non_existent_key")
	if err != ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestBadgerStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("doomed", []byte("x")); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}
	if err := store.Delete("doomed"); err != nil {
		t.Errorf("Failed to delete key: %v", err)
	}
	if _, err := store.Get("doomed"); err != ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestBadgerStore_List(t *testing.T) {
	store := newTestStore(t)

	entries := map[string][]byte{
		"records/sales/200-1": []byte("a"),
		"records/sales/200-2": []byte("b"),
		"records/income/1-1":  []byte("c"),
	}
	for k, v := range entries {
		if err := store.Set(k, v); err != nil {
			t.Fatalf("Failed to set key %s: %v", k, err)
		}
	}

	listed, err := store.List("records/sales/")
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected 2 sales records, got %d", len(listed))
	}
	if string(listed["records/sales/200-1"]) != "a" {
		t.Errorf("Unexpected value for sales record: %s", listed["records/sales/200-1"])
	}
}
