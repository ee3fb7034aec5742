package kvstore

import "errors"

var ErrKeyNotFound = errors.New("kvstore: key not found")

// KVStore is an interface for a simple key-value store.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	List(prefix string) (map[string][]byte, error)
	Close() error
}
