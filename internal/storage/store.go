// Package storage provides a byte-budgeted key-value store for serialized receipts and a quota
// manager that keeps writes under the budget, evicting the oldest receipts when the store fills up.
package storage

import (
	"errors"
	"strings"
	"unicode/utf16"
)

var (
	// ErrNotFound is returned when a key has no value
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is returned by a Store when a write would not fit
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// RecordKeyPrefix marks the keys holding receipt records
const RecordKeyPrefix = "receipt:"

// Store is a string key-value store with a byte budget
type Store interface {
	// Get returns the value for key, or ErrNotFound
	Get(key string) (string, error)

	// Set stores value under key, or fails with ErrQuotaExceeded when it does not fit
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// ForEach calls fn for every key in key order, stopping at the first error
	ForEach(fn func(key, value string) error) error

	// Close releases the store
	Close() error
}

// RecordKey returns the store key for a receipt ID
func RecordKey(id string) string {
	return RecordKeyPrefix + id
}

// IsRecordKey reports whether key holds a receipt record
func IsRecordKey(key string) bool {
	return strings.HasPrefix(key, RecordKeyPrefix)
}

// RecordID returns the receipt ID stored under a record key
func RecordID(key string) string {
	return strings.TrimPrefix(key, RecordKeyPrefix)
}

// ItemSize is the number of bytes a key and value occupy when stored as UTF-16 text
func ItemSize(key, value string) int64 {
	return int64(utf16Len(key)+utf16Len(value)) * 2
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
