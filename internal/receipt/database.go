package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-manager/internal/storage"
)

// ErrNotFound is returned when no receipt has the requested ID
var ErrNotFound = errors.New("receipt not found")

// DB defines the interface for receipt persistence
type DB interface {
	// SaveReceipt inserts or replaces a receipt. The SaveResult is set even when err is not nil.
	SaveReceipt(receipt *Receipt) (*storage.SaveResult, error)

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all readable receipts
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt
	DeleteReceipt(id string) error

	// Clear removes every receipt and returns how many were removed
	Clear() (int, error)

	// Usage measures the underlying store
	Usage() (storage.Usage, error)

	// Recommendations suggests storage actions
	Recommendations() ([]storage.Recommendation, error)

	// CheckSafety projects usage after writing additional bytes
	CheckSafety(additional int64) (storage.Safety, error)

	// Cleanup evicts the oldest receipts, target of zero meaning the default count
	Cleanup(target int) (*storage.CleanupResult, error)

	// Close closes the underlying store
	Close() error
}

// QuotaDB stores each receipt as JSON under its own key, writing through a QuotaManager
type QuotaDB struct {
	quota *storage.QuotaManager
}

// NewQuotaDB creates a QuotaDB over the manager's store
func NewQuotaDB(quota *storage.QuotaManager) *QuotaDB {
	return &QuotaDB{quota: quota}
}

// NewBoltDB opens a bbolt file with the given hard capacity and quota thresholds
func NewBoltDB(path string, capacity int64, limits storage.Limits) (*QuotaDB, error) {
	store, err := storage.NewBoltStore(path, capacity)
	if err != nil {
		return nil, err
	}
	return NewQuotaDB(storage.NewQuotaManager(store, limits)), nil
}

// SaveReceipt saves a receipt through the quota manager
func (d *QuotaDB) SaveReceipt(receipt *Receipt) (*storage.SaveResult, error) {
	data, err := json.Marshal(receipt)
	if err != nil {
		return &storage.SaveResult{Code: storage.CodeSaveError, Message: "Failed to encode receipt"},
			fmt.Errorf("marshaling receipt: %w", err)
	}
	return d.quota.SafeSave(storage.RecordKey(receipt.ID), string(data))
}

// GetReceipt retrieves a receipt by ID
func (d *QuotaDB) GetReceipt(id string) (*Receipt, error) {
	value, err := d.quota.Store().Get(storage.RecordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading receipt %s: %w", id, err)
	}

	var receipt Receipt
	if err := json.Unmarshal([]byte(value), &receipt); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt %s: %w", id, err)
	}
	return &receipt, nil
}

// ListReceipts returns all receipts in key order. Records that fail to decode are skipped.
func (d *QuotaDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := d.quota.Store().ForEach(func(key, value string) error {
		if !storage.IsRecordKey(key) {
			return nil
		}
		var receipt Receipt
		if err := json.Unmarshal([]byte(value), &receipt); err != nil {
			slog.Warn("Skipping unreadable receipt", "key", key, "error", err)
			return nil
		}
		receipts = append(receipts, &receipt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt, returning ErrNotFound when it does not exist
func (d *QuotaDB) DeleteReceipt(id string) error {
	key := storage.RecordKey(id)
	if _, err := d.quota.Store().Get(key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("reading receipt %s: %w", id, err)
	}
	if err := d.quota.Store().Remove(key); err != nil {
		return fmt.Errorf("removing receipt %s: %w", id, err)
	}
	return nil
}

// Clear removes every receipt key, leaving other keys alone
func (d *QuotaDB) Clear() (int, error) {
	var keys []string
	err := d.quota.Store().ForEach(func(key, _ string) error {
		if storage.IsRecordKey(key) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("listing receipts: %w", err)
	}

	for i, key := range keys {
		if err := d.quota.Store().Remove(key); err != nil {
			return i, fmt.Errorf("removing %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// Usage measures the store
func (d *QuotaDB) Usage() (storage.Usage, error) {
	return d.quota.Usage()
}

// Recommendations suggests storage actions for the current usage
func (d *QuotaDB) Recommendations() ([]storage.Recommendation, error) {
	return d.quota.Recommendations()
}

func (d *QuotaDB) CheckSafety(additional int64) (storage.Safety, error) {
	return d.quota.CheckSafety(additional)
}

// Cleanup evicts the oldest receipts through the quota manager
func (d *QuotaDB) Cleanup(target int) (*storage.CleanupResult, error) {
	return d.quota.Cleanup(target)
}

// Close closes the store
func (d *QuotaDB) Close() error {
	return d.quota.Store().Close()
}
