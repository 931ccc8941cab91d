package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "receipt_manager"

// BoltStore implements Store on a bbolt file. Capacity is a hard limit on ItemSize summed over
// all keys; zero means unlimited.
type BoltStore struct {
	db       *bbolt.DB
	capacity int64
}

// NewBoltStore opens or creates a bbolt store at path
func NewBoltStore(path string, capacity int64) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db, capacity: capacity}, nil
}

// Get returns the value stored under key
func (b *BoltStore) Get(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (b *BoltStore) Set(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))

		if b.capacity > 0 {
			var used int64
			err := bucket.ForEach(func(k, v []byte) error {
				if string(k) != key {
					used += ItemSize(string(k), string(v))
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("measuring store: %w", err)
			}
			if used+ItemSize(key, value) > b.capacity {
				return ErrQuotaExceeded
			}
		}

		return bucket.Put([]byte(key), []byte(value))
	})
}

// Remove deletes key
func (b *BoltStore) Remove(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// ForEach iterates over every key in byte order
func (b *BoltStore) ForEach(fn func(key, value string) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

// Close closes the database
func (b *BoltStore) Close() error {
	return b.db.Close()
}
