package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrArchiveNotFound is returned for a well-formed name with no file behind it
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrInvalidArchiveName rejects names that are not a plain file name
	ErrInvalidArchiveName = errors.New("invalid archive name")
)

// Storage holds export archives outside the quota-managed store
type Storage interface {
	// Save writes a file and returns its name
	Save(filename string, data []byte) (string, error)

	// Get reads a file by name
	Get(name string) ([]byte, error)

	// Delete removes a file
	Delete(name string) error

	// List returns the stored file names, sorted
	List() ([]string, error)
}

// LocalStorage implements Storage on a local directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// path keeps names inside the base directory
func (l *LocalStorage) path(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchiveName, name)
	}
	return filepath.Join(l.basePath, clean), nil
}

// Save writes a file to the directory
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := l.path(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get reads a file from the directory
func (l *LocalStorage) Get(name string) ([]byte, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from the directory
func (l *LocalStorage) Delete(name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArchiveNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// List returns the regular files in the directory
func (l *LocalStorage) List() ([]string, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("reading storage directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
