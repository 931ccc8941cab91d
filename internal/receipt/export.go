package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/receipt-manager/internal/storage"
	"github.com/zombor/receipt-manager/internal/tagging"
)

// ExportVersion is written into every export document
const ExportVersion = "1.0"

// ErrNoArchive is returned by archive operations when no archive storage is configured
var ErrNoArchive = errors.New("no archive storage configured")

// Export is a portable copy of every receipt
type Export struct {
	Version    string     `json:"version"`
	ExportedAt time.Time  `json:"exported_at"`
	Count      int        `json:"count"`
	Receipts   []*Receipt `json:"receipts"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Export builds an export document of every receipt, newest first
func (s *Service) Export() (*Export, error) {
	receipts, err := s.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("exporting receipts: %w", err)
	}
	return &Export{
		Version:    ExportVersion,
		ExportedAt: s.timeSource.Now(),
		Count:      len(receipts),
		Receipts:   receipts,
	}, nil
}

// Import loads receipts from an export document or a bare JSON array. Without replace,
// receipts whose ID already exists are skipped. With replace, the existing receipts are only
// cleared once the whole import is projected to fit, and they are restored if a save still
// fails. Import stops at the first save the quota manager refuses.
func (s *Service) Import(data []byte, replace bool) (*ImportResult, error) {
	receipts, err := decodeImport(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &ImportResult{}
	pending, err := s.prepareImport(receipts, replace, result)
	if err != nil {
		return result, err
	}

	var previous []*Receipt
	if replace {
		if previous, err = s.replaceableReceipts(pending); err != nil {
			return result, err
		}
		if _, err := s.db.Clear(); err != nil {
			return nil, fmt.Errorf("clearing receipts: %w", err)
		}
	}

	for _, r := range pending {
		if err := s.save(r); err != nil {
			if replace {
				s.restoreReceipts(previous)
				result.Imported = 0
			}
			return result, err
		}
		result.Imported++
	}

	slog.Info("Imported receipts", "imported", result.Imported, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// prepareImport fills IDs, timestamps and tags, counting skipped and unreadable records
func (s *Service) prepareImport(receipts []*Receipt, replace bool, result *ImportResult) ([]*Receipt, error) {
	now := s.timeSource.Now()
	pending := make([]*Receipt, 0, len(receipts))
	for _, r := range receipts {
		if r == nil {
			result.Failed++
			continue
		}
		if r.ID == "" {
			r.ID = s.idGenerator.Generate()
		} else if !replace {
			_, err := s.db.GetReceipt(r.ID)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("checking receipt %s: %w", r.ID, err)
			}
		}

		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = r.CreatedAt
		}
		r.UpdatedAt = now
		r.Items = sanitizeItems(r.Items)
		if r.Parsing.Method == "" {
			r.Parsing.Method = MethodImport
		}

		auto := r.Tags.Auto
		if auto == nil {
			auto = s.tagger.GenerateAutoTags(r.tagRecord())
		}
		r.Tags = tagging.MergeTags(auto, r.Tags.User)

		pending = append(pending, r)
	}
	return pending, nil
}

// replaceableReceipts checks that the pending receipts fit once the current ones are cleared
// and returns the current receipts so they can be restored
func (s *Service) replaceableReceipts(pending []*Receipt) ([]*Receipt, error) {
	previous, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	usage, err := s.db.Usage()
	if err != nil {
		return nil, fmt.Errorf("measuring storage: %w", err)
	}

	var incoming int64
	for _, r := range pending {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshaling receipt %s: %w", r.ID, err)
		}
		incoming += storage.ItemSize(storage.RecordKey(r.ID), string(data))
	}

	safety, err := s.db.CheckSafety(incoming - usage.ReceiptBytes)
	if err != nil {
		return nil, fmt.Errorf("checking storage safety: %w", err)
	}
	if !safety.Safe {
		slog.Warn("Replace import refused, existing receipts kept",
			"incoming_bytes", incoming,
			"projected_bytes", safety.ProjectedBytes,
		)
		return nil, &SaveError{
			Result: &storage.SaveResult{
				Code:    storage.CodeQuotaWarning,
				Message: fmt.Sprintf("Import needs %.2fMB, more than the storage allows. Existing receipts were kept.", float64(incoming)/(1024*1024)),
				Usage:   safety.Current,
			},
			Err: storage.ErrQuotaWarning,
		}
	}
	return previous, nil
}

// restoreReceipts puts back the receipts a failed replace import cleared
func (s *Service) restoreReceipts(previous []*Receipt) {
	if _, err := s.db.Clear(); err != nil {
		slog.Error("Failed to clear partial import", "error", err)
	}
	for _, r := range previous {
		if _, err := s.db.SaveReceipt(r); err != nil {
			slog.Error("Failed to restore receipt after failed import", "id", r.ID, "error", err)
		}
	}
	slog.Warn("Replace import failed, previous receipts restored", "count", len(previous))
}

func decodeImport(data []byte) ([]*Receipt, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyInput
	}

	if trimmed[0] == '[' {
		var receipts []*Receipt
		if err := json.Unmarshal(trimmed, &receipts); err != nil {
			return nil, fmt.Errorf("decoding receipts: %w", err)
		}
		return receipts, nil
	}

	var doc Export
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	return doc.Receipts, nil
}

// ArchiveExport writes an export document to the archive directory and returns its file name
func (s *Service) ArchiveExport() (string, error) {
	if s.archive == nil {
		return "", ErrNoArchive
	}

	doc, err := s.Export()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}

	name, err := s.archive.Save(fmt.Sprintf("receipts-%s.json", doc.ExportedAt.Format("20060102-150405")), data)
	if err != nil {
		return "", fmt.Errorf("archiving export: %w", err)
	}
	slog.Info("Archived receipts", "file", name, "count", doc.Count)
	return name, nil
}

// ListArchives returns the archived export file names
func (s *Service) ListArchives() ([]string, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	names, err := s.archive.List()
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	return names, nil
}

// GetArchive reads an archived export
func (s *Service) GetArchive(name string) ([]byte, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	return s.archive.Get(name)
}

// DeleteArchive removes an archived export
func (s *Service) DeleteArchive(name string) error {
	if s.archive == nil {
		return ErrNoArchive
	}
	if err := s.archive.Delete(name); err != nil {
		return err
	}
	slog.Info("Deleted archive", "file", name)
	return nil
}

// ImportArchive imports a previously archived export, typically to restore receipts after the
// store was cleared or cleaned up
func (s *Service) ImportArchive(name string, replace bool) (*ImportResult, error) {
	data, err := s.GetArchive(name)
	if err != nil {
		return nil, err
	}
	return s.Import(data, replace)
}
