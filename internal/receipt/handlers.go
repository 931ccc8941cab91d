package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/receipt-manager/internal/storage"
)

const (
	maxUploadSize = 50 << 20 // high-resolution phone photos
	maxJSONSize   = 10 << 20
)

// corsError writes a plain text error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes. Quota refusals answer 507 with the
// quota manager's SaveResult so clients can show usage and evictions.
func writeServiceError(w http.ResponseWriter, err error) {
	var saveErr *SaveError
	switch {
	case errors.As(err, &saveErr) && isQuotaError(err):
		setCORSHeaders(w)
		writeJSON(w, http.StatusInsufficientStorage, saveErr.Result)
	case errors.As(err, &saveErr):
		setCORSHeaders(w)
		writeJSON(w, http.StatusInternalServerError, saveErr.Result)
	case errors.Is(err, ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Receipt not found")
	case errors.Is(err, ErrEmptyInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoText):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrCleanupFailed):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrArchiveNotFound):
		writeJSONError(w, http.StatusNotFound, "Archive not found")
	case errors.Is(err, ErrInvalidArchiveName):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoArchive):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func isQuotaError(err error) bool {
	return errors.Is(err, storage.ErrQuotaWarning) ||
		errors.Is(err, storage.ErrQuotaExceeded) ||
		errors.Is(err, storage.ErrQuotaExceededAfterCleanup) ||
		errors.Is(err, storage.ErrCleanupFailed)
}

// handleListReceipts lists receipts, applying search parameters when any are given
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, err := parseFilters(query)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var receipts []*Receipt
	if query.Get("q") != "" || filters != (Filters{}) {
		receipts, err = s.service.Search(query.Get("q"), filters)
	} else {
		receipts, err = s.service.ListReceipts()
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

var errBadFilter = errors.New("invalid filter")

func parseFilters(query map[string][]string) (Filters, error) {
	get := func(key string) string {
		if values := query[key]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
		return ""
	}

	var filters Filters
	for key, target := range map[string]**time.Time{"start": &filters.StartDate, "end": &filters.EndDate} {
		if v := get(key); v != "" {
			t, err := parseFilterDate(v)
			if err != nil {
				return Filters{}, errors.Join(errBadFilter, err)
			}
			*target = &t
		}
	}
	for key, target := range map[string]**float64{"min": &filters.MinAmount, "max": &filters.MaxAmount} {
		if v := get(key); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Filters{}, errors.Join(errBadFilter, err)
			}
			*target = &n
		}
	}
	filters.Category = get("category")
	filters.Tag = get("tag")
	return filters, nil
}

func parseFilterDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse("01/02/2006", v)
}

// splitTags accepts repeated fields and comma separated values
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		message := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			message = "No file was selected. Please choose a file to upload."
		}
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromName(header.Filename)
	}

	receipt, err := s.service.ProcessReceipt(header.Filename, data, strings.ToLower(strings.TrimSpace(contentType)), splitTags(r.MultipartForm.Value["tags"]))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func contentTypeFromName(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

// textRequest is the body of the text parsing endpoints
type textRequest struct {
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Confidence int      `json:"confidence"`
}

func decodeTextRequest(w http.ResponseWriter, r *http.Request) (*textRequest, bool) {
	var req textRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONSize)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return &req, true
}

// handleSaveText parses pasted receipt text and saves it
func (s *Server) handleSaveText(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.SaveText(req.Text, req.Tags, req.Confidence)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// handleParse parses receipt text without saving it
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.service.ParseText(req.Text, req.Confidence))
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleUpdateReceipt applies user edits to a receipt
func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	var update Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONSize)).Decode(&update); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := s.service.UpdateReceipt(r.PathValue("id"), update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearReceipts deletes every receipt
func (s *Server) handleClearReceipts(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.ClearReceipts()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleTagStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.TagStatistics()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleStorage reports usage together with cleanup recommendations
func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.service.StorageUsage()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	recommendations, err := s.service.Recommendations()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	nextUpload, err := s.service.UploadSafety()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usage":           usage,
		"recommendations": recommendations,
		"next_upload":     nextUpload,
	})
}

// handleCleanup evicts the oldest receipts; count defaults to the automatic eviction share
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	target := 0
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		target = n
	}

	result, err := s.service.CleanupStorage(target)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExport downloads every receipt as a JSON document
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Export()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="receipts-`+doc.ExportedAt.Format("2006-01-02")+`.json"`)
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleArchiveExport(w http.ResponseWriter, r *http.Request) {
	name, err := s.service.ArchiveExport()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": name})
}

// handleImport loads an export document; replace=true clears existing receipts first
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Error reading request body")
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))

	result, err := s.service.Import(data, replace)
	writeImportResult(w, result, err)
}

// writeImportResult answers 400 for undecodable documents and maps other failures as usual
func writeImportResult(w http.ResponseWriter, result *ImportResult, err error) {
	if err != nil {
		var saveErr *SaveError
		if !errors.As(err, &saveErr) && !errors.Is(err, ErrEmptyInput) &&
			!errors.Is(err, ErrArchiveNotFound) && !errors.Is(err, ErrInvalidArchiveName) &&
			!errors.Is(err, ErrNoArchive) && result == nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListArchives()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// handleGetArchive downloads an archived export
func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.service.GetArchive(name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(data); err != nil {
		slog.Error("Error writing archive", "file", name, "error", err)
	}
}

func (s *Server) handleDeleteArchive(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteArchive(r.PathValue("name")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportArchive restores receipts from an archived export
func (s *Server) handleImportArchive(w http.ResponseWriter, r *http.Request) {
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
	result, err := s.service.ImportArchive(r.PathValue("name"), replace)
	writeImportResult(w, result, err)
}
