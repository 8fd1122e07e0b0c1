package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tenderportal/db"
	"tenderportal/internal/export"
	"tenderportal/internal/merge"
	"tenderportal/models"
)

// ListTendersHandler handles GET /api/tenders with optional status, type,
// owner and search filters.
func (h *Handler) ListTendersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.TenderFilters{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Owner:  q.Get("owner"),
		Search: strings.TrimSpace(q.Get("search")),
	}
	tenders, err := h.Store.ListTenders(r.Context(), filters)
	if err != nil {
		http.Error(w, "Failed to get tenders", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tenders":  tenders,
		"statuses": models.TenderStatuses,
		"types":    models.TenderTypes,
	})
}

// SaveTenderHandler handles POST /api/tenders. The body is a partial record:
// omitted fields keep their stored values, a missing or unknown id creates a
// new tender.
func (h *Handler) SaveTenderHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "tenders") {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var patch models.TenderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	tender, err := h.Store.SaveTender(r.Context(), patch)
	if errors.Is(err, merge.ErrTitleRequired) || errors.Is(err, merge.ErrStatusReasonRequired) || errors.Is(err, merge.ErrInvalidStatus) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Failed to save tender", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tender)
}

func (h *Handler) GetTenderHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenderId")
	tender, err := h.Store.GetTender(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "tender not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get tender", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]*models.Tender{"tender": tender})
}

func (h *Handler) DeleteTenderHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "tenders") {
		return
	}
	id := chi.URLParam(r, "tenderId")
	err := h.Store.DeleteTender(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "tender not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete tender", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachmentHandler handles POST /api/tenders/{tenderId}/attachments.
// Files arrive base64-encoded; target routes the attachment to the general
// list, the site visit photos or a specification book receipt.
func (h *Handler) UploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "tenders") {
		return
	}
	id := chi.URLParam(r, "tenderId")
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)

	var input struct {
		Target string `json:"target"`
		Files  []struct {
			Filename string `json:"filename"`
			Content  string `json:"content"`
		} `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(input.Files) == 0 {
		http.Error(w, "filename and content required", http.StatusBadRequest)
		return
	}
	uploads := make([]models.FileUpload, 0, len(input.Files))
	for _, f := range input.Files {
		if f.Filename == "" || f.Content == "" {
			http.Error(w, "filename and content required", http.StatusBadRequest)
			return
		}
		// Content may be a data URL, the payload follows the last comma.
		raw := f.Content
		if i := strings.LastIndex(raw, ","); i >= 0 {
			raw = raw[i+1:]
		}
		content, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			http.Error(w, "invalid file content", http.StatusBadRequest)
			return
		}
		uploads = append(uploads, models.FileUpload{Filename: f.Filename, Content: content})
	}
	attachments, err := h.Store.UploadTenderAttachment(r.Context(), id, uploads, CurrentUser(r).Username, input.Target)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to store attachment", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string][]models.Attachment{"attachments": attachments})
}

// AppendActivityHandler handles POST /api/tenders/{tenderId}/activity.
func (h *Handler) AppendActivityHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "tenders") {
		return
	}
	id := chi.URLParam(r, "tenderId")

	var entry models.TimelineEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if entry.Action == "" && entry.Note == "" {
		http.Error(w, "action or note is required", http.StatusBadRequest)
		return
	}
	if entry.Actor == "" {
		entry.Actor = CurrentUser(r).Username
	}
	tender, err := h.Store.AppendTenderActivity(r.Context(), id, entry)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "tender not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to append activity", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tender)
}

// ExportTendersHandler handles GET /api/tenders/export. Query params: the
// tender list filters plus columns (comma separated ids) and locale.
func (h *Handler) ExportTendersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.TenderFilters{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Owner:  q.Get("owner"),
		Search: strings.TrimSpace(q.Get("search")),
	}
	tenders, err := h.Store.ListTenders(r.Context(), filters)
	if err != nil {
		http.Error(w, "Failed to get tenders", http.StatusInternalServerError)
		return
	}
	var columns []string
	if raw := q.Get("columns"); raw != "" {
		columns = strings.Split(raw, ",")
	}
	filename := fmt.Sprintf("tenders_%s.csv", time.Now().UTC().Format("20060102150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := export.WriteTenders(w, tenders, columns, q.Get("locale")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
}
