package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tenderportal/db"
	"tenderportal/models"
)

func intParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// ListProjectsHandler handles GET /api/projects with optional status,
// payment_status and manager filters.
func (h *Handler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.ProjectFilters{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
	}
	if raw := q.Get("manager_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			filters.ManagerID = id
		}
	}
	projects, err := h.Store.ListProjects(r.Context(), filters)
	if err != nil {
		http.Error(w, "Failed to get projects", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"projects": projects,
		"statuses": models.ProjectStatuses,
	})
}

func (h *Handler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "projects") {
		return
	}
	var project models.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if project.TenderID == "" || project.NameEn == "" {
		http.Error(w, "tender_id and name_en are required", http.StatusBadRequest)
		return
	}
	if err := h.Store.CreateProject(r.Context(), &project); err != nil {
		http.Error(w, "Failed to create project", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(project)
}

// GetProjectHandler returns the project with its supplier ids and invoices.
func (h *Handler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "projectId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	project, err := h.Store.GetProject(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get project", http.StatusInternalServerError)
		return
	}
	suppliers, err := h.Store.ListProjectSuppliers(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get project suppliers", http.StatusInternalServerError)
		return
	}
	invoices, err := h.Store.ListInvoices(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get invoices", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"project":   project,
		"suppliers": suppliers,
		"invoices":  invoices,
	})
}

func (h *Handler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "projects") {
		return
	}
	id, err := intParam(r, "projectId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	project, err := h.Store.GetProject(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get project", http.StatusInternalServerError)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(project); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	project.ID = id
	if err := h.Store.UpdateProject(r.Context(), project); err != nil {
		http.Error(w, "Failed to update project", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

func (h *Handler) AssignSuppliersHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "projects") {
		return
	}
	id, err := intParam(r, "projectId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var input struct {
		SupplierIDs []int `json:"supplier_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if err := h.Store.AssignProjectSuppliers(r.Context(), id, input.SupplierIDs); err != nil {
		http.Error(w, "Failed to assign suppliers", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

// Invoices

func (h *Handler) CreateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "finance") {
		return
	}
	id, err := intParam(r, "projectId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var invoice models.Invoice
	if err := json.NewDecoder(r.Body).Decode(&invoice); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	invoice.ProjectID = id
	if invoice.Status == "" {
		invoice.Status = "unpaid"
	}
	if err := h.Store.AddInvoice(r.Context(), &invoice); err != nil {
		http.Error(w, "Failed to create invoice", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invoice)
}

func (h *Handler) UpdateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "finance") {
		return
	}
	id, err := intParam(r, "invoiceId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	invoice, err := h.Store.GetInvoice(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "invoice not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get invoice", http.StatusInternalServerError)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(invoice); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	invoice.ID = id
	if err := h.Store.UpdateInvoice(r.Context(), invoice); err != nil {
		http.Error(w, "Failed to update invoice", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoice)
}

// Suppliers

func (h *Handler) ListSuppliersHandler(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Store.ListSuppliers(r.Context())
	if err != nil {
		http.Error(w, "Failed to get suppliers", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]models.Supplier{"suppliers": suppliers})
}

func (h *Handler) CreateSupplierHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "suppliers") {
		return
	}
	var supplier models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&supplier); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if supplier.NameEn == "" {
		http.Error(w, "name_en is required", http.StatusBadRequest)
		return
	}
	if err := h.Store.CreateSupplier(r.Context(), &supplier); err != nil {
		http.Error(w, "Failed to create supplier", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(supplier)
}

func (h *Handler) UpdateSupplierHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "suppliers") {
		return
	}
	id, err := intParam(r, "supplierId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	supplier, err := h.Store.GetSupplier(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "supplier not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get supplier", http.StatusInternalServerError)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(supplier); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	supplier.ID = id
	if err := h.Store.UpdateSupplier(r.Context(), supplier); err != nil {
		http.Error(w, "Failed to update supplier", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(supplier)
}

func (h *Handler) DeleteSupplierHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "suppliers") {
		return
	}
	id, err := intParam(r, "supplierId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Store.DeleteSupplier(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete supplier", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
