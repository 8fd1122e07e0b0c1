package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tenderportal/db"
	"tenderportal/internal/notify"
	"tenderportal/models"
)

const (
	calendarWindowDays = 45
	recentTenderLimit  = 5
	atRiskLimit        = 6
)

// SummaryHandler handles GET /api/reports/summary. Notifications are
// regenerated first so the dashboard reflects the current data.
func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkArea(w, r, "reports") {
		return
	}
	ctx := r.Context()
	if err := notify.Generate(ctx, h.Store, time.Now().UTC()); err != nil {
		http.Error(w, "Failed to generate notifications", http.StatusInternalServerError)
		return
	}
	tenders, err := h.Store.TenderSummary(ctx)
	if err != nil {
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	projects, err := h.Store.ProjectSummary(ctx)
	if err != nil {
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	finance, err := h.Store.FinancialPipeline(ctx)
	if err != nil {
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	calendar, err := h.Store.CalendarItems(ctx, calendarWindowDays)
	if err != nil {
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	recent, err := h.Store.LatestTenders(ctx, recentTenderLimit)
	if err != nil {
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	atRisk, err := h.Store.ProjectsAtRisk(ctx, atRiskLimit)
	if err != nil {
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tenders":          tenders,
		"projects":         projects,
		"finance":          finance,
		"calendar":         calendar,
		"recent_tenders":   recent,
		"at_risk_projects": atRisk,
	})
}

// NotificationsHandler handles GET /api/notifications for the current user's
// role.
func (h *Handler) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := notify.Generate(ctx, h.Store, time.Now().UTC()); err != nil {
		http.Error(w, "Failed to generate notifications", http.StatusInternalServerError)
		return
	}
	notifications, err := h.Store.ListNotifications(ctx, CurrentUser(r).Role)
	if err != nil {
		http.Error(w, "Failed to get notifications", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]models.Notification{"notifications": notifications})
}

func (h *Handler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "notificationId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Store.MarkNotificationRead(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to mark notification", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "read"})
}
