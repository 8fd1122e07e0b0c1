package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenderportal/models"
)

type fakeStore struct {
	tenders  []models.Tender
	projects []models.Project
	overdue  []models.InvoiceWithProject
	ensured  []models.Notification
}

func (f *fakeStore) ListTenders(ctx context.Context, filters models.TenderFilters) ([]models.Tender, error) {
	return f.tenders, nil
}

func (f *fakeStore) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]models.Project, error) {
	return f.projects, nil
}

func (f *fakeStore) ListOverdueInvoices(ctx context.Context, asOf string) ([]models.InvoiceWithProject, error) {
	return f.overdue, nil
}

func (f *fakeStore) EnsureNotification(ctx context.Context, n models.Notification) error {
	f.ensured = append(f.ensured, n)
	return nil
}

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func keys(ns []models.Notification) []string {
	out := []string{}
	for _, n := range ns {
		out = append(out, n.UniqueKey)
	}
	return out
}

func TestTenderClosingSoon(t *testing.T) {
	store := &fakeStore{tenders: []models.Tender{
		{ID: "near", Title: "Logistics framework", Status: models.StatusSubmitted, SubmissionDeadline: "2024-06-04"},
		{ID: "far", Title: "Solar systems", Status: models.StatusPreparing, SubmissionDeadline: "2024-07-15"},
		{ID: "closed", Title: "Clinics", Status: models.StatusWon, SubmissionDeadline: "2024-06-02"},
		{ID: "past", Title: "Old tender", Status: models.StatusSubmitted, SubmissionDeadline: "2024-05-20"},
	}}

	require.NoError(t, Generate(context.Background(), store, now))
	require.Equal(t, []string{"tender_close_near"}, keys(store.ensured))

	n := store.ensured[0]
	require.Equal(t, "warning", n.Level)
	require.Equal(t, "procurement", n.TargetRole)
	require.Equal(t, "Tender Logistics framework closes in 3 day(s).", n.MessageEn)
	require.NotEmpty(t, n.MessageAr)
}

func TestOverdueInvoiceNotification(t *testing.T) {
	store := &fakeStore{overdue: []models.InvoiceWithProject{{
		Invoice:       models.Invoice{ID: 7, DueDate: "2024-05-27"},
		ProjectNameEn: "Fezzan clinic network",
		ProjectNameAr: "شبكة العيادات في فزان",
	}}}

	require.NoError(t, Generate(context.Background(), store, now))
	require.Equal(t, []string{"invoice_due_7"}, keys(store.ensured))

	n := store.ensured[0]
	require.Equal(t, "danger", n.Level)
	require.Equal(t, "finance", n.TargetRole)
	require.Contains(t, n.MessageEn, "overdue since 2024-05-27")
	require.Contains(t, n.MessageAr, "شبكة العيادات في فزان")
}

func TestGuaranteeExpiryWindow(t *testing.T) {
	store := &fakeStore{projects: []models.Project{
		{ID: 1, NameEn: "Inside window", GuaranteeEnd: "2024-06-10"},
		{ID: 2, NameEn: "Outside window", GuaranteeEnd: "2024-06-30"},
		{ID: 3, NameEn: "Already expired", GuaranteeEnd: "2024-05-01"},
		{ID: 4, NameEn: "No guarantee"},
	}}

	require.NoError(t, Generate(context.Background(), store, now))
	require.Equal(t, []string{"guarantee_due_1"}, keys(store.ensured))
	require.Equal(t, "project_manager", store.ensured[0].TargetRole)
}

func TestMalformedDatesSkipped(t *testing.T) {
	store := &fakeStore{
		tenders:  []models.Tender{{ID: "bad", Status: models.StatusSubmitted, SubmissionDeadline: "soon"}},
		projects: []models.Project{{ID: 1, GuaranteeEnd: "unknown"}},
	}

	require.NoError(t, Generate(context.Background(), store, now))
	require.Empty(t, store.ensured)
}
