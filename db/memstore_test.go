package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenderportal/models"
)

func strPtr(s string) *string { return &s }

func TestMemSaveTenderCreatesRecord(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	saved, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("Water network extension")})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, models.StatusPreparing, saved.Status)

	got, err := store.GetTender(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, "Water network extension", got.Title)
}

func TestMemSaveTenderMergesIntoExisting(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	saved, err := store.SaveTender(ctx, models.TenderPatch{
		Title:  strPtr("Clinic equipment"),
		Agency: strPtr("Ministry of Health"),
	})
	require.NoError(t, err)

	owner := "fatima"
	updated, err := store.SaveTender(ctx, models.TenderPatch{ID: saved.ID, Owner: &owner})
	require.NoError(t, err)
	require.Equal(t, "fatima", updated.Owner)
	require.Equal(t, "Ministry of Health", updated.Agency)
	require.Equal(t, saved.CreatedAt, updated.CreatedAt)
}

func TestMemListTendersNewestFirst(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	first, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("First")})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("Second")})
	require.NoError(t, err)

	tenders, err := store.ListTenders(ctx, models.TenderFilters{})
	require.NoError(t, err)
	require.Len(t, tenders, 2)
	require.Equal(t, second.ID, tenders[0].ID)
	require.Equal(t, first.ID, tenders[1].ID)
}

func TestMemListTendersFilters(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	won := models.StatusWon
	_, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("Road works, phase 1")})
	require.NoError(t, err)
	saved, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("Generator supply")})
	require.NoError(t, err)
	_, err = store.SaveTender(ctx, models.TenderPatch{ID: saved.ID, Status: &won})
	require.NoError(t, err)

	tenders, err := store.ListTenders(ctx, models.TenderFilters{Status: models.StatusWon})
	require.NoError(t, err)
	require.Len(t, tenders, 1)
	require.Equal(t, saved.ID, tenders[0].ID)

	tenders, err = store.ListTenders(ctx, models.TenderFilters{Search: "generator"})
	require.NoError(t, err)
	require.Len(t, tenders, 1)
}

func TestMemGetTenderNotFound(t *testing.T) {
	store := NewMemStorage(t.TempDir())

	_, err := store.GetTender(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemDeleteTender(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	saved, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("To delete")})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTender(ctx, saved.ID))
	require.ErrorIs(t, store.DeleteTender(ctx, saved.ID), ErrNotFound)
}

func TestMemUploadAttachmentTargets(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	books := []models.SpecificationBook{{ID: "book-1", Number: "1"}}
	saved, err := store.SaveTender(ctx, models.TenderPatch{
		Title:              strPtr("Bridge rehabilitation"),
		SpecificationBooks: &books,
	})
	require.NoError(t, err)

	upload := []models.FileUpload{{Filename: "receipt.pdf", Content: []byte("pdf")}}

	atts, err := store.UploadTenderAttachment(ctx, saved.ID, upload, "admin", "")
	require.NoError(t, err)
	require.Len(t, atts, 1)
	require.Equal(t, "receipt.pdf", atts[0].Filename)

	_, err = store.UploadTenderAttachment(ctx, saved.ID, upload, "admin", "book-1")
	require.NoError(t, err)
	got, err := store.GetTender(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SpecificationBooks[0].Attachment)

	_, err = store.UploadTenderAttachment(ctx, saved.ID, upload, "admin", "no-such-book")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemSubscribeFiresOnChange(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	var scopes []string
	cancel := store.Subscribe(func(scope string) { scopes = append(scopes, scope) })

	_, err := store.SaveTender(ctx, models.TenderPatch{Title: strPtr("Observed")})
	require.NoError(t, err)
	require.Equal(t, []string{"tenders"}, scopes)

	cancel()
	_, err = store.SaveTender(ctx, models.TenderPatch{Title: strPtr("Unobserved")})
	require.NoError(t, err)
	require.Len(t, scopes, 1)
}

func TestMemEnsureNotificationIdempotent(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	n := models.Notification{
		UniqueKey:  "tender_close_abc",
		TitleEn:    "Tender closing soon",
		TargetRole: "procurement",
	}
	require.NoError(t, store.EnsureNotification(ctx, n))
	require.NoError(t, store.EnsureNotification(ctx, n))

	list, err := store.ListNotifications(ctx, "procurement")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.MarkNotificationRead(ctx, list[0].ID))
	list, err = store.ListNotifications(ctx, "procurement")
	require.NoError(t, err)
	require.True(t, list[0].IsRead)
}

func TestMemOverdueInvoices(t *testing.T) {
	store := NewMemStorage(t.TempDir())
	ctx := context.Background()

	project := &models.Project{NameEn: "School build", NameAr: "بناء مدرسة", PaymentStatus: "unpaid"}
	require.NoError(t, store.CreateProject(ctx, project))

	overdue := &models.Invoice{ProjectID: project.ID, Amount: 5000, DueDate: "2024-01-10", Status: "sent"}
	require.NoError(t, store.AddInvoice(ctx, overdue))
	paid := &models.Invoice{ProjectID: project.ID, Amount: 3000, DueDate: "2024-01-05", Status: "paid"}
	require.NoError(t, store.AddInvoice(ctx, paid))

	list, err := store.ListOverdueInvoices(ctx, "2024-02-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, overdue.ID, list[0].ID)
	require.Equal(t, "School build", list[0].ProjectNameEn)
}
