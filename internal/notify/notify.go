// Package notify derives the portal's alert notifications from the current
// data: tenders about to close, overdue invoices and guarantees nearing
// expiry. Generation is idempotent, each rule writes under a stable unique
// key.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tenderportal/models"
)

const (
	closingWindowDays   = 5
	guaranteeWindowDays = 10
)

// Store is the storage subset the generator reads from and writes to.
type Store interface {
	ListTenders(ctx context.Context, filters models.TenderFilters) ([]models.Tender, error)
	ListProjects(ctx context.Context, filters models.ProjectFilters) ([]models.Project, error)
	ListOverdueInvoices(ctx context.Context, asOf string) ([]models.InvoiceWithProject, error)
	EnsureNotification(ctx context.Context, n models.Notification) error
}

// Generate runs all notification rules against the store as of now.
func Generate(ctx context.Context, store Store, now time.Time) error {
	today := now.UTC().Truncate(24 * time.Hour)

	if err := tenderDeadlines(ctx, store, today); err != nil {
		return fmt.Errorf("tender deadlines: %w", err)
	}
	if err := overdueInvoices(ctx, store, today); err != nil {
		return fmt.Errorf("overdue invoices: %w", err)
	}
	if err := guaranteeExpiries(ctx, store, today); err != nil {
		return fmt.Errorf("guarantee expiries: %w", err)
	}
	return nil
}

func tenderDeadlines(ctx context.Context, store Store, today time.Time) error {
	tenders, err := store.ListTenders(ctx, models.TenderFilters{})
	if err != nil {
		return err
	}
	for _, t := range tenders {
		if t.Status != models.StatusPreparing && t.Status != models.StatusSubmitted {
			continue
		}
		days, ok := daysUntil(today, t.SubmissionDeadline)
		if !ok || days < 0 || days > closingWindowDays {
			continue
		}
		title := t.TitleAr
		if title == "" {
			title = t.Title
		}
		n := models.Notification{
			UniqueKey:   "tender_close_" + t.ID,
			TitleEn:     "Tender closing soon",
			TitleAr:     "إقتراب إقفال مناقصة",
			MessageEn:   fmt.Sprintf("Tender %s closes in %d day(s).", t.Title, days),
			MessageAr:   fmt.Sprintf("المناقصة %s تغلق خلال %d يوم", title, days),
			Level:       "warning",
			TargetRole:  "procurement",
			RelatedType: "tender",
			RelatedID:   t.ID,
		}
		if err := store.EnsureNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func overdueInvoices(ctx context.Context, store Store, today time.Time) error {
	invoices, err := store.ListOverdueInvoices(ctx, today.Format("2006-01-02"))
	if err != nil {
		return err
	}
	for _, inv := range invoices {
		name := inv.ProjectNameAr
		if name == "" {
			name = inv.ProjectNameEn
		}
		n := models.Notification{
			UniqueKey:   "invoice_due_" + strconv.Itoa(inv.ID),
			TitleEn:     "Invoice overdue",
			TitleAr:     "فاتورة متأخرة",
			MessageEn:   fmt.Sprintf("Invoice for project %s is overdue since %s.", inv.ProjectNameEn, inv.DueDate),
			MessageAr:   fmt.Sprintf("فاتورة مشروع %s متأخرة منذ %s.", name, inv.DueDate),
			Level:       "danger",
			TargetRole:  "finance",
			RelatedType: "invoice",
			RelatedID:   strconv.Itoa(inv.ID),
		}
		if err := store.EnsureNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func guaranteeExpiries(ctx context.Context, store Store, today time.Time) error {
	projects, err := store.ListProjects(ctx, models.ProjectFilters{})
	if err != nil {
		return err
	}
	for _, p := range projects {
		days, ok := daysUntil(today, p.GuaranteeEnd)
		if !ok || days < 0 || days > guaranteeWindowDays {
			continue
		}
		name := p.NameAr
		if name == "" {
			name = p.NameEn
		}
		n := models.Notification{
			UniqueKey:   "guarantee_due_" + strconv.Itoa(p.ID),
			TitleEn:     "Guarantee expiring",
			TitleAr:     "استحقاق الضمان",
			MessageEn:   fmt.Sprintf("Guarantee for project %s expires in %d day(s).", p.NameEn, days),
			MessageAr:   fmt.Sprintf("ضمان مشروع %s ينتهي خلال %d يوم", name, days),
			Level:       "info",
			TargetRole:  "project_manager",
			RelatedType: "project",
			RelatedID:   strconv.Itoa(p.ID),
		}
		if err := store.EnsureNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// daysUntil parses an ISO date and returns whole days from today. Malformed
// or empty dates are skipped, not errors.
func daysUntil(today time.Time, date string) (int, bool) {
	if date == "" {
		return 0, false
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, false
	}
	return int(d.Sub(today).Hours() / 24), true
}
