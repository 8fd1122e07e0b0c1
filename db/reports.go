package db

import (
	"context"
	"sort"
	"time"

	"tenderportal/models"
)

// TenderSummary returns per-status counts plus the total estimated value
// under the key "total_estimated".
func (s *Storage) TenderSummary(ctx context.Context) (map[string]float64, error) {
	rows := []struct {
		Status string  `db:"status"`
		Count  float64 `db:"count"`
		Total  float64 `db:"total"`
	}{}
	query := `
        SELECT doc->>'status' AS status, COUNT(*) AS count,
               COALESCE(SUM((doc->>'estimatedValue')::numeric), 0) AS total
        FROM tenders
        GROUP BY doc->>'status'`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	summary := map[string]float64{}
	total := 0.0
	for _, row := range rows {
		summary[row.Status] = row.Count
		total += row.Total
	}
	summary["total_estimated"] = total
	return summary, nil
}

// ProjectSummary returns per-payment-status counts plus "total_profit".
func (s *Storage) ProjectSummary(ctx context.Context) (map[string]float64, error) {
	rows := []struct {
		PaymentStatus string  `db:"payment_status"`
		Count         float64 `db:"count"`
		Profit        float64 `db:"profit"`
	}{}
	query := `
        SELECT payment_status, COUNT(*) AS count, COALESCE(SUM(profit_local), 0) AS profit
        FROM projects
        GROUP BY payment_status`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	summary := map[string]float64{}
	profit := 0.0
	for _, row := range rows {
		summary[row.PaymentStatus] = row.Count
		profit += row.Profit
	}
	summary["total_profit"] = profit
	return summary, nil
}

func (s *Storage) FinancialPipeline(ctx context.Context) (models.Pipeline, error) {
	var p models.Pipeline
	err := s.db.GetContext(ctx, &p.OutstandingInvoices,
		`SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status != 'paid'`)
	if err != nil {
		return p, err
	}
	err = s.db.GetContext(ctx, &p.AmountReceived,
		`SELECT COALESCE(SUM(amount_received), 0) FROM projects`)
	if err != nil {
		return p, err
	}
	err = s.db.GetContext(ctx, &p.AmountInvoiced,
		`SELECT COALESCE(SUM(amount_invoiced), 0) FROM projects`)
	return p, err
}

// CalendarItems merges upcoming tender deadlines and guarantee expiries
// within the window, sorted by date.
func (s *Storage) CalendarItems(ctx context.Context, withinDays int) ([]models.CalendarItem, error) {
	today := time.Now().UTC().Format("2006-01-02")
	end := time.Now().UTC().AddDate(0, 0, withinDays).Format("2006-01-02")

	items := []models.CalendarItem{}
	tenderQuery := `
        SELECT 'tender' AS type, id, doc->>'title' AS title_en,
               doc->>'titleAr' AS title_ar, doc->>'submissionDeadline' AS date
        FROM tenders
        WHERE doc->>'submissionDeadline' != '' AND doc->>'submissionDeadline' BETWEEN $1 AND $2`
	if err := s.db.SelectContext(ctx, &items, tenderQuery, today, end); err != nil {
		return nil, err
	}
	projectItems := []models.CalendarItem{}
	projectQuery := `
        SELECT 'project' AS type, id::text AS id, name_en AS title_en,
               name_ar AS title_ar, guarantee_end AS date
        FROM projects
        WHERE guarantee_end != '' AND guarantee_end BETWEEN $1 AND $2`
	if err := s.db.SelectContext(ctx, &projectItems, projectQuery, today, end); err != nil {
		return nil, err
	}
	items = append(items, projectItems...)
	sort.Slice(items, func(i, j int) bool { return items[i].Date < items[j].Date })
	return items, nil
}

// ProjectsAtRisk orders projects by payment trouble then closest end date and
// annotates each with its risk flags.
func (s *Storage) ProjectsAtRisk(ctx context.Context, limit int) ([]models.ProjectRisk, error) {
	risks := []models.ProjectRisk{}
	query := `
        SELECT p.*, t.doc->>'title' AS tender_title_en, t.doc->>'titleAr' AS tender_title_ar
        FROM projects p
        JOIN tenders t ON p.tender_id = t.id
        ORDER BY
            CASE p.payment_status WHEN 'delayed' THEN 0 WHEN 'unpaid' THEN 1 ELSE 2 END,
            p.end_date = '',
            p.end_date ASC
        LIMIT $1`
	if err := s.db.SelectContext(ctx, &risks, query, limit); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range risks {
		risks[i].Flags = models.RiskFlags(risks[i].Project, now)
	}
	return risks, nil
}
