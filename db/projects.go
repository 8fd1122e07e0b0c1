package db

import (
	"context"
	"database/sql"
	"errors"

	"tenderportal/models"
)

func (s *Storage) CreateProject(ctx context.Context, p *models.Project) error {
	query := `
        INSERT INTO projects
            (tender_id, name_en, name_ar, start_date, end_date, status, currency, contract_value,
             cost, exchange_rate, amount_received, amount_invoiced, profit_local, payment_status,
             guarantee_value, guarantee_start, guarantee_end, guarantee_retained, notes, manager_id)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
        RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		p.TenderID, p.NameEn, p.NameAr, p.StartDate, p.EndDate, p.Status, p.Currency,
		p.ContractValue, p.Cost, p.ExchangeRate, p.AmountReceived, p.AmountInvoiced,
		p.ProfitLocal, p.PaymentStatus, p.GuaranteeValue, p.GuaranteeStart, p.GuaranteeEnd,
		p.GuaranteeRetained, p.Notes, p.ManagerID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	s.notifyChange(ctx, "projects")
	return nil
}

func (s *Storage) GetProject(ctx context.Context, id int) (*models.Project, error) {
	p := &models.Project{}
	query := `SELECT * FROM projects WHERE id=$1`
	err := s.db.GetContext(ctx, p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Storage) UpdateProject(ctx context.Context, p *models.Project) error {
	query := `
        UPDATE projects
        SET name_en=$1, name_ar=$2, start_date=$3, end_date=$4, status=$5, currency=$6,
            contract_value=$7, cost=$8, exchange_rate=$9, amount_received=$10,
            amount_invoiced=$11, profit_local=$12, payment_status=$13, guarantee_value=$14,
            guarantee_start=$15, guarantee_end=$16, guarantee_retained=$17, notes=$18,
            manager_id=$19, updated_at=NOW()
        WHERE id=$20`
	res, err := s.db.ExecContext(ctx, query,
		p.NameEn, p.NameAr, p.StartDate, p.EndDate, p.Status, p.Currency,
		p.ContractValue, p.Cost, p.ExchangeRate, p.AmountReceived, p.AmountInvoiced,
		p.ProfitLocal, p.PaymentStatus, p.GuaranteeValue, p.GuaranteeStart, p.GuaranteeEnd,
		p.GuaranteeRetained, p.Notes, p.ManagerID, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notifyChange(ctx, "projects")
	return nil
}

func (s *Storage) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]models.Project, error) {
	projects := []models.Project{}
	query := `
        SELECT * FROM projects
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR payment_status = $2)
          AND ($3 = 0 OR manager_id = $3)
        ORDER BY end_date = '', end_date ASC`
	err := s.db.SelectContext(ctx, &projects, query,
		filters.Status, filters.PaymentStatus, filters.ManagerID)
	return projects, err
}

func (s *Storage) AssignProjectSuppliers(ctx context.Context, projectID int, supplierIDs []int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_suppliers WHERE project_id=$1`, projectID); err != nil {
		return err
	}
	for _, supplierID := range supplierIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO project_suppliers (project_id, supplier_id) VALUES ($1, $2)`,
			projectID, supplierID)
		if err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notifyChange(ctx, "projects")
	return nil
}

func (s *Storage) ListProjectSuppliers(ctx context.Context, projectID int) ([]int, error) {
	ids := []int{}
	query := `SELECT supplier_id FROM project_suppliers WHERE project_id=$1 ORDER BY supplier_id`
	err := s.db.SelectContext(ctx, &ids, query, projectID)
	return ids, err
}

// Invoices

func (s *Storage) AddInvoice(ctx context.Context, inv *models.Invoice) error {
	query := `
        INSERT INTO invoices (project_id, amount, currency, due_date, paid_date, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		inv.ProjectID, inv.Amount, inv.Currency, inv.DueDate, inv.PaidDate, inv.Status, inv.Notes).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return err
	}
	s.notifyChange(ctx, "invoices")
	return nil
}

func (s *Storage) ListInvoices(ctx context.Context, projectID int) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	query := `SELECT * FROM invoices WHERE project_id=$1 ORDER BY due_date ASC`
	err := s.db.SelectContext(ctx, &invoices, query, projectID)
	return invoices, err
}

func (s *Storage) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	inv := &models.Invoice{}
	query := `SELECT * FROM invoices WHERE id=$1`
	err := s.db.GetContext(ctx, inv, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

func (s *Storage) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	query := `
        UPDATE invoices
        SET amount=$1, currency=$2, due_date=$3, paid_date=$4, status=$5, notes=$6
        WHERE id=$7`
	res, err := s.db.ExecContext(ctx, query,
		inv.Amount, inv.Currency, inv.DueDate, inv.PaidDate, inv.Status, inv.Notes, inv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notifyChange(ctx, "invoices")
	return nil
}

// ListOverdueInvoices returns unpaid invoices due before asOf (ISO date),
// joined with the project names used in notification texts.
func (s *Storage) ListOverdueInvoices(ctx context.Context, asOf string) ([]models.InvoiceWithProject, error) {
	invoices := []models.InvoiceWithProject{}
	query := `
        SELECT i.*, p.name_en AS project_name_en, p.name_ar AS project_name_ar
        FROM invoices i
        JOIN projects p ON i.project_id = p.id
        WHERE i.status != 'paid' AND i.due_date != '' AND i.due_date < $1
        ORDER BY i.due_date ASC`
	err := s.db.SelectContext(ctx, &invoices, query, asOf)
	return invoices, err
}
