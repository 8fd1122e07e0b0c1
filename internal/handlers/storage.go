package handlers

import (
	"context"

	"tenderportal/models"
)

// StorageInterface is implemented by db.Storage and db.MemStorage.
type StorageInterface interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error

	ListTenders(ctx context.Context, filters models.TenderFilters) ([]models.Tender, error)
	LatestTenders(ctx context.Context, limit int) ([]models.Tender, error)
	GetTender(ctx context.Context, id string) (*models.Tender, error)
	SaveTender(ctx context.Context, patch models.TenderPatch) (*models.Tender, error)
	DeleteTender(ctx context.Context, id string) error
	UploadTenderAttachment(ctx context.Context, id string, uploads []models.FileUpload, uploader, target string) ([]models.Attachment, error)
	AppendTenderActivity(ctx context.Context, id string, entry models.TimelineEntry) (*models.Tender, error)

	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	CreateSupplier(ctx context.Context, sp *models.Supplier) error
	GetSupplier(ctx context.Context, id int) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, sp *models.Supplier) error
	DeleteSupplier(ctx context.Context, id int) error

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	ListProjects(ctx context.Context, filters models.ProjectFilters) ([]models.Project, error)
	AssignProjectSuppliers(ctx context.Context, projectID int, supplierIDs []int) error
	ListProjectSuppliers(ctx context.Context, projectID int) ([]int, error)

	AddInvoice(ctx context.Context, inv *models.Invoice) error
	ListInvoices(ctx context.Context, projectID int) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id int) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	ListOverdueInvoices(ctx context.Context, asOf string) ([]models.InvoiceWithProject, error)

	EnsureNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, role string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int) error

	TenderSummary(ctx context.Context) (map[string]float64, error)
	ProjectSummary(ctx context.Context) (map[string]float64, error)
	FinancialPipeline(ctx context.Context) (models.Pipeline, error)
	CalendarItems(ctx context.Context, withinDays int) ([]models.CalendarItem, error)
	ProjectsAtRisk(ctx context.Context, limit int) ([]models.ProjectRisk, error)
}
