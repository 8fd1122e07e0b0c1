package db

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tenderportal/internal/merge"
	"tenderportal/models"
)

// MemStorage is the in-memory storage used when no Postgres connection is
// configured (demo mode) and by store-level tests. It keeps the whole
// snapshot in maps behind one RWMutex and mirrors the Postgres
// implementation's change notifications through registered callbacks.
type MemStorage struct {
	mu        sync.RWMutex
	uploadDir string

	tenders          map[string]models.Tender
	suppliers        map[int]models.Supplier
	projects         map[int]models.Project
	projectSuppliers map[int][]int
	invoices         map[int]models.Invoice
	notifications    map[string]models.Notification
	users            map[string]models.User

	nextSupplierID     int
	nextProjectID      int
	nextInvoiceID      int
	nextNotificationID int
	nextUserID         int

	subMu       sync.Mutex
	subscribers map[int]func(scope string)
	nextSubID   int
}

func NewMemStorage(uploadDir string) *MemStorage {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &MemStorage{
		uploadDir:        uploadDir,
		tenders:          map[string]models.Tender{},
		suppliers:        map[int]models.Supplier{},
		projects:         map[int]models.Project{},
		projectSuppliers: map[int][]int{},
		invoices:         map[int]models.Invoice{},
		notifications:    map[string]models.Notification{},
		users:            map[string]models.User{},
		subscribers:      map[int]func(string){},
	}
}

// Subscribe registers a callback invoked after every mutation with the
// mutated scope. The returned function cancels the subscription.
func (m *MemStorage) Subscribe(fn func(scope string)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *MemStorage) notifyChange(scope string) {
	m.subMu.Lock()
	subs := make([]func(string), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(scope)
	}
}

// Users

func (m *MemStorage) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	if _, ok := m.users[u.Username]; ok {
		m.mu.Unlock()
		return fmt.Errorf("username %q already exists", u.Username)
	}
	m.nextUserID++
	u.ID = m.nextUserID
	u.CreatedAt = time.Now().UTC()
	m.users[u.Username] = *u
	m.mu.Unlock()
	m.notifyChange("users")
	return nil
}

func (m *MemStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// Tenders

func (m *MemStorage) ListTenders(ctx context.Context, filters models.TenderFilters) ([]models.Tender, error) {
	m.mu.RLock()
	now := time.Now().UTC()
	tenders := make([]models.Tender, 0, len(m.tenders))
	for _, t := range m.tenders {
		t = merge.Upgrade(t, now)
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if filters.Type != "" && t.Type != filters.Type {
			continue
		}
		if filters.Owner != "" && t.Owner != filters.Owner {
			continue
		}
		if filters.Search != "" && !matchesSearch(t, filters.Search) {
			continue
		}
		tenders = append(tenders, t)
	}
	m.mu.RUnlock()
	sort.Slice(tenders, func(i, j int) bool {
		return tenders[i].CreatedAt.After(tenders[j].CreatedAt)
	})
	return tenders, nil
}

func (m *MemStorage) LatestTenders(ctx context.Context, limit int) ([]models.Tender, error) {
	tenders, err := m.ListTenders(ctx, models.TenderFilters{})
	if err != nil {
		return nil, err
	}
	if len(tenders) > limit {
		tenders = tenders[:limit]
	}
	return tenders, nil
}

func (m *MemStorage) GetTender(ctx context.Context, id string) (*models.Tender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenders[id]
	if !ok {
		return nil, ErrNotFound
	}
	t = merge.Upgrade(t, time.Now().UTC())
	return &t, nil
}

func (m *MemStorage) SaveTender(ctx context.Context, patch models.TenderPatch) (*models.Tender, error) {
	m.mu.Lock()
	var existing *models.Tender
	if patch.ID != "" {
		if t, ok := m.tenders[patch.ID]; ok {
			existing = &t
		}
	}
	merged, err := merge.Apply(existing, patch, time.Now().UTC())
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.tenders[merged.ID] = merged
	m.mu.Unlock()
	m.notifyChange("tenders")
	return &merged, nil
}

func (m *MemStorage) DeleteTender(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.tenders[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.tenders, id)
	m.mu.Unlock()
	m.notifyChange("tenders")
	return nil
}

func (m *MemStorage) UploadTenderAttachment(ctx context.Context, id string, uploads []models.FileUpload, uploader, target string) ([]models.Attachment, error) {
	now := time.Now().UTC()
	var result []models.Attachment
	for _, f := range uploads {
		t, err := m.GetTender(ctx, id)
		if err != nil {
			return nil, err
		}
		att, err := storeUpload(m.uploadDir, id, f, uploader, now)
		if err != nil {
			return nil, err
		}
		patch, updated, err := attachTo(t, att, target)
		if err != nil {
			return nil, err
		}
		if _, err := m.SaveTender(ctx, patch); err != nil {
			return nil, err
		}
		result = updated
	}
	return result, nil
}

func (m *MemStorage) AppendTenderActivity(ctx context.Context, id string, entry models.TimelineEntry) (*models.Tender, error) {
	t, err := m.GetTender(ctx, id)
	if err != nil {
		return nil, err
	}
	timeline := appendActivity(t.Timeline, entry, time.Now().UTC())
	return m.SaveTender(ctx, models.TenderPatch{ID: id, Timeline: &timeline})
}

// Suppliers

func (m *MemStorage) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	m.mu.RLock()
	suppliers := make([]models.Supplier, 0, len(m.suppliers))
	for _, sp := range m.suppliers {
		suppliers = append(suppliers, sp)
	}
	m.mu.RUnlock()
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].NameEn < suppliers[j].NameEn })
	return suppliers, nil
}

func (m *MemStorage) CreateSupplier(ctx context.Context, sp *models.Supplier) error {
	m.mu.Lock()
	m.nextSupplierID++
	sp.ID = m.nextSupplierID
	sp.CreatedAt = time.Now().UTC()
	m.suppliers[sp.ID] = *sp
	m.mu.Unlock()
	m.notifyChange("suppliers")
	return nil
}

func (m *MemStorage) GetSupplier(ctx context.Context, id int) (*models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sp, nil
}

func (m *MemStorage) UpdateSupplier(ctx context.Context, sp *models.Supplier) error {
	m.mu.Lock()
	if _, ok := m.suppliers[sp.ID]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.suppliers[sp.ID] = *sp
	m.mu.Unlock()
	m.notifyChange("suppliers")
	return nil
}

func (m *MemStorage) DeleteSupplier(ctx context.Context, id int) error {
	m.mu.Lock()
	delete(m.suppliers, id)
	m.mu.Unlock()
	m.notifyChange("suppliers")
	return nil
}

// Projects

func (m *MemStorage) CreateProject(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	m.nextProjectID++
	p.ID = m.nextProjectID
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.projects[p.ID] = *p
	m.mu.Unlock()
	m.notifyChange("projects")
	return nil
}

func (m *MemStorage) GetProject(ctx context.Context, id int) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemStorage) UpdateProject(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	if _, ok := m.projects[p.ID]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	m.projects[p.ID] = *p
	m.mu.Unlock()
	m.notifyChange("projects")
	return nil
}

func (m *MemStorage) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]models.Project, error) {
	m.mu.RLock()
	projects := make([]models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		if filters.PaymentStatus != "" && p.PaymentStatus != filters.PaymentStatus {
			continue
		}
		if filters.ManagerID != 0 && p.ManagerID != filters.ManagerID {
			continue
		}
		projects = append(projects, p)
	}
	m.mu.RUnlock()
	sort.Slice(projects, func(i, j int) bool { return endDateKey(projects[i]) < endDateKey(projects[j]) })
	return projects, nil
}

func (m *MemStorage) AssignProjectSuppliers(ctx context.Context, projectID int, supplierIDs []int) error {
	m.mu.Lock()
	ids := append([]int{}, supplierIDs...)
	sort.Ints(ids)
	m.projectSuppliers[projectID] = ids
	m.mu.Unlock()
	m.notifyChange("projects")
	return nil
}

func (m *MemStorage) ListProjectSuppliers(ctx context.Context, projectID int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int{}, m.projectSuppliers[projectID]...), nil
}

// Invoices

func (m *MemStorage) AddInvoice(ctx context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	m.nextInvoiceID++
	inv.ID = m.nextInvoiceID
	inv.CreatedAt = time.Now().UTC()
	m.invoices[inv.ID] = *inv
	m.mu.Unlock()
	m.notifyChange("invoices")
	return nil
}

func (m *MemStorage) ListInvoices(ctx context.Context, projectID int) ([]models.Invoice, error) {
	m.mu.RLock()
	invoices := []models.Invoice{}
	for _, inv := range m.invoices {
		if inv.ProjectID == projectID {
			invoices = append(invoices, inv)
		}
	}
	m.mu.RUnlock()
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].DueDate < invoices[j].DueDate })
	return invoices, nil
}

func (m *MemStorage) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (m *MemStorage) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	if _, ok := m.invoices[inv.ID]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.invoices[inv.ID] = *inv
	m.mu.Unlock()
	m.notifyChange("invoices")
	return nil
}

func (m *MemStorage) ListOverdueInvoices(ctx context.Context, asOf string) ([]models.InvoiceWithProject, error) {
	m.mu.RLock()
	overdue := []models.InvoiceWithProject{}
	for _, inv := range m.invoices {
		if inv.Status == "paid" || inv.DueDate == "" || inv.DueDate >= asOf {
			continue
		}
		p := m.projects[inv.ProjectID]
		overdue = append(overdue, models.InvoiceWithProject{
			Invoice:       inv,
			ProjectNameEn: p.NameEn,
			ProjectNameAr: p.NameAr,
		})
	}
	m.mu.RUnlock()
	sort.Slice(overdue, func(i, j int) bool { return overdue[i].DueDate < overdue[j].DueDate })
	return overdue, nil
}

// Notifications

func (m *MemStorage) EnsureNotification(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	if _, ok := m.notifications[n.UniqueKey]; ok {
		m.mu.Unlock()
		return nil
	}
	m.nextNotificationID++
	n.ID = m.nextNotificationID
	n.CreatedAt = time.Now().UTC()
	m.notifications[n.UniqueKey] = n
	m.mu.Unlock()
	m.notifyChange("notifications")
	return nil
}

func (m *MemStorage) ListNotifications(ctx context.Context, role string) ([]models.Notification, error) {
	m.mu.RLock()
	notifications := []models.Notification{}
	for _, n := range m.notifications {
		if n.TargetRole == role {
			notifications = append(notifications, n)
		}
	}
	m.mu.RUnlock()
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID > notifications[j].ID })
	return notifications, nil
}

func (m *MemStorage) MarkNotificationRead(ctx context.Context, id int) error {
	m.mu.Lock()
	for key, n := range m.notifications {
		if n.ID == id {
			n.IsRead = true
			m.notifications[key] = n
			m.mu.Unlock()
			m.notifyChange("notifications")
			return nil
		}
	}
	m.mu.Unlock()
	return ErrNotFound
}

// Reports

func (m *MemStorage) TenderSummary(ctx context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := map[string]float64{}
	total := 0.0
	for _, t := range m.tenders {
		summary[t.Status]++
		total += t.EstimatedValue
	}
	summary["total_estimated"] = total
	return summary, nil
}

func (m *MemStorage) ProjectSummary(ctx context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := map[string]float64{}
	profit := 0.0
	for _, p := range m.projects {
		summary[p.PaymentStatus]++
		profit += p.ProfitLocal
	}
	summary["total_profit"] = profit
	return summary, nil
}

func (m *MemStorage) FinancialPipeline(ctx context.Context) (models.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pipeline models.Pipeline
	for _, inv := range m.invoices {
		if inv.Status != "paid" {
			pipeline.OutstandingInvoices += inv.Amount
		}
	}
	for _, p := range m.projects {
		pipeline.AmountReceived += p.AmountReceived
		pipeline.AmountInvoiced += p.AmountInvoiced
	}
	return pipeline, nil
}

func (m *MemStorage) CalendarItems(ctx context.Context, withinDays int) ([]models.CalendarItem, error) {
	today := time.Now().UTC().Format("2006-01-02")
	end := time.Now().UTC().AddDate(0, 0, withinDays).Format("2006-01-02")

	m.mu.RLock()
	items := []models.CalendarItem{}
	for _, t := range m.tenders {
		if t.SubmissionDeadline != "" && t.SubmissionDeadline >= today && t.SubmissionDeadline <= end {
			items = append(items, models.CalendarItem{
				Type: "tender", ID: t.ID, TitleEn: t.Title, TitleAr: t.TitleAr,
				Date: t.SubmissionDeadline,
			})
		}
	}
	for _, p := range m.projects {
		if p.GuaranteeEnd != "" && p.GuaranteeEnd >= today && p.GuaranteeEnd <= end {
			items = append(items, models.CalendarItem{
				Type: "project", ID: strconv.Itoa(p.ID), TitleEn: p.NameEn, TitleAr: p.NameAr,
				Date: p.GuaranteeEnd,
			})
		}
	}
	m.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Date < items[j].Date })
	return items, nil
}

func (m *MemStorage) ProjectsAtRisk(ctx context.Context, limit int) ([]models.ProjectRisk, error) {
	m.mu.RLock()
	now := time.Now().UTC()
	risks := []models.ProjectRisk{}
	for _, p := range m.projects {
		t := m.tenders[p.TenderID]
		risks = append(risks, models.ProjectRisk{
			Project:       p,
			TenderTitleEn: t.Title,
			TenderTitleAr: t.TitleAr,
			Flags:         models.RiskFlags(p, now),
		})
	}
	m.mu.RUnlock()
	sort.Slice(risks, func(i, j int) bool {
		if a, b := paymentRank(risks[i].PaymentStatus), paymentRank(risks[j].PaymentStatus); a != b {
			return a < b
		}
		return endDateKey(risks[i].Project) < endDateKey(risks[j].Project)
	})
	if len(risks) > limit {
		risks = risks[:limit]
	}
	return risks, nil
}

func paymentRank(status string) int {
	switch status {
	case "delayed":
		return 0
	case "unpaid":
		return 1
	default:
		return 2
	}
}

// endDateKey sorts projects without an end date last.
func endDateKey(p models.Project) string {
	if p.EndDate == "" {
		return "~"
	}
	return p.EndDate
}

func matchesSearch(t models.Tender, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{t.Title, t.TitleAr, t.Reference} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
