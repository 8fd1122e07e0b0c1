package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenderportal/internal/auth"
	"tenderportal/models"
)

// SeedStore is the subset of storage methods the demo bootstrap needs.
// Both Storage and MemStorage satisfy it.
type SeedStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	ListTenders(ctx context.Context, filters models.TenderFilters) ([]models.Tender, error)
	SaveTender(ctx context.Context, patch models.TenderPatch) (*models.Tender, error)
	CreateSupplier(ctx context.Context, sp *models.Supplier) error
	CreateProject(ctx context.Context, p *models.Project) error
	AssignProjectSuppliers(ctx context.Context, projectID int, supplierIDs []int) error
	AddInvoice(ctx context.Context, inv *models.Invoice) error
}

// EnsureDefaultUsers creates the role-based demo accounts when missing.
func EnsureDefaultUsers(ctx context.Context, store SeedStore) error {
	defaults := []struct {
		username, password, role, fullName string
	}{
		{"admin", "Admin123!", "admin", "Administrator"},
		{"procurement", "Procure123!", "procurement", "Procurement Officer"},
		{"project", "Project123!", "project_manager", "Project Manager"},
		{"finance", "Finance123!", "finance", "Finance Officer"},
		{"viewer", "Viewer123!", "viewer", "Read Only Viewer"},
	}
	for _, d := range defaults {
		_, err := store.GetUserByUsername(ctx, d.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		hash, err := auth.HashPassword(d.password)
		if err != nil {
			return err
		}
		user := &models.User{
			Username:     d.username,
			FullName:     d.fullName,
			Role:         d.role,
			PasswordHash: hash,
			Language:     "en",
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSampleData populates an empty store with illustrative demo records.
func EnsureSampleData(ctx context.Context, store SeedStore) error {
	existing, err := store.ListTenders(ctx, models.TenderFilters{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	today := time.Now().UTC()
	day := func(offset int) string {
		return today.AddDate(0, 0, offset).Format("2006-01-02")
	}
	str := func(s string) *string { return &s }
	num := func(f float64) *float64 { return &f }
	yes := true

	suppliers := map[string]*models.Supplier{
		"civil": {
			NameEn: "Atlas Construction Group", NameAr: "مجموعة أطلس للبناء",
			ContactName: "Noura El-Fitouri", Email: "noura@atlas.ly",
			Phone: "+218-21-555-1200", Address: "Tripoli, Dahra",
			Notes: "Registered civil works supplier",
		},
		"logistics": {
			NameEn: "Oasis Logistics", NameAr: "واحة للخدمات اللوجستية",
			ContactName: "Khaled Al-Hariri", Email: "khaled@oasislogistics.ly",
			Phone: "+218-92-777-4343", Address: "Benghazi, Port Road",
			Notes: "Fleet and customs clearance",
		},
		"it": {
			NameEn: "Green Future Supplies", NameAr: "مستلزمات المستقبل الأخضر",
			ContactName: "Salma Al-Senussi", Email: "salma@greenfuture.ly",
			Phone: "+218-91-888-9988", Address: "Misrata, Industrial Zone",
			Notes: "ICT and solar solutions",
		},
	}
	for _, key := range []string{"civil", "logistics", "it"} {
		if err := store.CreateSupplier(ctx, suppliers[key]); err != nil {
			return err
		}
	}

	tenderPatches := map[string]models.TenderPatch{
		"health": {
			Reference: str("RFP-2023-009"),
			Title:     str("Primary health clinic rehabilitation"),
			TitleAr:   str("تأهيل العيادات الصحية الأولية"),
			Type:      str("RFP"), Agency: str("UNICEF"), Owner: str("procurement"),
			Description:        str("Design, supply and rehabilitation of clinics across Fezzan."),
			DescriptionAr:      str("تصميم وتوريد وتأهيل للعيادات في فزان."),
			Status:             str(models.StatusWon),
			EstimatedValue:     num(320000), Currency: str("USD"),
			SubmissionDeadline: str(day(-45)), IssueDate: str(day(-75)),
		},
		"schools": {
			Reference: str("ITB-2024-014"),
			Title:     str("School rehabilitation Lot 2"),
			TitleAr:   str("تأهيل المدارس - الحزمة الثانية"),
			Type:      str("ITB"), Agency: str("UNDP"), Owner: str("procurement"),
			Description:        str("Construction works for 6 schools in Tripoli and Misrata."),
			DescriptionAr:      str("أعمال صيانة لست مدارس في طرابلس ومصراتة."),
			Status:             str(models.StatusSubmitted),
			EstimatedValue:     num(210000), Currency: str("USD"),
			SubmissionDeadline: str(day(12)), IssueDate: str(day(-15)),
			SpecificationBooks: &[]models.SpecificationBook{{
				Number: "1", Purchased: &yes,
				Cost: 500, Currency: "USD", PurchaseDate: str(day(-14)),
				PurchaseMethod: "bank transfer", Responsible: "procurement",
			}},
		},
		"solar": {
			Reference: str("RFQ-2024-021"),
			Title:     str("Solar hybrid systems for field offices"),
			TitleAr:   str("أنظمة شمسية هجينة للمكاتب الميدانية"),
			Type:      str("RFQ"), Agency: str("IOM"), Owner: str("procurement"),
			Description:        str("Supply and install hybrid power for Sabha and Kufra offices."),
			DescriptionAr:      str("توريد وتركيب طاقة هجينة لمكاتب سبها والكفرة."),
			Status:             str(models.StatusPreparing),
			EstimatedValue:     num(98000), Currency: str("USD"),
			SubmissionDeadline: str(day(28)), IssueDate: str(day(-3)),
			SpecificationBooks: &[]models.SpecificationBook{{
				Number: "1",
			}},
			SiteVisit: &models.SiteVisitPatch{
				Required: &yes, Date: str(day(7)), Assignee: str("procurement"),
			},
		},
		"logistics": {
			Reference: str("RFP-2023-015"),
			Title:     str("Humanitarian logistics framework"),
			TitleAr:   str("إطار الخدمات اللوجستية الإنسانية"),
			Type:      str("RFP"), Agency: str("UNHCR"), Owner: str("procurement"),
			Description:        str("Two-year logistics support services including warehousing and transport."),
			DescriptionAr:      str("خدمات لوجستية لمدة عامين تشمل التخزين والنقل."),
			Status:             str(models.StatusSubmitted),
			EstimatedValue:     num(450000), Currency: str("USD"),
			SubmissionDeadline: str(day(5)), IssueDate: str(day(-20)),
		},
	}
	tenderIDs := map[string]string{}
	for _, key := range []string{"health", "schools", "solar", "logistics"} {
		saved, err := store.SaveTender(ctx, tenderPatches[key])
		if err != nil {
			return fmt.Errorf("seed tender %s: %w", key, err)
		}
		tenderIDs[key] = saved.ID
	}

	projects := []struct {
		key       string
		project   models.Project
		suppliers []string
	}{
		{
			key: "clinic",
			project: models.Project{
				TenderID: tenderIDs["health"],
				NameEn:   "Fezzan clinic network", NameAr: "شبكة العيادات في فزان",
				StartDate: day(-90), EndDate: day(-10),
				Status: "executing", Currency: "LYD",
				ContractValue: 1050000, Cost: 830000, ExchangeRate: 4.8,
				AmountReceived: 520000, AmountInvoiced: 780000, ProfitLocal: 220000,
				PaymentStatus:  "delayed",
				GuaranteeValue: 60000, GuaranteeStart: day(-120), GuaranteeEnd: day(6),
				GuaranteeRetained: 30000,
				Notes:             "Final civil works punch list outstanding in Sabha.",
			},
			suppliers: []string{"civil", "it"},
		},
		{
			key: "schools",
			project: models.Project{
				TenderID: tenderIDs["schools"],
				NameEn:   "Tripoli & Misrata schools lot", NameAr: "حزمة مدارس طرابلس ومصراتة",
				StartDate: day(-35), EndDate: day(95),
				Status: "planning", Currency: "USD",
				ContractValue: 210000, Cost: 156000, ExchangeRate: 4.9,
				AmountReceived: 0, AmountInvoiced: 52000, ProfitLocal: 75000,
				PaymentStatus:  "unpaid",
				GuaranteeValue: 12000, GuaranteeStart: day(-15), GuaranteeEnd: day(130),
				GuaranteeRetained: 6000,
				Notes:             "Bid submitted, awaiting evaluation results.",
			},
			suppliers: []string{"civil"},
		},
	}
	projectIDs := map[string]int{}
	for i := range projects {
		spec := &projects[i]
		if err := store.CreateProject(ctx, &spec.project); err != nil {
			return fmt.Errorf("seed project %s: %w", spec.key, err)
		}
		projectIDs[spec.key] = spec.project.ID
		ids := []int{}
		for _, key := range spec.suppliers {
			ids = append(ids, suppliers[key].ID)
		}
		if err := store.AssignProjectSuppliers(ctx, spec.project.ID, ids); err != nil {
			return err
		}
	}

	invoices := []models.Invoice{
		{ProjectID: projectIDs["clinic"], Amount: 25000, Currency: "USD",
			DueDate: day(-5), Status: "unpaid", Notes: "Second interim certificate awaiting approval."},
		{ProjectID: projectIDs["clinic"], Amount: 18000, Currency: "USD",
			DueDate: day(18), Status: "unpaid", Notes: "Retention release planned post inspection."},
		{ProjectID: projectIDs["schools"], Amount: 52000, Currency: "USD",
			DueDate: day(35), Status: "unpaid", Notes: "Mobilisation invoice issued to UNDP."},
	}
	for i := range invoices {
		if err := store.AddInvoice(ctx, &invoices[i]); err != nil {
			return err
		}
	}
	return nil
}
