package models

import "time"

// Tender statuses
const (
	StatusPreparing = "preparing"
	StatusSubmitted = "submitted"
	StatusWon       = "won"
	StatusLost      = "lost"
	StatusCancelled = "cancelled"
)

var TenderStatuses = []string{
	StatusPreparing,
	StatusSubmitted,
	StatusWon,
	StatusLost,
	StatusCancelled,
}

var TenderTypes = []string{"RFQ", "ITB", "RFP"}

var ProjectStatuses = []string{"planning", "executing", "completed", "closed"}

var PaymentStatuses = []string{"paid", "unpaid", "delayed"}

// Tender is the full document shape persisted by the store. Every field is
// populated after a merge: empty slices instead of nil, a recomputed pricing
// summary and recomputed alert flags.
type Tender struct {
	ID                  string               `json:"id"`
	Reference           string               `json:"reference"`
	Title               string               `json:"title"`
	TitleAr             string               `json:"titleAr"`
	Type                string               `json:"type"`
	Agency              string               `json:"agency"`
	Owner               string               `json:"owner"`
	Tags                []string             `json:"tags"`
	Description         string               `json:"description"`
	DescriptionAr       string               `json:"descriptionAr"`
	Status              string               `json:"status"`
	StatusReason        string               `json:"statusReason"`
	EstimatedValue      float64              `json:"estimatedValue"`
	Currency            string               `json:"currency"`
	SubmissionDeadline  string               `json:"submissionDeadline"`
	IssueDate           string               `json:"issueDate"`
	SpecificationBooks  []SpecificationBook  `json:"specificationBooks"`
	SiteVisit           *SiteVisit           `json:"siteVisit,omitempty"`
	Pricing             Pricing              `json:"pricing"`
	Alerts              Alerts               `json:"alerts"`
	Proposals           []Proposal           `json:"proposals"`
	Attachments         []Attachment         `json:"attachments"`
	Links               []Link               `json:"links"`
	Timeline            []TimelineEntry      `json:"timeline"`
	SupplierComparisons []SupplierComparison `json:"supplierComparisons"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// SpecificationBook records one tender booklet. Purchased is a pointer
// because records written before the flag existed only carry a purchase date;
// normalization derives and sets the flag on every load.
type SpecificationBook struct {
	ID             string      `json:"id"`
	Number         string      `json:"number"`
	Purchased      *bool       `json:"purchased,omitempty"`
	PurchaseDate   *string     `json:"purchaseDate"`
	Cost           float64     `json:"cost"`
	Currency       string      `json:"currency"`
	PurchaseMethod string      `json:"purchaseMethod"`
	Responsible    string      `json:"responsible"`
	Attachment     *Attachment `json:"attachment"`
}

// IsPurchased resolves the legacy shape: an explicit flag wins, otherwise the
// presence of a purchase date.
func (b SpecificationBook) IsPurchased() bool {
	if b.Purchased != nil {
		return *b.Purchased
	}
	return b.PurchaseDate != nil && *b.PurchaseDate != ""
}

type SiteVisit struct {
	Required  bool         `json:"required"`
	Completed bool         `json:"completed"`
	Date      string       `json:"date"`
	Assignee  string       `json:"assignee"`
	Notes     string       `json:"notes"`
	Photos    []Attachment `json:"photos"`
}

// Empty reports whether the visit carries no meaningful content and must
// collapse to absent on save.
func (v SiteVisit) Empty() bool {
	return !v.Required && !v.Completed && v.Date == "" && v.Assignee == "" &&
		v.Notes == "" && len(v.Photos) == 0
}

type Pricing struct {
	Lines   []PricingLine  `json:"lines"`
	Summary PricingSummary `json:"summary"`
}

// PricingLine carries dual-currency amounts. UnitCost and Shipping are the
// legacy single-currency fields; normalization folds them into the USD
// columns and clears them.
type PricingLine struct {
	ID            string   `json:"id"`
	Item          string   `json:"item"`
	Quantity      float64  `json:"quantity"`
	UnitCostUsd   float64  `json:"unitCostUsd"`
	UnitCostLyd   float64  `json:"unitCostLyd"`
	FxRate        *float64 `json:"fxRate"`
	MarginPercent float64  `json:"marginPercent"`
	ShippingUsd   float64  `json:"shippingUsd"`
	ShippingLyd   float64  `json:"shippingLyd"`
	SubtotalUsd   float64  `json:"subtotalUsd"`
	SubtotalLyd   float64  `json:"subtotalLyd"`
	MarginUsd     float64  `json:"marginUsd"`
	MarginLyd     float64  `json:"marginLyd"`
	TotalUsd      float64  `json:"totalUsd"`
	TotalLyd      float64  `json:"totalLyd"`

	UnitCost float64 `json:"unitCost,omitempty"`
	Shipping float64 `json:"shipping,omitempty"`
}

// PricingSummary is always the component-wise sum of the lines. It is never
// accepted from a caller.
type PricingSummary struct {
	SubtotalUsd float64 `json:"subtotalUsd"`
	SubtotalLyd float64 `json:"subtotalLyd"`
	MarginUsd   float64 `json:"marginUsd"`
	MarginLyd   float64 `json:"marginLyd"`
	ShippingUsd float64 `json:"shippingUsd"`
	ShippingLyd float64 `json:"shippingLyd"`
	TotalUsd    float64 `json:"totalUsd"`
	TotalLyd    float64 `json:"totalLyd"`
	FxMissing   bool    `json:"fxMissing"`
}

type Alerts struct {
	SubmissionReminder         string `json:"submissionReminder"`
	NeedsSpecificationPurchase bool   `json:"needsSpecificationPurchase"`
	SiteVisitOverdue           bool   `json:"siteVisitOverdue"`
	GuaranteeExpiry            string `json:"guaranteeExpiry"`
}

type Proposal struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	SubmittedAt string `json:"submittedAt"`
}

type Attachment struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	StoredName string `json:"storedName"`
	URL        string `json:"url"`
	UploadedBy string `json:"uploadedBy"`
	UploadedAt string `json:"uploadedAt"`
}

type Link struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type TimelineEntry struct {
	ID     string `json:"id"`
	At     string `json:"at"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Note   string `json:"note"`
}

type SupplierComparison struct {
	ID           string  `json:"id"`
	SupplierName string  `json:"supplierName"`
	TotalUsd     float64 `json:"totalUsd"`
	DeliveryDays int     `json:"deliveryDays"`
	Notes        string  `json:"notes"`
}

// TenderPatch is a partial update: nil means "keep the current value". Array
// fields replace wholesale when present; siteVisit and pricing carry their
// own sub-patches.
type TenderPatch struct {
	ID                  string                `json:"id"`
	Reference           *string               `json:"reference"`
	Title               *string               `json:"title"`
	TitleAr             *string               `json:"titleAr"`
	Type                *string               `json:"type"`
	Agency              *string               `json:"agency"`
	Owner               *string               `json:"owner"`
	Tags                *[]string             `json:"tags"`
	Description         *string               `json:"description"`
	DescriptionAr       *string               `json:"descriptionAr"`
	Status              *string               `json:"status"`
	StatusReason        *string               `json:"statusReason"`
	EstimatedValue      *float64              `json:"estimatedValue"`
	Currency            *string               `json:"currency"`
	SubmissionDeadline  *string               `json:"submissionDeadline"`
	IssueDate           *string               `json:"issueDate"`
	SpecificationBooks  *[]SpecificationBook  `json:"specificationBooks"`
	SiteVisit           *SiteVisitPatch       `json:"siteVisit"`
	Pricing             *PricingPatch         `json:"pricing"`
	Alerts              *AlertsPatch          `json:"alerts"`
	Proposals           *[]Proposal           `json:"proposals"`
	Attachments         *[]Attachment         `json:"attachments"`
	Links               *[]Link               `json:"links"`
	Timeline            *[]TimelineEntry      `json:"timeline"`
	SupplierComparisons *[]SupplierComparison `json:"supplierComparisons"`
}

type SiteVisitPatch struct {
	Required  *bool         `json:"required"`
	Completed *bool         `json:"completed"`
	Date      *string       `json:"date"`
	Assignee  *string       `json:"assignee"`
	Notes     *string       `json:"notes"`
	Photos    *[]Attachment `json:"photos"`
}

// PricingPatch replaces the existing lines only when the incoming list is
// non-empty. A caller-supplied summary is ignored.
type PricingPatch struct {
	Lines []PricingLine `json:"lines"`
}

type AlertsPatch struct {
	SubmissionReminder *string `json:"submissionReminder"`
	GuaranteeExpiry    *string `json:"guaranteeExpiry"`
}

// TenderFilters narrows ListTenders.
type TenderFilters struct {
	Status string
	Type   string
	Owner  string
	Search string
}

// Supplier record
type Supplier struct {
	ID          int       `db:"id" json:"id"`
	NameEn      string    `db:"name_en" json:"name"`
	NameAr      string    `db:"name_ar" json:"nameAr"`
	ContactName string    `db:"contact_name" json:"contactName"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone"`
	Address     string    `db:"address" json:"address"`
	Notes       string    `db:"notes" json:"notes"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Project record. Dates are ISO strings, as the portal has always stored them.
type Project struct {
	ID                int       `db:"id" json:"id"`
	TenderID          string    `db:"tender_id" json:"tenderId"`
	NameEn            string    `db:"name_en" json:"name"`
	NameAr            string    `db:"name_ar" json:"nameAr"`
	StartDate         string    `db:"start_date" json:"startDate"`
	EndDate           string    `db:"end_date" json:"endDate"`
	Status            string    `db:"status" json:"status"`
	Currency          string    `db:"currency" json:"currency"`
	ContractValue     float64   `db:"contract_value" json:"contractValue"`
	Cost              float64   `db:"cost" json:"cost"`
	ExchangeRate      float64   `db:"exchange_rate" json:"exchangeRate"`
	AmountReceived    float64   `db:"amount_received" json:"amountReceived"`
	AmountInvoiced    float64   `db:"amount_invoiced" json:"amountInvoiced"`
	ProfitLocal       float64   `db:"profit_local" json:"profitLocal"`
	PaymentStatus     string    `db:"payment_status" json:"paymentStatus"`
	GuaranteeValue    float64   `db:"guarantee_value" json:"guaranteeValue"`
	GuaranteeStart    string    `db:"guarantee_start" json:"guaranteeStart"`
	GuaranteeEnd      string    `db:"guarantee_end" json:"guaranteeEnd"`
	GuaranteeRetained float64   `db:"guarantee_retained" json:"guaranteeRetained"`
	Notes             string    `db:"notes" json:"notes"`
	ManagerID         int       `db:"manager_id" json:"managerId"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

type ProjectFilters struct {
	Status        string
	PaymentStatus string
	ManagerID     int
}

type Invoice struct {
	ID        int       `db:"id" json:"id"`
	ProjectID int       `db:"project_id" json:"projectId"`
	Amount    float64   `db:"amount" json:"amount"`
	Currency  string    `db:"currency" json:"currency"`
	DueDate   string    `db:"due_date" json:"dueDate"`
	PaidDate  string    `db:"paid_date" json:"paidDate"`
	Status    string    `db:"status" json:"status"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// InvoiceWithProject joins the project names needed by notification texts.
type InvoiceWithProject struct {
	Invoice
	ProjectNameEn string `db:"project_name_en" json:"projectName"`
	ProjectNameAr string `db:"project_name_ar" json:"projectNameAr"`
}

type Notification struct {
	ID          int       `db:"id" json:"id"`
	UniqueKey   string    `db:"unique_key" json:"uniqueKey"`
	TitleEn     string    `db:"title_en" json:"title"`
	TitleAr     string    `db:"title_ar" json:"titleAr"`
	MessageEn   string    `db:"message_en" json:"message"`
	MessageAr   string    `db:"message_ar" json:"messageAr"`
	Level       string    `db:"level" json:"level"`
	TargetRole  string    `db:"target_role" json:"targetRole"`
	RelatedType string    `db:"related_type" json:"relatedType"`
	RelatedID   string    `db:"related_id" json:"relatedId"`
	IsRead      bool      `db:"is_read" json:"isRead"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	FullName     string    `db:"full_name" json:"fullName"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Language     string    `db:"language" json:"language"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// FileUpload is a decoded attachment payload.
type FileUpload struct {
	Filename string
	Content  []byte
}

// Reporting shapes

type Pipeline struct {
	OutstandingInvoices float64 `json:"outstandingInvoices"`
	AmountReceived      float64 `json:"amountReceived"`
	AmountInvoiced      float64 `json:"amountInvoiced"`
}

type CalendarItem struct {
	Type    string `db:"type" json:"type"`
	ID      string `db:"id" json:"id"`
	TitleEn string `db:"title_en" json:"title"`
	TitleAr string `db:"title_ar" json:"titleAr"`
	Date    string `db:"date" json:"date"`
}

type ProjectRisk struct {
	Project
	TenderTitleEn string   `db:"tender_title_en" json:"tenderTitle"`
	TenderTitleAr string   `db:"tender_title_ar" json:"tenderTitleAr"`
	Flags         []string `db:"-" json:"flags"`
}
