// Package merge is the single write path for tender records. Every save goes
// through Apply, every load through Upgrade, so a persisted tender always has
// a pricing summary that matches its lines, alert flags that match its
// booklets, and no degenerate sub-objects.
package merge

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tenderportal/models"
)

var (
	ErrTitleRequired        = errors.New("title is required when creating a tender")
	ErrStatusReasonRequired = errors.New("a status reason is required for lost or cancelled tenders")
	ErrInvalidStatus        = errors.New("invalid tender status")
)

// Apply merges a partial update into an existing tender (nil for the create
// path) and returns the next fully-populated record. Fields absent from the
// patch keep their current value; omission never clears. Apply is pure: the
// caller persists the result.
func Apply(existing *models.Tender, patch models.TenderPatch, now time.Time) (models.Tender, error) {
	var t models.Tender
	if existing != nil {
		t = *existing
	} else {
		t.ID = patch.ID
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if patch.Title == nil || *patch.Title == "" {
			return models.Tender{}, ErrTitleRequired
		}
		t.Status = models.StatusPreparing
		t.Reference = "TMP-" + referenceSuffix(t.ID)
		t.CreatedAt = now
	}

	applyScalar(&t.Reference, patch.Reference)
	applyScalar(&t.Title, patch.Title)
	applyScalar(&t.TitleAr, patch.TitleAr)
	applyScalar(&t.Type, patch.Type)
	applyScalar(&t.Agency, patch.Agency)
	applyScalar(&t.Owner, patch.Owner)
	applyScalar(&t.Description, patch.Description)
	applyScalar(&t.DescriptionAr, patch.DescriptionAr)
	applyScalar(&t.Status, patch.Status)
	applyScalar(&t.StatusReason, patch.StatusReason)
	applyScalar(&t.EstimatedValue, patch.EstimatedValue)
	applyScalar(&t.Currency, patch.Currency)
	applyScalar(&t.SubmissionDeadline, patch.SubmissionDeadline)
	applyScalar(&t.IssueDate, patch.IssueDate)

	if err := validateStatus(t.Status, t.StatusReason); err != nil {
		return models.Tender{}, err
	}

	// Whole-value replacement collections.
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}
	if patch.SpecificationBooks != nil {
		t.SpecificationBooks = *patch.SpecificationBooks
	}
	if patch.Proposals != nil {
		t.Proposals = *patch.Proposals
	}
	if patch.Attachments != nil {
		t.Attachments = *patch.Attachments
	}
	if patch.Links != nil {
		t.Links = *patch.Links
	}
	if patch.Timeline != nil {
		t.Timeline = *patch.Timeline
	}
	if patch.SupplierComparisons != nil {
		t.SupplierComparisons = *patch.SupplierComparisons
	}

	t.SiteVisit = mergeSiteVisit(t.SiteVisit, patch.SiteVisit)

	if patch.Pricing != nil && len(patch.Pricing.Lines) > 0 {
		t.Pricing.Lines = patch.Pricing.Lines
	}

	if patch.Alerts != nil {
		applyScalar(&t.Alerts.SubmissionReminder, patch.Alerts.SubmissionReminder)
		applyScalar(&t.Alerts.GuaranteeExpiry, patch.Alerts.GuaranteeExpiry)
	}

	t = normalize(t, now)
	t.UpdatedAt = now
	return t, nil
}

// Upgrade re-normalizes a stored record on load. It is total: legacy records
// missing the purchased flag, alerts, or the dual-currency line shape come
// out fully populated without error.
func Upgrade(t models.Tender, now time.Time) models.Tender {
	return normalize(t, now)
}

// normalize is the chokepoint that recomputes every derived field. Both the
// save path and the load path end here.
func normalize(t models.Tender, now time.Time) models.Tender {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Proposals == nil {
		t.Proposals = []models.Proposal{}
	}
	if t.Attachments == nil {
		t.Attachments = []models.Attachment{}
	}
	if t.Links == nil {
		t.Links = []models.Link{}
	}
	if t.Timeline == nil {
		t.Timeline = []models.TimelineEntry{}
	}
	if t.SupplierComparisons == nil {
		t.SupplierComparisons = []models.SupplierComparison{}
	}
	if t.Status == "" {
		t.Status = models.StatusPreparing
	}

	t.SpecificationBooks = normalizeBooks(t.SpecificationBooks)
	if t.SiteVisit != nil {
		if t.SiteVisit.Photos == nil {
			t.SiteVisit.Photos = []models.Attachment{}
		}
		if t.SiteVisit.Empty() {
			t.SiteVisit = nil
		}
	}
	t.Pricing = normalizePricing(t.Pricing)
	t.Alerts = recomputeAlerts(t, now)
	return t
}

func validateStatus(status, reason string) error {
	valid := false
	for _, s := range models.TenderStatuses {
		if s == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if (status == models.StatusLost || status == models.StatusCancelled) && reason == "" {
		return ErrStatusReasonRequired
	}
	return nil
}

// normalizeBooks resolves the purchased flag for every booklet and scrubs
// purchase metadata from non-purchased ones. purchased=false is
// authoritative, regardless of what the caller supplied.
func normalizeBooks(books []models.SpecificationBook) []models.SpecificationBook {
	out := make([]models.SpecificationBook, 0, len(books))
	for _, b := range books {
		purchased := b.IsPurchased()
		b.Purchased = &purchased
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if purchased {
			if b.PurchaseDate == nil {
				empty := ""
				b.PurchaseDate = &empty
			}
		} else {
			b.Cost = 0
			b.PurchaseDate = nil
			b.PurchaseMethod = ""
			b.Responsible = ""
			b.Attachment = nil
		}
		out = append(out, b)
	}
	return out
}

// mergeSiteVisit merges key-by-key, then collapses an all-empty result to
// absent so a save touching an unrelated field never creates a ghost visit.
func mergeSiteVisit(existing *models.SiteVisit, patch *models.SiteVisitPatch) *models.SiteVisit {
	if patch == nil {
		return existing
	}
	var v models.SiteVisit
	if existing != nil {
		v = *existing
	}
	applyScalar(&v.Required, patch.Required)
	applyScalar(&v.Completed, patch.Completed)
	applyScalar(&v.Date, patch.Date)
	applyScalar(&v.Assignee, patch.Assignee)
	applyScalar(&v.Notes, patch.Notes)
	if patch.Photos != nil {
		v.Photos = *patch.Photos
	}
	if v.Photos == nil {
		v.Photos = []models.Attachment{}
	}
	if v.Empty() {
		return nil
	}
	return &v
}

func normalizePricing(p models.Pricing) models.Pricing {
	lines := make([]models.PricingLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, normalizeLine(l))
	}
	p.Lines = lines
	p.Summary = Summarize(lines)
	return p
}

// normalizeLine upgrades the legacy single-currency shape and recomputes the
// per-line aggregates from unit costs, margin and shipping.
func normalizeLine(l models.PricingLine) models.PricingLine {
	if l.UnitCostUsd == 0 && l.UnitCost != 0 {
		l.UnitCostUsd = l.UnitCost
	}
	if l.ShippingUsd == 0 && l.Shipping != 0 {
		l.ShippingUsd = l.Shipping
	}
	l.UnitCost = 0
	l.Shipping = 0
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	if l.FxRate != nil {
		if l.UnitCostLyd == 0 {
			l.UnitCostLyd = l.UnitCostUsd * *l.FxRate
		}
		if l.ShippingLyd == 0 {
			l.ShippingLyd = l.ShippingUsd * *l.FxRate
		}
	} else {
		l.UnitCostLyd = 0
		l.ShippingLyd = 0
	}

	l.SubtotalUsd = l.UnitCostUsd * l.Quantity
	l.MarginUsd = l.SubtotalUsd * l.MarginPercent / 100
	l.TotalUsd = l.SubtotalUsd + l.MarginUsd + l.ShippingUsd

	l.SubtotalLyd = l.UnitCostLyd * l.Quantity
	l.MarginLyd = l.SubtotalLyd * l.MarginPercent / 100
	l.TotalLyd = l.SubtotalLyd + l.MarginLyd + l.ShippingLyd
	return l
}

// Summarize is the field-wise sum over the lines. FxMissing is set when any
// line lacks an FX rate.
func Summarize(lines []models.PricingLine) models.PricingSummary {
	var s models.PricingSummary
	for _, l := range lines {
		s.SubtotalUsd += l.SubtotalUsd
		s.SubtotalLyd += l.SubtotalLyd
		s.MarginUsd += l.MarginUsd
		s.MarginLyd += l.MarginLyd
		s.ShippingUsd += l.ShippingUsd
		s.ShippingLyd += l.ShippingLyd
		s.TotalUsd += l.TotalUsd
		s.TotalLyd += l.TotalLyd
		if l.FxRate == nil {
			s.FxMissing = true
		}
	}
	return s
}

func recomputeAlerts(t models.Tender, now time.Time) models.Alerts {
	a := t.Alerts
	a.NeedsSpecificationPurchase = true
	for _, b := range t.SpecificationBooks {
		if b.IsPurchased() {
			a.NeedsSpecificationPurchase = false
			break
		}
	}
	a.SiteVisitOverdue = false
	if v := t.SiteVisit; v != nil && v.Required && !v.Completed && v.Date != "" {
		if v.Date < now.Format("2006-01-02") {
			a.SiteVisitOverdue = true
		}
	}
	return a
}

func referenceSuffix(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

func applyScalar[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
