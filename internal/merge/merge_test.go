package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenderportal/internal/merge"
	"tenderportal/models"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateTender(t *testing.T) {
	created, err := merge.Apply(nil, models.TenderPatch{
		Title:     strPtr("WASH kits"),
		Reference: strPtr("T-1"),
	}, now)
	require.NoError(t, err)

	require.NotEmpty(t, created.ID)
	require.Equal(t, "T-1", created.Reference)
	require.Equal(t, models.StatusPreparing, created.Status)
	require.Empty(t, created.SpecificationBooks)
	require.NotNil(t, created.SpecificationBooks)
	require.True(t, created.Alerts.NeedsSpecificationPurchase)
	require.NotNil(t, created.Tags)
	require.NotNil(t, created.Timeline)
	require.Nil(t, created.SiteVisit)
}

func TestCreateTenderWithoutTitle(t *testing.T) {
	_, err := merge.Apply(nil, models.TenderPatch{Reference: strPtr("T-9")}, now)
	require.ErrorIs(t, err, merge.ErrTitleRequired)
}

func TestCreateTenderReferenceFallback(t *testing.T) {
	created, err := merge.Apply(nil, models.TenderPatch{Title: strPtr("Generators")}, now)
	require.NoError(t, err)
	require.True(t, len(created.Reference) > 4)
	require.Equal(t, "TMP-", created.Reference[:4])
}

func TestUpdateKeepsOmittedFields(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title:  strPtr("WASH kits"),
		Agency: strPtr("UNICEF"),
		Owner:  strPtr("noura"),
	}, now)
	require.NoError(t, err)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID:          existing.ID,
		Description: strPtr("Hygiene kit supply for Fezzan"),
	}, now.Add(time.Hour))
	require.NoError(t, err)

	require.Equal(t, "WASH kits", updated.Title)
	require.Equal(t, "UNICEF", updated.Agency)
	require.Equal(t, "noura", updated.Owner)
	require.Equal(t, "Hygiene kit supply for Fezzan", updated.Description)
}

func TestEmptyPatchIsIdempotent(t *testing.T) {
	fx := 4.85
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title: strPtr("Solar systems"),
		SpecificationBooks: &[]models.SpecificationBook{
			{ID: "b1", Number: "B-1", Purchased: boolPtr(true), Cost: 250, Currency: "USD", PurchaseDate: strPtr("2024-02-01")},
		},
		Pricing: &models.PricingPatch{Lines: []models.PricingLine{
			{ID: "l1", Item: "Panel", Quantity: 4, UnitCostUsd: 120, FxRate: &fx, MarginPercent: 5},
		}},
		SiteVisit: &models.SiteVisitPatch{Required: boolPtr(true), Date: strPtr("2024-07-01")},
	}, now)
	require.NoError(t, err)

	again, err := merge.Apply(&existing, models.TenderPatch{ID: existing.ID}, now.Add(time.Minute))
	require.NoError(t, err)
	again.UpdatedAt = existing.UpdatedAt
	require.Equal(t, existing, again)
}

func TestBookScrubbing(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title: strPtr("Clinic works"),
		SpecificationBooks: &[]models.SpecificationBook{
			{
				ID:             "b1",
				Number:         "B-1",
				Purchased:      boolPtr(false),
				Cost:           300,
				PurchaseDate:   strPtr("2024-01-01"),
				PurchaseMethod: "wire",
				Responsible:    "X",
				Attachment:     &models.Attachment{ID: "a1", Filename: "receipt.pdf"},
			},
		},
	}, now)
	require.NoError(t, err)

	b := existing.SpecificationBooks[0]
	require.False(t, *b.Purchased)
	require.Zero(t, b.Cost)
	require.Nil(t, b.PurchaseDate)
	require.Nil(t, b.Attachment)
	require.Empty(t, b.PurchaseMethod)
	require.Empty(t, b.Responsible)
}

func TestLegacyBookPurchasedDerivation(t *testing.T) {
	// Records written before the explicit flag only carry a purchase date.
	stored := models.Tender{
		ID:    "t-legacy",
		Title: "Old record",
		SpecificationBooks: []models.SpecificationBook{
			{ID: "b1", Number: "B-1", PurchaseDate: strPtr("2023-11-10"), Cost: 150},
			{ID: "b2", Number: "B-2"},
		},
	}
	upgraded := merge.Upgrade(stored, now)

	require.NotNil(t, upgraded.SpecificationBooks[0].Purchased)
	require.True(t, *upgraded.SpecificationBooks[0].Purchased)
	require.Equal(t, 150.0, upgraded.SpecificationBooks[0].Cost)
	require.NotNil(t, upgraded.SpecificationBooks[1].Purchased)
	require.False(t, *upgraded.SpecificationBooks[1].Purchased)
	require.False(t, upgraded.Alerts.NeedsSpecificationPurchase)
	require.NotNil(t, upgraded.Tags)
	require.NotNil(t, upgraded.Attachments)
}

func TestNeedsSpecificationPurchaseFlag(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title:     strPtr("WASH kits"),
		Reference: strPtr("T-1"),
	}, now)
	require.NoError(t, err)
	require.True(t, existing.Alerts.NeedsSpecificationPurchase)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID: existing.ID,
		SpecificationBooks: &[]models.SpecificationBook{
			{
				ID:             "b1",
				Number:         "B-1",
				Purchased:      boolPtr(true),
				Cost:           100,
				Currency:       "USD",
				PurchaseDate:   strPtr("2024-01-01"),
				PurchaseMethod: "wire",
				Responsible:    "X",
			},
		},
	}, now)
	require.NoError(t, err)
	require.False(t, updated.Alerts.NeedsSpecificationPurchase)
}

func TestSiteVisitCollapse(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title:     strPtr("School lot 2"),
		SiteVisit: &models.SiteVisitPatch{Required: boolPtr(true), Assignee: strPtr("khaled")},
	}, now)
	require.NoError(t, err)
	require.NotNil(t, existing.SiteVisit)

	// Clearing every field collapses the visit to absent.
	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID: existing.ID,
		SiteVisit: &models.SiteVisitPatch{
			Required: boolPtr(false),
			Assignee: strPtr(""),
		},
	}, now)
	require.NoError(t, err)
	require.Nil(t, updated.SiteVisit)
}

func TestSiteVisitNotCreatedByUnrelatedSave(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{Title: strPtr("Warehouse")}, now)
	require.NoError(t, err)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID:     existing.ID,
		Agency: strPtr("IOM"),
	}, now)
	require.NoError(t, err)
	require.Nil(t, updated.SiteVisit)
}

func TestSiteVisitOverdueAlert(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title:     strPtr("Field office"),
		SiteVisit: &models.SiteVisitPatch{Required: boolPtr(true), Date: strPtr("2024-05-01")},
	}, now)
	require.NoError(t, err)
	require.True(t, existing.Alerts.SiteVisitOverdue)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID:        existing.ID,
		SiteVisit: &models.SiteVisitPatch{Completed: boolPtr(true)},
	}, now)
	require.NoError(t, err)
	require.False(t, updated.Alerts.SiteVisitOverdue)
}

func TestPricingScenario(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title:     strPtr("Pumps"),
		Reference: strPtr("T-1"),
	}, now)
	require.NoError(t, err)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID: existing.ID,
		Pricing: &models.PricingPatch{Lines: []models.PricingLine{
			{ID: "l1", Item: "Pump", Quantity: 2, UnitCostUsd: 500, MarginPercent: 10, ShippingUsd: 50},
		}},
	}, now)
	require.NoError(t, err)

	require.InDelta(t, 1150, updated.Pricing.Summary.TotalUsd, 1e-9)
	require.InDelta(t, 1000, updated.Pricing.Summary.SubtotalUsd, 1e-9)
	require.InDelta(t, 100, updated.Pricing.Summary.MarginUsd, 1e-9)
	require.True(t, updated.Pricing.Summary.FxMissing)
}

func TestSummaryNeverTrusted(t *testing.T) {
	fx := 5.0
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title: strPtr("Cabling"),
		Pricing: &models.PricingPatch{Lines: []models.PricingLine{
			{ID: "l1", Item: "Cable", Quantity: 10, UnitCostUsd: 3, FxRate: &fx},
			{ID: "l2", Item: "Conduit", Quantity: 5, UnitCostUsd: 2, FxRate: &fx},
		}},
	}, now)
	require.NoError(t, err)

	s := existing.Pricing.Summary
	require.Equal(t, merge.Summarize(existing.Pricing.Lines), s)
	require.InDelta(t, 40, s.SubtotalUsd, 1e-9)
	require.InDelta(t, 200, s.SubtotalLyd, 1e-9)
	require.False(t, s.FxMissing)
}

func TestEmptyLineListKeepsExisting(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title: strPtr("Generators"),
		Pricing: &models.PricingPatch{Lines: []models.PricingLine{
			{ID: "l1", Item: "Generator", Quantity: 1, UnitCostUsd: 900},
		}},
	}, now)
	require.NoError(t, err)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID:      existing.ID,
		Pricing: &models.PricingPatch{},
	}, now)
	require.NoError(t, err)
	require.Len(t, updated.Pricing.Lines, 1)
	require.InDelta(t, 900, updated.Pricing.Summary.TotalUsd, 1e-9)
}

func TestLegacyPricingLineUpgrade(t *testing.T) {
	stored := models.Tender{
		ID:    "t-legacy",
		Title: "Old pricing",
		Pricing: models.Pricing{Lines: []models.PricingLine{
			{ID: "l1", Item: "Tent", Quantity: 3, UnitCost: 200, MarginPercent: 10, Shipping: 30},
		}},
	}
	upgraded := merge.Upgrade(stored, now)

	l := upgraded.Pricing.Lines[0]
	require.InDelta(t, 200, l.UnitCostUsd, 1e-9)
	require.Zero(t, l.UnitCost)
	require.InDelta(t, 600, l.SubtotalUsd, 1e-9)
	require.InDelta(t, 60, l.MarginUsd, 1e-9)
	require.InDelta(t, 690, l.TotalUsd, 1e-9)
	require.Nil(t, l.FxRate)
	require.Zero(t, l.UnitCostLyd)
	require.Zero(t, l.TotalLyd)
	require.True(t, upgraded.Pricing.Summary.FxMissing)
}

func TestDualCurrencyDerivation(t *testing.T) {
	fx := 4.8
	created, err := merge.Apply(nil, models.TenderPatch{
		Title: strPtr("Hybrid power"),
		Pricing: &models.PricingPatch{Lines: []models.PricingLine{
			{ID: "l1", Item: "Inverter", Quantity: 2, UnitCostUsd: 100, FxRate: &fx, MarginPercent: 10, ShippingUsd: 20},
		}},
	}, now)
	require.NoError(t, err)

	l := created.Pricing.Lines[0]
	require.InDelta(t, 480, l.UnitCostLyd, 1e-9)
	require.InDelta(t, 960, l.SubtotalLyd, 1e-9)
	require.InDelta(t, 96, l.MarginLyd, 1e-9)
	require.InDelta(t, 96, l.ShippingLyd, 1e-9)
	require.InDelta(t, 1152, l.TotalLyd, 1e-9)
	require.False(t, created.Pricing.Summary.FxMissing)
}

func TestStatusReasonEnforced(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{Title: strPtr("Lost bid")}, now)
	require.NoError(t, err)

	_, err = merge.Apply(&existing, models.TenderPatch{
		ID:     existing.ID,
		Status: strPtr(models.StatusLost),
	}, now)
	require.ErrorIs(t, err, merge.ErrStatusReasonRequired)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID:           existing.ID,
		Status:       strPtr(models.StatusLost),
		StatusReason: strPtr("Price above ceiling"),
	}, now)
	require.NoError(t, err)
	require.Equal(t, models.StatusLost, updated.Status)
}

func TestInvalidStatusRejected(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{Title: strPtr("Bad status")}, now)
	require.NoError(t, err)

	_, err = merge.Apply(&existing, models.TenderPatch{
		ID:     existing.ID,
		Status: strPtr("archived"),
	}, now)
	require.ErrorIs(t, err, merge.ErrInvalidStatus)
}

func TestUpgradeFillsMissingAlerts(t *testing.T) {
	stored := models.Tender{ID: "t1", Title: "Bare record"}
	upgraded := merge.Upgrade(stored, now)
	require.True(t, upgraded.Alerts.NeedsSpecificationPurchase)
	require.False(t, upgraded.Alerts.SiteVisitOverdue)
	require.NotNil(t, upgraded.Pricing.Lines)
	require.Equal(t, merge.Summarize(nil), upgraded.Pricing.Summary)
}

func TestTagsReplaceWholesale(t *testing.T) {
	existing, err := merge.Apply(nil, models.TenderPatch{
		Title: strPtr("Tagged"),
		Tags:  &[]string{"health", "fezzan"},
	}, now)
	require.NoError(t, err)

	updated, err := merge.Apply(&existing, models.TenderPatch{
		ID:   existing.ID,
		Tags: &[]string{"education"},
	}, now)
	require.NoError(t, err)
	require.Equal(t, []string{"education"}, updated.Tags)
}
