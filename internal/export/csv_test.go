package export_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tenderportal/internal/export"
	"tenderportal/models"
)

func sample() []models.Tender {
	return []models.Tender{
		{
			ID:                 "t1",
			Reference:          "ITB-2024-014",
			Title:              "School rehabilitation, Lot 2",
			TitleAr:            "تأهيل المدارس - الحزمة الثانية",
			Type:               "ITB",
			Agency:             "UNDP",
			Status:             models.StatusSubmitted,
			EstimatedValue:     210000,
			Currency:           "USD",
			SubmissionDeadline: "2024-06-13",
			Pricing: models.Pricing{
				Summary: models.PricingSummary{TotalUsd: 198500.5},
			},
		},
	}
}

func TestWriteTendersQuoting(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteTenders(&buf, sample(), []string{"reference", "title", "totalUsd"}, "en")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "reference,title,totalUsd", lines[0])
	// The comma in the title forces quoting.
	require.Equal(t, `ITB-2024-014,"School rehabilitation, Lot 2",198500.5`, strings.TrimRight(lines[1], "\r"))
}

func TestWriteTendersArabicLocale(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteTenders(&buf, sample(), []string{"title"}, "ar")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "تأهيل المدارس")
}

func TestWriteTendersArabicFallback(t *testing.T) {
	tenders := sample()
	tenders[0].TitleAr = ""
	var buf bytes.Buffer
	err := export.WriteTenders(&buf, tenders, []string{"title"}, "ar")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "School rehabilitation")
}

func TestWriteTendersDefaultColumns(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteTenders(&buf, sample(), nil, "en")
	require.NoError(t, err)
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	require.Contains(t, header, "id,reference,title")
}

func TestWriteTendersUnknownColumn(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteTenders(&buf, sample(), []string{"password"}, "en")
	require.Error(t, err)
	require.Zero(t, buf.Len())
}
