// Package export renders tender lists as CSV for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"tenderportal/models"
)

// DefaultColumns mirrors the portal's standard export layout.
var DefaultColumns = []string{
	"id",
	"reference",
	"title",
	"type",
	"agency",
	"status",
	"estimatedValue",
	"currency",
	"submissionDeadline",
	"issueDate",
	"totalUsd",
}

type columnFunc func(t models.Tender, locale string) string

var columns = map[string]columnFunc{
	"id":        func(t models.Tender, _ string) string { return t.ID },
	"reference": func(t models.Tender, _ string) string { return t.Reference },
	"title": func(t models.Tender, locale string) string {
		return localized(t.Title, t.TitleAr, locale)
	},
	"type":   func(t models.Tender, _ string) string { return t.Type },
	"agency": func(t models.Tender, _ string) string { return t.Agency },
	"owner":  func(t models.Tender, _ string) string { return t.Owner },
	"status": func(t models.Tender, _ string) string { return t.Status },
	"statusReason": func(t models.Tender, _ string) string {
		return t.StatusReason
	},
	"description": func(t models.Tender, locale string) string {
		return localized(t.Description, t.DescriptionAr, locale)
	},
	"tags": func(t models.Tender, _ string) string {
		return strings.Join(t.Tags, "; ")
	},
	"estimatedValue": func(t models.Tender, _ string) string {
		return formatAmount(t.EstimatedValue)
	},
	"currency": func(t models.Tender, _ string) string { return t.Currency },
	"submissionDeadline": func(t models.Tender, _ string) string {
		return t.SubmissionDeadline
	},
	"issueDate": func(t models.Tender, _ string) string { return t.IssueDate },
	"totalUsd": func(t models.Tender, _ string) string {
		return formatAmount(t.Pricing.Summary.TotalUsd)
	},
	"totalLyd": func(t models.Tender, _ string) string {
		return formatAmount(t.Pricing.Summary.TotalLyd)
	},
}

// WriteTenders emits an RFC4180 CSV with a header row. Unknown column ids are
// rejected so a bad query string fails loudly instead of exporting blanks.
func WriteTenders(w io.Writer, tenders []models.Tender, columnIDs []string, locale string) error {
	if len(columnIDs) == 0 {
		columnIDs = DefaultColumns
	}
	for _, id := range columnIDs {
		if _, ok := columns[id]; !ok {
			return fmt.Errorf("unknown export column %q", id)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columnIDs); err != nil {
		return err
	}
	record := make([]string, len(columnIDs))
	for _, t := range tenders {
		for i, id := range columnIDs {
			record[i] = columns[id](t, locale)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// localized prefers the Arabic value for the ar locale, falling back to
// English when the Arabic field is empty.
func localized(en, ar, locale string) string {
	if locale == "ar" && ar != "" {
		return ar
	}
	return en
}

func formatAmount(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
