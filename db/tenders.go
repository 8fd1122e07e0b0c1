package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tenderportal/internal/merge"
	"tenderportal/models"
)

// Tender documents are stored as JSONB. Every write goes through the merge
// engine and every read through Upgrade, so callers always see a normalized
// record.

func (s *Storage) ListTenders(ctx context.Context, filters models.TenderFilters) ([]models.Tender, error) {
	query := `
        SELECT doc FROM tenders
        WHERE ($1 = '' OR doc->>'status' = $1)
          AND ($2 = '' OR doc->>'type' = $2)
          AND ($3 = '' OR doc->>'owner' = $3)
          AND ($4 = '' OR doc->>'title' ILIKE '%' || $4 || '%'
               OR doc->>'titleAr' ILIKE '%' || $4 || '%'
               OR doc->>'reference' ILIKE '%' || $4 || '%')
        ORDER BY created_at DESC`
	return s.selectTenders(ctx, query, filters.Status, filters.Type, filters.Owner, filters.Search)
}

func (s *Storage) LatestTenders(ctx context.Context, limit int) ([]models.Tender, error) {
	query := `SELECT doc FROM tenders ORDER BY created_at DESC LIMIT $1`
	return s.selectTenders(ctx, query, limit)
}

func (s *Storage) selectTenders(ctx context.Context, query string, args ...interface{}) ([]models.Tender, error) {
	docs := [][]byte{}
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	tenders := make([]models.Tender, 0, len(docs))
	for _, doc := range docs {
		var t models.Tender
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("decode tender document: %w", err)
		}
		tenders = append(tenders, merge.Upgrade(t, now))
	}
	return tenders, nil
}

func (s *Storage) GetTender(ctx context.Context, id string) (*models.Tender, error) {
	var doc []byte
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM tenders WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t models.Tender
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("decode tender document: %w", err)
	}
	t = merge.Upgrade(t, time.Now().UTC())
	return &t, nil
}

// SaveTender merges the patch into the stored record (or creates one when the
// id is absent or unknown) and persists the result.
func (s *Storage) SaveTender(ctx context.Context, patch models.TenderPatch) (*models.Tender, error) {
	var existing *models.Tender
	if patch.ID != "" {
		t, err := s.GetTender(ctx, patch.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		existing = t
	}
	merged, err := merge.Apply(existing, patch, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.putTender(ctx, merged); err != nil {
		return nil, err
	}
	s.notifyChange(ctx, "tenders")
	return &merged, nil
}

func (s *Storage) putTender(ctx context.Context, t models.Tender) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO tenders (id, doc, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`
	_, err = s.db.ExecContext(ctx, query, t.ID, doc, t.CreatedAt)
	return err
}

func (s *Storage) DeleteTender(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notifyChange(ctx, "tenders")
	return nil
}

// UploadTenderAttachment stores the files and attaches them to the target:
// "attachments" (default), "siteVisit" photos, or a specification book id for
// its purchase receipt. Returns the updated attachment list for the target.
func (s *Storage) UploadTenderAttachment(ctx context.Context, id string, uploads []models.FileUpload, uploader, target string) ([]models.Attachment, error) {
	t, err := s.GetTender(ctx, id)
	if err != nil {
		return nil, err
	}
	var result []models.Attachment
	now := time.Now().UTC()
	for _, f := range uploads {
		att, err := storeUpload(s.uploadDir, id, f, uploader, now)
		if err != nil {
			return nil, err
		}
		patch, updated, err := attachTo(t, att, target)
		if err != nil {
			return nil, err
		}
		merged, err := merge.Apply(t, patch, now)
		if err != nil {
			return nil, err
		}
		if err := s.putTender(ctx, merged); err != nil {
			return nil, err
		}
		t = &merged
		result = updated
	}
	s.notifyChange(ctx, "tenders")
	return result, nil
}

// AppendTenderActivity appends one entry to the tender's activity log.
func (s *Storage) AppendTenderActivity(ctx context.Context, id string, entry models.TimelineEntry) (*models.Tender, error) {
	t, err := s.GetTender(ctx, id)
	if err != nil {
		return nil, err
	}
	timeline := appendActivity(t.Timeline, entry, time.Now().UTC())
	return s.SaveTender(ctx, models.TenderPatch{ID: id, Timeline: &timeline})
}

// Shared helpers (used by both storage implementations)

func appendActivity(timeline []models.TimelineEntry, entry models.TimelineEntry, now time.Time) []models.TimelineEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At == "" {
		entry.At = now.Format(time.RFC3339)
	}
	out := make([]models.TimelineEntry, 0, len(timeline)+1)
	out = append(out, timeline...)
	return append(out, entry)
}

func storeUpload(dir, tenderID string, f models.FileUpload, uploader string, now time.Time) (models.Attachment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.Attachment{}, err
	}
	storedName := fmt.Sprintf("%s_%s_%s", tenderID, now.Format("20060102150405.000000"), f.Filename)
	if err := os.WriteFile(filepath.Join(dir, storedName), f.Content, 0o644); err != nil {
		return models.Attachment{}, err
	}
	return models.Attachment{
		ID:         uuid.NewString(),
		Filename:   f.Filename,
		StoredName: storedName,
		URL:        "/files/" + storedName,
		UploadedBy: uploader,
		UploadedAt: now.Format(time.RFC3339),
	}, nil
}

// attachTo builds the patch that adds the attachment to its target and
// returns the attachment list the caller should report back.
func attachTo(t *models.Tender, att models.Attachment, target string) (models.TenderPatch, []models.Attachment, error) {
	patch := models.TenderPatch{ID: t.ID}
	switch target {
	case "", "attachments":
		updated := append(append([]models.Attachment{}, t.Attachments...), att)
		patch.Attachments = &updated
		return patch, updated, nil
	case "siteVisit":
		var photos []models.Attachment
		if t.SiteVisit != nil {
			photos = append(photos, t.SiteVisit.Photos...)
		}
		photos = append(photos, att)
		patch.SiteVisit = &models.SiteVisitPatch{Photos: &photos}
		return patch, photos, nil
	default:
		books := append([]models.SpecificationBook{}, t.SpecificationBooks...)
		for i := range books {
			if books[i].ID == target {
				books[i].Attachment = &att
				patch.SpecificationBooks = &books
				return patch, []models.Attachment{att}, nil
			}
		}
		return models.TenderPatch{}, nil, fmt.Errorf("specification book %q: %w", target, ErrNotFound)
	}
}
