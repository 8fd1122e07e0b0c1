package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tenderportal/models"
)

// ErrNotFound is returned for operations addressing a record that does not
// exist.
var ErrNotFound = errors.New("record not found")

// ChangeChannel is the NOTIFY channel carrying mutation scopes
// (tenders, projects, suppliers, invoices, notifications, users).
const ChangeChannel = "portal_changes"

type Storage struct {
	db        *sqlx.DB
	uploadDir string
}

func NewStorage(db *sqlx.DB, uploadDir string) *Storage {
	return &Storage{db: db, uploadDir: uploadDir}
}

// notifyChange publishes the mutated scope so other portal instances can
// refresh, mirroring the storage-event sync the web client relied on.
func (s *Storage) notifyChange(ctx context.Context, scope string) {
	// Best effort: a failed notification must not fail the write.
	s.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChangeChannel, scope)
}

// Listen subscribes to change notifications from other portal instances.
// The returned stop function terminates the listener.
func Listen(connString string, onChange func(scope string)) (func(), error) {
	listener := pq.NewListener(connString, 10*time.Second, time.Minute, nil)
	if err := listener.Listen(ChangeChannel); err != nil {
		listener.Close()
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case n := <-listener.Notify:
				if n != nil {
					onChange(n.Extra)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		listener.Close()
	}, nil
}

// Users

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users (username, full_name, role, password_hash, language)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		u.Username, u.FullName, u.Role, u.PasswordHash, u.Language).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return err
	}
	s.notifyChange(ctx, "users")
	return nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM users WHERE username=$1`
	err := s.db.GetContext(ctx, u, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// Suppliers

func (s *Storage) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	suppliers := []models.Supplier{}
	query := `SELECT * FROM suppliers ORDER BY name_en ASC`
	err := s.db.SelectContext(ctx, &suppliers, query)
	return suppliers, err
}

func (s *Storage) CreateSupplier(ctx context.Context, sp *models.Supplier) error {
	query := `
        INSERT INTO suppliers (name_en, name_ar, contact_name, email, phone, address, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		sp.NameEn, sp.NameAr, sp.ContactName, sp.Email, sp.Phone, sp.Address, sp.Notes).
		Scan(&sp.ID, &sp.CreatedAt)
	if err != nil {
		return err
	}
	s.notifyChange(ctx, "suppliers")
	return nil
}

func (s *Storage) GetSupplier(ctx context.Context, id int) (*models.Supplier, error) {
	sp := &models.Supplier{}
	query := `SELECT * FROM suppliers WHERE id=$1`
	err := s.db.GetContext(ctx, sp, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sp, err
}

func (s *Storage) UpdateSupplier(ctx context.Context, sp *models.Supplier) error {
	query := `
        UPDATE suppliers
        SET name_en=$1, name_ar=$2, contact_name=$3, email=$4, phone=$5, address=$6, notes=$7
        WHERE id=$8`
	res, err := s.db.ExecContext(ctx, query,
		sp.NameEn, sp.NameAr, sp.ContactName, sp.Email, sp.Phone, sp.Address, sp.Notes, sp.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notifyChange(ctx, "suppliers")
	return nil
}

func (s *Storage) DeleteSupplier(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	s.notifyChange(ctx, "suppliers")
	return nil
}

// Notifications

func (s *Storage) EnsureNotification(ctx context.Context, n models.Notification) error {
	query := `
        INSERT INTO notifications
            (unique_key, title_en, title_ar, message_en, message_ar, level, target_role, related_type, related_id)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (unique_key) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query,
		n.UniqueKey, n.TitleEn, n.TitleAr, n.MessageEn, n.MessageAr,
		n.Level, n.TargetRole, n.RelatedType, n.RelatedID)
	if err != nil {
		return err
	}
	s.notifyChange(ctx, "notifications")
	return nil
}

func (s *Storage) ListNotifications(ctx context.Context, role string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	query := `SELECT * FROM notifications WHERE target_role=$1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &notifications, query, role)
	return notifications, err
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notifyChange(ctx, "notifications")
	return nil
}
