package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// ServiceRequestRepo stores customer inquiries.
type ServiceRequestRepo struct{ db *sql.DB }

func NewServiceRequestRepo(db *sql.DB) *ServiceRequestRepo { return &ServiceRequestRepo{db: db} }

const serviceRequestColumns = "id, user_id, name, email, phone, request_type, message, status, created_at, updated_at"

func scanServiceRequest(row interface{ Scan(...any) error }) (*model.ServiceRequest, error) {
	var (
		sr  model.ServiceRequest
		uid sql.NullInt64
	)
	if err := row.Scan(&sr.ID, &uid, &sr.Name, &sr.Email, &sr.Phone, &sr.RequestType,
		&sr.Message, &sr.Status, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	if uid.Valid {
		v := uint64(uid.Int64)
		sr.UserID = &v
	}
	return &sr, nil
}

func (r *ServiceRequestRepo) Create(ctx context.Context, sr *model.ServiceRequest) error {
	if sr.Status == "" {
		sr.Status = model.ServiceRequestPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO service_requests (user_id, name, email, phone, request_type, message, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sr.UserID, sr.Name, sr.Email, sr.Phone, sr.RequestType, sr.Message, sr.Status)
	if err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*sr = *created
	return nil
}

func (r *ServiceRequestRepo) GetByID(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	return scanServiceRequest(r.db.QueryRowContext(ctx,
		"SELECT "+serviceRequestColumns+" FROM service_requests WHERE id = ?", id))
}

// List returns a page of requests, optionally filtered by status, and
// the total count for that filter.
func (r *ServiceRequestRepo) List(ctx context.Context, status string, page, limit int) ([]model.ServiceRequest, int, error) {
	where, args := "", []any{}
	if status != "" {
		where, args = " WHERE status = ?", append(args, status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM service_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}
	lim, off := pageBounds(page, limit)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+serviceRequestColumns+" FROM service_requests"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, lim, off)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()
	out := make([]model.ServiceRequest, 0)
	for rows.Next() {
		sr, err := scanServiceRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sr)
	}
	return out, total, rows.Err()
}

func (r *ServiceRequestRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE service_requests SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update service request %d: %w", id, err)
	}
	return nil
}
