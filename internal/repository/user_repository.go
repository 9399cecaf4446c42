package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/calyxcontainers/scar-service/internal/model"
	"github.com/calyxcontainers/scar-service/internal/utils"
)

// UserRepo owns the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userSelect = `SELECT u.id, u.email, u.password_hash, u.name, u.role,
	COALESCE(u.vendor_id,''), COALESCE(v.name,''), u.status, u.created_at
	FROM users u LEFT JOIN vendors v ON u.vendor_id = v.id`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&u.VendorID, &u.VendorName, &u.Status, &u.CreatedAt)
	return u, err
}

// Create inserts a user and returns its id. Self-registered suppliers
// start pending; admin-provisioned accounts are approved immediately.
func (r *UserRepo) Create(ctx context.Context, email, password, name string, role model.Role, vendorID string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	status := model.UserPending
	if role == model.RoleAdmin {
		status = model.UserApproved
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, name, role, vendor_id, status) VALUES (?,?,?,?,?,?,?)",
		id, email, hash, name, role, nullIfEmpty(vendorID), status)
	if err != nil {
		if isDuplicate(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE u.email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE u.id=? LIMIT 1", id))
}

// List returns all users newest-first with their vendor names joined.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, userSelect+" ORDER BY u.created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
			&u.VendorID, &u.VendorName, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetStatus approves or rejects a pending registration.
func (r *UserRepo) SetStatus(ctx context.Context, id string, status model.UserStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPassword replaces a user's password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a user. SCARs created by the user keep a nulled
// created_by reference via the FK.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return err
}

// PendingCount returns the number of registrations awaiting approval.
func (r *UserRepo) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE status=?", model.UserPending).Scan(&n)
	return n, err
}

// nullIfEmpty maps "" to SQL NULL for nullable FK columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
