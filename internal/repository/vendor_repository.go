package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/calyxcontainers/scar-service/internal/model"
)

// VendorRepo owns the 'vendors' and 'vendor_contacts' tables.
type VendorRepo struct{ DB *sql.DB }

func NewVendorRepo(db *sql.DB) *VendorRepo { return &VendorRepo{DB: db} }

// Create inserts a vendor. Names are unique.
func (r *VendorRepo) Create(ctx context.Context, name, address, phone string) (model.Vendor, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO vendors (id, name, address, phone) VALUES (?,?,?,?)",
		id, name, address, phone)
	if err != nil {
		if isDuplicate(err) {
			return model.Vendor{}, ErrNameExists
		}
		return model.Vendor{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a vendor by id.
func (r *VendorRepo) GetByID(ctx context.Context, id string) (model.Vendor, error) {
	var v model.Vendor
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, address, phone, created_at FROM vendors WHERE id=? LIMIT 1",
		id).Scan(&v.ID, &v.Name, &v.Address, &v.Phone, &v.CreatedAt)
	return v, err
}

// List returns all vendors ordered by name.
func (r *VendorRepo) List(ctx context.Context) ([]model.Vendor, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, address, phone, created_at FROM vendors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Vendor
	for rows.Next() {
		var v model.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.Phone, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Update overwrites the mutable vendor fields.
func (r *VendorRepo) Update(ctx context.Context, id, name, address, phone string) (model.Vendor, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE vendors SET name=?, address=?, phone=? WHERE id=?",
		name, address, phone, id)
	if err != nil {
		if isDuplicate(err) {
			return model.Vendor{}, ErrNameExists
		}
		return model.Vendor{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also 0 for a no-op update; confirm existence.
		return r.GetByID(ctx, id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a vendor. Contacts cascade; SCARs and users keep a
// nulled vendor reference via their FKs.
func (r *VendorRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM vendors WHERE id=?", id)
	return err
}

// Contacts returns a vendor's contacts, primary first.
func (r *VendorRepo) Contacts(ctx context.Context, vendorID string) ([]model.VendorContact, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, vendor_id, name, email, phone, is_primary FROM vendor_contacts WHERE vendor_id=? ORDER BY is_primary DESC, name",
		vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VendorContact
	for rows.Next() {
		var c model.VendorContact
		if err := rows.Scan(&c.ID, &c.VendorID, &c.Name, &c.Email, &c.Phone, &c.IsPrimary); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetContact fetches one contact by id.
func (r *VendorRepo) GetContact(ctx context.Context, id string) (model.VendorContact, error) {
	var c model.VendorContact
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, vendor_id, name, email, phone, is_primary FROM vendor_contacts WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.VendorID, &c.Name, &c.Email, &c.Phone, &c.IsPrimary)
	return c, err
}

// CreateContact adds a contact to a vendor.
func (r *VendorRepo) CreateContact(ctx context.Context, vendorID, name, email, phone string, isPrimary bool) (model.VendorContact, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO vendor_contacts (id, vendor_id, name, email, phone, is_primary) VALUES (?,?,?,?,?,?)",
		id, vendorID, name, email, phone, isPrimary)
	if err != nil {
		return model.VendorContact{}, err
	}
	return r.GetContact(ctx, id)
}

// UpdateContact overwrites a contact's fields.
func (r *VendorRepo) UpdateContact(ctx context.Context, id, name, email, phone string, isPrimary bool) (model.VendorContact, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE vendor_contacts SET name=?, email=?, phone=?, is_primary=? WHERE id=?",
		name, email, phone, isPrimary, id)
	if err != nil {
		return model.VendorContact{}, err
	}
	return r.GetContact(ctx, id)
}

// DeleteContact removes a contact. SCARs referencing it keep a nulled
// vendor_contact_id via the FK.
func (r *VendorRepo) DeleteContact(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM vendor_contacts WHERE id=?", id)
	return err
}
