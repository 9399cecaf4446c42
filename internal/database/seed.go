package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calyxcontainers/scar-service/internal/utils"
)

// Seed inserts the demo vendors, contacts and accounts a fresh install
// starts with. Every insert is guarded by an existence check on the
// row's natural key, so re-running is a no-op and genuine storage
// errors propagate.
func Seed(ctx context.Context, db *sql.DB, bcryptCost int, log *zap.Logger) error {
	vendors := []struct {
		name, address, phone string
	}{
		{"Pacific Glass Co.", "123 Harbor Blvd, Long Beach, CA 90802", "(562) 555-0100"},
		{"Western Packaging Inc.", "456 Industrial Way, Phoenix, AZ 85001", "(602) 555-0200"},
		{"Mountain View Plastics", "789 Tech Park Dr, Denver, CO 80202", "(303) 555-0300"},
		{"Coastal Container Corp.", "321 Seaside Ave, San Diego, CA 92101", "(619) 555-0400"},
	}
	vendorIDs := make(map[string]string, len(vendors))
	for _, v := range vendors {
		id, err := seedVendor(ctx, db, v.name, v.address, v.phone)
		if err != nil {
			return fmt.Errorf("seed vendor %q: %w", v.name, err)
		}
		vendorIDs[v.name] = id
	}

	contacts := []struct {
		vendor, name, email, phone string
		primary                    bool
	}{
		{"Pacific Glass Co.", "John Smith", "jsmith@pacificglass.com", "(562) 555-0101", true},
		{"Pacific Glass Co.", "Sarah Johnson", "sjohnson@pacificglass.com", "(562) 555-0102", false},
		{"Western Packaging Inc.", "Mike Wilson", "mwilson@westernpkg.com", "(602) 555-0201", true},
		{"Mountain View Plastics", "Emily Chen", "echen@mvplastics.com", "(303) 555-0301", true},
		{"Coastal Container Corp.", "Robert Garcia", "rgarcia@coastalcontainer.com", "(619) 555-0401", true},
	}
	for _, c := range contacts {
		if err := seedContact(ctx, db, vendorIDs[c.vendor], c.name, c.email, c.phone, c.primary); err != nil {
			return fmt.Errorf("seed contact %q: %w", c.email, err)
		}
	}

	if err := seedUser(ctx, db, "admin@calyxcontainers.com", "admin123", "Admin User", "admin", "", bcryptCost); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := seedUser(ctx, db, "jsmith@pacificglass.com", "supplier123", "John Smith", "supplier", vendorIDs["Pacific Glass Co."], bcryptCost); err != nil {
		return fmt.Errorf("seed supplier: %w", err)
	}

	log.Info("seed complete")
	return nil
}

func seedVendor(ctx context.Context, db *sql.DB, name, address, phone string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, "SELECT id FROM vendors WHERE name=? LIMIT 1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id = uuid.NewString()
	_, err = db.ExecContext(ctx,
		"INSERT INTO vendors (id, name, address, phone) VALUES (?,?,?,?)",
		id, name, address, phone)
	return id, err
}

func seedContact(ctx context.Context, db *sql.DB, vendorID, name, email, phone string, primary bool) error {
	var id string
	err := db.QueryRowContext(ctx,
		"SELECT id FROM vendor_contacts WHERE vendor_id=? AND email=? LIMIT 1",
		vendorID, email).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO vendor_contacts (id, vendor_id, name, email, phone, is_primary) VALUES (?,?,?,?,?,?)",
		uuid.NewString(), vendorID, name, email, phone, primary)
	return err
}

// seedUser provisions a demo account, already approved.
func seedUser(ctx context.Context, db *sql.DB, email, password, name, role, vendorID string, cost int) error {
	var id string
	err := db.QueryRowContext(ctx, "SELECT id FROM users WHERE email=? LIMIT 1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	var vid any
	if vendorID != "" {
		vid = vendorID
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, name, role, vendor_id, status) VALUES (?,?,?,?,?,?,'approved')",
		uuid.NewString(), email, hash, name, role, vid)
	return err
}
